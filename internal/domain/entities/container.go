package entities

import (
	"go.uber.org/dig"
)

// RegisterProviders registers all entity providers with the DIG container.
// Metrics and the event bus are singletons of the container, so every command
// resolved from one container shares them and two containers never do.
func RegisterProviders(container *dig.Container) error {
	if err := container.Provide(NewMetrics); err != nil {
		return err
	}
	if err := container.Provide(NewEventBus); err != nil {
		return err
	}
	return nil // Settings requires a config file path, provided by controllers layer
}
