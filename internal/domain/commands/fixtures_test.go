//go:build unit

package commands_test

import (
	"sync"

	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/infrastructure/repositories/memory"
	"github.com/rios0rios0/devflow/test/domain/entitybuilders"
)

// eventRecorder collects the events published on a bus.
type eventRecorder struct {
	mu     sync.Mutex
	events []entities.Event
}

func recordEvents(bus *entities.EventBus) *eventRecorder {
	recorder := &eventRecorder{}
	bus.Subscribe(func(event entities.Event) {
		recorder.mu.Lock()
		defer recorder.mu.Unlock()
		recorder.events = append(recorder.events, event)
	})
	return recorder
}

func (r *eventRecorder) ofType(eventType entities.EventType) []entities.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entities.Event
	for _, event := range r.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

func newDescriptor(id string, role entities.RepositoryRole, dependencies ...string) entities.RepositoryDescriptor {
	return entitybuilders.NewRepositoryDescriptorBuilder().
		WithName(id).
		WithRole(role).
		WithDependencies(dependencies...).
		WithDefaultBranch("main").
		BuildDescriptor()
}

func newRegistry(descriptors ...entities.RepositoryDescriptor) *memory.RegistryRepository {
	registry := memory.NewRegistryRepository()
	for _, descriptor := range descriptors {
		registry.Store(descriptor)
	}
	return registry
}

func ids(outcomes []entities.OperationOutcome) []string {
	out := make([]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		out = append(out, outcome.Repository)
	}
	return out
}
