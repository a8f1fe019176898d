//go:build integration || unit || test

// Package commanddoubles provides hand-written doubles for command interfaces.
package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"sync"
	"time"

	"github.com/rios0rios0/devflow/internal/domain/commands"
	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/domain/repositories"
)

// StubSynchronizeCommand records synchronisation calls and tracks how many
// runs of the same source overlap. Delay makes every run take that long.
type StubSynchronizeCommand struct {
	Delay time.Duration
	Err   error

	mu         sync.Mutex
	calls      map[string]int
	running    map[string]int
	maxRunning map[string]int
}

var _ commands.Synchronize = (*StubSynchronizeCommand)(nil)

// NewStubSynchronizeCommand creates a stub that succeeds immediately.
func NewStubSynchronizeCommand() *StubSynchronizeCommand {
	return &StubSynchronizeCommand{
		calls:      make(map[string]int),
		running:    make(map[string]int),
		maxRunning: make(map[string]int),
	}
}

func (s *StubSynchronizeCommand) Execute(
	ctx context.Context,
	_ repositories.GatewayRepository,
	config entities.SyncConfig,
) (*entities.CoordinatedOperationReport, error) {
	key := config.Source
	s.mu.Lock()
	s.calls[key]++
	s.running[key]++
	if s.running[key] > s.maxRunning[key] {
		s.maxRunning[key] = s.running[key]
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running[key]--
		s.mu.Unlock()
	}()

	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
		}
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return entities.NewCoordinatedOperationReport("stub", "sync-"+string(config.Type), config.Targets), nil
}

// Calls returns how many times the source was synchronised.
func (s *StubSynchronizeCommand) Calls(source string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[source]
}

// MaxConcurrent returns the highest number of simultaneous runs seen for the source.
func (s *StubSynchronizeCommand) MaxConcurrent(source string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxRunning[source]
}
