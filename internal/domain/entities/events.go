package entities

import (
	"sync"
	"time"
)

// EventType names something the engine did that other subsystems may care about.
type EventType string

const (
	EventBranchCreated        EventType = "branch.created"
	EventBranchExists         EventType = "branch.exists"
	EventConflictDetected     EventType = "conflict.detected"
	EventPullRequestCreated   EventType = "pull_request.created"
	EventRepositoryRegistered EventType = "repository.registered"
	EventOperationCompleted   EventType = "operation.completed"
	EventRollbackCompleted    EventType = "rollback.completed"
	EventReleaseCompleted     EventType = "release.completed"
	EventReleaseFailed        EventType = "release.failed"
	EventSyncCompleted        EventType = "sync.completed"
)

// Event is a typed notification published after an operation step.
type Event struct {
	Type       EventType
	Repository string
	Subject    string
	Detail     string
	OccurredAt time.Time
}

// EventHandler receives published events. Handlers run synchronously on the
// publishing goroutine and must not block.
type EventHandler func(Event)

// EventBus fans events out to the subscribed handlers. A bus with no
// subscribers is a no-op.
type EventBus struct {
	mu       sync.RWMutex
	handlers []EventHandler
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers a handler for every future event.
func (b *EventBus) Subscribe(handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Publish delivers the event to every handler.
func (b *EventBus) Publish(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.handlers...)
	b.mu.RUnlock()
	for _, handler := range handlers {
		handler(event)
	}
}
