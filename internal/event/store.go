package event

import "context"

// Store persists and retrieves audit events.
type Store interface {
	// Append persists one or more events. Callers that need the events to
	// commit with a state change run Append inside the same transaction.
	Append(ctx context.Context, events ...Event) error
	// ListByTopic returns all events for a topic, oldest first.
	ListByTopic(ctx context.Context, topic string) ([]Event, error)
	// ListByKind returns events filtered by kind, oldest first.
	ListByKind(ctx context.Context, kind Type) ([]Event, error)
}
