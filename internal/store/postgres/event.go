package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/squadmarket/internal/event"
)

// EventRepo implements event.Store with sqlx. Events are append-only.
type EventRepo struct {
	db sqlx.ExtContext
}

func (r *EventRepo) Append(ctx context.Context, events ...event.Event) error {
	for _, e := range events {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO events (id, at, kind, actor, topic, payload)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			e.ID, e.At, e.Kind, e.Actor, e.Topic, []byte(e.Payload),
		)
		if err != nil {
			return fmt.Errorf("appending event: %w", err)
		}
	}
	return nil
}

func (r *EventRepo) ListByTopic(ctx context.Context, topic string) ([]event.Event, error) {
	var events []event.Event
	err := sqlx.SelectContext(ctx, r.db, &events,
		`SELECT * FROM events WHERE topic = $1 ORDER BY at ASC, id ASC`, topic)
	if err != nil {
		return nil, fmt.Errorf("listing events by topic: %w", err)
	}
	return events, nil
}

func (r *EventRepo) ListByKind(ctx context.Context, kind event.Type) ([]event.Event, error) {
	var events []event.Event
	err := sqlx.SelectContext(ctx, r.db, &events,
		`SELECT * FROM events WHERE kind = $1 ORDER BY at ASC, id ASC`, kind)
	if err != nil {
		return nil, fmt.Errorf("listing events by kind: %w", err)
	}
	return events, nil
}
