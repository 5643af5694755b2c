package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jensholdgaard/squadmarket/internal/store"
)

// InboxRepo implements store.InboxRepository with sqlx.
type InboxRepo struct {
	db sqlx.ExtContext
}

func (r *InboxRepo) Push(ctx context.Context, m *store.Message) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO inbox (id, account, kind, title, body, created_at, read_at, delivered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.Account, m.Kind, m.Title, m.Body, m.CreatedAt, m.ReadAt, m.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("pushing inbox message: %w", err)
	}
	return nil
}

func (r *InboxRepo) ListByAccount(ctx context.Context, account string) ([]store.Message, error) {
	var msgs []store.Message
	err := sqlx.SelectContext(ctx, r.db, &msgs,
		`SELECT * FROM inbox WHERE account = $1 ORDER BY created_at ASC, id ASC`, account)
	if err != nil {
		return nil, fmt.Errorf("listing inbox: %w", err)
	}
	return msgs, nil
}

func (r *InboxRepo) ListUndelivered(ctx context.Context, limit int) ([]store.Message, error) {
	var msgs []store.Message
	err := sqlx.SelectContext(ctx, r.db, &msgs,
		`SELECT * FROM inbox WHERE delivered_at IS NULL ORDER BY created_at ASC, id ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing undelivered messages: %w", err)
	}
	return msgs, nil
}

func (r *InboxRepo) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE inbox SET delivered_at = $1 WHERE id = $2 AND delivered_at IS NULL`, at, id)
	if err != nil {
		return fmt.Errorf("marking message delivered: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *InboxRepo) MarkRead(ctx context.Context, account string, ids []string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE inbox SET read_at = $1 WHERE account = $2 AND id = ANY($3) AND read_at IS NULL`,
		at, account, pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("marking messages read: %w", err)
	}
	return nil
}
