package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/squadmarket/internal/store"
)

// ItemRepo implements store.ItemRepository with sqlx.
type ItemRepo struct {
	db sqlx.ExtContext
}

func (r *ItemRepo) Put(ctx context.Context, item *store.Item) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO items (id, owner, kind, acquired_at, hold_until, source_event)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   owner = EXCLUDED.owner,
		   kind = EXCLUDED.kind,
		   acquired_at = EXCLUDED.acquired_at,
		   hold_until = EXCLUDED.hold_until,
		   source_event = EXCLUDED.source_event`,
		item.ID, item.Owner, item.Kind, item.AcquiredAt, item.HoldUntil, item.SourceEvent,
	)
	if err != nil {
		return fmt.Errorf("putting item: %w", err)
	}
	return nil
}

func (r *ItemRepo) Get(ctx context.Context, id string) (*store.Item, error) {
	var item store.Item
	err := sqlx.GetContext(ctx, r.db, &item, `SELECT * FROM items WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return &item, nil
}

func (r *ItemRepo) Update(ctx context.Context, item *store.Item) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE items SET owner = $1, kind = $2, acquired_at = $3, hold_until = $4, source_event = $5
		 WHERE id = $6`,
		item.Owner, item.Kind, item.AcquiredAt, item.HoldUntil, item.SourceEvent, item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *ItemRepo) ListByOwner(ctx context.Context, owner string) ([]store.Item, error) {
	var items []store.Item
	err := sqlx.SelectContext(ctx, r.db, &items,
		`SELECT * FROM items WHERE owner = $1 ORDER BY acquired_at ASC, id ASC`, owner)
	if err != nil {
		return nil, fmt.Errorf("listing items by owner: %w", err)
	}
	return items, nil
}
