package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/squadmarket/internal/store"
)

// ListingRepo implements store.ListingRepository with sqlx.
type ListingRepo struct {
	db sqlx.ExtContext
}

func (r *ListingRepo) Create(ctx context.Context, l *store.Listing) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO listings (id, item_id, seller, price, status, created_at, closed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		l.ID, l.ItemID, l.Seller, l.Price, l.Status, l.CreatedAt, l.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("creating listing: %w", err)
	}
	return nil
}

func (r *ListingRepo) Get(ctx context.Context, id string) (*store.Listing, error) {
	var l store.Listing
	err := sqlx.GetContext(ctx, r.db, &l, `SELECT * FROM listings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting listing: %w", err)
	}
	return &l, nil
}

func (r *ListingRepo) Update(ctx context.Context, l *store.Listing) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE listings SET status = $1, closed_at = $2 WHERE id = $3`,
		l.Status, l.ClosedAt, l.ID,
	)
	if err != nil {
		return fmt.Errorf("updating listing: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *ListingRepo) ListActive(ctx context.Context) ([]store.Listing, error) {
	var listings []store.Listing
	err := sqlx.SelectContext(ctx, r.db, &listings,
		`SELECT * FROM listings WHERE status = 'active' ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing active listings: %w", err)
	}
	return listings, nil
}
