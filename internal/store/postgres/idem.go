package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/squadmarket/internal/store"
)

// TxMarkerRepo implements store.TxMarkerRepository with sqlx.
type TxMarkerRepo struct {
	db sqlx.ExtContext
}

func (r *TxMarkerRepo) Create(ctx context.Context, m *store.TxMarker) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tx_markers (tx_ref, used_at, used_by, endpoint)
		 VALUES ($1, $2, $3, $4)`,
		m.TxRef, m.UsedAt, m.UsedBy, m.Endpoint,
	)
	if err != nil {
		return fmt.Errorf("creating tx marker: %w", err)
	}
	return nil
}

func (r *TxMarkerRepo) Get(ctx context.Context, txRef string) (*store.TxMarker, error) {
	var m store.TxMarker
	err := sqlx.GetContext(ctx, r.db, &m, `SELECT * FROM tx_markers WHERE tx_ref = $1`, txRef)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting tx marker: %w", err)
	}
	return &m, nil
}

// ResponseCacheRepo implements store.ResponseCacheRepository with sqlx.
type ResponseCacheRepo struct {
	db sqlx.ExtContext
}

func (r *ResponseCacheRepo) Put(ctx context.Context, c *store.CachedResponse) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO response_cache (id, endpoint, first_seen_at, response, ttl_until)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id, endpoint) DO UPDATE SET
		   first_seen_at = EXCLUDED.first_seen_at,
		   response = EXCLUDED.response,
		   ttl_until = EXCLUDED.ttl_until`,
		c.ID, c.Endpoint, c.FirstSeenAt, []byte(c.Response), c.TTLUntil,
	)
	if err != nil {
		return fmt.Errorf("putting cached response: %w", err)
	}
	return nil
}

func (r *ResponseCacheRepo) Get(ctx context.Context, id, endpoint string) (*store.CachedResponse, error) {
	var c store.CachedResponse
	err := sqlx.GetContext(ctx, r.db, &c,
		`SELECT * FROM response_cache WHERE id = $1 AND endpoint = $2`, id, endpoint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting cached response: %w", err)
	}
	return &c, nil
}

func (r *ResponseCacheRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM response_cache WHERE ttl_until < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired responses: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted responses: %w", err)
	}
	return n, nil
}
