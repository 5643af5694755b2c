package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/squadmarket/internal/store"
)

// MatchRepo implements store.MatchRepository with sqlx.
type MatchRepo struct {
	db sqlx.ExtContext
}

func (r *MatchRepo) Create(ctx context.Context, m *store.Match) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO matches (id, challenger, challenged, status, created_at, accepted_at, result)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.Challenger, m.Challenged, m.Status, m.CreatedAt, m.AcceptedAt, m.Result,
	)
	if err != nil {
		return fmt.Errorf("creating match: %w", err)
	}
	return nil
}

func (r *MatchRepo) Get(ctx context.Context, id string) (*store.Match, error) {
	var m store.Match
	err := sqlx.GetContext(ctx, r.db, &m, `SELECT * FROM matches WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting match: %w", err)
	}
	return &m, nil
}

func (r *MatchRepo) Update(ctx context.Context, m *store.Match) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE matches SET status = $1, accepted_at = $2, result = $3 WHERE id = $4`,
		m.Status, m.AcceptedAt, m.Result, m.ID,
	)
	if err != nil {
		return fmt.Errorf("updating match: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *MatchRepo) HasPendingBetween(ctx context.Context, a, b string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.db, &exists,
		`SELECT EXISTS (
		   SELECT 1 FROM matches
		   WHERE status = 'pending'
		     AND ((challenger = $1 AND challenged = $2) OR (challenger = $2 AND challenged = $1))
		 )`, a, b)
	if err != nil {
		return false, fmt.Errorf("checking pending matches: %w", err)
	}
	return exists, nil
}
