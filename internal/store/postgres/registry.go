package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/squadmarket/internal/store"
)

// ManagerRepo implements store.ManagerRepository with sqlx.
type ManagerRepo struct {
	db sqlx.ExtContext
}

func (r *ManagerRepo) Upsert(ctx context.Context, row *store.ManagerRow) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO managers (manager_id, token_item_id, owner, ai_seed, tier, budget, persona,
		                       confidence, pressure, mood, next_decision_at, last_active_at, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (manager_id) DO UPDATE SET
		   token_item_id = EXCLUDED.token_item_id,
		   owner = EXCLUDED.owner,
		   ai_seed = EXCLUDED.ai_seed,
		   tier = EXCLUDED.tier,
		   budget = EXCLUDED.budget,
		   persona = EXCLUDED.persona,
		   confidence = EXCLUDED.confidence,
		   pressure = EXCLUDED.pressure,
		   mood = EXCLUDED.mood,
		   next_decision_at = EXCLUDED.next_decision_at,
		   last_active_at = EXCLUDED.last_active_at,
		   active = EXCLUDED.active`,
		row.ManagerID, row.TokenItemID, row.Owner, row.AISeed, row.Tier, row.Budget, row.Persona,
		row.Confidence, row.Pressure, row.Mood, row.NextDecisionAt, row.LastActiveAt, row.Active,
	)
	if err != nil {
		return fmt.Errorf("upserting manager: %w", err)
	}
	return nil
}

func (r *ManagerRepo) Get(ctx context.Context, managerID string) (*store.ManagerRow, error) {
	var row store.ManagerRow
	err := sqlx.GetContext(ctx, r.db, &row, `SELECT * FROM managers WHERE manager_id = $1`, managerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting manager: %w", err)
	}
	return &row, nil
}

func (r *ManagerRepo) GetByToken(ctx context.Context, itemID string) (*store.ManagerRow, error) {
	var row store.ManagerRow
	err := sqlx.GetContext(ctx, r.db, &row, `SELECT * FROM managers WHERE token_item_id = $1`, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting manager by token: %w", err)
	}
	return &row, nil
}

func (r *ManagerRepo) ListUnassigned(ctx context.Context) ([]store.ManagerRow, error) {
	var rows []store.ManagerRow
	err := sqlx.SelectContext(ctx, r.db, &rows,
		`SELECT * FROM managers WHERE active AND owner IS NULL ORDER BY manager_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing unassigned managers: %w", err)
	}
	return rows, nil
}

func (r *ManagerRepo) Update(ctx context.Context, row *store.ManagerRow) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE managers SET token_item_id = $1, owner = $2, ai_seed = $3, tier = $4, budget = $5,
		                     persona = $6, confidence = $7, pressure = $8, mood = $9,
		                     next_decision_at = $10, last_active_at = $11, active = $12
		 WHERE manager_id = $13`,
		row.TokenItemID, row.Owner, row.AISeed, row.Tier, row.Budget,
		row.Persona, row.Confidence, row.Pressure, row.Mood,
		row.NextDecisionAt, row.LastActiveAt, row.Active, row.ManagerID,
	)
	if err != nil {
		return fmt.Errorf("updating manager: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SquadRepo implements store.SquadRepository with sqlx.
type SquadRepo struct {
	db sqlx.ExtContext
}

func (r *SquadRepo) Upsert(ctx context.Context, s *store.SquadRow) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO squads (squad_id, source_id, followers, rank, token_item_id, owner, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (squad_id) DO UPDATE SET
		   source_id = EXCLUDED.source_id,
		   followers = EXCLUDED.followers,
		   rank = EXCLUDED.rank,
		   token_item_id = EXCLUDED.token_item_id,
		   owner = EXCLUDED.owner,
		   active = EXCLUDED.active`,
		s.SquadID, s.SourceID, s.Followers, s.Rank, s.TokenItemID, s.Owner, s.Active,
	)
	if err != nil {
		return fmt.Errorf("upserting squad: %w", err)
	}
	return nil
}

func (r *SquadRepo) Get(ctx context.Context, squadID string) (*store.SquadRow, error) {
	var s store.SquadRow
	err := sqlx.GetContext(ctx, r.db, &s, `SELECT * FROM squads WHERE squad_id = $1`, squadID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting squad: %w", err)
	}
	return &s, nil
}

func (r *SquadRepo) GetByToken(ctx context.Context, itemID string) (*store.SquadRow, error) {
	var s store.SquadRow
	err := sqlx.GetContext(ctx, r.db, &s, `SELECT * FROM squads WHERE token_item_id = $1`, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting squad by token: %w", err)
	}
	return &s, nil
}

func (r *SquadRepo) Update(ctx context.Context, s *store.SquadRow) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE squads SET source_id = $1, followers = $2, rank = $3, token_item_id = $4,
		                   owner = $5, active = $6
		 WHERE squad_id = $7`,
		s.SourceID, s.Followers, s.Rank, s.TokenItemID, s.Owner, s.Active, s.SquadID,
	)
	if err != nil {
		return fmt.Errorf("updating squad: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AssignmentRepo implements store.AssignmentRepository with sqlx.
type AssignmentRepo struct {
	db sqlx.ExtContext
}

func (r *AssignmentRepo) Put(ctx context.Context, a *store.Assignment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO assignments (account, manager_id, assigned_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (account, manager_id) DO NOTHING`,
		a.Account, a.ManagerID, a.AssignedAt,
	)
	if err != nil {
		return fmt.Errorf("putting assignment: %w", err)
	}
	return nil
}

func (r *AssignmentRepo) Get(ctx context.Context, account, managerID string) (*store.Assignment, error) {
	var a store.Assignment
	err := sqlx.GetContext(ctx, r.db, &a,
		`SELECT * FROM assignments WHERE account = $1 AND manager_id = $2`, account, managerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting assignment: %w", err)
	}
	return &a, nil
}

func (r *AssignmentRepo) ListByAccount(ctx context.Context, account string) ([]store.Assignment, error) {
	var rows []store.Assignment
	err := sqlx.SelectContext(ctx, r.db, &rows,
		`SELECT * FROM assignments WHERE account = $1 ORDER BY assigned_at ASC, manager_id ASC`, account)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	return rows, nil
}
