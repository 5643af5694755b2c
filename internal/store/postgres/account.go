package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/squadmarket/internal/store"
)

// UserRepo implements store.UserRepository with sqlx.
type UserRepo struct {
	db sqlx.ExtContext
}

func (r *UserRepo) Upsert(ctx context.Context, u *store.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (account, wallet, created_at, is_npc, elo, display_name, persona)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (account) DO UPDATE SET
		   wallet = EXCLUDED.wallet,
		   is_npc = EXCLUDED.is_npc,
		   elo = EXCLUDED.elo,
		   display_name = EXCLUDED.display_name,
		   persona = EXCLUDED.persona`,
		u.Account, u.Wallet, u.CreatedAt, u.IsNPC, u.Elo, u.DisplayName, u.Persona,
	)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, account string) (*store.User, error) {
	var u store.User
	err := sqlx.GetContext(ctx, r.db, &u, `SELECT * FROM users WHERE account = $1`, account)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

// WalletLinkRepo implements store.WalletLinkRepository with sqlx.
type WalletLinkRepo struct {
	db sqlx.ExtContext
}

func (r *WalletLinkRepo) Replace(ctx context.Context, l *store.WalletLink) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO wallet_links (address, account, linked_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (address) DO UPDATE SET
		   account = EXCLUDED.account,
		   linked_at = EXCLUDED.linked_at`,
		l.Address, l.Account, l.LinkedAt,
	)
	if err != nil {
		return fmt.Errorf("replacing wallet link: %w", err)
	}
	return nil
}

func (r *WalletLinkRepo) Get(ctx context.Context, address string) (*store.WalletLink, error) {
	var l store.WalletLink
	err := sqlx.GetContext(ctx, r.db, &l, `SELECT * FROM wallet_links WHERE address = $1`, address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting wallet link: %w", err)
	}
	return &l, nil
}

// StarterClaimRepo implements store.StarterClaimRepository with sqlx.
type StarterClaimRepo struct {
	db sqlx.ExtContext
}

func (r *StarterClaimRepo) Create(ctx context.Context, c *store.StarterClaim) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO starter_claims (account, claimed_at) VALUES ($1, $2)`,
		c.Account, c.ClaimedAt,
	)
	if err != nil {
		return fmt.Errorf("creating starter claim: %w", err)
	}
	return nil
}

func (r *StarterClaimRepo) Get(ctx context.Context, account string) (*store.StarterClaim, error) {
	var c store.StarterClaim
	err := sqlx.GetContext(ctx, r.db, &c, `SELECT * FROM starter_claims WHERE account = $1`, account)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting starter claim: %w", err)
	}
	return &c, nil
}
