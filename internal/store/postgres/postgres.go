// Package postgres is the production store driver, built on sqlx over
// lib/pq with OTEL instrumentation.
package postgres

import (
	"context"
	"fmt"

	"github.com/XSAM/otelsql"
	"github.com/jmoiron/sqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/jensholdgaard/squadmarket/internal/clock"
	"github.com/jensholdgaard/squadmarket/internal/config"
	"github.com/jensholdgaard/squadmarket/internal/store"
)

func init() {
	store.Register("postgres", func(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
		db, err := Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return New(db), nil
	})
}

// Connect opens and verifies a Postgres connection with OTEL instrumentation.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := cfg.DSN()

	// Register the OTel-instrumented driver wrapping lib/pq.
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		return nil, fmt.Errorf("registering otel driver: %w", err)
	}

	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// New wires all repositories over the given connection. Repositories run
// directly against the pool; Tx rebinds the same repository set to a single
// database transaction so everything inside commits or rolls back together.
func New(db *sqlx.DB) *store.Repositories {
	repos := bind(db)
	repos.Tx = func(ctx context.Context, fn func(tx *store.Repositories) error) error {
		dbtx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		if err := fn(bind(dbtx)); err != nil {
			if rbErr := dbtx.Rollback(); rbErr != nil {
				return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
			}
			return err
		}
		if err := dbtx.Commit(); err != nil {
			return fmt.Errorf("committing transaction: %w", err)
		}
		return nil
	}
	repos.Closer = db
	repos.Ping = db.PingContext
	return repos
}

// bind builds a repository set over any sqlx executor, either the pool or a
// transaction.
func bind(db sqlx.ExtContext) *store.Repositories {
	return &store.Repositories{
		Items:       &ItemRepo{db: db},
		Listings:    &ListingRepo{db: db},
		Auctions:    &AuctionRepo{db: db},
		Bids:        &BidRepo{db: db},
		Matches:     &MatchRepo{db: db},
		Managers:    &ManagerRepo{db: db},
		Squads:      &SquadRepo{db: db},
		Assignments: &AssignmentRepo{db: db},
		Claims:      &StarterClaimRepo{db: db},
		TxMarkers:   &TxMarkerRepo{db: db},
		Responses:   &ResponseCacheRepo{db: db},
		Inbox:       &InboxRepo{db: db},
		Users:       &UserRepo{db: db},
		Wallets:     &WalletLinkRepo{db: db},
		Events:      &EventRepo{db: db},
	}
}
