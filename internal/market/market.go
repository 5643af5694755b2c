// Package market implements the fixed-price listing engine and the timed
// auction engine. Both settle through the ledger's transfer protocol and
// commit all of their writes in one transaction.
package market

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/squadmarket/internal/clock"
	"github.com/jensholdgaard/squadmarket/internal/ledger"
	"github.com/jensholdgaard/squadmarket/internal/store"
)

// Errors returned by market operations.
var (
	ErrItemOnHold      = errors.New("item is in its hold period")
	ErrListingNotFound = errors.New("listing not found")
	ErrListingClosed   = errors.New("listing is closed")
	ErrAuctionNotFound = errors.New("auction not found")
	ErrAuctionClosed   = errors.New("auction is not active")
	ErrAuctionEnded    = errors.New("auction has ended")
	ErrBelowReserve    = errors.New("bid is below the reserve")
	ErrBelowIncrement  = errors.New("bid is below the minimum increment")
	ErrBuyNowMismatch  = errors.New("buy-now price mismatch")
	ErrNotWinner       = errors.New("account is not the winning bidder")
)

// Config holds the market's policy knobs.
type Config struct {
	// PrivilegedAccount may list or auction items still in their hold
	// period. Empty means nobody can.
	PrivilegedAccount string
	// AntiSnipeWindow is the trigger window before the deadline and the
	// one-time extension applied when a bid lands inside it.
	AntiSnipeWindow time.Duration
}

// Manager coordinates listings and auctions.
type Manager struct {
	store  *store.Repositories
	ledger *ledger.Ledger
	cfg    Config
	logger *slog.Logger
	tracer trace.Tracer
	clock  clock.Clock
}

// NewManager returns a market Manager.
func NewManager(repos *store.Repositories, led *ledger.Ledger, cfg Config, logger *slog.Logger, tp trace.TracerProvider, clk clock.Clock) *Manager {
	return &Manager{
		store:  repos,
		ledger: led,
		cfg:    cfg,
		logger: logger,
		tracer: tp.Tracer("github.com/jensholdgaard/squadmarket/internal/market"),
		clock:  clk,
	}
}

// sellable verifies the item exists, is owned by seller, and is out of its
// hold period (unless seller is the privileged account).
func (m *Manager) sellable(ctx context.Context, tx *store.Repositories, seller, itemID string, now time.Time) (*store.Item, error) {
	item, err := tx.Items.Get(ctx, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ledger.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	if item.Owner != seller {
		return nil, ledger.ErrNotOwner
	}
	if now.Before(item.HoldUntil) && seller != m.cfg.PrivilegedAccount {
		return nil, ErrItemOnHold
	}
	return item, nil
}
