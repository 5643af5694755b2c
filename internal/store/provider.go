package store

import (
	"context"
	"fmt"
	"io"

	"github.com/jensholdgaard/squadmarket/internal/clock"
	"github.com/jensholdgaard/squadmarket/internal/config"
	"github.com/jensholdgaard/squadmarket/internal/event"
)

// Repositories groups the repository implementations returned by a store
// driver. Engines never touch a driver directly; they receive one of these.
type Repositories struct {
	Items       ItemRepository
	Listings    ListingRepository
	Auctions    AuctionRepository
	Bids        BidRepository
	Matches     MatchRepository
	Managers    ManagerRepository
	Squads      SquadRepository
	Assignments AssignmentRepository
	Claims      StarterClaimRepository
	TxMarkers   TxMarkerRepository
	Responses   ResponseCacheRepository
	Inbox       InboxRepository
	Users       UserRepository
	Wallets     WalletLinkRepository
	Events      event.Store

	// Tx runs fn against a transaction-scoped repository set. Every write
	// fn performs commits together or not at all; fn sees a consistent
	// snapshot for its duration. On the set passed to fn, Tx, Closer and
	// Ping are nil.
	Tx func(ctx context.Context, fn func(tx *Repositories) error) error

	// Closer releases underlying resources (e.g. the DB connection).
	Closer io.Closer
	// Ping checks the underlying connection health.
	Ping func(ctx context.Context) error
}

// Driver opens a connection and returns Repositories.
type Driver func(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*Repositories, error)

var registry = map[string]Driver{}

// Register adds a named driver to the global registry. It is intended to be
// called from init() in each driver package.
func Register(name string, d Driver) {
	registry[name] = d
}

// Open selects the driver named in cfg.Driver and returns Repositories.
func Open(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*Repositories, error) {
	d, ok := registry[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unknown store driver %q (registered: %v)", cfg.Driver, registeredNames())
	}
	return d(ctx, cfg, clk)
}

func registeredNames() []string {
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	return names
}
