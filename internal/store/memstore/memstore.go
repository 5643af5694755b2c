// Package memstore provides an in-memory store driver registered as
// "memory". It backs unit tests and local development. Transactions take a
// snapshot of the whole state and restore it if the transaction function
// fails, which gives the same all-or-nothing semantics as the Postgres
// driver.
package memstore

import (
	"context"
	"sync"

	"github.com/jensholdgaard/squadmarket/internal/clock"
	"github.com/jensholdgaard/squadmarket/internal/config"
	"github.com/jensholdgaard/squadmarket/internal/event"
	"github.com/jensholdgaard/squadmarket/internal/store"
)

func init() {
	store.Register("memory", func(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
		return New(clk), nil
	})
}

// state holds every table. Entities are stored by value; reads copy out.
type state struct {
	items         map[string]store.Item
	listings      map[string]store.Listing
	auctions      map[string]store.Auction
	bids          map[string][]store.Bid
	matches       map[string]store.Match
	managers      map[string]store.ManagerRow
	managerTokens map[string]string // token item id → manager id
	squads        map[string]store.SquadRow
	squadTokens   map[string]string
	assignments   map[string]store.Assignment
	claims        map[string]store.StarterClaim
	markers       map[string]store.TxMarker
	responses     map[string]store.CachedResponse
	inbox         []store.Message
	users         map[string]store.User
	wallets       map[string]store.WalletLink
	events        []event.Event
}

func newState() *state {
	return &state{
		items:         map[string]store.Item{},
		listings:      map[string]store.Listing{},
		auctions:      map[string]store.Auction{},
		bids:          map[string][]store.Bid{},
		matches:       map[string]store.Match{},
		managers:      map[string]store.ManagerRow{},
		managerTokens: map[string]string{},
		squads:        map[string]store.SquadRow{},
		squadTokens:   map[string]string{},
		assignments:   map[string]store.Assignment{},
		claims:        map[string]store.StarterClaim{},
		markers:       map[string]store.TxMarker{},
		responses:     map[string]store.CachedResponse{},
		users:         map[string]store.User{},
		wallets:       map[string]store.WalletLink{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.listings {
		c.listings[k] = v
	}
	for k, v := range s.auctions {
		c.auctions[k] = v
	}
	for k, v := range s.bids {
		c.bids[k] = append([]store.Bid(nil), v...)
	}
	for k, v := range s.matches {
		c.matches[k] = v
	}
	for k, v := range s.managers {
		c.managers[k] = v
	}
	for k, v := range s.managerTokens {
		c.managerTokens[k] = v
	}
	for k, v := range s.squads {
		c.squads[k] = v
	}
	for k, v := range s.squadTokens {
		c.squadTokens[k] = v
	}
	for k, v := range s.assignments {
		c.assignments[k] = v
	}
	for k, v := range s.claims {
		c.claims[k] = v
	}
	for k, v := range s.markers {
		c.markers[k] = v
	}
	for k, v := range s.responses {
		c.responses[k] = v
	}
	c.inbox = append([]store.Message(nil), s.inbox...)
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	c.events = append([]event.Event(nil), s.events...)
	return c
}

type locker interface {
	Lock()
	Unlock()
}

type noopLock struct{}

func (noopLock) Lock()   {}
func (noopLock) Unlock() {}

type db struct {
	mu sync.Mutex
	st *state
}

// New returns memory-backed Repositories. The zero state is empty.
func New(clk clock.Clock) *store.Repositories {
	d := &db{st: newState()}
	repos := newRepositories(d.st, &d.mu)
	repos.Tx = func(ctx context.Context, fn func(tx *store.Repositories) error) error {
		d.mu.Lock()
		defer d.mu.Unlock()
		snapshot := d.st.clone()
		// Tx-scoped repos skip locking; the outer call holds the mutex.
		if err := fn(newRepositories(d.st, noopLock{})); err != nil {
			*d.st = *snapshot
			return err
		}
		return nil
	}
	repos.Ping = func(ctx context.Context) error { return nil }
	repos.Closer = closerFunc(func() error { return nil })
	return repos
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func newRepositories(st *state, lk locker) *store.Repositories {
	return &store.Repositories{
		Items:       &itemRepo{st: st, lk: lk},
		Listings:    &listingRepo{st: st, lk: lk},
		Auctions:    &auctionRepo{st: st, lk: lk},
		Bids:        &bidRepo{st: st, lk: lk},
		Matches:     &matchRepo{st: st, lk: lk},
		Managers:    &managerRepo{st: st, lk: lk},
		Squads:      &squadRepo{st: st, lk: lk},
		Assignments: &assignmentRepo{st: st, lk: lk},
		Claims:      &claimRepo{st: st, lk: lk},
		TxMarkers:   &markerRepo{st: st, lk: lk},
		Responses:   &responseRepo{st: st, lk: lk},
		Inbox:       &inboxRepo{st: st, lk: lk},
		Users:       &userRepo{st: st, lk: lk},
		Wallets:     &walletRepo{st: st, lk: lk},
		Events:      &eventStore{st: st, lk: lk},
	}
}
