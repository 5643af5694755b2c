// Package ledger implements the ownership transfer protocol. The item table
// is the single source of truth for ownership; manager and squad registry
// rows carry a denormalized owner copy that must be resynchronized in the
// same transaction as any transfer of the corresponding item.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jensholdgaard/squadmarket/internal/clock"
	"github.com/jensholdgaard/squadmarket/internal/store"
)

// Errors returned by ledger operations.
var (
	ErrItemNotFound = errors.New("item not found")
	ErrNotOwner     = errors.New("account does not own the item")
)

// Ledger applies ownership changes to the item table and keeps registry
// mirrors in sync. Its methods run against a transaction-scoped repository
// set supplied by the caller, so its writes commit with the caller's.
type Ledger struct {
	clock  clock.Clock
	logger *slog.Logger
}

// New returns a Ledger.
func New(clk clock.Clock, logger *slog.Logger) *Ledger {
	return &Ledger{clock: clk, logger: logger}
}

// Transfer reassigns an item from expectedOwner to newOwner, restamping the
// acquisition time and provenance event. After the ownership write it syncs
// whichever registry mirrors the item's kind.
func (l *Ledger) Transfer(ctx context.Context, tx *store.Repositories, itemID, expectedOwner, newOwner, provenance string) error {
	item, err := tx.Items.Get(ctx, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrItemNotFound
	}
	if err != nil {
		return fmt.Errorf("loading item: %w", err)
	}
	if item.Owner != expectedOwner {
		return ErrNotOwner
	}

	item.Owner = newOwner
	item.AcquiredAt = l.clock.Now().UTC()
	item.SourceEvent = provenance
	if err := tx.Items.Update(ctx, item); err != nil {
		return fmt.Errorf("updating item owner: %w", err)
	}

	return l.syncMirror(ctx, tx, item)
}

// Mint inserts an item into the ledger unless one with the same id already
// exists. It reports whether a new item was created.
func (l *Ledger) Mint(ctx context.Context, tx *store.Repositories, item *store.Item) (bool, error) {
	_, err := tx.Items.Get(ctx, item.ID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("checking item: %w", err)
	}
	if err := tx.Items.Put(ctx, item); err != nil {
		return false, fmt.Errorf("minting item: %w", err)
	}
	return true, nil
}

// syncMirror copies the item's owner onto the registry row whose token
// reference matches the item. A missing row is a benign no-op: the item
// still transfers, only the mirror stays blank.
func (l *Ledger) syncMirror(ctx context.Context, tx *store.Repositories, item *store.Item) error {
	switch item.Kind {
	case store.KindManagerToken:
		row, err := tx.Managers.GetByToken(ctx, item.ID)
		if errors.Is(err, store.ErrNotFound) {
			l.logger.WarnContext(ctx, "no manager registry row for token",
				slog.String("item_id", item.ID))
			return nil
		}
		if err != nil {
			return fmt.Errorf("looking up manager mirror: %w", err)
		}
		owner := item.Owner
		row.Owner = &owner
		if err := tx.Managers.Update(ctx, row); err != nil {
			return fmt.Errorf("syncing manager mirror: %w", err)
		}

	case store.KindSquadToken:
		row, err := tx.Squads.GetByToken(ctx, item.ID)
		if errors.Is(err, store.ErrNotFound) {
			l.logger.WarnContext(ctx, "no squad registry row for token",
				slog.String("item_id", item.ID))
			return nil
		}
		if err != nil {
			return fmt.Errorf("looking up squad mirror: %w", err)
		}
		row.Owner = item.Owner
		if err := tx.Squads.Update(ctx, row); err != nil {
			return fmt.Errorf("syncing squad mirror: %w", err)
		}
	}
	return nil
}
