package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/squadmarket/internal/event"
	"github.com/jensholdgaard/squadmarket/internal/store"
	"github.com/jensholdgaard/squadmarket/internal/wei"
)

// CreateListing puts an owned, unheld item up for sale at a fixed price.
func (m *Manager) CreateListing(ctx context.Context, seller, itemID, price string) (*store.Listing, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.CreateListing",
		trace.WithAttributes(
			attribute.String("seller", seller),
			attribute.String("item_id", itemID),
		),
	)
	defer span.End()

	if _, err := wei.Parse(price); err != nil {
		return nil, fmt.Errorf("listing price: %w", err)
	}

	var listing *store.Listing
	err := m.store.Tx(ctx, func(tx *store.Repositories) error {
		now := m.clock.Now().UTC()
		if _, err := m.sellable(ctx, tx, seller, itemID, now); err != nil {
			return err
		}

		listing = &store.Listing{
			ID:        store.NewID("lst", seller+":"+itemID, now),
			ItemID:    itemID,
			Seller:    seller,
			Price:     price,
			Status:    store.ListingActive,
			CreatedAt: now,
		}
		return tx.Listings.Create(ctx, listing)
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "listing created",
		slog.String("listing_id", listing.ID),
		slog.String("seller", seller),
		slog.String("item_id", itemID),
	)
	return listing, nil
}

// CloseListing marks an active listing sold to buyer and transfers the item.
// Payment verification is the caller's responsibility; by the time this runs
// the sale is already settled externally.
func (m *Manager) CloseListing(ctx context.Context, listingID, buyer string) (*store.Listing, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.CloseListing",
		trace.WithAttributes(
			attribute.String("listing_id", listingID),
			attribute.String("buyer", buyer),
		),
	)
	defer span.End()

	var listing *store.Listing
	err := m.store.Tx(ctx, func(tx *store.Repositories) error {
		l, err := tx.Listings.Get(ctx, listingID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrListingNotFound
		}
		if err != nil {
			return err
		}
		if l.Status != store.ListingActive {
			return ErrListingClosed
		}

		now := m.clock.Now().UTC()
		l.Status = store.ListingClosed
		l.ClosedAt = &now
		if err := tx.Listings.Update(ctx, l); err != nil {
			return err
		}

		data, _ := json.Marshal(event.ListingSoldData{
			ListingID: l.ID,
			ItemID:    l.ItemID,
			Seller:    l.Seller,
			Buyer:     buyer,
			Price:     l.Price,
		})
		evt := event.Event{
			ID:      store.NewID("evt", string(event.ListingSold)+":"+l.ID, now),
			At:      now,
			Kind:    event.ListingSold,
			Actor:   buyer,
			Topic:   &l.ID,
			Payload: data,
		}
		if err := tx.Events.Append(ctx, evt); err != nil {
			return fmt.Errorf("appending sold event: %w", err)
		}

		if err := m.ledger.Transfer(ctx, tx, l.ItemID, l.Seller, buyer, evt.ID); err != nil {
			return err
		}

		if err := tx.Inbox.Push(ctx, &store.Message{
			ID:        "listing-sold-" + evt.ID,
			Account:   l.Seller,
			Kind:      "listing_sold",
			Title:     "Item Sold!",
			Body:      "Your item was purchased.",
			CreatedAt: now,
		}); err != nil {
			return err
		}
		if err := tx.Inbox.Push(ctx, &store.Message{
			ID:        "listing-bought-" + evt.ID,
			Account:   buyer,
			Kind:      "listing_bought",
			Title:     "Purchase Complete",
			Body:      "You bought an item.",
			CreatedAt: now,
		}); err != nil {
			return err
		}

		listing = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "listing sold",
		slog.String("listing_id", listingID),
		slog.String("buyer", buyer),
	)
	return listing, nil
}
