package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/squadmarket/internal/event"
	"github.com/jensholdgaard/squadmarket/internal/store"
	"github.com/jensholdgaard/squadmarket/internal/wei"
)

// CreateAuction opens a timed auction for an owned, unheld item. buyNow is
// optional; when set, BuyNow settles the auction at exactly that price.
func (m *Manager) CreateAuction(ctx context.Context, seller, itemID, reserve string, duration time.Duration, buyNow *string) (*store.Auction, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.CreateAuction",
		trace.WithAttributes(
			attribute.String("seller", seller),
			attribute.String("item_id", itemID),
		),
	)
	defer span.End()

	if _, err := wei.Parse(reserve); err != nil {
		return nil, fmt.Errorf("auction reserve: %w", err)
	}
	if buyNow != nil {
		if _, err := wei.Parse(*buyNow); err != nil {
			return nil, fmt.Errorf("buy-now price: %w", err)
		}
	}

	var auction *store.Auction
	err := m.store.Tx(ctx, func(tx *store.Repositories) error {
		now := m.clock.Now().UTC()
		if _, err := m.sellable(ctx, tx, seller, itemID, now); err != nil {
			return err
		}

		auction = &store.Auction{
			ID:        store.NewID("auc", seller+":"+itemID, now),
			ItemID:    itemID,
			Seller:    seller,
			Reserve:   reserve,
			EndsAt:    now.Add(duration),
			Status:    store.AuctionActive,
			BuyNow:    buyNow,
			CreatedAt: now,
		}
		return tx.Auctions.Create(ctx, auction)
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "auction created",
		slog.String("auction_id", auction.ID),
		slog.String("seller", seller),
		slog.String("item_id", itemID),
	)
	return auction, nil
}

// PlaceBid records a bid on an active auction. The first bid must meet the
// reserve; later bids must raise the top bid by at least 2%, rounded up. A
// bid landing within the anti-snipe window extends the deadline once.
func (m *Manager) PlaceBid(ctx context.Context, bidder, auctionID, amount string) (*store.Auction, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.PlaceBid",
		trace.WithAttributes(
			attribute.String("auction_id", auctionID),
			attribute.String("bidder", bidder),
			attribute.String("amount", amount),
		),
	)
	defer span.End()

	next, err := wei.Parse(amount)
	if err != nil {
		return nil, fmt.Errorf("bid amount: %w", err)
	}

	var auction *store.Auction
	var extended bool
	err = m.store.Tx(ctx, func(tx *store.Repositories) error {
		a, err := getAuction(ctx, tx, auctionID)
		if err != nil {
			return err
		}
		if a.Status != store.AuctionActive {
			return ErrAuctionClosed
		}
		now := m.clock.Now().UTC()
		if now.After(a.EndsAt) {
			return ErrAuctionEnded
		}

		if a.TopBid == nil {
			reserve, err := wei.Parse(a.Reserve)
			if err != nil {
				return fmt.Errorf("stored reserve: %w", err)
			}
			if wei.Less(next, reserve) {
				return ErrBelowReserve
			}
		} else {
			top, err := wei.Parse(*a.TopBid)
			if err != nil {
				return fmt.Errorf("stored top bid: %w", err)
			}
			if wei.Less(next, wei.MinIncrement(top)) {
				return ErrBelowIncrement
			}
		}

		bid := &store.Bid{
			ID:        store.NewID("bid", bidder+":"+auctionID+":"+amount, now),
			AuctionID: auctionID,
			Bidder:    bidder,
			Amount:    amount,
			PlacedAt:  now,
		}
		if err := tx.Bids.Append(ctx, bid); err != nil {
			return err
		}

		// One extension per auction, no matter how many bids land inside
		// the trigger window afterwards.
		if !a.AntiSnipeUsed && a.EndsAt.Sub(now) <= m.cfg.AntiSnipeWindow {
			a.EndsAt = a.EndsAt.Add(m.cfg.AntiSnipeWindow)
			a.AntiSnipeUsed = true
			extended = true
		}

		a.TopBid = &amount
		a.TopBidder = &bidder
		if err := tx.Auctions.Update(ctx, a); err != nil {
			return err
		}

		data, _ := json.Marshal(event.BidPlacedData{
			AuctionID: auctionID,
			Bidder:    bidder,
			Amount:    amount,
		})
		evt := event.Event{
			ID:      store.NewID("evt", string(event.AuctionBidPlaced)+":"+bid.ID, now),
			At:      now,
			Kind:    event.AuctionBidPlaced,
			Actor:   bidder,
			Topic:   &auctionID,
			Payload: data,
		}
		if err := tx.Events.Append(ctx, evt); err != nil {
			return fmt.Errorf("appending bid event: %w", err)
		}

		auction = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "bid placed",
		slog.String("auction_id", auctionID),
		slog.String("bidder", bidder),
		slog.String("amount", amount),
		slog.Bool("deadline_extended", extended),
	)
	return auction, nil
}

// BuyNow settles an active auction immediately at its configured buy-now
// price. The offered price must match the stored one byte for byte; a
// numerically equal but differently formatted string is rejected.
func (m *Manager) BuyNow(ctx context.Context, buyer, auctionID, offered string) (*store.Auction, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.BuyNow",
		trace.WithAttributes(
			attribute.String("auction_id", auctionID),
			attribute.String("buyer", buyer),
		),
	)
	defer span.End()

	var auction *store.Auction
	err := m.store.Tx(ctx, func(tx *store.Repositories) error {
		a, err := getAuction(ctx, tx, auctionID)
		if err != nil {
			return err
		}
		if a.Status != store.AuctionActive {
			return ErrAuctionClosed
		}
		if a.BuyNow == nil || *a.BuyNow != offered {
			return ErrBuyNowMismatch
		}

		now := m.clock.Now().UTC()
		evt, err := m.settle(ctx, tx, a, event.AuctionBuyNow, buyer, offered, now)
		if err != nil {
			return err
		}

		a.Status = store.AuctionFinalized
		a.FinalizedAt = &now
		a.TopBid = &offered
		a.TopBidder = &buyer
		if err := tx.Auctions.Update(ctx, a); err != nil {
			return err
		}

		if err := m.ledger.Transfer(ctx, tx, a.ItemID, a.Seller, buyer, evt.ID); err != nil {
			return err
		}
		auction = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "auction settled by buy-now",
		slog.String("auction_id", auctionID),
		slog.String("buyer", buyer),
	)
	return auction, nil
}

// Finalize settles an active auction in favor of the recorded top bidder.
// Nothing finalizes auctions on a timer; once the deadline passes, bidding
// stops and someone must call this.
func (m *Manager) Finalize(ctx context.Context, winner, auctionID string) (*store.Auction, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Finalize",
		trace.WithAttributes(
			attribute.String("auction_id", auctionID),
			attribute.String("winner", winner),
		),
	)
	defer span.End()

	var auction *store.Auction
	err := m.store.Tx(ctx, func(tx *store.Repositories) error {
		a, err := getAuction(ctx, tx, auctionID)
		if err != nil {
			return err
		}
		if a.Status != store.AuctionActive {
			return ErrAuctionClosed
		}
		if a.TopBidder == nil || *a.TopBidder != winner {
			return ErrNotWinner
		}

		now := m.clock.Now().UTC()
		evt, err := m.settle(ctx, tx, a, event.AuctionFinalized, winner, *a.TopBid, now)
		if err != nil {
			return err
		}

		a.Status = store.AuctionFinalized
		a.FinalizedAt = &now
		if err := tx.Auctions.Update(ctx, a); err != nil {
			return err
		}

		if err := m.ledger.Transfer(ctx, tx, a.ItemID, a.Seller, winner, evt.ID); err != nil {
			return err
		}
		auction = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "auction finalized",
		slog.String("auction_id", auctionID),
		slog.String("winner", winner),
	)
	return auction, nil
}

func (m *Manager) settle(ctx context.Context, tx *store.Repositories, a *store.Auction, kind event.Type, winner, amount string, now time.Time) (*event.Event, error) {
	data, _ := json.Marshal(event.AuctionSettledData{
		AuctionID: a.ID,
		ItemID:    a.ItemID,
		Seller:    a.Seller,
		Winner:    winner,
		Amount:    amount,
	})
	evt := event.Event{
		ID:      store.NewID("evt", string(kind)+":"+a.ID, now),
		At:      now,
		Kind:    kind,
		Actor:   winner,
		Topic:   &a.ID,
		Payload: data,
	}
	if err := tx.Events.Append(ctx, evt); err != nil {
		return nil, fmt.Errorf("appending settlement event: %w", err)
	}
	return &evt, nil
}

func getAuction(ctx context.Context, tx *store.Repositories, id string) (*store.Auction, error) {
	a, err := tx.Auctions.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAuctionNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}
