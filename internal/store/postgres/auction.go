package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/squadmarket/internal/store"
)

// AuctionRepo implements store.AuctionRepository with sqlx.
type AuctionRepo struct {
	db sqlx.ExtContext
}

func (r *AuctionRepo) Create(ctx context.Context, a *store.Auction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auctions (id, item_id, seller, reserve, ends_at, status, top_bid, top_bidder,
		                       buy_now, anti_snipe_used, created_at, finalized_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.ItemID, a.Seller, a.Reserve, a.EndsAt, a.Status, a.TopBid, a.TopBidder,
		a.BuyNow, a.AntiSnipeUsed, a.CreatedAt, a.FinalizedAt,
	)
	if err != nil {
		return fmt.Errorf("creating auction: %w", err)
	}
	return nil
}

func (r *AuctionRepo) Get(ctx context.Context, id string) (*store.Auction, error) {
	var a store.Auction
	err := sqlx.GetContext(ctx, r.db, &a, `SELECT * FROM auctions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting auction: %w", err)
	}
	return &a, nil
}

func (r *AuctionRepo) Update(ctx context.Context, a *store.Auction) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE auctions SET ends_at = $1, status = $2, top_bid = $3, top_bidder = $4,
		                     anti_snipe_used = $5, finalized_at = $6
		 WHERE id = $7`,
		a.EndsAt, a.Status, a.TopBid, a.TopBidder, a.AntiSnipeUsed, a.FinalizedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("updating auction: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *AuctionRepo) ListActive(ctx context.Context) ([]store.Auction, error) {
	var auctions []store.Auction
	err := sqlx.SelectContext(ctx, r.db, &auctions,
		`SELECT * FROM auctions WHERE status = 'active' ORDER BY ends_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing active auctions: %w", err)
	}
	return auctions, nil
}

// BidRepo implements store.BidRepository with sqlx.
type BidRepo struct {
	db sqlx.ExtContext
}

func (r *BidRepo) Append(ctx context.Context, b *store.Bid) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bids (id, auction_id, bidder, amount, placed_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.AuctionID, b.Bidder, b.Amount, b.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("appending bid: %w", err)
	}
	return nil
}

func (r *BidRepo) ListByAuction(ctx context.Context, auctionID string) ([]store.Bid, error) {
	var bids []store.Bid
	err := sqlx.SelectContext(ctx, r.db, &bids,
		`SELECT * FROM bids WHERE auction_id = $1 ORDER BY placed_at ASC, id ASC`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("listing bids: %w", err)
	}
	return bids, nil
}
