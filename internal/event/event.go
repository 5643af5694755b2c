package event

import (
	"encoding/json"
	"time"
)

// Type identifies an event kind.
type Type string

const (
	ListingSold      Type = "listing.sold"
	AuctionBidPlaced Type = "auction.bid_placed"
	AuctionBuyNow    Type = "auction.buy_now"
	AuctionFinalized Type = "auction.finalized"

	StarterGranted Type = "starter.granted"

	PvpCreated         Type = "pvp.created"
	PvpAccepted        Type = "pvp.accepted"
	PvpResultSubmitted Type = "pvp.result_submitted"

	ManagerTokenMinted Type = "npc.token_minted"
	ManagerAssigned    Type = "npc.assigned"

	WalletLinked Type = "wallet.linked"
)

// Event is one entry in the append-only audit trail. Every state-changing
// operation records at least one.
type Event struct {
	ID      string          `json:"id" db:"id"`
	At      time.Time       `json:"at" db:"at"`
	Kind    Type            `json:"kind" db:"kind"`
	Actor   string          `json:"actor" db:"actor"`
	Topic   *string         `json:"topic,omitempty" db:"topic"`
	Payload json.RawMessage `json:"payload" db:"payload"`
}

// ListingSoldData is the payload for ListingSold events.
type ListingSoldData struct {
	ListingID string `json:"listing_id"`
	ItemID    string `json:"item_id"`
	Seller    string `json:"seller"`
	Buyer     string `json:"buyer"`
	Price     string `json:"price"`
}

// BidPlacedData is the payload for AuctionBidPlaced events.
type BidPlacedData struct {
	AuctionID string `json:"auction_id"`
	Bidder    string `json:"bidder"`
	Amount    string `json:"amount"`
}

// AuctionSettledData is the payload for AuctionBuyNow and AuctionFinalized
// events.
type AuctionSettledData struct {
	AuctionID string `json:"auction_id"`
	ItemID    string `json:"item_id"`
	Seller    string `json:"seller"`
	Winner    string `json:"winner"`
	Amount    string `json:"amount"`
}

// StarterGrantedData is the canonicalized payload for StarterGranted events.
type StarterGrantedData struct {
	Account string          `json:"account"`
	Players []StarterPlayer `json:"players"`
}

// StarterPlayer is one granted player in a starter pack.
type StarterPlayer struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name,omitempty"`
	Position string `json:"position,omitempty"`
	Rating   *int   `json:"rating,omitempty"`
}

// ManagerTokenData is the payload for manager token mint/assign events.
type ManagerTokenData struct {
	ManagerID string `json:"manager_id"`
	Owner     string `json:"owner"`
}

// WalletLinkedData is the payload for WalletLinked events.
type WalletLinkedData struct {
	Account string `json:"account"`
	Address string `json:"address"`
}
