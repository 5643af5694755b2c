// Package store defines the persistent entities of the ownership economy
// and the repository interfaces the engines operate through. Concrete
// drivers live in subpackages and register themselves by name.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned by repository lookups when no row matches.
var ErrNotFound = errors.New("not found")

// ItemKind discriminates what an inventory item represents and which
// registry mirrors its owner.
type ItemKind string

const (
	KindPlayer       ItemKind = "player"
	KindManagerToken ItemKind = "manager_token"
	KindSquadToken   ItemKind = "squad_token"
)

// ListingStatus is the lifecycle state of a fixed-price listing.
type ListingStatus string

const (
	ListingActive ListingStatus = "active"
	ListingClosed ListingStatus = "closed"
)

// AuctionStatus is the lifecycle state of an auction.
type AuctionStatus string

const (
	AuctionActive    AuctionStatus = "active"
	AuctionFinalized AuctionStatus = "finalized"
)

// MatchStatus is the lifecycle state of a head-to-head match.
type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchActive    MatchStatus = "active"
	MatchFinalized MatchStatus = "finalized"
)

// Item is the single ledger row for every ownable thing. The item table is
// the source of truth for ownership; registry rows only mirror it.
type Item struct {
	ID          string    `db:"id"`
	Owner       string    `db:"owner"`
	Kind        ItemKind  `db:"kind"`
	AcquiredAt  time.Time `db:"acquired_at"`
	HoldUntil   time.Time `db:"hold_until"`
	SourceEvent string    `db:"source_event"`
}

// Listing is a fixed-price sale. Immutable once closed.
type Listing struct {
	ID        string        `db:"id"`
	ItemID    string        `db:"item_id"`
	Seller    string        `db:"seller"`
	Price     string        `db:"price"`
	Status    ListingStatus `db:"status"`
	CreatedAt time.Time     `db:"created_at"`
	ClosedAt  *time.Time    `db:"closed_at"`
}

// Auction is a timed incrementing-bid sale. TopBid is monotonically
// non-decreasing; EndsAt only ever moves later, at most once via anti-snipe.
type Auction struct {
	ID            string        `db:"id"`
	ItemID        string        `db:"item_id"`
	Seller        string        `db:"seller"`
	Reserve       string        `db:"reserve"`
	EndsAt        time.Time     `db:"ends_at"`
	Status        AuctionStatus `db:"status"`
	TopBid        *string       `db:"top_bid"`
	TopBidder     *string       `db:"top_bidder"`
	BuyNow        *string       `db:"buy_now"`
	AntiSnipeUsed bool          `db:"anti_snipe_used"`
	CreatedAt     time.Time     `db:"created_at"`
	FinalizedAt   *time.Time    `db:"finalized_at"`
}

// Bid is an append-only auction bid record.
type Bid struct {
	ID        string    `db:"id"`
	AuctionID string    `db:"auction_id"`
	Bidder    string    `db:"bidder"`
	Amount    string    `db:"amount"`
	PlacedAt  time.Time `db:"placed_at"`
}

// Match is a head-to-head challenge between two accounts.
type Match struct {
	ID         string      `db:"id"`
	Challenger string      `db:"challenger"`
	Challenged string      `db:"challenged"`
	Status     MatchStatus `db:"status"`
	CreatedAt  time.Time   `db:"created_at"`
	AcceptedAt *time.Time  `db:"accepted_at"`
	Result     *string     `db:"result"`
}

// ManagerRow is one entry in the autonomous manager pool. Owner mirrors the
// owner of TokenItemID once minted; the ledger keeps them in sync.
type ManagerRow struct {
	ManagerID      string     `db:"manager_id"`
	TokenItemID    *string    `db:"token_item_id"`
	Owner          *string    `db:"owner"`
	AISeed         int64      `db:"ai_seed"`
	Tier           int16      `db:"tier"`
	Budget         string     `db:"budget"`
	Persona        string     `db:"persona"`
	Confidence     int        `db:"confidence"`
	Pressure       int        `db:"pressure"`
	Mood           string     `db:"mood"`
	NextDecisionAt time.Time  `db:"next_decision_at"`
	LastActiveAt   time.Time  `db:"last_active_at"`
	Active         bool       `db:"active"`
}

// SquadRow is a tradable squad registry entry. Owner mirrors the owner of
// TokenItemID, same as ManagerRow.
type SquadRow struct {
	SquadID     string `db:"squad_id"`
	SourceID    string `db:"source_id"`
	Followers   int64  `db:"followers"`
	Rank        string `db:"rank"`
	TokenItemID string `db:"token_item_id"`
	Owner       string `db:"owner"`
	Active      bool   `db:"active"`
}

// Assignment joins an account to a pool manager. Keyed by the pair, so
// re-assigning is naturally a no-op.
type Assignment struct {
	Account    string    `db:"account"`
	ManagerID  string    `db:"manager_id"`
	AssignedAt time.Time `db:"assigned_at"`
}

// StarterClaim gates the one-shot starter grant per account.
type StarterClaim struct {
	Account   string    `db:"account"`
	ClaimedAt time.Time `db:"claimed_at"`
}

// TxMarker is a write-once replay guard for an external transaction
// reference.
type TxMarker struct {
	TxRef    string    `db:"tx_ref"`
	UsedAt   time.Time `db:"used_at"`
	UsedBy   string    `db:"used_by"`
	Endpoint string    `db:"endpoint"`
}

// CachedResponse holds the canonical outcome of the first invocation for an
// (id, endpoint) pair. Replays within the TTL return it verbatim.
type CachedResponse struct {
	ID          string          `db:"id"`
	Endpoint    string          `db:"endpoint"`
	FirstSeenAt time.Time       `db:"first_seen_at"`
	Response    json.RawMessage `db:"response"`
	TTLUntil    time.Time       `db:"ttl_until"`
}

// Message is a queued inbox notification for an account.
type Message struct {
	ID          string     `db:"id"`
	Account     string     `db:"account"`
	Kind        string     `db:"kind"`
	Title       string     `db:"title"`
	Body        string     `db:"body"`
	CreatedAt   time.Time  `db:"created_at"`
	ReadAt      *time.Time `db:"read_at"`
	DeliveredAt *time.Time `db:"delivered_at"`
}

// User is an account profile. NPCs share the table with human accounts.
type User struct {
	Account     string    `db:"account"`
	Wallet      *string   `db:"wallet"`
	CreatedAt   time.Time `db:"created_at"`
	IsNPC       bool      `db:"is_npc"`
	Elo         int       `db:"elo"`
	DisplayName *string   `db:"display_name"`
	Persona     *string   `db:"persona"`
}

// WalletLink maps a normalized wallet address to an account.
type WalletLink struct {
	Address  string    `db:"address"`
	Account  string    `db:"account"`
	LinkedAt time.Time `db:"linked_at"`
}

// ItemRepository persists ledger items. Put upserts: inserting an id that
// already exists replaces the row.
type ItemRepository interface {
	Put(ctx context.Context, item *Item) error
	Get(ctx context.Context, id string) (*Item, error)
	Update(ctx context.Context, item *Item) error
	ListByOwner(ctx context.Context, owner string) ([]Item, error)
}

// ListingRepository persists fixed-price listings.
type ListingRepository interface {
	Create(ctx context.Context, l *Listing) error
	Get(ctx context.Context, id string) (*Listing, error)
	Update(ctx context.Context, l *Listing) error
	ListActive(ctx context.Context) ([]Listing, error)
}

// AuctionRepository persists auctions.
type AuctionRepository interface {
	Create(ctx context.Context, a *Auction) error
	Get(ctx context.Context, id string) (*Auction, error)
	Update(ctx context.Context, a *Auction) error
	ListActive(ctx context.Context) ([]Auction, error)
}

// BidRepository persists bids. Bids are append-only.
type BidRepository interface {
	Append(ctx context.Context, b *Bid) error
	ListByAuction(ctx context.Context, auctionID string) ([]Bid, error)
}

// MatchRepository persists head-to-head matches.
type MatchRepository interface {
	Create(ctx context.Context, m *Match) error
	Get(ctx context.Context, id string) (*Match, error)
	Update(ctx context.Context, m *Match) error
	// HasPendingBetween reports whether a pending match exists between the
	// two accounts in either direction.
	HasPendingBetween(ctx context.Context, a, b string) (bool, error)
}

// ManagerRepository persists the manager pool registry.
type ManagerRepository interface {
	Upsert(ctx context.Context, r *ManagerRow) error
	Get(ctx context.Context, managerID string) (*ManagerRow, error)
	// GetByToken finds the registry row whose token reference equals itemID.
	GetByToken(ctx context.Context, itemID string) (*ManagerRow, error)
	// ListUnassigned returns active rows with no owner, ascending manager id.
	ListUnassigned(ctx context.Context) ([]ManagerRow, error)
	Update(ctx context.Context, r *ManagerRow) error
}

// SquadRepository persists the squad registry.
type SquadRepository interface {
	Upsert(ctx context.Context, s *SquadRow) error
	Get(ctx context.Context, squadID string) (*SquadRow, error)
	GetByToken(ctx context.Context, itemID string) (*SquadRow, error)
	Update(ctx context.Context, s *SquadRow) error
}

// AssignmentRepository persists account↔manager join records.
type AssignmentRepository interface {
	// Put inserts the pair if absent; an existing pair is left untouched.
	Put(ctx context.Context, a *Assignment) error
	Get(ctx context.Context, account, managerID string) (*Assignment, error)
	ListByAccount(ctx context.Context, account string) ([]Assignment, error)
}

// StarterClaimRepository persists starter-pack claim records.
type StarterClaimRepository interface {
	Create(ctx context.Context, c *StarterClaim) error
	Get(ctx context.Context, account string) (*StarterClaim, error)
}

// TxMarkerRepository persists used-transaction markers.
type TxMarkerRepository interface {
	Create(ctx context.Context, m *TxMarker) error
	Get(ctx context.Context, txRef string) (*TxMarker, error)
}

// ResponseCacheRepository persists idempotent response cache entries.
type ResponseCacheRepository interface {
	Put(ctx context.Context, c *CachedResponse) error
	Get(ctx context.Context, id, endpoint string) (*CachedResponse, error)
	// DeleteExpired removes entries whose TTL elapsed before now and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// InboxRepository persists queued notifications.
type InboxRepository interface {
	Push(ctx context.Context, m *Message) error
	ListByAccount(ctx context.Context, account string) ([]Message, error)
	ListUndelivered(ctx context.Context, limit int) ([]Message, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) error
	MarkRead(ctx context.Context, account string, ids []string, at time.Time) error
}

// UserRepository persists account profiles.
type UserRepository interface {
	Upsert(ctx context.Context, u *User) error
	Get(ctx context.Context, account string) (*User, error)
}

// WalletLinkRepository persists wallet→account links.
type WalletLinkRepository interface {
	// Replace removes any existing link for the address and inserts the
	// new one, so a relink steals the address.
	Replace(ctx context.Context, l *WalletLink) error
	Get(ctx context.Context, address string) (*WalletLink, error)
}
