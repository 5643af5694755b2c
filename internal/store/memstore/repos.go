package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jensholdgaard/squadmarket/internal/event"
	"github.com/jensholdgaard/squadmarket/internal/store"
)

type itemRepo struct {
	st *state
	lk locker
}

func (r *itemRepo) Put(ctx context.Context, item *store.Item) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	r.st.items[item.ID] = *item
	return nil
}

func (r *itemRepo) Get(ctx context.Context, id string) (*store.Item, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	item, ok := r.st.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &item, nil
}

func (r *itemRepo) Update(ctx context.Context, item *store.Item) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if _, ok := r.st.items[item.ID]; !ok {
		return store.ErrNotFound
	}
	r.st.items[item.ID] = *item
	return nil
}

func (r *itemRepo) ListByOwner(ctx context.Context, owner string) ([]store.Item, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	var out []store.Item
	for _, item := range r.st.items {
		if item.Owner == owner {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type listingRepo struct {
	st *state
	lk locker
}

func (r *listingRepo) Create(ctx context.Context, l *store.Listing) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if _, ok := r.st.listings[l.ID]; ok {
		return fmt.Errorf("listing %s already exists", l.ID)
	}
	r.st.listings[l.ID] = *l
	return nil
}

func (r *listingRepo) Get(ctx context.Context, id string) (*store.Listing, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	l, ok := r.st.listings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &l, nil
}

func (r *listingRepo) Update(ctx context.Context, l *store.Listing) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if _, ok := r.st.listings[l.ID]; !ok {
		return store.ErrNotFound
	}
	r.st.listings[l.ID] = *l
	return nil
}

func (r *listingRepo) ListActive(ctx context.Context) ([]store.Listing, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	var out []store.Listing
	for _, l := range r.st.listings {
		if l.Status == store.ListingActive {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type auctionRepo struct {
	st *state
	lk locker
}

func (r *auctionRepo) Create(ctx context.Context, a *store.Auction) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if _, ok := r.st.auctions[a.ID]; ok {
		return fmt.Errorf("auction %s already exists", a.ID)
	}
	r.st.auctions[a.ID] = *a
	return nil
}

func (r *auctionRepo) Get(ctx context.Context, id string) (*store.Auction, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	a, ok := r.st.auctions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (r *auctionRepo) Update(ctx context.Context, a *store.Auction) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if _, ok := r.st.auctions[a.ID]; !ok {
		return store.ErrNotFound
	}
	r.st.auctions[a.ID] = *a
	return nil
}

func (r *auctionRepo) ListActive(ctx context.Context) ([]store.Auction, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	var out []store.Auction
	for _, a := range r.st.auctions {
		if a.Status == store.AuctionActive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type bidRepo struct {
	st *state
	lk locker
}

func (r *bidRepo) Append(ctx context.Context, b *store.Bid) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	r.st.bids[b.AuctionID] = append(r.st.bids[b.AuctionID], *b)
	return nil
}

func (r *bidRepo) ListByAuction(ctx context.Context, auctionID string) ([]store.Bid, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	return append([]store.Bid(nil), r.st.bids[auctionID]...), nil
}

type matchRepo struct {
	st *state
	lk locker
}

func (r *matchRepo) Create(ctx context.Context, m *store.Match) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if _, ok := r.st.matches[m.ID]; ok {
		return fmt.Errorf("match %s already exists", m.ID)
	}
	r.st.matches[m.ID] = *m
	return nil
}

func (r *matchRepo) Get(ctx context.Context, id string) (*store.Match, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	m, ok := r.st.matches[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (r *matchRepo) Update(ctx context.Context, m *store.Match) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if _, ok := r.st.matches[m.ID]; !ok {
		return store.ErrNotFound
	}
	r.st.matches[m.ID] = *m
	return nil
}

func (r *matchRepo) HasPendingBetween(ctx context.Context, a, b string) (bool, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	for _, m := range r.st.matches {
		if m.Status != store.MatchPending {
			continue
		}
		if (m.Challenger == a && m.Challenged == b) || (m.Challenger == b && m.Challenged == a) {
			return true, nil
		}
	}
	return false, nil
}

type managerRepo struct {
	st *state
	lk locker
}

func (r *managerRepo) Upsert(ctx context.Context, row *store.ManagerRow) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	r.put(row)
	return nil
}

func (r *managerRepo) put(row *store.ManagerRow) {
	if prev, ok := r.st.managers[row.ManagerID]; ok && prev.TokenItemID != nil {
		delete(r.st.managerTokens, *prev.TokenItemID)
	}
	r.st.managers[row.ManagerID] = *row
	if row.TokenItemID != nil {
		r.st.managerTokens[*row.TokenItemID] = row.ManagerID
	}
}

func (r *managerRepo) Get(ctx context.Context, managerID string) (*store.ManagerRow, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	row, ok := r.st.managers[managerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &row, nil
}

func (r *managerRepo) GetByToken(ctx context.Context, itemID string) (*store.ManagerRow, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	id, ok := r.st.managerTokens[itemID]
	if !ok {
		return nil, store.ErrNotFound
	}
	row := r.st.managers[id]
	return &row, nil
}

func (r *managerRepo) ListUnassigned(ctx context.Context) ([]store.ManagerRow, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	var out []store.ManagerRow
	for _, row := range r.st.managers {
		if row.Active && row.Owner == nil {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ManagerID < out[j].ManagerID })
	return out, nil
}

func (r *managerRepo) Update(ctx context.Context, row *store.ManagerRow) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if _, ok := r.st.managers[row.ManagerID]; !ok {
		return store.ErrNotFound
	}
	r.put(row)
	return nil
}

type squadRepo struct {
	st *state
	lk locker
}

func (r *squadRepo) Upsert(ctx context.Context, s *store.SquadRow) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	r.put(s)
	return nil
}

func (r *squadRepo) put(s *store.SquadRow) {
	if prev, ok := r.st.squads[s.SquadID]; ok && prev.TokenItemID != "" {
		delete(r.st.squadTokens, prev.TokenItemID)
	}
	r.st.squads[s.SquadID] = *s
	if s.TokenItemID != "" {
		r.st.squadTokens[s.TokenItemID] = s.SquadID
	}
}

func (r *squadRepo) Get(ctx context.Context, squadID string) (*store.SquadRow, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	s, ok := r.st.squads[squadID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (r *squadRepo) GetByToken(ctx context.Context, itemID string) (*store.SquadRow, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	id, ok := r.st.squadTokens[itemID]
	if !ok {
		return nil, store.ErrNotFound
	}
	s := r.st.squads[id]
	return &s, nil
}

func (r *squadRepo) Update(ctx context.Context, s *store.SquadRow) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if _, ok := r.st.squads[s.SquadID]; !ok {
		return store.ErrNotFound
	}
	r.put(s)
	return nil
}

func assignmentKey(account, managerID string) string {
	return account + "|" + managerID
}

type assignmentRepo struct {
	st *state
	lk locker
}

func (r *assignmentRepo) Put(ctx context.Context, a *store.Assignment) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	key := assignmentKey(a.Account, a.ManagerID)
	if _, ok := r.st.assignments[key]; ok {
		return nil
	}
	r.st.assignments[key] = *a
	return nil
}

func (r *assignmentRepo) Get(ctx context.Context, account, managerID string) (*store.Assignment, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	a, ok := r.st.assignments[assignmentKey(account, managerID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (r *assignmentRepo) ListByAccount(ctx context.Context, account string) ([]store.Assignment, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	var out []store.Assignment
	for _, a := range r.st.assignments {
		if a.Account == account {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ManagerID < out[j].ManagerID })
	return out, nil
}

type claimRepo struct {
	st *state
	lk locker
}

func (r *claimRepo) Create(ctx context.Context, c *store.StarterClaim) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if _, ok := r.st.claims[c.Account]; ok {
		return fmt.Errorf("starter claim for %s already exists", c.Account)
	}
	r.st.claims[c.Account] = *c
	return nil
}

func (r *claimRepo) Get(ctx context.Context, account string) (*store.StarterClaim, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	c, ok := r.st.claims[account]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

type markerRepo struct {
	st *state
	lk locker
}

func (r *markerRepo) Create(ctx context.Context, m *store.TxMarker) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if _, ok := r.st.markers[m.TxRef]; ok {
		return fmt.Errorf("transaction marker %s already exists", m.TxRef)
	}
	r.st.markers[m.TxRef] = *m
	return nil
}

func (r *markerRepo) Get(ctx context.Context, txRef string) (*store.TxMarker, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	m, ok := r.st.markers[txRef]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func responseKey(id, endpoint string) string {
	return id + "|" + endpoint
}

type responseRepo struct {
	st *state
	lk locker
}

func (r *responseRepo) Put(ctx context.Context, c *store.CachedResponse) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	r.st.responses[responseKey(c.ID, c.Endpoint)] = *c
	return nil
}

func (r *responseRepo) Get(ctx context.Context, id, endpoint string) (*store.CachedResponse, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	c, ok := r.st.responses[responseKey(id, endpoint)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (r *responseRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	var n int64
	for k, c := range r.st.responses {
		if c.TTLUntil.Before(now) {
			delete(r.st.responses, k)
			n++
		}
	}
	return n, nil
}

type inboxRepo struct {
	st *state
	lk locker
}

func (r *inboxRepo) Push(ctx context.Context, m *store.Message) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	r.st.inbox = append(r.st.inbox, *m)
	return nil
}

func (r *inboxRepo) ListByAccount(ctx context.Context, account string) ([]store.Message, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	var out []store.Message
	for _, m := range r.st.inbox {
		if m.Account == account {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *inboxRepo) ListUndelivered(ctx context.Context, limit int) ([]store.Message, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	var out []store.Message
	for _, m := range r.st.inbox {
		if m.DeliveredAt == nil {
			out = append(out, m)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *inboxRepo) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	for i := range r.st.inbox {
		if r.st.inbox[i].ID == id {
			t := at
			r.st.inbox[i].DeliveredAt = &t
			return nil
		}
	}
	return store.ErrNotFound
}

func (r *inboxRepo) MarkRead(ctx context.Context, account string, ids []string, at time.Time) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for i := range r.st.inbox {
		m := &r.st.inbox[i]
		if _, ok := want[m.ID]; ok && m.Account == account && m.ReadAt == nil {
			t := at
			m.ReadAt = &t
		}
	}
	return nil
}

type userRepo struct {
	st *state
	lk locker
}

func (r *userRepo) Upsert(ctx context.Context, u *store.User) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	r.st.users[u.Account] = *u
	return nil
}

func (r *userRepo) Get(ctx context.Context, account string) (*store.User, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	u, ok := r.st.users[account]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

type walletRepo struct {
	st *state
	lk locker
}

func (r *walletRepo) Replace(ctx context.Context, l *store.WalletLink) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	r.st.wallets[l.Address] = *l
	return nil
}

func (r *walletRepo) Get(ctx context.Context, address string) (*store.WalletLink, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	l, ok := r.st.wallets[address]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &l, nil
}

type eventStore struct {
	st *state
	lk locker
}

func (s *eventStore) Append(ctx context.Context, events ...event.Event) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.st.events = append(s.st.events, events...)
	return nil
}

func (s *eventStore) ListByTopic(ctx context.Context, topic string) ([]event.Event, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	var out []event.Event
	for _, e := range s.st.events {
		if e.Topic != nil && *e.Topic == topic {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *eventStore) ListByKind(ctx context.Context, kind event.Type) ([]event.Event, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	var out []event.Event
	for _, e := range s.st.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out, nil
}
