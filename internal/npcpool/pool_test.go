package npcpool_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jensholdgaard/squadmarket/internal/clock"
	"github.com/jensholdgaard/squadmarket/internal/event"
	"github.com/jensholdgaard/squadmarket/internal/ledger"
	"github.com/jensholdgaard/squadmarket/internal/npcpool"
	"github.com/jensholdgaard/squadmarket/internal/store"
	"github.com/jensholdgaard/squadmarket/internal/store/memstore"
)

func newTestPool(t *testing.T) (*npcpool.Manager, *store.Repositories) {
	t.Helper()
	clk := &clock.Mock{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	repos := memstore.New(clk)
	logger := slog.Default()
	return npcpool.NewManager(repos, ledger.New(clk, logger), logger, noop.NewTracerProvider(), clk), repos
}

func seedPool(t *testing.T, mgr *npcpool.Manager, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("mgr-%03d", i)
		if _, err := mgr.CreateManager(context.Background(), id, "Manager "+id, int64(i), 1, "1000", "aggressive"); err != nil {
			t.Fatalf("seeding manager %s: %v", id, err)
		}
	}
}

func TestAssign(t *testing.T) {
	mgr, repos := newTestPool(t)
	ctx := context.Background()
	seedPool(t, mgr, 5)

	assigned, err := mgr.Assign(ctx, "alice", 3)
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if len(assigned) != 3 {
		t.Fatalf("got %d assigned, want 3", len(assigned))
	}

	// Deterministic: lowest manager ids first.
	for i, row := range assigned {
		want := fmt.Sprintf("mgr-%03d", i)
		if row.ManagerID != want {
			t.Errorf("assigned[%d] = %s, want %s", i, row.ManagerID, want)
		}
		if row.Owner == nil || *row.Owner != "alice" {
			t.Errorf("assigned[%d] owner = %v, want alice", i, row.Owner)
		}
	}

	// Each assignment minted a token item owned by the account.
	for _, row := range assigned {
		tokenID := store.ManagerTokenID(row.ManagerID)
		item, err := repos.Items.Get(ctx, tokenID)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", tokenID, err)
		}
		if item.Owner != "alice" || item.Kind != store.KindManagerToken {
			t.Errorf("token %s = %+v, want manager token owned by alice", tokenID, item)
		}
	}

	joins, err := repos.Assignments.ListByAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("ListByAccount() error = %v", err)
	}
	if len(joins) != 3 {
		t.Fatalf("got %d join rows, want 3", len(joins))
	}
}

func TestAssign_AllOrNothing(t *testing.T) {
	mgr, repos := newTestPool(t)
	ctx := context.Background()
	seedPool(t, mgr, 2)

	if _, err := mgr.Assign(ctx, "alice", 3); !errors.Is(err, npcpool.ErrInsufficientPool) {
		t.Fatalf("Assign() error = %v, want ErrInsufficientPool", err)
	}

	// Nothing was written.
	joins, err := repos.Assignments.ListByAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("ListByAccount() error = %v", err)
	}
	if len(joins) != 0 {
		t.Fatalf("got %d join rows after failed assign, want 0", len(joins))
	}
	pool, err := repos.Managers.ListUnassigned(ctx)
	if err != nil {
		t.Fatalf("ListUnassigned() error = %v", err)
	}
	if len(pool) != 2 {
		t.Fatalf("got %d unassigned after failed assign, want 2", len(pool))
	}
}

func TestAssign_ZeroCount(t *testing.T) {
	mgr, _ := newTestPool(t)
	seedPool(t, mgr, 1)

	for _, count := range []int{0, -1} {
		assigned, err := mgr.Assign(context.Background(), "alice", count)
		if err != nil {
			t.Fatalf("Assign(%d) error = %v", count, err)
		}
		if assigned != nil {
			t.Fatalf("Assign(%d) = %v, want nil", count, assigned)
		}
	}
}

func TestAssign_SecondCallTakesNextManagers(t *testing.T) {
	mgr, _ := newTestPool(t)
	ctx := context.Background()
	seedPool(t, mgr, 4)

	if _, err := mgr.Assign(ctx, "alice", 2); err != nil {
		t.Fatalf("Assign(alice) error = %v", err)
	}
	assigned, err := mgr.Assign(ctx, "bob", 2)
	if err != nil {
		t.Fatalf("Assign(bob) error = %v", err)
	}
	if assigned[0].ManagerID != "mgr-002" || assigned[1].ManagerID != "mgr-003" {
		t.Fatalf("bob got %s and %s, want mgr-002 and mgr-003", assigned[0].ManagerID, assigned[1].ManagerID)
	}
}

func TestMintToken_Idempotent(t *testing.T) {
	mgr, repos := newTestPool(t)
	ctx := context.Background()
	seedPool(t, mgr, 1)

	if err := mgr.MintToken(ctx, "mgr-000", "alice"); err != nil {
		t.Fatalf("MintToken() error = %v", err)
	}
	if err := mgr.MintToken(ctx, "mgr-000", "bob"); err != nil {
		t.Fatalf("MintToken() second error = %v", err)
	}

	// The token keeps its original owner; only one mint event exists.
	item, err := repos.Items.Get(ctx, store.ManagerTokenID("mgr-000"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if item.Owner != "alice" {
		t.Errorf("got token owner %q, want alice", item.Owner)
	}
	events, err := repos.Events.ListByKind(ctx, event.ManagerTokenMinted)
	if err != nil {
		t.Fatalf("ListByKind() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d mint events, want 1", len(events))
	}

	if err := mgr.MintToken(ctx, "mgr-missing", "alice"); !errors.Is(err, npcpool.ErrManagerNotFound) {
		t.Fatalf("MintToken(missing) error = %v, want ErrManagerNotFound", err)
	}
}

func TestCreateManager_ReseedKeepsOwnership(t *testing.T) {
	mgr, repos := newTestPool(t)
	ctx := context.Background()
	seedPool(t, mgr, 1)

	if _, err := mgr.Assign(ctx, "alice", 1); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}

	row, err := mgr.CreateManager(ctx, "mgr-000", "Manager mgr-000", 99, 2, "2000", "cautious")
	if err != nil {
		t.Fatalf("CreateManager() reseed error = %v", err)
	}
	if row.Owner == nil || *row.Owner != "alice" {
		t.Fatalf("reseed cleared owner: %v", row.Owner)
	}
	if row.Budget != "2000" || row.Tier != 2 {
		t.Errorf("reseed did not apply new fields: %+v", row)
	}

	user, err := repos.Users.Get(ctx, "mgr-000")
	if err != nil {
		t.Fatalf("Get() npc user error = %v", err)
	}
	if !user.IsNPC {
		t.Error("npc user not flagged")
	}
}

func TestUpdateState(t *testing.T) {
	mgr, repos := newTestPool(t)
	ctx := context.Background()
	seedPool(t, mgr, 1)

	next := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if err := mgr.UpdateState(ctx, "mgr-000", next, "750"); err != nil {
		t.Fatalf("UpdateState() error = %v", err)
	}
	row, err := repos.Managers.Get(ctx, "mgr-000")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !row.NextDecisionAt.Equal(next) || row.Budget != "750" {
		t.Errorf("state not applied: %+v", row)
	}

	if err := mgr.UpdateState(ctx, "mgr-missing", next, "750"); !errors.Is(err, npcpool.ErrManagerNotFound) {
		t.Fatalf("UpdateState(missing) error = %v, want ErrManagerNotFound", err)
	}
}
