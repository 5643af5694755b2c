package accounts_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jensholdgaard/squadmarket/internal/accounts"
	"github.com/jensholdgaard/squadmarket/internal/clock"
	"github.com/jensholdgaard/squadmarket/internal/event"
	"github.com/jensholdgaard/squadmarket/internal/store"
	"github.com/jensholdgaard/squadmarket/internal/store/memstore"
)

func newTestAccounts(t *testing.T) (*accounts.Manager, *store.Repositories) {
	t.Helper()
	clk := &clock.Mock{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	repos := memstore.New(clk)
	return accounts.NewManager(repos, slog.Default(), noop.NewTracerProvider(), clk), repos
}

func TestLinkWallet(t *testing.T) {
	mgr, repos := newTestAccounts(t)
	ctx := context.Background()

	if err := mgr.LinkWallet(ctx, "alice", "0xABCDEF"); err != nil {
		t.Fatalf("LinkWallet() error = %v", err)
	}

	// Address is normalized to lower case.
	link, err := repos.Wallets.Get(ctx, "0xabcdef")
	if err != nil {
		t.Fatalf("Get() link error = %v", err)
	}
	if link.Account != "alice" {
		t.Errorf("got account %q, want alice", link.Account)
	}

	user, err := repos.Users.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get() user error = %v", err)
	}
	if user.Elo != 1000 {
		t.Errorf("new user elo = %d, want 1000", user.Elo)
	}

	events, err := repos.Events.ListByKind(ctx, event.WalletLinked)
	if err != nil {
		t.Fatalf("ListByKind() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d link events, want 1", len(events))
	}
}

func TestLinkWallet_RelinkStealsAddress(t *testing.T) {
	mgr, repos := newTestAccounts(t)
	ctx := context.Background()

	if err := mgr.LinkWallet(ctx, "alice", "0xabc"); err != nil {
		t.Fatalf("LinkWallet(alice) error = %v", err)
	}
	if err := mgr.LinkWallet(ctx, "bob", "0xABC"); err != nil {
		t.Fatalf("LinkWallet(bob) error = %v", err)
	}

	link, err := repos.Wallets.Get(ctx, "0xabc")
	if err != nil {
		t.Fatalf("Get() link error = %v", err)
	}
	if link.Account != "bob" {
		t.Errorf("got account %q after relink, want bob", link.Account)
	}
}
