package idem_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jensholdgaard/squadmarket/internal/clock"
	"github.com/jensholdgaard/squadmarket/internal/idem"
	"github.com/jensholdgaard/squadmarket/internal/store/memstore"
)

func newTestGuard(t *testing.T) (*idem.Guard, *clock.Mock) {
	t.Helper()
	clk := &clock.Mock{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	repos := memstore.New(clk)
	return idem.NewGuard(repos, slog.Default(), noop.NewTracerProvider(), clk), clk
}

func TestMarkTransactionUsed(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	if err := guard.MarkTransactionUsed(ctx, "0xabc", "alice", "listing.close"); err != nil {
		t.Fatalf("MarkTransactionUsed() error = %v", err)
	}

	// The same reference is rejected regardless of caller or endpoint.
	err := guard.MarkTransactionUsed(ctx, "0xabc", "bob", "auction.buy_now")
	if !errors.Is(err, idem.ErrTransactionUsed) {
		t.Fatalf("MarkTransactionUsed() replay error = %v, want ErrTransactionUsed", err)
	}

	// Different references pass.
	if err := guard.MarkTransactionUsed(ctx, "0xdef", "alice", "listing.close"); err != nil {
		t.Fatalf("MarkTransactionUsed() other ref error = %v", err)
	}
}

func TestDo_ReplaysWithinTTL(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	calls := 0
	fn := func(ctx context.Context) (json.RawMessage, error) {
		calls++
		return json.RawMessage(`{"granted":true}`), nil
	}

	resp, replayed, err := guard.Do(ctx, "req-1", "starter.grant", time.Hour, fn)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if replayed {
		t.Fatal("first Do() reported replayed")
	}
	if string(resp) != `{"granted":true}` {
		t.Fatalf("got response %s", resp)
	}

	resp, replayed, err = guard.Do(ctx, "req-1", "starter.grant", time.Hour, fn)
	if err != nil {
		t.Fatalf("Do() replay error = %v", err)
	}
	if !replayed {
		t.Fatal("second Do() not reported replayed")
	}
	if string(resp) != `{"granted":true}` {
		t.Fatalf("replay response %s", resp)
	}
	if calls != 1 {
		t.Fatalf("fn ran %d times, want 1", calls)
	}
}

func TestDo_DistinctEndpoints(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	calls := 0
	fn := func(ctx context.Context) (json.RawMessage, error) {
		calls++
		return json.RawMessage(`{}`), nil
	}

	if _, _, err := guard.Do(ctx, "req-1", "starter.grant", time.Hour, fn); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if _, _, err := guard.Do(ctx, "req-1", "pvp.create", time.Hour, fn); err != nil {
		t.Fatalf("Do() other endpoint error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("fn ran %d times, want 2 (one per endpoint)", calls)
	}
}

func TestDo_ExpiredEntryReruns(t *testing.T) {
	guard, clk := newTestGuard(t)
	ctx := context.Background()

	calls := 0
	fn := func(ctx context.Context) (json.RawMessage, error) {
		calls++
		return json.RawMessage(`{}`), nil
	}

	if _, _, err := guard.Do(ctx, "req-1", "starter.grant", time.Hour, fn); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	clk.Advance(2 * time.Hour)
	_, replayed, err := guard.Do(ctx, "req-1", "starter.grant", time.Hour, fn)
	if err != nil {
		t.Fatalf("Do() after expiry error = %v", err)
	}
	if replayed {
		t.Fatal("expired entry reported as replay")
	}
	if calls != 2 {
		t.Fatalf("fn ran %d times, want 2", calls)
	}
}

func TestDo_ErrorNotCached(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	boom := errors.New("boom")
	calls := 0
	_, _, err := guard.Do(ctx, "req-1", "starter.grant", time.Hour, func(ctx context.Context) (json.RawMessage, error) {
		calls++
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Do() error = %v, want boom", err)
	}

	// The failed attempt left no cache entry; a retry runs fn again.
	_, replayed, err := guard.Do(ctx, "req-1", "starter.grant", time.Hour, func(ctx context.Context) (json.RawMessage, error) {
		calls++
		return json.RawMessage(`{}`), nil
	})
	if err != nil {
		t.Fatalf("Do() retry error = %v", err)
	}
	if replayed {
		t.Fatal("retry after failure reported as replay")
	}
	if calls != 2 {
		t.Fatalf("fn ran %d times, want 2", calls)
	}
}

func TestPruneExpired(t *testing.T) {
	guard, clk := newTestGuard(t)
	ctx := context.Background()

	fn := func(ctx context.Context) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	}
	if _, _, err := guard.Do(ctx, "req-1", "a", time.Minute, fn); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if _, _, err := guard.Do(ctx, "req-2", "a", time.Hour, fn); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	clk.Advance(30 * time.Minute)
	n, err := guard.PruneExpired(ctx)
	if err != nil {
		t.Fatalf("PruneExpired() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("PruneExpired() = %d, want 1", n)
	}
}
