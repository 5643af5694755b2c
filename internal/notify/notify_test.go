package notify_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jensholdgaard/squadmarket/internal/clock"
	"github.com/jensholdgaard/squadmarket/internal/notify"
	"github.com/jensholdgaard/squadmarket/internal/store"
	"github.com/jensholdgaard/squadmarket/internal/store/memstore"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestInbox(t *testing.T) (*notify.Manager, *store.Repositories, *clock.Mock) {
	t.Helper()
	clk := &clock.Mock{T: baseTime}
	repos := memstore.New(clk)
	return notify.NewManager(repos, slog.Default(), noop.NewTracerProvider(), clk), repos, clk
}

func pushMessage(t *testing.T, repos *store.Repositories, id, account string, at time.Time) {
	t.Helper()
	if err := repos.Inbox.Push(context.Background(), &store.Message{
		ID:        id,
		Account:   account,
		Kind:      "test",
		Title:     "t",
		Body:      "b",
		CreatedAt: at,
	}); err != nil {
		t.Fatalf("pushing message: %v", err)
	}
}

func TestMarkRead(t *testing.T) {
	mgr, repos, _ := newTestInbox(t)
	ctx := context.Background()

	pushMessage(t, repos, "msg-1", "alice", baseTime)
	pushMessage(t, repos, "msg-2", "alice", baseTime.Add(time.Second))
	pushMessage(t, repos, "msg-3", "bob", baseTime)

	// Ids belonging to someone else are skipped, not errors.
	if err := mgr.MarkRead(ctx, "alice", []string{"msg-1", "msg-3", "msg-missing"}); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}

	msgs, err := mgr.Inbox(ctx, "alice")
	if err != nil {
		t.Fatalf("Inbox() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].ReadAt == nil {
		t.Error("msg-1 not marked read")
	}
	if msgs[1].ReadAt != nil {
		t.Error("msg-2 unexpectedly marked read")
	}

	bobMsgs, err := mgr.Inbox(ctx, "bob")
	if err != nil {
		t.Fatalf("Inbox(bob) error = %v", err)
	}
	if bobMsgs[0].ReadAt != nil {
		t.Error("bob's message marked read by alice")
	}

	// Empty id list is a no-op.
	if err := mgr.MarkRead(ctx, "alice", nil); err != nil {
		t.Fatalf("MarkRead(nil) error = %v", err)
	}
}

type fakeSender struct {
	sent []string
	fail map[int]bool // index of send call → fail
	call int
}

func (f *fakeSender) Send(ctx context.Context, text string) error {
	defer func() { f.call++ }()
	if f.fail[f.call] {
		return errors.New("send failed")
	}
	f.sent = append(f.sent, text)
	return nil
}

func TestRelay_DeliverPending(t *testing.T) {
	_, repos, clk := newTestInbox(t)
	ctx := context.Background()

	pushMessage(t, repos, "msg-1", "alice", baseTime)
	pushMessage(t, repos, "msg-2", "bob", baseTime.Add(time.Second))

	sender := &fakeSender{fail: map[int]bool{}}
	relay := notify.NewRelay(repos, sender, time.Second, slog.Default(), clk)

	if err := relay.DeliverPending(ctx); err != nil {
		t.Fatalf("DeliverPending() error = %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(sender.sent))
	}

	// Everything delivered; second pass sends nothing.
	if err := relay.DeliverPending(ctx); err != nil {
		t.Fatalf("DeliverPending() second error = %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("second pass resent messages: %d total", len(sender.sent))
	}
}

func TestRelay_FailedSendStaysQueued(t *testing.T) {
	_, repos, clk := newTestInbox(t)
	ctx := context.Background()

	pushMessage(t, repos, "msg-1", "alice", baseTime)
	pushMessage(t, repos, "msg-2", "bob", baseTime.Add(time.Second))

	sender := &fakeSender{fail: map[int]bool{0: true}}
	relay := notify.NewRelay(repos, sender, time.Second, slog.Default(), clk)

	if err := relay.DeliverPending(ctx); err != nil {
		t.Fatalf("DeliverPending() error = %v", err)
	}
	// msg-1 failed, msg-2 went through.
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}

	undelivered, err := repos.Inbox.ListUndelivered(ctx, 10)
	if err != nil {
		t.Fatalf("ListUndelivered() error = %v", err)
	}
	if len(undelivered) != 1 || undelivered[0].ID != "msg-1" {
		t.Fatalf("got undelivered %+v, want only msg-1", undelivered)
	}

	// Next pass retries the failed one.
	if err := relay.DeliverPending(ctx); err != nil {
		t.Fatalf("DeliverPending() retry error = %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("retry did not deliver: %d sent", len(sender.sent))
	}
}
