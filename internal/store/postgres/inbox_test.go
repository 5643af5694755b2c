package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jensholdgaard/squadmarket/internal/event"
	"github.com/jensholdgaard/squadmarket/internal/store"
	"github.com/jensholdgaard/squadmarket/internal/store/postgres"
)

func TestInboxRepo_DeliveryAndRead(t *testing.T) {
	db := newTestDB(t)
	repos := postgres.New(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	for i, id := range []string{"msg-1", "msg-2"} {
		if err := repos.Inbox.Push(ctx, &store.Message{
			ID:        id,
			Account:   "alice",
			Kind:      "listing_sold",
			Title:     "Sold",
			Body:      "your item sold",
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("Push(%s) error = %v", id, err)
		}
	}

	undelivered, err := repos.Inbox.ListUndelivered(ctx, 10)
	if err != nil {
		t.Fatalf("ListUndelivered() error = %v", err)
	}
	if len(undelivered) != 2 {
		t.Fatalf("got %d undelivered, want 2", len(undelivered))
	}
	if undelivered[0].ID != "msg-1" {
		t.Errorf("got first undelivered %q, want msg-1", undelivered[0].ID)
	}

	if err := repos.Inbox.MarkDelivered(ctx, "msg-1", now); err != nil {
		t.Fatalf("MarkDelivered() error = %v", err)
	}
	undelivered, err = repos.Inbox.ListUndelivered(ctx, 10)
	if err != nil {
		t.Fatalf("ListUndelivered() after delivery error = %v", err)
	}
	if len(undelivered) != 1 || undelivered[0].ID != "msg-2" {
		t.Fatalf("got undelivered %+v, want only msg-2", undelivered)
	}

	// MarkRead only touches the account's own messages.
	if err := repos.Inbox.MarkRead(ctx, "bob", []string{"msg-2"}, now); err != nil {
		t.Fatalf("MarkRead() for other account error = %v", err)
	}
	if err := repos.Inbox.MarkRead(ctx, "alice", []string{"msg-1", "msg-2"}, now); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	msgs, err := repos.Inbox.ListByAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("ListByAccount() error = %v", err)
	}
	for _, m := range msgs {
		if m.ReadAt == nil {
			t.Errorf("message %s not marked read", m.ID)
		}
	}
}

func TestResponseCacheRepo_TTL(t *testing.T) {
	db := newTestDB(t)
	repos := postgres.New(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	if err := repos.Responses.Put(ctx, &store.CachedResponse{
		ID:          "req-1",
		Endpoint:    "starter.grant",
		FirstSeenAt: now,
		Response:    json.RawMessage(`{"ok":true}`),
		TTLUntil:    now.Add(-time.Minute),
	}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := repos.Responses.Put(ctx, &store.CachedResponse{
		ID:          "req-2",
		Endpoint:    "starter.grant",
		FirstSeenAt: now,
		Response:    json.RawMessage(`{"ok":true}`),
		TTLUntil:    now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	n, err := repos.Responses.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("DeleteExpired() = %d, want 1", n)
	}
	if _, err := repos.Responses.Get(ctx, "req-2", "starter.grant"); err != nil {
		t.Fatalf("Get() surviving entry error = %v", err)
	}
}

func TestEventRepo_AppendAndList(t *testing.T) {
	db := newTestDB(t)
	repos := postgres.New(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	topic := "auc-1"
	if err := repos.Events.Append(ctx,
		event.Event{ID: "evt-1", At: now, Kind: event.AuctionBidPlaced, Actor: "bob", Topic: &topic, Payload: json.RawMessage(`{}`)},
		event.Event{ID: "evt-2", At: now.Add(time.Second), Kind: event.AuctionFinalized, Actor: "alice", Topic: &topic, Payload: json.RawMessage(`{}`)},
	); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	byTopic, err := repos.Events.ListByTopic(ctx, topic)
	if err != nil {
		t.Fatalf("ListByTopic() error = %v", err)
	}
	if len(byTopic) != 2 || byTopic[0].ID != "evt-1" {
		t.Fatalf("got events %+v, want evt-1 then evt-2", byTopic)
	}

	byKind, err := repos.Events.ListByKind(ctx, event.AuctionFinalized)
	if err != nil {
		t.Fatalf("ListByKind() error = %v", err)
	}
	if len(byKind) != 1 || byKind[0].ID != "evt-2" {
		t.Fatalf("got events %+v, want only evt-2", byKind)
	}
}
