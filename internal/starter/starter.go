// Package starter implements the one-shot starter pack grant. The payload
// is validated in full before anything is written, and a per-account claim
// record makes the grant unrepeatable.
package starter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/squadmarket/internal/clock"
	"github.com/jensholdgaard/squadmarket/internal/event"
	"github.com/jensholdgaard/squadmarket/internal/store"
)

// Errors returned by Grant.
var (
	ErrInvalidPayload = errors.New("malformed starter payload")
	ErrNoPlayers      = errors.New("starter payload lists no players")
	ErrAlreadyClaimed = errors.New("starter pack already claimed")
)

// Payload is the starter pack contents.
type Payload struct {
	Players []event.StarterPlayer `json:"players"`
}

// Manager issues starter packs.
type Manager struct {
	store      *store.Repositories
	holdPeriod time.Duration
	logger     *slog.Logger
	tracer     trace.Tracer
	clock      clock.Clock
}

// NewManager returns a starter Manager. holdPeriod is how long granted
// items stay unlistable.
func NewManager(repos *store.Repositories, holdPeriod time.Duration, logger *slog.Logger, tp trace.TracerProvider, clk clock.Clock) *Manager {
	return &Manager{
		store:      repos,
		holdPeriod: holdPeriod,
		logger:     logger,
		tracer:     tp.Tracer("github.com/jensholdgaard/squadmarket/internal/starter"),
		clock:      clk,
	}
}

// Grant validates payloadJSON, records the claim, and inserts one inventory
// item per listed player with a uniform hold period starting now. Granted
// player ids overwrite any existing inventory rows with the same id.
func (m *Manager) Grant(ctx context.Context, account, payloadJSON string) ([]store.Item, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Grant",
		trace.WithAttributes(attribute.String("account", account)),
	)
	defer span.End()

	// Parse and validate before any write so bad input has no effects.
	var payload Payload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return nil, ErrInvalidPayload
	}
	if len(payload.Players) == 0 {
		return nil, ErrNoPlayers
	}

	var items []store.Item
	err := m.store.Tx(ctx, func(tx *store.Repositories) error {
		_, err := tx.Claims.Get(ctx, account)
		if err == nil {
			return ErrAlreadyClaimed
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("checking claim: %w", err)
		}

		now := m.clock.Now().UTC()
		if err := tx.Claims.Create(ctx, &store.StarterClaim{
			Account:   account,
			ClaimedAt: now,
		}); err != nil {
			return fmt.Errorf("recording claim: %w", err)
		}

		// Store the canonical form of the payload so consumers of the
		// event never depend on the caller's formatting.
		data, _ := json.Marshal(event.StarterGrantedData{
			Account: account,
			Players: payload.Players,
		})
		evt := event.Event{
			ID:      store.NewID("evt", string(event.StarterGranted)+":"+account, now),
			At:      now,
			Kind:    event.StarterGranted,
			Actor:   account,
			Payload: data,
		}
		if err := tx.Events.Append(ctx, evt); err != nil {
			return fmt.Errorf("appending grant event: %w", err)
		}

		holdUntil := now.Add(m.holdPeriod)
		for _, p := range payload.Players {
			item := store.Item{
				ID:          p.PlayerID,
				Owner:       account,
				Kind:        store.KindPlayer,
				AcquiredAt:  now,
				HoldUntil:   holdUntil,
				SourceEvent: evt.ID,
			}
			if err := tx.Items.Put(ctx, &item); err != nil {
				return fmt.Errorf("inserting player item: %w", err)
			}
			items = append(items, item)
		}

		return tx.Inbox.Push(ctx, &store.Message{
			ID:        "starter-" + evt.ID,
			Account:   account,
			Kind:      "starter_pack",
			Title:     "Starter Pack Granted",
			Body:      fmt.Sprintf("You received %d players from starter pack.", len(payload.Players)),
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "starter pack granted",
		slog.String("account", account),
		slog.Int("players", len(items)),
	)
	return items, nil
}
