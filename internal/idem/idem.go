// Package idem guards side-effecting operations against replays: write-once
// markers for external transaction references, and a cached-response dedup
// that makes retried client calls at-most-once.
package idem

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
	"github.com/jensholdgaard/squadmarket/internal/store"
)

// ErrTransactionUsed is returned when a transaction reference has already
// been consumed.
var ErrTransactionUsed = errors.New("transaction reference already used")

// Guard provides replay protection.
type Guard struct {
	store  *store.Repositories
	logger *slog.Logger
	tracer trace.Tracer
	clock  clock.Clock
}

// NewGuard returns a Guard.
func NewGuard(repos *store.Repositories, logger *slog.Logger, tp trace.TracerProvider, clk clock.Clock) *Guard {
	return &Guard{
		store:  repos,
		logger: logger,
		tracer: tp.Tracer("github.com/jensholdgaard/squadmarket/internal/idem"),
		clock:  clk,
	}
}

// MarkTransactionUsed consumes txRef once and forever. A second call with
// the same reference fails with ErrTransactionUsed and writes nothing.
// Verifying the transaction's authenticity is the caller's job; this only
// guarantees it cannot be fed through twice.
func (g *Guard) MarkTransactionUsed(ctx context.Context, txRef, caller, endpoint string) error {
	ctx, span := g.tracer.Start(ctx, "Guard.MarkTransactionUsed",
		trace.WithAttributes(
			attribute.String("endpoint", endpoint),
			attribute.String("caller", caller),
		),
	)
	defer span.End()

	err := g.store.Tx(ctx, func(tx *store.Repositories) error {
		_, err := tx.TxMarkers.Get(ctx, txRef)
		if err == nil {
			return ErrTransactionUsed
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("checking transaction marker: %w", err)
		}
		return tx.TxMarkers.Create(ctx, &store.TxMarker{
			TxRef:    txRef,
			UsedAt:   g.clock.Now().UTC(),
			UsedBy:   caller,
			Endpoint: endpoint,
		})
	})
	if err != nil {
		return err
	}

	g.logger.InfoContext(ctx, "transaction reference consumed",
		slog.String("endpoint", endpoint),
		slog.String("caller", caller),
	)
	return nil
}

// Do executes fn at most once per (id, endpoint) within ttl. The first
// invocation stores fn's response as canonical; replays inside the ttl get
// that response back, reported by replayed=true, without running fn again.
// An entry whose ttl has lapsed is overwritten by the next invocation.
func (g *Guard) Do(ctx context.Context, id, endpoint string, ttl time.Duration, fn func(ctx context.Context) (json.RawMessage, error)) (response json.RawMessage, replayed bool, err error) {
	ctx, span := g.tracer.Start(ctx, "Guard.Do",
		trace.WithAttributes(
			attribute.String("id", id),
			attribute.String("endpoint", endpoint),
		),
	)
	defer span.End()

	// No enclosing transaction here: fn usually runs an engine operation
	// that opens its own. The cache write lands after fn commits, so a
	// crash in between re-executes fn on retry rather than losing it.
	now := g.clock.Now().UTC()

	cached, err := g.store.Responses.Get(ctx, id, endpoint)
	if err == nil && now.Before(cached.TTLUntil) {
		g.logger.InfoContext(ctx, "replayed cached response",
			slog.String("id", id),
			slog.String("endpoint", endpoint),
		)
		return cached.Response, true, nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("checking response cache: %w", err)
	}

	response, err = fn(ctx)
	if err != nil {
		return nil, false, err
	}

	if err := g.store.Responses.Put(ctx, &store.CachedResponse{
		ID:          id,
		Endpoint:    endpoint,
		FirstSeenAt: now,
		Response:    response,
		TTLUntil:    now.Add(ttl),
	}); err != nil {
		return nil, false, fmt.Errorf("storing response: %w", err)
	}
	return response, false, nil
}

// PruneExpired removes cache entries whose ttl has lapsed. Meant for a
// periodic janitor, not the request path.
func (g *Guard) PruneExpired(ctx context.Context) (int64, error) {
	ctx, span := g.tracer.Start(ctx, "Guard.PruneExpired")
	defer span.End()

	n, err := g.store.Responses.DeleteExpired(ctx, g.clock.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning response cache: %w", err)
	}
	if n > 0 {
		g.logger.InfoContext(ctx, "pruned expired cached responses", slog.Int64("count", n))
	}
	return n, nil
}
