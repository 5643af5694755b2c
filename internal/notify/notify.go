// Package notify reads and delivers queued inbox messages. Engines enqueue
// messages inside their own transactions; delivery happens later, from a
// single elected worker, so a crashed delivery never loses a message.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/squadmarket/internal/clock"
	"github.com/jensholdgaard/squadmarket/internal/store"
)

// Manager exposes inbox operations to callers.
type Manager struct {
	store  *store.Repositories
	logger *slog.Logger
	tracer trace.Tracer
	clock  clock.Clock
}

// NewManager returns an inbox Manager.
func NewManager(repos *store.Repositories, logger *slog.Logger, tp trace.TracerProvider, clk clock.Clock) *Manager {
	return &Manager{
		store:  repos,
		logger: logger,
		tracer: tp.Tracer("github.com/jensholdgaard/squadmarket/internal/notify"),
		clock:  clk,
	}
}

// Inbox returns all messages for an account, oldest first.
func (m *Manager) Inbox(ctx context.Context, account string) ([]store.Message, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Inbox",
		trace.WithAttributes(attribute.String("account", account)),
	)
	defer span.End()

	msgs, err := m.store.Inbox.ListByAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("listing inbox: %w", err)
	}
	return msgs, nil
}

// MarkRead stamps the given message ids as read for the account. Ids that
// do not exist or belong to someone else are skipped.
func (m *Manager) MarkRead(ctx context.Context, account string, ids []string) error {
	ctx, span := m.tracer.Start(ctx, "Manager.MarkRead",
		trace.WithAttributes(
			attribute.String("account", account),
			attribute.Int("count", len(ids)),
		),
	)
	defer span.End()

	if len(ids) == 0 {
		return nil
	}
	if err := m.store.Inbox.MarkRead(ctx, account, ids, m.clock.Now().UTC()); err != nil {
		return fmt.Errorf("marking messages read: %w", err)
	}

	m.logger.InfoContext(ctx, "inbox messages marked read",
		slog.String("account", account),
		slog.Int("count", len(ids)),
	)
	return nil
}
