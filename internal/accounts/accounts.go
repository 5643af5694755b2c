// Package accounts handles account profiles and wallet links.
package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/squadmarket/internal/clock"
	"github.com/jensholdgaard/squadmarket/internal/event"
	"github.com/jensholdgaard/squadmarket/internal/store"
)

// Manager handles account operations.
type Manager struct {
	store  *store.Repositories
	logger *slog.Logger
	tracer trace.Tracer
	clock  clock.Clock
}

// NewManager returns an accounts Manager.
func NewManager(repos *store.Repositories, logger *slog.Logger, tp trace.TracerProvider, clk clock.Clock) *Manager {
	return &Manager{
		store:  repos,
		logger: logger,
		tracer: tp.Tracer("github.com/jensholdgaard/squadmarket/internal/accounts"),
		clock:  clk,
	}
}

// LinkWallet attaches a wallet address to an account, creating the account
// profile if needed. Addresses are normalized to lower case, and relinking
// an address moves it to the new account.
func (m *Manager) LinkWallet(ctx context.Context, account, address string) error {
	ctx, span := m.tracer.Start(ctx, "Manager.LinkWallet",
		trace.WithAttributes(attribute.String("account", account)),
	)
	defer span.End()

	err := m.store.Tx(ctx, func(tx *store.Repositories) error {
		now := m.clock.Now().UTC()

		user, err := tx.Users.Get(ctx, account)
		if errors.Is(err, store.ErrNotFound) {
			user = &store.User{Account: account, CreatedAt: now, Elo: 1000}
		} else if err != nil {
			return fmt.Errorf("loading user: %w", err)
		}
		user.Wallet = &address
		if err := tx.Users.Upsert(ctx, user); err != nil {
			return fmt.Errorf("upserting user: %w", err)
		}

		normalized := strings.ToLower(address)
		if err := tx.Wallets.Replace(ctx, &store.WalletLink{
			Address:  normalized,
			Account:  account,
			LinkedAt: now,
		}); err != nil {
			return fmt.Errorf("replacing wallet link: %w", err)
		}

		data, _ := json.Marshal(event.WalletLinkedData{
			Account: account,
			Address: normalized,
		})
		return tx.Events.Append(ctx, event.Event{
			ID:      store.NewID("evt", string(event.WalletLinked)+":"+account, now),
			At:      now,
			Kind:    event.WalletLinked,
			Actor:   account,
			Payload: data,
		})
	})
	if err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "wallet linked", slog.String("account", account))
	return nil
}
