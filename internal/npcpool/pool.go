// Package npcpool manages the shared pool of autonomous managers: seeding
// pool entries, minting their tokens into the ledger, and bulk-assigning
// unowned entries to an account. Assignment is all-or-nothing and safe to
// retry.
package npcpool

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
	"github.com/jensholdgaard/squadmarket/internal/ledger"
	"github.com/jensholdgaard/squadmarket/internal/store"
	"github.com/jensholdgaard/squadmarket/internal/wei"
)

// Errors returned by pool operations.
var (
	ErrInsufficientPool = errors.New("not enough unassigned managers in the pool")
	ErrManagerNotFound  = errors.New("manager not found")
)

// Manager coordinates the pool registry.
type Manager struct {
	store  *store.Repositories
	ledger *ledger.Ledger
	logger *slog.Logger
	tracer trace.Tracer
	clock  clock.Clock
}

// NewManager returns a pool Manager.
func NewManager(repos *store.Repositories, led *ledger.Ledger, logger *slog.Logger, tp trace.TracerProvider, clk clock.Clock) *Manager {
	return &Manager{
		store:  repos,
		ledger: led,
		logger: logger,
		tracer: tp.Tracer("github.com/jensholdgaard/squadmarket/internal/npcpool"),
		clock:  clk,
	}
}

// Assign allocates count unowned pool managers to account. If fewer than
// count are available nothing is written. Selection is deterministic:
// ascending manager id. Re-running for pairs already assigned is a no-op
// for the join record, and tokens are only minted once.
func (m *Manager) Assign(ctx context.Context, account string, count int) ([]store.ManagerRow, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Assign",
		trace.WithAttributes(
			attribute.String("account", account),
			attribute.Int("count", count),
		),
	)
	defer span.End()

	if count <= 0 {
		return nil, nil
	}

	var assigned []store.ManagerRow
	err := m.store.Tx(ctx, func(tx *store.Repositories) error {
		pool, err := tx.Managers.ListUnassigned(ctx)
		if err != nil {
			return fmt.Errorf("listing unassigned managers: %w", err)
		}
		if len(pool) < count {
			return ErrInsufficientPool
		}

		now := m.clock.Now().UTC()
		for _, row := range pool[:count] {
			if err := tx.Assignments.Put(ctx, &store.Assignment{
				Account:    account,
				ManagerID:  row.ManagerID,
				AssignedAt: now,
			}); err != nil {
				return fmt.Errorf("recording assignment: %w", err)
			}

			tokenID := store.ManagerTokenID(row.ManagerID)
			if err := m.mintManagerToken(ctx, tx, &row, account, tokenID, event.ManagerAssigned, now); err != nil {
				return err
			}

			owner := account
			row.Owner = &owner
			row.TokenItemID = &tokenID
			if err := tx.Managers.Update(ctx, &row); err != nil {
				return fmt.Errorf("updating pool row: %w", err)
			}
			assigned = append(assigned, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "pool managers assigned",
		slog.String("account", account),
		slog.Int("count", len(assigned)),
	)
	return assigned, nil
}

// CreateManager seeds (or reseeds) a pool entry and its NPC account
// profile. Reseeding resets the entry's disposition and reactivates it but
// never touches ownership.
func (m *Manager) CreateManager(ctx context.Context, managerID, displayName string, aiSeed int64, tier int16, budget, persona string) (*store.ManagerRow, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.CreateManager",
		trace.WithAttributes(attribute.String("manager_id", managerID)),
	)
	defer span.End()

	if _, err := wei.Parse(budget); err != nil {
		return nil, fmt.Errorf("manager budget: %w", err)
	}

	var row *store.ManagerRow
	err := m.store.Tx(ctx, func(tx *store.Repositories) error {
		now := m.clock.Now().UTC()

		user, err := tx.Users.Get(ctx, managerID)
		if errors.Is(err, store.ErrNotFound) {
			user = &store.User{Account: managerID, CreatedAt: now, Elo: 1000}
		} else if err != nil {
			return fmt.Errorf("loading npc user: %w", err)
		}
		user.IsNPC = true
		user.DisplayName = &displayName
		user.Persona = &persona
		if err := tx.Users.Upsert(ctx, user); err != nil {
			return fmt.Errorf("upserting npc user: %w", err)
		}

		row, err = tx.Managers.Get(ctx, managerID)
		if errors.Is(err, store.ErrNotFound) {
			row = &store.ManagerRow{ManagerID: managerID}
		} else if err != nil {
			return fmt.Errorf("loading pool row: %w", err)
		}
		row.AISeed = aiSeed
		row.Tier = tier
		row.Budget = budget
		row.Persona = persona
		row.Confidence = 50
		row.Pressure = 0
		row.Mood = "calm"
		row.NextDecisionAt = now
		row.LastActiveAt = now
		row.Active = true
		return tx.Managers.Upsert(ctx, row)
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "pool manager seeded", slog.String("manager_id", managerID))
	return row, nil
}

// MintToken mints the inventory token for a pool manager to owner, if it
// does not already exist, and points the registry row at it.
func (m *Manager) MintToken(ctx context.Context, managerID, owner string) error {
	ctx, span := m.tracer.Start(ctx, "Manager.MintToken",
		trace.WithAttributes(
			attribute.String("manager_id", managerID),
			attribute.String("owner", owner),
		),
	)
	defer span.End()

	return m.store.Tx(ctx, func(tx *store.Repositories) error {
		row, err := tx.Managers.Get(ctx, managerID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrManagerNotFound
		}
		if err != nil {
			return fmt.Errorf("loading pool row: %w", err)
		}

		now := m.clock.Now().UTC()
		tokenID := store.ManagerTokenID(managerID)
		if err := m.mintManagerToken(ctx, tx, row, owner, tokenID, event.ManagerTokenMinted, now); err != nil {
			return err
		}

		// The mirror follows the ledger: if the token already existed the
		// registry row keeps its current owner.
		item, err := tx.Items.Get(ctx, tokenID)
		if err != nil {
			return fmt.Errorf("loading minted token: %w", err)
		}
		row.Owner = &item.Owner
		row.TokenItemID = &tokenID
		return tx.Managers.Update(ctx, row)
	})
}

// UpdateState advances a pool entry's scheduling and budget bookkeeping.
func (m *Manager) UpdateState(ctx context.Context, managerID string, nextDecisionAt time.Time, budget string) error {
	ctx, span := m.tracer.Start(ctx, "Manager.UpdateState",
		trace.WithAttributes(attribute.String("manager_id", managerID)),
	)
	defer span.End()

	if _, err := wei.Parse(budget); err != nil {
		return fmt.Errorf("manager budget: %w", err)
	}

	return m.store.Tx(ctx, func(tx *store.Repositories) error {
		row, err := tx.Managers.Get(ctx, managerID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrManagerNotFound
		}
		if err != nil {
			return fmt.Errorf("loading pool row: %w", err)
		}
		row.NextDecisionAt = nextDecisionAt
		row.Budget = budget
		row.LastActiveAt = m.clock.Now().UTC()
		return tx.Managers.Update(ctx, row)
	})
}

// mintManagerToken mints the manager's token item if absent and records the
// corresponding event. Already-minted tokens are left alone.
func (m *Manager) mintManagerToken(ctx context.Context, tx *store.Repositories, row *store.ManagerRow, owner, tokenID string, kind event.Type, now time.Time) error {
	data, _ := json.Marshal(event.ManagerTokenData{
		ManagerID: row.ManagerID,
		Owner:     owner,
	})
	evt := event.Event{
		ID:      store.NewID("evt", string(kind)+":"+tokenID+":"+owner, now),
		At:      now,
		Kind:    kind,
		Actor:   owner,
		Topic:   &tokenID,
		Payload: data,
	}

	minted, err := m.ledger.Mint(ctx, tx, &store.Item{
		ID:          tokenID,
		Owner:       owner,
		Kind:        store.KindManagerToken,
		AcquiredAt:  now,
		HoldUntil:   time.Time{},
		SourceEvent: evt.ID,
	})
	if err != nil {
		return err
	}
	if !minted {
		return nil
	}
	if err := tx.Events.Append(ctx, evt); err != nil {
		return fmt.Errorf("appending mint event: %w", err)
	}
	return nil
}
