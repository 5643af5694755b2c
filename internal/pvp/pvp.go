// Package pvp implements the head-to-head challenge state machine:
// pending → active → finalized, with a validated result payload. The first
// valid result submission wins; there is no dispute or correction path
// after that.
package pvp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/squadmarket/internal/clock"
	"github.com/jensholdgaard/squadmarket/internal/event"
	"github.com/jensholdgaard/squadmarket/internal/store"
)

// Errors returned by pvp operations.
var (
	ErrSelfChallenge    = errors.New("cannot challenge yourself")
	ErrDuplicatePending = errors.New("a pending match already exists between these accounts")
	ErrMatchNotFound    = errors.New("match not found")
	ErrInvalidState     = errors.New("match is not in the required state")
	ErrNotChallenged    = errors.New("account is not the challenged party")
	ErrNotParticipant   = errors.New("account is not a participant")
)

// Manager coordinates the match lifecycle.
type Manager struct {
	store  *store.Repositories
	logger *slog.Logger
	tracer trace.Tracer
	clock  clock.Clock
}

// NewManager returns a pvp Manager.
func NewManager(repos *store.Repositories, logger *slog.Logger, tp trace.TracerProvider, clk clock.Clock) *Manager {
	return &Manager{
		store:  repos,
		logger: logger,
		tracer: tp.Tracer("github.com/jensholdgaard/squadmarket/internal/pvp"),
		clock:  clk,
	}
}

// CreateChallenge opens a pending match between challenger and challenged.
// At most one pending match may exist per unordered pair at a time.
func (m *Manager) CreateChallenge(ctx context.Context, challenger, challenged string) (*store.Match, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.CreateChallenge",
		trace.WithAttributes(
			attribute.String("challenger", challenger),
			attribute.String("challenged", challenged),
		),
	)
	defer span.End()

	if challenger == challenged {
		return nil, ErrSelfChallenge
	}

	var match *store.Match
	err := m.store.Tx(ctx, func(tx *store.Repositories) error {
		pending, err := tx.Matches.HasPendingBetween(ctx, challenger, challenged)
		if err != nil {
			return fmt.Errorf("checking pending matches: %w", err)
		}
		if pending {
			return ErrDuplicatePending
		}

		now := m.clock.Now().UTC()
		match = &store.Match{
			ID:         store.NewID("pvp", challenger+":"+challenged, now),
			Challenger: challenger,
			Challenged: challenged,
			Status:     store.MatchPending,
			CreatedAt:  now,
		}
		if err := tx.Matches.Create(ctx, match); err != nil {
			return err
		}

		evt := event.Event{
			ID:      store.NewID("evt", string(event.PvpCreated)+":"+match.ID, now),
			At:      now,
			Kind:    event.PvpCreated,
			Actor:   challenger,
			Topic:   &match.ID,
			Payload: []byte("{}"),
		}
		if err := tx.Events.Append(ctx, evt); err != nil {
			return fmt.Errorf("appending challenge event: %w", err)
		}

		return tx.Inbox.Push(ctx, &store.Message{
			ID:        "pvp-challenge-" + match.ID,
			Account:   challenged,
			Kind:      "pvp_challenge",
			Title:     "New Challenge",
			Body:      fmt.Sprintf("%s challenged you.", challenger),
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "challenge created",
		slog.String("match_id", match.ID),
		slog.String("challenger", challenger),
		slog.String("challenged", challenged),
	)
	return match, nil
}

// Accept transitions a pending match to active. Only the challenged party
// may accept.
func (m *Manager) Accept(ctx context.Context, matchID, accepter string) (*store.Match, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Accept",
		trace.WithAttributes(
			attribute.String("match_id", matchID),
			attribute.String("accepter", accepter),
		),
	)
	defer span.End()

	var match *store.Match
	err := m.store.Tx(ctx, func(tx *store.Repositories) error {
		mt, err := getMatch(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if mt.Status != store.MatchPending {
			return ErrInvalidState
		}
		if mt.Challenged != accepter {
			return ErrNotChallenged
		}

		now := m.clock.Now().UTC()
		mt.Status = store.MatchActive
		mt.AcceptedAt = &now
		if err := tx.Matches.Update(ctx, mt); err != nil {
			return err
		}

		evt := event.Event{
			ID:      store.NewID("evt", string(event.PvpAccepted)+":"+matchID, now),
			At:      now,
			Kind:    event.PvpAccepted,
			Actor:   accepter,
			Topic:   &matchID,
			Payload: []byte("{}"),
		}
		if err := tx.Events.Append(ctx, evt); err != nil {
			return fmt.Errorf("appending accept event: %w", err)
		}
		match = mt
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "challenge accepted",
		slog.String("match_id", matchID),
		slog.String("accepter", accepter),
	)
	return match, nil
}

// SubmitResult finalizes an active match with a validated score payload.
// Either participant may report; whoever reports first with a valid payload
// settles the match for good.
func (m *Manager) SubmitResult(ctx context.Context, matchID, reporter, resultJSON string) (*store.Match, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.SubmitResult",
		trace.WithAttributes(
			attribute.String("match_id", matchID),
			attribute.String("reporter", reporter),
		),
	)
	defer span.End()

	var match *store.Match
	err := m.store.Tx(ctx, func(tx *store.Repositories) error {
		mt, err := getMatch(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if mt.Status != store.MatchActive {
			return ErrInvalidState
		}
		if reporter != mt.Challenger && reporter != mt.Challenged {
			return ErrNotParticipant
		}
		if err := ValidateResult(resultJSON); err != nil {
			return err
		}

		now := m.clock.Now().UTC()
		mt.Status = store.MatchFinalized
		mt.Result = &resultJSON
		if err := tx.Matches.Update(ctx, mt); err != nil {
			return err
		}

		evt := event.Event{
			ID:      store.NewID("evt", string(event.PvpResultSubmitted)+":"+matchID, now),
			At:      now,
			Kind:    event.PvpResultSubmitted,
			Actor:   reporter,
			Topic:   &matchID,
			Payload: []byte(resultJSON),
		}
		if err := tx.Events.Append(ctx, evt); err != nil {
			return fmt.Errorf("appending result event: %w", err)
		}
		match = mt
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "match result recorded",
		slog.String("match_id", matchID),
		slog.String("reporter", reporter),
	)
	return match, nil
}

func getMatch(ctx context.Context, tx *store.Repositories, id string) (*store.Match, error) {
	mt, err := tx.Matches.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return mt, nil
}
