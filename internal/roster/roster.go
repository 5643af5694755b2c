// Package roster reserves the player-progression, officials and commentary
// surface. None of it is built yet: every operation fails loudly with
// ErrNotImplemented so a caller can never mistake a stub for the real
// thing.
package roster

import (
	"context"
	"errors"
)

// ErrNotImplemented is returned by every roster operation.
var ErrNotImplemented = errors.New("roster operation not implemented")

// Manager is a placeholder for the roster subsystem.
type Manager struct{}

// NewManager returns a roster Manager.
func NewManager() *Manager { return &Manager{} }

// InitPlayerProfile is not implemented.
func (m *Manager) InitPlayerProfile(ctx context.Context, playerID string, ageYears int16, morale, fatigue, satisfaction, loyalty int) error {
	return ErrNotImplemented
}

// ApplyMatchToPlayer is not implemented.
func (m *Manager) ApplyMatchToPlayer(ctx context.Context, playerID string, minutesPlayed int, benched bool, result, eventsJSON string) error {
	return ErrNotImplemented
}

// RecoverTick is not implemented.
func (m *Manager) RecoverTick(ctx context.Context) error { return ErrNotImplemented }

// AgeTick is not implemented.
func (m *Manager) AgeTick(ctx context.Context) error { return ErrNotImplemented }

// CreateOfficial is not implemented.
func (m *Manager) CreateOfficial(ctx context.Context, role string, aiSeed int64, attrs map[string]int) error {
	return ErrNotImplemented
}

// AssignOfficialsToMatch is not implemented.
func (m *Manager) AssignOfficialsToMatch(ctx context.Context, matchID, refereeID, assistantLeftID, assistantRightID string, varID *string) error {
	return ErrNotImplemented
}

// RecordVarReview is not implemented.
func (m *Manager) RecordVarReview(ctx context.Context, matchID, decision, reason string) error {
	return ErrNotImplemented
}

// AppendCommentary is not implemented.
func (m *Manager) AppendCommentary(ctx context.Context, matchID, tone, lang, text string) error {
	return ErrNotImplemented
}
