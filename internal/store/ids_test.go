package store

import (
	"testing"
	"time"
)

func TestNewID(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := NewID("listing", "player-1", at)
	b := NewID("listing", "player-1", at)
	if a != b {
		t.Errorf("same inputs produced %q and %q", a, b)
	}

	if c := NewID("listing", "player-2", at); c == a {
		t.Error("different discriminator produced the same id")
	}
	if c := NewID("auction", "player-1", at); c == a {
		t.Error("different kind produced the same id")
	}
	if c := NewID("listing", "player-1", at.Add(time.Microsecond)); c == a {
		t.Error("different timestamp produced the same id")
	}
}

func TestManagerTokenID(t *testing.T) {
	if got := ManagerTokenID("mgr-007"); got != "npc-mgr-007" {
		t.Errorf("ManagerTokenID() = %q, want npc-mgr-007", got)
	}
}
