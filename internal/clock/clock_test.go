package clock_test

import (
	"testing"
	"time"

	"github.com/jensholdgaard/squadmarket/internal/clock"
)

func TestRealNow(t *testing.T) {
	before := time.Now()
	got := clock.Real{}.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Real.Now() = %v, want between %v and %v", got, before, after)
	}
}

func TestMock(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := &clock.Mock{T: fixed}

	if got := m.Now(); !got.Equal(fixed) {
		t.Errorf("Mock.Now() = %v, want %v", got, fixed)
	}

	m.Advance(90 * time.Second)
	if got := m.Now(); !got.Equal(fixed.Add(90 * time.Second)) {
		t.Errorf("after Advance, Now() = %v, want %v", got, fixed.Add(90*time.Second))
	}

	m.Set(fixed)
	if got := m.Now(); !got.Equal(fixed) {
		t.Errorf("after Set, Now() = %v, want %v", got, fixed)
	}
}
