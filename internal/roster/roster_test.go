package roster_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jensholdgaard/squadmarket/internal/roster"
)

func TestEveryOperationFailsLoudly(t *testing.T) {
	mgr := roster.NewManager()
	ctx := context.Background()

	ops := map[string]func() error{
		"InitPlayerProfile": func() error {
			return mgr.InitPlayerProfile(ctx, "player-1", 21, 50, 0, 50, 50)
		},
		"ApplyMatchToPlayer": func() error {
			return mgr.ApplyMatchToPlayer(ctx, "player-1", 90, false, "win", "{}")
		},
		"RecoverTick": func() error { return mgr.RecoverTick(ctx) },
		"AgeTick":     func() error { return mgr.AgeTick(ctx) },
		"CreateOfficial": func() error {
			return mgr.CreateOfficial(ctx, "referee", 42, map[string]int{"strictness": 7})
		},
		"AssignOfficialsToMatch": func() error {
			return mgr.AssignOfficialsToMatch(ctx, "match-1", "ref-1", "al-1", "ar-1", nil)
		},
		"RecordVarReview": func() error {
			return mgr.RecordVarReview(ctx, "match-1", "goal_stands", "onside")
		},
		"AppendCommentary": func() error {
			return mgr.AppendCommentary(ctx, "match-1", "neutral", "en", "kickoff")
		},
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, roster.ErrNotImplemented) {
			t.Errorf("%s error = %v, want ErrNotImplemented", name, err)
		}
	}
}
