package config

import (
	"context"
	"testing"

	"github.com/streamforge/copilot/testutil"
)

func TestDocumentSurvivesRestart(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	if _, err := database.ExecContext(ctx, `DELETE FROM kv`); err != nil {
		t.Fatalf("clear kv: %v", err)
	}

	// With nothing stored, a new store starts from defaults.
	s, err := NewStore(ctx, database)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if s.Get().Cooldowns.Global != DefaultDocument().Cooldowns.Global {
		t.Fatalf("empty kv did not yield defaults: %+v", s.Get().Cooldowns)
	}

	doc := DefaultDocument()
	doc.Cooldowns.Global = 42
	doc.Moderation.Filters.WordBlacklist.Words = []string{"spoiler*"}
	if err := s.Save(ctx, doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A second save overwrites the same kv row rather than erroring.
	doc2 := DefaultDocument()
	doc2.Cooldowns.Global = 42
	doc2.Cooldowns.User = 99
	if err := s.Save(ctx, doc2); err != nil {
		t.Fatalf("second save: %v", err)
	}

	reloaded, err := NewStore(ctx, database)
	if err != nil {
		t.Fatalf("reload store: %v", err)
	}
	got := reloaded.Get()
	if got.Cooldowns.Global != 42 || got.Cooldowns.User != 99 {
		t.Errorf("reloaded cooldowns = %+v", got.Cooldowns)
	}
}
