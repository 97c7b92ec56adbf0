package viewer

import (
	"context"
	"testing"
	"time"

	"github.com/streamforge/copilot/testutil"
)

func TestRecordsSurviveRestart(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	if _, err := database.ExecContext(ctx, `DELETE FROM viewers`); err != nil {
		t.Fatalf("clear viewers: %v", err)
	}

	s, err := NewStore(ctx, database)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	day := func(d int) time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, d)
	}
	s.Record("alice", day(0))
	s.Record("alice", day(1))
	s.Record("alice", day(1))
	s.Record("bob", day(1))

	// A fresh store over the same database sees the upserted rows.
	reloaded, err := NewStore(ctx, database)
	if err != nil {
		t.Fatalf("reload store: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("reloaded viewers = %d, want 2", reloaded.Len())
	}
	rec, ok := reloaded.Get("alice")
	if !ok {
		t.Fatal("alice missing after reload")
	}
	if rec.MessageCount != 3 || rec.ConsecutiveDays != 2 || rec.LastDate != "2026-03-02" {
		t.Errorf("reloaded record = %+v", rec)
	}

	// The streak continues from the persisted state.
	reloaded.Record("alice", day(2))
	rec, _ = reloaded.Get("alice")
	if rec.ConsecutiveDays != 3 {
		t.Errorf("streak after reload = %d, want 3", rec.ConsecutiveDays)
	}
}
