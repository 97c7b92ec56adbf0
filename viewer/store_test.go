package viewer

import (
	"context"
	"testing"
	"time"
)

func day(n int) time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func newMemStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(context.Background(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestStreakProgression(t *testing.T) {
	s := newMemStore(t)

	// Days 0, 1, 2, then a break until day 5: streaks 1, 2, 3, 1.
	wantStreaks := map[int]int{0: 1, 1: 2, 2: 3, 5: 1}
	for _, d := range []int{0, 1, 2, 5} {
		s.Record("alice", day(d))
		rec, ok := s.Get("alice")
		if !ok {
			t.Fatalf("day %d: record missing", d)
		}
		if rec.ConsecutiveDays != wantStreaks[d] {
			t.Errorf("day %d: streak = %d, want %d", d, rec.ConsecutiveDays, wantStreaks[d])
		}
	}
	rec, _ := s.Get("alice")
	if rec.MessageCount != 4 {
		t.Errorf("message count = %d, want 4", rec.MessageCount)
	}
}

func TestSameDayMessagesDoNotExtendStreak(t *testing.T) {
	s := newMemStore(t)
	for i := 0; i < 5; i++ {
		if ev := s.Record("bob", day(0).Add(time.Duration(i)*time.Hour)); ev != nil {
			t.Errorf("same-day message %d fired event %+v", i, ev)
		}
	}
	rec, _ := s.Get("bob")
	if rec.ConsecutiveDays != 1 {
		t.Errorf("streak = %d, want 1", rec.ConsecutiveDays)
	}
	if rec.MessageCount != 5 {
		t.Errorf("message count = %d, want 5", rec.MessageCount)
	}
}

func TestMilestoneEventsAreEdgeTriggered(t *testing.T) {
	s := newMemStore(t)

	var events []Event
	for d := 0; d < 31; d++ {
		if ev := s.Record("carol", day(d)); ev != nil {
			events = append(events, *ev)
		}
	}
	want := []Event{
		{Kind: EventStreak, Days: 2},
		{Kind: EventWeek, Days: 7},
		{Kind: EventMonth, Days: 30},
	}
	if len(events) != len(want) {
		t.Fatalf("events = %+v, want %+v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, events[i], want[i])
		}
	}
}

func TestReturnEventAfterBreak(t *testing.T) {
	s := newMemStore(t)
	s.Record("dave", day(0))

	// A 2-day gap resets the streak but is not a "return".
	if ev := s.Record("dave", day(2)); ev != nil {
		t.Errorf("2-day gap fired %+v", ev)
	}
	// A 3-day gap is a return.
	ev := s.Record("dave", day(5))
	if ev == nil || ev.Kind != EventReturn || ev.Days != 3 {
		t.Errorf("3-day gap event = %+v, want EventReturn with Days=3", ev)
	}
	rec, _ := s.Get("dave")
	if rec.ConsecutiveDays != 1 {
		t.Errorf("streak after break = %d, want 1", rec.ConsecutiveDays)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newMemStore(t)
	s.Record("erin", day(0))
	snap := s.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot size = %d", len(snap))
	}
	rec := snap["erin"]
	rec.MessageCount = 999
	fresh, _ := s.Get("erin")
	if fresh.MessageCount == 999 {
		t.Error("snapshot mutation leaked into the store")
	}
}
