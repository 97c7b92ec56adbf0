// Package viewer tracks per-viewer engagement: message counts, last-seen
// timestamps, and consecutive-day streaks used for loyalty announcements.
package viewer

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"
)

// Record is one viewer's loyalty state.
type Record struct {
	MessageCount    int64     `json:"message_count"`
	LastSeen        time.Time `json:"last_seen"`
	LastDate        string    `json:"last_date"` // calendar date, YYYY-MM-DD
	ConsecutiveDays int       `json:"consecutive_days"`
}

// EventKind classifies loyalty milestones.
type EventKind int

const (
	EventNone EventKind = iota
	// EventStreak fires when the streak crosses 2 days.
	EventStreak
	// EventWeek fires when the streak crosses 7 days.
	EventWeek
	// EventMonth fires when the streak crosses 30 days.
	EventMonth
	// EventReturn fires when a viewer comes back after a 3+ day break.
	EventReturn
)

// Event is an edge-triggered loyalty milestone.
type Event struct {
	Kind EventKind
	Days int
}

// Store owns viewer records with per-entry locking via a single mutex; record
// mutation is cheap, so one lock suffices without coupling unrelated users to
// slow work (the pipeline never holds it across network calls).
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record

	db *sql.DB // optional persistence; nil keeps the store memory-only
}

// NewStore creates a store. When db is non-nil, existing rows are loaded so
// streaks survive restarts.
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	s := &Store{records: make(map[string]*Record), db: db}
	if db == nil {
		return s, nil
	}
	rows, err := db.QueryContext(ctx, `SELECT username, message_count, last_seen, last_date, consecutive_days FROM viewers`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	for rows.Next() {
		var name string
		var rec Record
		var lastSeen sql.NullTime
		var lastDate sql.NullTime
		if err := rows.Scan(&name, &rec.MessageCount, &lastSeen, &lastDate, &rec.ConsecutiveDays); err != nil {
			return nil, err
		}
		if lastSeen.Valid {
			rec.LastSeen = lastSeen.Time
		}
		if lastDate.Valid {
			rec.LastDate = lastDate.Time.Format("2006-01-02")
		}
		s.records[name] = &rec
	}
	return s, rows.Err()
}

// Record registers a message from username at now, updating counters and the
// day streak. It returns a loyalty event when a milestone is crossed, nil
// otherwise. Streak rules: same-day messages never change the streak; a 1-day
// gap extends it by exactly 1; any larger gap resets it to 1.
func (s *Store) Record(username string, now time.Time) *Event {
	today := now.Format("2006-01-02")

	s.mu.Lock()
	rec, ok := s.records[username]
	if !ok {
		rec = &Record{ConsecutiveDays: 1, LastDate: today}
		s.records[username] = rec
		rec.MessageCount = 1
		rec.LastSeen = now
		s.mu.Unlock()
		s.persist(username, rec)
		return nil
	}
	rec.MessageCount++
	rec.LastSeen = now

	var ev *Event
	if rec.LastDate != today {
		dayDiff := daysBetween(rec.LastDate, today)
		switch {
		case dayDiff == 1:
			rec.ConsecutiveDays++
			switch {
			case rec.ConsecutiveDays == 2:
				ev = &Event{Kind: EventStreak, Days: 2}
			case rec.ConsecutiveDays == 7:
				ev = &Event{Kind: EventWeek, Days: 7}
			case rec.ConsecutiveDays == 30:
				ev = &Event{Kind: EventMonth, Days: 30}
			}
		case dayDiff > 1:
			rec.ConsecutiveDays = 1
			if dayDiff >= 3 {
				ev = &Event{Kind: EventReturn, Days: dayDiff}
			}
		}
		rec.LastDate = today
	}
	snapshot := *rec
	s.mu.Unlock()

	s.persist(username, &snapshot)
	return ev
}

// daysBetween returns the calendar-day distance from one YYYY-MM-DD date to
// another. Unparseable prior dates count as a fresh start.
func daysBetween(from, to string) int {
	a, err := time.Parse("2006-01-02", from)
	if err != nil {
		return 0
	}
	b, err := time.Parse("2006-01-02", to)
	if err != nil {
		return 0
	}
	return int(b.Sub(a).Hours() / 24)
}

func (s *Store) persist(username string, rec *Record) {
	if s.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO viewers (username, message_count, last_seen, last_date, consecutive_days)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (username) DO UPDATE SET message_count=EXCLUDED.message_count,
		 last_seen=EXCLUDED.last_seen, last_date=EXCLUDED.last_date, consecutive_days=EXCLUDED.consecutive_days`,
		username, rec.MessageCount, rec.LastSeen, rec.LastDate, rec.ConsecutiveDays); err != nil {
		slog.Warn("failed to persist viewer record", slog.String("username", username), slog.Any("err", err))
	}
}

// Get returns a copy of one viewer's record.
func (s *Store) Get(username string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[username]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Snapshot returns a copy of every record keyed by username.
func (s *Store) Snapshot() map[string]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Record, len(s.records))
	for name, rec := range s.records {
		out[name] = *rec
	}
	return out
}

// Len reports the number of tracked viewers.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
