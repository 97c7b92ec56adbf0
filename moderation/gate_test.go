package moderation

import (
	"strings"
	"testing"
	"time"

	"github.com/streamforge/copilot/config"
)

func filterCfg() *config.ModerationConfig {
	return &config.ModerationConfig{
		ProtectionLogic: config.ProtectionLogic{
			WarningEnabled:  true,
			MaxWarnings:     3,
			TimeoutDuration: 300,
			WarningReset:    600,
		},
		Filters: config.FiltersConfig{
			WordBlacklist: config.WordFilter{
				Enabled: true,
				Words:   []string{"banned"},
				Message: "Hey {author}, that word is banned!",
			},
		},
	}
}

func TestEscalationWarnsThenTimesOut(t *testing.T) {
	g := NewGate()
	cfg := filterCfg()

	for i := 1; i <= 3; i++ {
		d := g.Evaluate("alice", "banned", cfg)
		if d.Verdict != Warn {
			t.Fatalf("violation %d: verdict = %v, want Warn", i, d.Verdict)
		}
		if !strings.Contains(d.Message, "alice") {
			t.Errorf("violation %d: message %q missing author substitution", i, d.Message)
		}
	}

	d := g.Evaluate("alice", "banned", cfg)
	if d.Verdict != Timeout {
		t.Fatalf("4th violation: verdict = %v, want Timeout", d.Verdict)
	}
	if d.Duration != 300*time.Second {
		t.Errorf("timeout duration = %v, want 300s", d.Duration)
	}

	// Counter resets after the timeout; next violation warns again.
	if d := g.Evaluate("alice", "banned", cfg); d.Verdict != Warn {
		t.Errorf("post-timeout violation: verdict = %v, want Warn", d.Verdict)
	}
}

func TestWarningDisabledGoesStraightToTimeout(t *testing.T) {
	g := NewGate()
	cfg := filterCfg()
	cfg.ProtectionLogic.WarningEnabled = false

	if d := g.Evaluate("bob", "banned", cfg); d.Verdict != Timeout {
		t.Fatalf("verdict = %v, want Timeout with warnings disabled", d.Verdict)
	}
}

func TestWarningsDecayAfterQuietPeriod(t *testing.T) {
	g := NewGate()
	cfg := filterCfg()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	g.now = func() time.Time { return now }

	g.Evaluate("carol", "banned", cfg)
	g.Evaluate("carol", "banned", cfg)
	if got := g.WarningCount("carol"); got != 2 {
		t.Fatalf("warning count = %d, want 2", got)
	}

	// A quiet period longer than warning_reset clears accumulated warnings.
	now = base.Add(601 * time.Second)
	if d := g.Evaluate("carol", "banned", cfg); d.Verdict != Warn {
		t.Fatalf("verdict after decay = %v, want Warn", d.Verdict)
	}
	if got := g.WarningCount("carol"); got != 1 {
		t.Errorf("warning count after decay = %d, want 1", got)
	}
}

func TestIgnoreListSkipsEverything(t *testing.T) {
	g := NewGate()
	cfg := filterCfg()
	cfg.IgnoreList = []string{"NightBot"}

	if d := g.Evaluate("nightbot", "banned banned banned", cfg); d.Verdict != Ignore {
		t.Fatalf("verdict = %v, want Ignore (case-insensitive list match)", d.Verdict)
	}
	if got := g.WarningCount("nightbot"); got != 0 {
		t.Errorf("ignored user accumulated %d warnings", got)
	}
}

func TestBlacklistMatching(t *testing.T) {
	cases := []struct {
		name    string
		words   []string
		message string
		want    bool
	}{
		{"exact match", []string{"spam"}, "this is spam", true},
		{"exact is case-insensitive", []string{"spam"}, "SPAM alert", true},
		{"substring does not match", []string{"spam"}, "spammer here", false},
		{"wildcard matches longer token", []string{"spam*"}, "spammer here", true},
		{"wildcard requires continuation", []string{"spam*"}, "no spam here", false},
		{"bare star matches nothing", []string{"*"}, "anything at all", false},
		{"empty pattern skipped", []string{""}, "anything", false},
		{"inner star is literal", []string{"sp*m"}, "sp*m", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &config.WordFilter{Enabled: true, Words: tc.words}
			if got := blacklistViolation(tc.message, f); got != tc.want {
				t.Errorf("blacklistViolation(%q, %v) = %v, want %v", tc.message, tc.words, got, tc.want)
			}
		})
	}
}

func TestSymbolFilter(t *testing.T) {
	f := &config.SymbolsFilter{Enabled: true, Limit: 5}
	if symbolViolation("hello world 123", f) {
		t.Error("clean message flagged")
	}
	if symbolViolation("ok!!! ???", f) == false {
		t.Error("6 symbols with limit 5 not flagged")
	}
	if symbolViolation("ok!!!??", f) {
		t.Error("exactly at limit should pass")
	}
}

func TestSpamWindow(t *testing.T) {
	g := NewGate()
	cfg := &config.ModerationConfig{
		ProtectionLogic: config.ProtectionLogic{WarningEnabled: true, MaxWarnings: 3, TimeoutDuration: 60},
		Filters: config.FiltersConfig{
			SpamProtection: config.SpamFilter{Enabled: true, Limit: 3, Window: 10, Message: "slow down {author}"},
		},
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	g.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		now = base.Add(time.Duration(i) * time.Second)
		if d := g.Evaluate("dave", "hi", cfg); d.Verdict != Allow {
			t.Fatalf("message %d inside limit: verdict = %v, want Allow", i+1, d.Verdict)
		}
	}
	now = base.Add(3 * time.Second)
	if d := g.Evaluate("dave", "hi", cfg); d.Verdict != Warn {
		t.Fatalf("4th message in window: verdict = %v, want Warn", d.Verdict)
	}

	// Outside the window the counter has drained.
	now = base.Add(30 * time.Second)
	if d := g.Evaluate("dave", "hi", cfg); d.Verdict != Allow {
		t.Fatalf("message after window: verdict = %v, want Allow", d.Verdict)
	}
}
