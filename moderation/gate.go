// Package moderation gates chat messages through spam, blacklist, and symbol
// filters, escalating repeat offenders from warnings to timeouts.
package moderation

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/streamforge/copilot/config"
)

// Verdict is the action the pipeline takes for a message.
type Verdict int

const (
	// Allow passes the message through untouched.
	Allow Verdict = iota
	// Warn sends the filter's templated message back to chat.
	Warn
	// Timeout asks the chat backend to time the user out.
	Timeout
	// Ignore drops the message silently; no state is touched and no reply is sent.
	Ignore
)

// Decision is the outcome of evaluating one message.
type Decision struct {
	Verdict  Verdict
	Message  string        // populated for Warn
	Duration time.Duration // populated for Timeout
}

// userState tracks one user's violations. recent holds message timestamps for
// the spam window; its length is bounded by the configured spam limit.
type userState struct {
	warningCount  int
	lastViolation time.Time
	recent        []time.Time
}

// Gate owns all per-user moderation state. One lock guards the state map; the
// evaluate path does no I/O, so contention stays negligible.
type Gate struct {
	mu    sync.Mutex
	users map[string]*userState

	now func() time.Time // test hook
}

func NewGate() *Gate {
	return &Gate{users: make(map[string]*userState), now: time.Now}
}

// Evaluate runs username's message through the configured filters and returns
// the resulting decision. Per-user state mutates only on violation paths.
func (g *Gate) Evaluate(username, message string, cfg *config.ModerationConfig) Decision {
	for _, ignored := range cfg.IgnoreList {
		if strings.EqualFold(ignored, username) {
			return Decision{Verdict: Ignore}
		}
	}

	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.users[username]
	if !ok {
		st = &userState{}
		g.users[username] = st
	}

	// Warnings decay after a quiet period with no violations.
	reset := time.Duration(cfg.ProtectionLogic.WarningReset) * time.Second
	if reset > 0 && st.warningCount > 0 && now.Sub(st.lastViolation) >= reset {
		st.warningCount = 0
	}

	violationMsg := ""
	switch {
	case g.spamViolation(st, now, &cfg.Filters.SpamProtection):
		violationMsg = cfg.Filters.SpamProtection.Message
	case blacklistViolation(message, &cfg.Filters.WordBlacklist):
		violationMsg = cfg.Filters.WordBlacklist.Message
	case symbolViolation(message, &cfg.Filters.ExcessSymbols):
		violationMsg = cfg.Filters.ExcessSymbols.Message
	default:
		return Decision{Verdict: Allow}
	}

	st.lastViolation = now
	logic := &cfg.ProtectionLogic
	if logic.WarningEnabled && st.warningCount < logic.MaxWarnings {
		st.warningCount++
		return Decision{
			Verdict: Warn,
			Message: strings.ReplaceAll(violationMsg, "{author}", username),
		}
	}
	// Warnings exhausted (or disabled): time the user out and start over.
	st.warningCount = 0
	return Decision{
		Verdict:  Timeout,
		Duration: time.Duration(logic.TimeoutDuration) * time.Second,
	}
}

// spamViolation maintains the user's sliding window of message timestamps and
// reports whether this message pushes them over the burst limit.
func (g *Gate) spamViolation(st *userState, now time.Time, f *config.SpamFilter) bool {
	if !f.Enabled || f.Limit < 1 || f.Window < 1 {
		return false
	}
	cutoff := now.Add(-time.Duration(f.Window) * time.Second)
	kept := st.recent[:0]
	for _, t := range st.recent {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	st.recent = append(kept, now)
	if len(st.recent) > f.Limit+1 {
		st.recent = st.recent[len(st.recent)-f.Limit-1:]
	}
	return len(st.recent) > f.Limit
}

// blacklistViolation matches the message tokens against configured patterns,
// case-insensitively. A trailing '*' makes the pattern a token prefix match
// (the token must continue past the prefix; list the bare word separately to
// block it exactly); a '*' anywhere else is treated as a literal character.
func blacklistViolation(message string, f *config.WordFilter) bool {
	if !f.Enabled || len(f.Words) == 0 {
		return false
	}
	tokens := strings.Fields(strings.ToLower(message))
	for _, raw := range f.Words {
		pattern := strings.ToLower(strings.TrimSpace(raw))
		if pattern == "" {
			continue
		}
		prefix, wildcard := strings.CutSuffix(pattern, "*")
		if wildcard && prefix == "" {
			continue // bare '*' would match everything; fail closed
		}
		for _, tok := range tokens {
			if wildcard {
				if len(tok) > len(prefix) && strings.HasPrefix(tok, prefix) {
					return true
				}
			} else if tok == pattern {
				return true
			}
		}
	}
	return false
}

// symbolViolation reports whether the message carries more non-alphanumeric
// characters than the filter allows. Spaces don't count.
func symbolViolation(message string, f *config.SymbolsFilter) bool {
	if !f.Enabled || f.Limit < 1 {
		return false
	}
	count := 0
	for _, r := range message {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			continue
		}
		count++
		if count > f.Limit {
			return true
		}
	}
	return false
}

// WarningCount reports a user's current warning count (diagnostics only).
func (g *Gate) WarningCount(username string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.users[username]; ok {
		return st.warningCount
	}
	return 0
}

// Reset clears all per-user state.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.users = make(map[string]*userState)
}
