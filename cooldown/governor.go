// Package cooldown throttles AI responses globally and per user.
package cooldown

import (
	"sync"
	"time"

	"github.com/streamforge/copilot/config"
)

// Governor gates AI invocations: Admit is a pure read, Commit records a
// successful dispatch. Timestamps only move on Commit, never on attempts.
type Governor struct {
	mu         sync.Mutex
	lastGlobal time.Time
	lastUser   map[string]time.Time
}

func NewGovernor() *Governor {
	return &Governor{lastUser: make(map[string]time.Time)}
}

// Admit reports whether an AI invocation for username is currently permitted:
// both the global and the per-user cooldown must have elapsed.
func (g *Governor) Admit(username string, now time.Time, cfg *config.CooldownConfig) bool {
	global := time.Duration(cfg.Global) * time.Second
	user := time.Duration(cfg.User) * time.Second

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.lastGlobal.IsZero() && now.Sub(g.lastGlobal) < global {
		return false
	}
	if last, ok := g.lastUser[username]; ok && now.Sub(last) < user {
		return false
	}
	return true
}

// Commit records a successful response for username, updating the global and
// per-user timestamps atomically. Call it only after the response was dispatched.
func (g *Governor) Commit(username string, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastGlobal = now
	g.lastUser[username] = now
}

// Reset clears all cooldown state.
func (g *Governor) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastGlobal = time.Time{}
	g.lastUser = make(map[string]time.Time)
}
