// Package pipeline wires the message path: moderation gate, trigger matcher,
// cooldown governor, failover orchestrator, and audio dispatcher, publishing
// every stage's outcome to the event bus and updating the viewer store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/streamforge/copilot/audio"
	"github.com/streamforge/copilot/bus"
	"github.com/streamforge/copilot/config"
	"github.com/streamforge/copilot/cooldown"
	"github.com/streamforge/copilot/moderation"
	"github.com/streamforge/copilot/orchestrator"
	"github.com/streamforge/copilot/telemetry"
	"github.com/streamforge/copilot/trigger"
	"github.com/streamforge/copilot/viewer"
)

// FallbackMessage is sent to chat when every provider fails.
const FallbackMessage = "My AI brain is taking a nap. Try again in a bit!"

// Responder delivers outbound chat actions. Satisfied by the Streamer.bot
// client; tests plug in fakes.
type Responder interface {
	SendChat(message string) error
	TimeoutUser(username string, d time.Duration) error
}

// Result summarizes what one message caused (used by tests and diagnostics).
type Result struct {
	Decision  moderation.Decision
	Triggered bool
	Admitted  bool
	Response  string
	Err       error
}

// Coordinator runs the full pipeline for each inbound chat event.
type Coordinator struct {
	cfg       *config.Store
	gate      *moderation.Gate
	governor  *cooldown.Governor
	orch      *orchestrator.Orchestrator
	audio     *audio.Dispatcher
	viewers   *viewer.Store
	events    *bus.Bus
	responder Responder

	locks *keyedMutex
	now   func() time.Time
}

// New wires a coordinator from its stages.
func New(cfg *config.Store, gate *moderation.Gate, governor *cooldown.Governor,
	orch *orchestrator.Orchestrator, dispatcher *audio.Dispatcher,
	viewers *viewer.Store, events *bus.Bus, responder Responder) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		gate:      gate,
		governor:  governor,
		orch:      orch,
		audio:     dispatcher,
		viewers:   viewers,
		events:    events,
		responder: responder,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

// HandleChat runs one chat message through every stage. Messages from the same
// user are serialized; messages from different users proceed in parallel. The
// per-user lock is released before the orchestrator's network call so a slow
// provider never stalls the user's next moderation decision.
func (c *Coordinator) HandleChat(ctx context.Context, username, message string) Result {
	start := c.now()
	defer func() {
		if telemetry.PipelineDuration != nil {
			telemetry.PipelineDuration.Observe(time.Since(start).Seconds())
		}
	}()
	if telemetry.ChatMessagesProcessed != nil {
		telemetry.ChatMessagesProcessed.Inc()
	}

	doc := c.cfg.Get()
	key := strings.ToLower(username)

	c.locks.Lock(key)
	res := c.moderateAndAdmit(username, message, doc)
	c.locks.Unlock(key)

	if res.Decision.Verdict != moderation.Allow || !res.Triggered || !res.Admitted {
		return res
	}

	prompt := trigger.StripPrefix(message, doc.Moderation.AITriggers.Prefixes)
	if prompt == "" {
		prompt = message
	}
	text, err := c.orch.Invoke(ctx, prompt, &doc.AITopology)
	if err != nil {
		res.Err = err
		if errors.Is(err, orchestrator.ErrAllProvidersFailed) {
			c.events.Publish(bus.Alert("ALERT", username, "All AI providers failed", nil))
			c.reply(FallbackMessage)
		} else {
			slog.Error("orchestrator invocation failed", slog.String("user", username), slog.Any("err", err))
		}
		return res
	}
	res.Response = text

	// Cooldowns move only after a successful dispatch.
	c.governor.Commit(username, c.now())
	c.reply(text)
	if doc.Audio.Enabled {
		c.audio.Enqueue(text, audio.Public)
	}
	c.events.Publish(bus.Event{
		Type: "log", Category: "AI", Author: username,
		Message: text, Timestamp: c.now().UTC(),
		Meta: map[string]any{"prompt": prompt},
	})
	return res
}

// moderateAndAdmit covers the stages that touch per-user state. Caller holds
// the user's lock.
func (c *Coordinator) moderateAndAdmit(username, message string, doc *config.Document) Result {
	var res Result
	res.Decision = c.gate.Evaluate(username, message, &doc.Moderation)

	switch res.Decision.Verdict {
	case moderation.Ignore:
		return res
	case moderation.Warn:
		if telemetry.ModerationWarnings != nil {
			telemetry.ModerationWarnings.Inc()
		}
		c.reply(res.Decision.Message)
		c.events.Publish(bus.Log("MOD", username, res.Decision.Message))
	case moderation.Timeout:
		if telemetry.ModerationTimeouts != nil {
			telemetry.ModerationTimeouts.Inc()
		}
		if err := c.responder.TimeoutUser(username, res.Decision.Duration); err != nil {
			slog.Warn("timeout action failed", slog.String("user", username), slog.Any("err", err))
		}
		c.events.Publish(bus.Log("MOD", username,
			fmt.Sprintf("%s timed out for %s", username, res.Decision.Duration)))
	case moderation.Allow:
		c.events.Publish(bus.Log("CHAT", username, message))
	}

	// Ignored users never reach here; everyone else counts toward loyalty.
	if ev := c.viewers.Record(username, c.now()); ev != nil && doc.Loyalty.Enabled {
		c.announceLoyalty(username, ev, doc)
	}

	if res.Decision.Verdict != moderation.Allow {
		return res
	}

	triggers := &doc.Moderation.AITriggers
	res.Triggered = triggers.Enabled && trigger.Matches(message, triggers.Prefixes, triggers.Keywords)
	if !res.Triggered {
		return res
	}

	res.Admitted = c.governor.Admit(username, c.now(), &doc.Cooldowns)
	if !res.Admitted {
		if telemetry.CooldownRejections != nil {
			telemetry.CooldownRejections.Inc()
		}
		c.reply(doc.Cooldowns.WarningMessage)
		c.events.Publish(bus.Log("SYSTEM", username, "AI response suppressed by cooldown"))
	}
	return res
}

func (c *Coordinator) announceLoyalty(username string, ev *viewer.Event, doc *config.Document) {
	var tmpl string
	switch ev.Kind {
	case viewer.EventStreak:
		tmpl = doc.Loyalty.StreakMessage
	case viewer.EventWeek:
		tmpl = doc.Loyalty.WeekMessage
	case viewer.EventMonth:
		tmpl = doc.Loyalty.MonthMessage
	case viewer.EventReturn:
		tmpl = doc.Loyalty.ReturnMessage
	default:
		return
	}
	msg := strings.ReplaceAll(tmpl, "{author}", username)
	msg = strings.ReplaceAll(msg, "{days}", fmt.Sprintf("%d", ev.Days))
	c.events.Publish(bus.Alert("LOYALTY", username, msg, map[string]any{"days": ev.Days}))
	if doc.Audio.Enabled {
		c.audio.Enqueue(msg, audio.Public)
	}
}

// Announce publishes an alert event and voices it. Used by the test-alert and
// payment-webhook endpoints.
func (c *Coordinator) Announce(category, author, message string, meta map[string]any, ch audio.Channel) {
	c.events.Publish(bus.Alert(category, author, message, meta))
	if c.cfg.Get().Audio.Enabled {
		c.audio.Enqueue(message, ch)
	}
}

// Ask bypasses moderation and cooldowns entirely: trigger-match diagnostics and
// the dashboard's direct chat tester call this.
func (c *Coordinator) Ask(ctx context.Context, prompt string) (string, error) {
	doc := c.cfg.Get()
	return c.orch.Invoke(ctx, prompt, &doc.AITopology)
}

func (c *Coordinator) reply(message string) {
	if message == "" {
		return
	}
	if err := c.responder.SendChat(message); err != nil {
		slog.Debug("chat reply not delivered", slog.Any("err", err))
	}
}
