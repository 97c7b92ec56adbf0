package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/streamforge/copilot/audio"
	"github.com/streamforge/copilot/bus"
	"github.com/streamforge/copilot/config"
	"github.com/streamforge/copilot/cooldown"
	"github.com/streamforge/copilot/moderation"
	"github.com/streamforge/copilot/orchestrator"
	"github.com/streamforge/copilot/viewer"
)

type fakeResponder struct {
	mu       sync.Mutex
	messages []string
	timeouts []string
}

func (f *fakeResponder) SendChat(message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeResponder) TimeoutUser(username string, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeouts = append(f.timeouts, username)
	return nil
}

func (f *fakeResponder) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

type scriptedClient struct {
	reply string
	err   error
	calls *int
}

func (c *scriptedClient) Complete(ctx context.Context, model, systemPrompt, prompt string) (string, error) {
	*c.calls++
	return c.reply, c.err
}

type nopSpeaker struct{}

func (nopSpeaker) Speak(ctx context.Context, item audio.Item) error { return nil }

func testDocument() *config.Document {
	doc := config.DefaultDocument()
	doc.Moderation.AITriggers = config.AITriggersConfig{
		Enabled:  true,
		Prefixes: []string{"!ai"},
	}
	doc.Moderation.Filters.WordBlacklist = config.WordFilter{
		Enabled: true,
		Words:   []string{"banned"},
		Message: "Hey {author}, watch it!",
	}
	doc.AITopology.Providers = []config.Provider{
		{ID: "p1", Type: "openai", Enabled: true, Models: []config.Model{{ID: "m1", Enabled: true}}},
	}
	doc.Loyalty.Enabled = false
	return doc
}

func newTestCoordinator(t *testing.T, aiErr error) (*Coordinator, *fakeResponder, *int) {
	t.Helper()
	store, err := config.NewStore(context.Background(), nil)
	if err != nil {
		t.Fatalf("config store: %v", err)
	}
	if err := store.Save(context.Background(), testDocument()); err != nil {
		t.Fatalf("save config: %v", err)
	}
	calls := 0
	orch := orchestrator.New(func(p *config.Provider) orchestrator.Client {
		return &scriptedClient{reply: "ai says hi", err: aiErr, calls: &calls}
	})
	viewers, err := viewer.NewStore(context.Background(), nil)
	if err != nil {
		t.Fatalf("viewer store: %v", err)
	}
	responder := &fakeResponder{}
	c := New(store, moderation.NewGate(), cooldown.NewGovernor(), orch,
		audio.NewDispatcher(nopSpeaker{}, 4), viewers, bus.New(10), responder)
	return c, responder, &calls
}

func TestTriggeredMessageGetsAIResponse(t *testing.T) {
	c, responder, calls := newTestCoordinator(t, nil)

	res := c.HandleChat(context.Background(), "alice", "!ai hello there")
	if res.Decision.Verdict != moderation.Allow || !res.Triggered || !res.Admitted {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Response != "ai says hi" {
		t.Errorf("response = %q", res.Response)
	}
	if *calls != 1 {
		t.Errorf("ai calls = %d, want 1", *calls)
	}
	sent := responder.sent()
	if len(sent) != 1 || sent[0] != "ai says hi" {
		t.Errorf("chat sends = %v", sent)
	}
}

func TestUntriggeredMessageSkipsAI(t *testing.T) {
	c, responder, calls := newTestCoordinator(t, nil)

	res := c.HandleChat(context.Background(), "alice", "just chatting")
	if res.Triggered {
		t.Error("plain message reported as triggered")
	}
	if *calls != 0 {
		t.Errorf("ai calls = %d, want 0", *calls)
	}
	if len(responder.sent()) != 0 {
		t.Errorf("unexpected sends: %v", responder.sent())
	}
}

func TestCooldownSuppressesSecondInvocation(t *testing.T) {
	c, responder, calls := newTestCoordinator(t, nil)

	c.HandleChat(context.Background(), "alice", "!ai first")
	res := c.HandleChat(context.Background(), "bob", "!ai second")
	if res.Admitted {
		t.Fatal("second invocation admitted inside global cooldown")
	}
	if *calls != 1 {
		t.Errorf("ai calls = %d, want 1", *calls)
	}
	sent := responder.sent()
	if len(sent) != 2 || sent[1] != "System busy..." {
		t.Errorf("sends = %v, want cooldown warning second", sent)
	}
}

func TestFailedInvocationDoesNotConsumeCooldown(t *testing.T) {
	c, _, _ := newTestCoordinator(t, errors.New("503 unavailable"))

	res := c.HandleChat(context.Background(), "alice", "!ai hello")
	if !errors.Is(res.Err, orchestrator.ErrAllProvidersFailed) {
		t.Fatalf("err = %v, want ErrAllProvidersFailed", res.Err)
	}
	// The cooldown window never moved, so the retry is admitted.
	res = c.HandleChat(context.Background(), "alice", "!ai again")
	if !res.Admitted {
		t.Error("retry after failure was not admitted")
	}
}

func TestAllProvidersFailedSendsFallback(t *testing.T) {
	c, responder, _ := newTestCoordinator(t, errors.New("timeout"))

	c.HandleChat(context.Background(), "alice", "!ai hello")
	sent := responder.sent()
	if len(sent) != 1 || sent[0] != FallbackMessage {
		t.Errorf("sends = %v, want fallback message", sent)
	}
}

func TestViolationWarnsWithoutAI(t *testing.T) {
	c, responder, calls := newTestCoordinator(t, nil)

	res := c.HandleChat(context.Background(), "alice", "!ai banned word")
	if res.Decision.Verdict != moderation.Warn {
		t.Fatalf("verdict = %v, want Warn", res.Decision.Verdict)
	}
	if *calls != 0 {
		t.Errorf("ai calls = %d, want 0 for violating message", *calls)
	}
	sent := responder.sent()
	if len(sent) != 1 || sent[0] != "Hey alice, watch it!" {
		t.Errorf("sends = %v", sent)
	}
}

func TestIgnoredUserIsSilent(t *testing.T) {
	c, responder, calls := newTestCoordinator(t, nil)
	doc := testDocument()
	doc.Moderation.IgnoreList = []string{"alice"}
	if err := c.cfg.Save(context.Background(), doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	res := c.HandleChat(context.Background(), "Alice", "!ai banned hello")
	if res.Decision.Verdict != moderation.Ignore {
		t.Fatalf("verdict = %v, want Ignore", res.Decision.Verdict)
	}
	if *calls != 0 || len(responder.sent()) != 0 {
		t.Error("ignored user produced side effects")
	}
	if c.viewers.Len() != 0 {
		t.Error("ignored user recorded in viewer store")
	}
}

func TestLoyaltyAnnouncement(t *testing.T) {
	c, _, _ := newTestCoordinator(t, nil)
	doc := testDocument()
	doc.Loyalty.Enabled = true
	if err := c.cfg.Save(context.Background(), doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	sub := c.events.Subscribe()
	defer sub.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	c.HandleChat(context.Background(), "erin", "hello")
	c.now = func() time.Time { return base.AddDate(0, 0, 1) }
	c.HandleChat(context.Background(), "erin", "back again")

	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-sub.C:
			if ev.Category == "LOYALTY" {
				if ev.Message != "erin is on a 2 day streak!" {
					t.Errorf("loyalty message = %q", ev.Message)
				}
				return
			}
		case <-deadline:
			t.Fatal("no loyalty event published")
		}
	}
}
