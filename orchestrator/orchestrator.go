// Package orchestrator invokes configured AI providers in priority order until
// one succeeds. List order in the topology is the failover order; there is no
// retry beyond one bounded attempt per model — the breadth of the model list is
// the retry mechanism.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/streamforge/copilot/config"
	"github.com/streamforge/copilot/telemetry"
)

// ErrAllProvidersFailed is returned when every enabled model across every
// enabled provider failed.
var ErrAllProvidersFailed = errors.New("all providers failed")

// Client performs a single chat completion against one provider.
type Client interface {
	Complete(ctx context.Context, model, systemPrompt, prompt string) (string, error)
}

// ClientFactory builds a Client for a provider. Split out so tests can count
// calls without any network.
type ClientFactory func(p *config.Provider) Client

// TestResult is the outcome of a single-provider connectivity check.
type TestResult struct {
	Status  string `json:"status"` // "success" | "error"
	Message string `json:"message"`
}

// Orchestrator walks the provider topology on each invocation.
type Orchestrator struct {
	factory        ClientFactory
	attemptTimeout time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithAttemptTimeout bounds each individual model call.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.attemptTimeout = d }
}

// New creates an orchestrator. A nil factory uses the OpenAI-compatible client.
func New(factory ClientFactory, opts ...Option) *Orchestrator {
	if factory == nil {
		factory = NewOpenAIClient
	}
	o := &Orchestrator{factory: factory, attemptTimeout: 30 * time.Second}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Invoke tries providers in configured list order, and within each provider its
// models in list order, skipping anything disabled. The first success wins and
// no further attempts are made. Failures are logged and failover continues;
// when nothing succeeds the result is ErrAllProvidersFailed wrapping the last
// attempt's error.
func (o *Orchestrator) Invoke(ctx context.Context, prompt string, topology *config.TopologyConfig) (string, error) {
	start := time.Now()
	var lastErr error
	attempts := 0
	for i := range topology.Providers {
		p := &topology.Providers[i]
		if !p.Enabled {
			continue
		}
		client := o.factory(p)
		for _, m := range p.Models {
			if !m.Enabled {
				continue
			}
			if err := ctx.Err(); err != nil {
				return "", err
			}
			attempts++
			attemptCtx, cancel := context.WithTimeout(ctx, o.attemptTimeout)
			text, err := client.Complete(attemptCtx, m.ID, topology.SystemPrompt, prompt)
			cancel()
			if err == nil {
				if telemetry.AIInvocations != nil {
					telemetry.AIInvocations.Inc()
				}
				if telemetry.AIInvokeDuration != nil {
					telemetry.AIInvokeDuration.Observe(time.Since(start).Seconds())
				}
				return text, nil
			}
			lastErr = err
			if telemetry.AIFailovers != nil {
				telemetry.AIFailovers.Inc()
			}
			slog.Warn("model attempt failed; failing over",
				slog.String("provider", p.ID),
				slog.String("model", m.ID),
				slog.String("class", ClassifyProviderError(err).String()),
				slog.Any("err", err))
		}
	}
	if telemetry.AIAllFailed != nil {
		telemetry.AIAllFailed.Inc()
	}
	if lastErr != nil {
		return "", fmt.Errorf("%w (last of %d attempts: %v)", ErrAllProvidersFailed, attempts, lastErr)
	}
	return "", fmt.Errorf("%w (no enabled models configured)", ErrAllProvidersFailed)
}

// Test issues a single lightweight call against one provider, bypassing the
// failover ordering. It uses the provider's first enabled model (falling back
// to the first model listed) so unsaved dashboard edits can be tested.
func (o *Orchestrator) Test(ctx context.Context, p *config.Provider) TestResult {
	if len(p.Models) == 0 {
		return TestResult{Status: "error", Message: "provider has no models configured"}
	}
	model := p.Models[0].ID
	for _, m := range p.Models {
		if m.Enabled {
			model = m.ID
			break
		}
	}
	attemptCtx, cancel := context.WithTimeout(ctx, o.attemptTimeout)
	defer cancel()
	if _, err := o.factory(p).Complete(attemptCtx, model, "", "ping"); err != nil {
		return TestResult{Status: "error", Message: err.Error()}
	}
	return TestResult{Status: "success", Message: "connected"}
}
