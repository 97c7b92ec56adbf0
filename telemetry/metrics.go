// Package telemetry provides Prometheus metrics, correlation-id aware logging helpers,
// and optional OpenTelemetry tracing.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	ChatMessagesProcessed prometheus.Counter
	ModerationWarnings    prometheus.Counter
	ModerationTimeouts    prometheus.Counter
	CooldownRejections    prometheus.Counter
	AIInvocations         prometheus.Counter
	AIFailovers           prometheus.Counter
	AIAllFailed           prometheus.Counter
	AudioPlayed           *prometheus.CounterVec
	AudioDropped          *prometheus.CounterVec
	BusEventsDropped      prometheus.Counter

	// Histograms (seconds)
	AIInvokeDuration  prometheus.Observer
	AudioPlayDuration prometheus.Observer
	PipelineDuration  prometheus.Observer

	// Gauges
	AudioQueueDepth *prometheus.GaugeVec
	BusSubscribers  prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		ChatMessagesProcessed = promauto.NewCounter(prometheus.CounterOpts{Name: "copilot_chat_messages_total", Help: "Chat messages fed through the pipeline"})
		ModerationWarnings = promauto.NewCounter(prometheus.CounterOpts{Name: "copilot_moderation_warnings_total", Help: "Moderation warnings issued"})
		ModerationTimeouts = promauto.NewCounter(prometheus.CounterOpts{Name: "copilot_moderation_timeouts_total", Help: "Moderation timeouts issued"})
		CooldownRejections = promauto.NewCounter(prometheus.CounterOpts{Name: "copilot_cooldown_rejections_total", Help: "AI invocations denied by cooldown"})
		AIInvocations = promauto.NewCounter(prometheus.CounterOpts{Name: "copilot_ai_invocations_total", Help: "Successful AI invocations"})
		AIFailovers = promauto.NewCounter(prometheus.CounterOpts{Name: "copilot_ai_failovers_total", Help: "Model attempts that failed and triggered failover"})
		AIAllFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "copilot_ai_all_failed_total", Help: "Invocations where every provider/model failed"})
		AudioPlayed = promauto.NewCounterVec(prometheus.CounterOpts{Name: "copilot_audio_played_total", Help: "TTS items played"}, []string{"channel"})
		AudioDropped = promauto.NewCounterVec(prometheus.CounterOpts{Name: "copilot_audio_dropped_total", Help: "TTS items rejected by full queues"}, []string{"channel"})
		BusEventsDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "copilot_bus_events_dropped_total", Help: "Events dropped from slow subscriber backlogs"})
		AIInvokeDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "copilot_ai_invoke_duration_seconds", Help: "End-to-end AI invocation duration seconds", Buckets: prometheus.DefBuckets})
		AudioPlayDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "copilot_audio_play_duration_seconds", Help: "Synthesis plus playback duration seconds", Buckets: prometheus.DefBuckets})
		PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "copilot_pipeline_duration_seconds", Help: "Per-message pipeline duration seconds", Buckets: prometheus.DefBuckets})
		AudioQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{Name: "copilot_audio_queue_depth", Help: "Current queued TTS items"}, []string{"channel"})
		BusSubscribers = promauto.NewGauge(prometheus.GaugeOpts{Name: "copilot_bus_subscribers", Help: "Active event bus subscribers"})
	})
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
