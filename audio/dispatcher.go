// Package audio serializes text-to-speech playback on two independent
// channels: "public" is heard on stream, "secret" only by the operator. Each
// channel owns a bounded queue drained by a dedicated worker, so enqueue never
// blocks and playback on one channel never delays the other.
package audio

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/streamforge/copilot/telemetry"
)

// Channel selects one of the two TTS output paths.
type Channel string

const (
	Public Channel = "public"
	Secret Channel = "secret"
)

// Valid reports whether c names a real channel.
func (c Channel) Valid() bool { return c == Public || c == Secret }

// Item is one queued utterance.
type Item struct {
	Channel    Channel
	Text       string
	EnqueuedAt time.Time
}

// Speaker performs synthesis and transport for one item, blocking until
// playback has finished.
type Speaker interface {
	Speak(ctx context.Context, item Item) error
}

// Metrics is the aggregate counters snapshot exposed over /audio/status.
// AvgLatency is a cumulative running mean in seconds, measured from enqueue to
// playback completion.
type Metrics struct {
	PlayedCount  int64   `json:"played_count"`
	DroppedCount int64   `json:"dropped_count"`
	AvgLatency   float64 `json:"avg_latency"`
}

// Status is the full /audio/status payload.
type Status struct {
	IsPlaying   bool           `json:"is_playing"`
	CurrentText string         `json:"current_text"`
	Queues      map[string]int `json:"queues"`
	Metrics     Metrics        `json:"metrics"`
}

// Dispatcher owns both queues and their workers.
type Dispatcher struct {
	speaker Speaker
	queues  map[Channel]chan Item

	mu         sync.Mutex
	played     int64
	dropped    int64
	latencySum float64
	playing    map[Channel]string

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher whose per-channel queues hold queueSize
// items each. Start must be called before items play.
func NewDispatcher(speaker Speaker, queueSize int) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		speaker: speaker,
		queues: map[Channel]chan Item{
			Public: make(chan Item, queueSize),
			Secret: make(chan Item, queueSize),
		},
		playing: make(map[Channel]string),
	}
}

// Start launches one worker per channel. Workers stop after ctx is cancelled;
// an utterance already playing is allowed to finish rather than being torn
// down mid-word.
func (d *Dispatcher) Start(ctx context.Context) {
	for ch, q := range d.queues {
		d.wg.Add(1)
		go d.worker(ctx, ch, q)
	}
}

// Wait blocks until all workers have exited.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Enqueue appends text to the channel's queue. It returns false (and counts a
// drop) when the queue is full; accepted items are never lost silently.
func (d *Dispatcher) Enqueue(text string, ch Channel) bool {
	q, ok := d.queues[ch]
	if !ok {
		return false
	}
	item := Item{Channel: ch, Text: text, EnqueuedAt: time.Now()}
	select {
	case q <- item:
		if telemetry.AudioQueueDepth != nil {
			telemetry.AudioQueueDepth.WithLabelValues(string(ch)).Set(float64(len(q)))
		}
		return true
	default:
		d.mu.Lock()
		d.dropped++
		d.mu.Unlock()
		if telemetry.AudioDropped != nil {
			telemetry.AudioDropped.WithLabelValues(string(ch)).Inc()
		}
		slog.Warn("audio queue full; dropping item", slog.String("channel", string(ch)))
		return false
	}
}

func (d *Dispatcher) worker(ctx context.Context, ch Channel, q chan Item) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-q:
			d.play(ctx, ch, item)
			if telemetry.AudioQueueDepth != nil {
				telemetry.AudioQueueDepth.WithLabelValues(string(ch)).Set(float64(len(q)))
			}
		}
	}
}

func (d *Dispatcher) play(ctx context.Context, ch Channel, item Item) {
	d.mu.Lock()
	d.playing[ch] = item.Text
	d.mu.Unlock()

	// WithoutCancel: shutdown lets the current utterance finish.
	if err := d.speaker.Speak(context.WithoutCancel(ctx), item); err != nil {
		slog.Error("tts playback failed", slog.String("channel", string(ch)), slog.Any("err", err))
	}
	elapsed := time.Since(item.EnqueuedAt)

	d.mu.Lock()
	d.played++
	d.latencySum += elapsed.Seconds()
	delete(d.playing, ch)
	d.mu.Unlock()

	if telemetry.AudioPlayed != nil {
		telemetry.AudioPlayed.WithLabelValues(string(ch)).Inc()
	}
	if telemetry.AudioPlayDuration != nil {
		telemetry.AudioPlayDuration.Observe(elapsed.Seconds())
	}
}

// Status returns the current queue depths and metrics snapshot.
func (d *Dispatcher) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	avg := 0.0
	if d.played > 0 {
		avg = d.latencySum / float64(d.played)
	}
	// Both workers can be mid-utterance at once; the public one wins the
	// single current_text slot.
	current := d.playing[Public]
	if current == "" {
		current = d.playing[Secret]
	}
	return Status{
		IsPlaying:   len(d.playing) > 0,
		CurrentText: current,
		Queues: map[string]int{
			string(Public): len(d.queues[Public]),
			string(Secret): len(d.queues[Secret]),
		},
		Metrics: Metrics{
			PlayedCount:  d.played,
			DroppedCount: d.dropped,
			AvgLatency:   avg,
		},
	}
}
