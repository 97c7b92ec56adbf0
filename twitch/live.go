package twitch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/streamforge/copilot/bus"
)

// LiveWatcher polls Helix for the channel's broadcast state and announces
// transitions on the event bus.
type LiveWatcher struct {
	helix    *HelixClient
	channel  string
	events   *bus.Bus
	interval time.Duration

	live atomic.Bool
}

func NewLiveWatcher(helix *HelixClient, channel string, events *bus.Bus) *LiveWatcher {
	return &LiveWatcher{helix: helix, channel: channel, events: events, interval: 2 * time.Minute}
}

// Connected reports whether the channel was live at the last poll.
func (w *LiveWatcher) Connected() bool { return w.live.Load() }

// Run polls until ctx is cancelled. Without Helix credentials or a channel it
// exits immediately.
func (w *LiveWatcher) Run(ctx context.Context) {
	if !w.helix.Configured() || w.channel == "" {
		slog.Info("helix creds or channel not set; skipping live watcher")
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		pollCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		live, err := w.helix.IsLive(pollCtx, w.channel)
		cancel()
		if err != nil {
			slog.Warn("live check failed", slog.String("channel", w.channel), slog.Any("err", err))
		} else if live != w.live.Swap(live) {
			state := "offline"
			if live {
				state = "live"
			}
			slog.Info("stream state changed", slog.String("channel", w.channel), slog.String("state", state))
			w.events.Publish(bus.Log("SYSTEM", "", "Stream is now "+state))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
