// Package twitch ingests live chat over IRC and answers stream-liveness
// queries through the Helix API.
package twitch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	twitchirc "github.com/gempir/go-twitch-irc/v4"

	"github.com/streamforge/copilot/config"
	"github.com/streamforge/copilot/pipeline"
)

// Reader connects to a channel's chat and hands every message to the pipeline.
type Reader struct {
	cfg      *config.Config
	pipeline *pipeline.Coordinator

	connected atomic.Bool
}

func NewReader(cfg *config.Config, p *pipeline.Coordinator) *Reader {
	return &Reader{cfg: cfg, pipeline: p}
}

// Connected reports whether the IRC connection is currently up.
func (r *Reader) Connected() bool { return r.connected.Load() }

// Run connects and reads chat until ctx is cancelled, reconnecting with backoff
// when the connection drops. Missing credentials disable the reader entirely.
func (r *Reader) Run(ctx context.Context) {
	if err := r.cfg.ValidateChatReady(); err != nil {
		slog.Info("twitch creds not set; skipping chat reader", slog.Any("err", err))
		return
	}

	backoff := time.Second
	for ctx.Err() == nil {
		client := twitchirc.NewClient(r.cfg.TwitchBotUsername, r.cfg.TwitchOAuthToken)

		client.OnConnect(func() {
			r.connected.Store(true)
			slog.Info("twitch chat connected", slog.String("channel", r.cfg.TwitchChannel))
		})
		client.OnPrivateMessage(func(msg twitchirc.PrivateMessage) {
			r.pipeline.HandleChat(ctx, msg.User.Name, msg.Message)
		})

		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				if err := client.Disconnect(); err != nil {
					slog.Debug("twitch disconnect", slog.Any("err", err))
				}
			case <-done:
			}
		}()

		client.Join(r.cfg.TwitchChannel)
		err := client.Connect()
		close(done)
		r.connected.Store(false)
		if ctx.Err() != nil {
			return
		}
		slog.Warn("twitch chat disconnected; reconnecting", slog.Any("err", err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}
