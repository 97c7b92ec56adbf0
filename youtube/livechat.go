// Package youtube polls a live broadcast's chat and feeds messages into the
// pipeline alongside Twitch chat.
package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"

	"github.com/streamforge/copilot/config"
	"github.com/streamforge/copilot/pipeline"
)

// Poller follows the live chat attached to the video ID in the config
// document. The video ID is operator-editable, so each cycle re-reads it and
// re-resolves the chat when it changes.
type Poller struct {
	apiKey   string
	interval time.Duration
	store    *config.Store
	pipeline *pipeline.Coordinator

	active atomic.Bool
}

func NewPoller(cfg *config.Config, store *config.Store, p *pipeline.Coordinator) *Poller {
	return &Poller{
		apiKey:   cfg.YouTubeAPIKey,
		interval: time.Duration(cfg.YouTubePollSeconds) * time.Second,
		store:    store,
		pipeline: p,
	}
}

// Connected reports whether the poller is currently attached to a live chat.
func (p *Poller) Connected() bool { return p.active.Load() }

// Run polls until ctx is cancelled. Without an API key it exits immediately;
// without a video ID it idles until one is configured.
func (p *Poller) Run(ctx context.Context) {
	if p.apiKey == "" {
		slog.Info("youtube api key not set; skipping live chat poller")
		return
	}
	svc, err := youtubeapi.NewService(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		slog.Error("youtube service init failed", slog.Any("err", err))
		return
	}

	var (
		videoID   string
		chatID    string
		pageToken string
	)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		configured := p.store.Get().YouTube.VideoID
		if configured == "" {
			p.active.Store(false)
			chatID, pageToken = "", ""
			continue
		}
		if configured != videoID || chatID == "" {
			videoID = configured
			pageToken = ""
			chatID, err = resolveChatID(ctx, svc, videoID)
			if err != nil {
				p.active.Store(false)
				slog.Warn("youtube live chat not available",
					slog.String("video_id", videoID), slog.Any("err", err))
				continue
			}
			slog.Info("youtube live chat attached", slog.String("video_id", videoID))
		}

		resp, err := svc.LiveChatMessages.List(chatID, []string{"snippet", "authorDetails"}).
			PageToken(pageToken).Context(ctx).Do()
		if err != nil {
			p.active.Store(false)
			// Chat ends when the broadcast does; force a re-resolve next cycle.
			chatID = ""
			slog.Warn("youtube live chat poll failed", slog.Any("err", err))
			continue
		}
		p.active.Store(true)

		// Skip the backlog on first attach so old messages don't replay.
		if pageToken != "" {
			for _, item := range resp.Items {
				if item.Snippet == nil || item.AuthorDetails == nil {
					continue
				}
				p.pipeline.HandleChat(ctx, item.AuthorDetails.DisplayName, item.Snippet.DisplayMessage)
			}
		}
		pageToken = resp.NextPageToken

		if wait := time.Duration(resp.PollingIntervalMillis) * time.Millisecond; wait > p.interval {
			ticker.Reset(wait)
		} else {
			ticker.Reset(p.interval)
		}
	}
}

func resolveChatID(ctx context.Context, svc *youtubeapi.Service, videoID string) (string, error) {
	resp, err := svc.Videos.List([]string{"liveStreamingDetails"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(resp.Items) == 0 {
		return "", fmt.Errorf("video %s not found", videoID)
	}
	details := resp.Items[0].LiveStreamingDetails
	if details == nil || details.ActiveLiveChatId == "" {
		return "", fmt.Errorf("video %s has no active live chat", videoID)
	}
	return details.ActiveLiveChatId, nil
}
