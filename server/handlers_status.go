package server

import (
	"net/http"
	"time"
)

// HandleStatus reports the runtime health of every moving part the dashboard
// shows on its header bar.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	doc := h.deps.Config.Get()

	bot := map[string]any{
		"twitch_connected":       probe(h.deps.Twitch),
		"youtube_live_chat":      probe(h.deps.YouTube),
		"streamer_bot_connected": probe(h.deps.StreamerBot),
		"stream_live":            probe(h.deps.Live),
	}

	enabledProviders := 0
	for _, p := range doc.AITopology.Providers {
		if p.Enabled {
			enabledProviders++
		}
	}

	resp := map[string]any{
		"status":         "ok",
		"version":        h.deps.Version,
		"uptime_seconds": int64(time.Since(h.start).Seconds()),
		"bot":            bot,
		"ai": map[string]any{
			"providers_enabled": enabledProviders,
		},
		"viewers":         map[string]any{"total": h.deps.Viewers.Len()},
		"log_subscribers": h.deps.Bus.Subscribers(),
	}
	if h.deps.Audio != nil {
		resp["audio"] = h.deps.Audio.Status()
	}
	writeJSON(w, http.StatusOK, resp)
}

func probe(p ConnProbe) bool {
	if p == nil {
		return false
	}
	return p.Connected()
}
