package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/streamforge/copilot/audio"
)

// HandleTestAlert fires a synthetic alert through the bus and audio path so
// operators can check the overlay without waiting for a real event.
func (h *Handlers) HandleTestAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Type    string `json:"type"`
		Author  string `json:"author"`
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Type == "" {
		req.Type = "ALERT"
	}
	if req.Author == "" {
		req.Author = "tester"
	}
	if req.Message == "" {
		req.Message = "Test alert"
	}
	h.deps.Pipeline.Announce(req.Type, req.Author, req.Message, map[string]any{"test": true}, audio.Public)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "fired"})
}

// HandleTestSystem returns a diagnostics snapshot: database reachability,
// provider topology counts, audio queue depths, and bus subscribers.
func (h *Handlers) HandleTestSystem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	dbStatus := "not configured"
	if h.deps.DB != nil {
		ctx, cancel := contextWithTimeout(r, 2*time.Second)
		if err := h.deps.DB.PingContext(ctx); err != nil {
			dbStatus = "error: " + err.Error()
		} else {
			dbStatus = "ok"
		}
		cancel()
	}

	doc := h.deps.Config.Get()
	providers, enabled, models := len(doc.AITopology.Providers), 0, 0
	for _, p := range doc.AITopology.Providers {
		if !p.Enabled {
			continue
		}
		enabled++
		for _, m := range p.Models {
			if m.Enabled {
				models++
			}
		}
	}

	snapshot := map[string]any{
		"status": "ok",
		"db":     dbStatus,
		"providers": map[string]int{
			"configured":     providers,
			"enabled":        enabled,
			"models_enabled": models,
		},
		"bus_subscribers": h.deps.Bus.Subscribers(),
	}
	if h.deps.Audio != nil {
		snapshot["audio"] = h.deps.Audio.Status()
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// HandleTestSendChat injects a canned chat message through the full pipeline,
// exactly as if a viewer had typed it.
func (h *Handlers) HandleTestSendChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	message := "ping"
	if prefixes := h.deps.Config.Get().Moderation.AITriggers.Prefixes; len(prefixes) > 0 {
		message = strings.TrimSpace(prefixes[0]) + " ping"
	}
	h.deps.Pipeline.HandleChat(r.Context(), "tester", message)
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

// HandleSBChat injects an arbitrary chat message through the full pipeline
// (Streamer.bot test passthrough).
func (h *Handlers) HandleSBChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		User    string `json:"user"`
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.User == "" {
		req.User = "tester"
	}
	res := h.deps.Pipeline.HandleChat(r.Context(), req.User, req.Message)
	writeJSON(w, http.StatusOK, map[string]any{
		"verdict":   int(res.Decision.Verdict),
		"triggered": res.Triggered,
		"admitted":  res.Admitted,
		"response":  res.Response,
	})
}
