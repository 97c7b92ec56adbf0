package server

import (
	"net/http"
	"strings"

	"github.com/streamforge/copilot/audio"
)

// HandleAudioStatus reports queue depths, playback state, and latency metrics.
func (h *Handlers) HandleAudioStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Audio.Status())
}

// HandleAudioSpeak enqueues text for playback. The response always succeeds;
// queued reports whether the item was accepted or shed by a full queue.
func (h *Handlers) HandleAudioSpeak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Text    string `json:"text"`
		Channel string `json:"channel"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	ch := audio.Channel(req.Channel)
	if req.Channel == "" {
		ch = audio.Public
	}
	if !ch.Valid() {
		writeError(w, http.StatusBadRequest, "channel must be \"public\" or \"secret\"")
		return
	}
	queued := h.deps.Audio.Enqueue(req.Text, ch)
	writeJSON(w, http.StatusOK, map[string]any{"queued": queued, "channel": string(ch)})
}
