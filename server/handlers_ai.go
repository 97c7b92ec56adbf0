package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/streamforge/copilot/config"
	"github.com/streamforge/copilot/orchestrator"
	"github.com/streamforge/copilot/pipeline"
)

// HandleChat invokes the provider topology directly, bypassing moderation and
// cooldowns. The dashboard's chat tester uses this. A total provider outage
// still answers with the chat fallback text so the tester mirrors what
// viewers would see.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	text, err := h.deps.Pipeline.Ask(r.Context(), req.Prompt)
	if err != nil {
		if errors.Is(err, orchestrator.ErrAllProvidersFailed) {
			writeJSON(w, http.StatusOK, map[string]any{
				"response": pipeline.FallbackMessage,
				"degraded": true,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": text})
}

// HandleProviderTest checks connectivity for one provider. The body may carry
// an unsaved provider definition; with an empty body the saved one is used.
func (h *Handlers) HandleProviderTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/providers/test/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "provider id missing")
		return
	}

	var provider *config.Provider
	var body config.Provider
	if err := decodeJSON(r, &body); err == nil && body.ID != "" {
		provider = &body
	} else {
		doc := h.deps.Config.Get()
		for i := range doc.AITopology.Providers {
			if doc.AITopology.Providers[i].ID == id {
				provider = &doc.AITopology.Providers[i]
				break
			}
		}
	}
	if provider == nil {
		writeError(w, http.StatusNotFound, "provider not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Orchestrator.Test(r.Context(), provider))
}
