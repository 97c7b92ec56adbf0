package server

import (
	"log/slog"
	"net/http"

	"github.com/streamforge/copilot/config"
)

// HandleConfig serves the operator configuration document. GET returns the
// active document; POST validates and atomically replaces it. A rejected
// document leaves the previous one in effect.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.Config.Get())
	case http.MethodPost:
		var doc config.Document
		if err := decodeJSON(r, &doc); err != nil {
			writeError(w, http.StatusBadRequest, "invalid config document: "+err.Error())
			return
		}
		if err := h.deps.Config.Save(r.Context(), &doc); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Info("config document replaced")
		writeJSON(w, http.StatusOK, h.deps.Config.Get())
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
