package server

import "net/http"

// HandleViewers returns every tracked viewer's loyalty record.
func (h *Handlers) HandleViewers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   h.deps.Viewers.Len(),
		"viewers": h.deps.Viewers.Snapshot(),
	})
}
