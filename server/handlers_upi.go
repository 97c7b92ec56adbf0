package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/streamforge/copilot/audio"
)

// HandleUPIWebhook accepts payment notifications from the UPI gateway. The
// shared secret travels in the payload and is compared in constant time;
// payments below the configured minimum are acknowledged but not announced.
func (h *Handlers) HandleUPIWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	cfg := h.deps.Config.Get().UPIGateway
	if !cfg.Enabled {
		writeError(w, http.StatusNotFound, "upi gateway disabled")
		return
	}

	var req struct {
		Sender  string  `json:"sender"`
		Amount  float64 `json:"amount"`
		Message string  `json:"message"`
		Secret  string  `json:"secret"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}
	if cfg.SecretKey == "" ||
		subtle.ConstantTimeCompare([]byte(req.Secret), []byte(cfg.SecretKey)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid webhook secret")
		return
	}
	if req.Amount < cfg.MinAmount {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "below minimum"})
		return
	}

	sender := req.Sender
	if sender == "" {
		sender = "Someone"
	}
	msg := fmt.Sprintf("%s sent %.2f. Thank you!", sender, req.Amount)
	if req.Message != "" {
		msg = fmt.Sprintf("%s sent %.2f: %s", sender, req.Amount, req.Message)
	}
	h.deps.Pipeline.Announce("UPI_ALERT", sender, msg, map[string]any{
		"amount": req.Amount,
	}, audio.Public)
	writeJSON(w, http.StatusOK, map[string]string{"status": "announced"})
}
