package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/streamforge/copilot/audio"
	"github.com/streamforge/copilot/bus"
	"github.com/streamforge/copilot/config"
	"github.com/streamforge/copilot/orchestrator"
	"github.com/streamforge/copilot/pipeline"
	"github.com/streamforge/copilot/viewer"
)

// ConnProbe reports whether an ingestion backend is currently attached.
// Satisfied by the Twitch reader, the YouTube poller, and the Streamer.bot
// client; tests plug in literals.
type ConnProbe interface {
	Connected() bool
}

// Deps carries everything the handlers touch. Nil fields degrade the matching
// endpoints rather than panicking, so tests wire only what they exercise.
type Deps struct {
	DB           *sql.DB
	Config       *config.Store
	Bus          *bus.Bus
	Audio        *audio.Dispatcher
	Orchestrator *orchestrator.Orchestrator
	Pipeline     *pipeline.Coordinator
	Viewers      *viewer.Store
	StreamerBot  ConnProbe
	Twitch       ConnProbe
	YouTube      ConnProbe
	Live         ConnProbe
	Version      string
}

// Handlers contains all HTTP handler methods.
type Handlers struct {
	deps  *Deps
	start time.Time
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(deps *Deps) *Handlers {
	return &Handlers{deps: deps, start: time.Now()}
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", slog.Any("err", err))
	}
}

// writeError writes a JSON error payload.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
