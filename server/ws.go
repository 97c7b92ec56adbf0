package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var logsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// CORS policy is enforced by the outer middleware; the dashboard runs on a
	// different origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsWriteWait  = 5 * time.Second
	wsPingPeriod = 30 * time.Second
)

// HandleLogsWS streams bus events to the dashboard, one JSON frame per event.
// A slow consumer loses its oldest backlog entries rather than stalling the
// pipeline.
func (h *Handlers) HandleLogsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := logsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", slog.Any("err", err))
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("ws close", slog.Any("err", err))
		}
	}()

	sub := h.deps.Bus.Subscribe()
	defer sub.Close()

	// Reader goroutine: we ignore inbound frames but must drain them to
	// process close frames and detect a dead peer.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
