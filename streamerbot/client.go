// Package streamerbot maintains a websocket connection to a local Streamer.bot
// instance and carries outbound chat actions: replies, warnings, and timeouts.
package streamerbot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/streamforge/copilot/bus"
	"github.com/streamforge/copilot/config"
)

// Client dials the configured Streamer.bot host/port and reconnects with
// backoff whenever the socket drops. All methods are safe for concurrent use.
type Client struct {
	store  *config.Store
	events *bus.Bus

	mu        sync.Mutex
	conn      *websocket.Conn
	connected atomic.Bool
}

func NewClient(store *config.Store, events *bus.Bus) *Client {
	return &Client{store: store, events: events}
}

// Connected reports whether the websocket is currently up. Feeds
// /status.bot.streamer_bot_connected.
func (c *Client) Connected() bool { return c.connected.Load() }

// Run maintains the connection until ctx is cancelled. When the integration is
// disabled in config it idles and re-checks periodically.
func (c *Client) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		doc := c.store.Get()
		if !doc.StreamerBot.Enabled {
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		url := fmt.Sprintf("ws://%s:%d/", doc.StreamerBot.Host, doc.StreamerBot.Port)
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			slog.Debug("streamer.bot dial failed", slog.String("url", url), slog.Any("err", err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		c.connected.Store(true)
		slog.Info("streamer.bot connected", slog.String("url", url))
		c.events.Publish(bus.Log("SYSTEM", "", "Connected to Streamer.bot WS"))

		// Read loop exists only to detect the peer closing; inbound frames are
		// acknowledgements we don't act on.
		c.readUntilClosed(ctx, conn)

		c.connected.Store(false)
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
		slog.Warn("streamer.bot disconnected")
		c.events.Publish(bus.Log("SYSTEM", "", "Streamer.bot WS Disconnected. Retrying..."))
	}
}

func (c *Client) readUntilClosed(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	select {
	case <-ctx.Done():
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
		<-done
	case <-done:
	}
}

// request is the Streamer.bot DoAction envelope.
type request struct {
	Request string         `json:"request"`
	ID      string         `json:"id"`
	Action  map[string]any `json:"action"`
	Args    map[string]any `json:"args,omitempty"`
}

func (c *Client) send(req request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("streamer.bot not connected")
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal streamer.bot request: %w", err)
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("write streamer.bot request: %w", err)
	}
	return nil
}

// SendChat posts a message to the stream chat.
func (c *Client) SendChat(message string) error {
	return c.send(request{
		Request: "DoAction",
		ID:      uuid.New().String(),
		Action:  map[string]any{"name": "SendChatMessage"},
		Args:    map[string]any{"message": message},
	})
}

// TimeoutUser times a user out of chat for the given duration.
func (c *Client) TimeoutUser(username string, d time.Duration) error {
	return c.send(request{
		Request: "DoAction",
		ID:      uuid.New().String(),
		Action:  map[string]any{"name": "TimeoutUser"},
		Args:    map[string]any{"user": username, "duration": int(d.Seconds())},
	})
}
