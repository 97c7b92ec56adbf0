package streamerbot

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/streamforge/copilot/bus"
	"github.com/streamforge/copilot/config"
)

func TestClientConnectsAndSendsActions(t *testing.T) {
	frames := make(chan []byte, 4)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames <- raw
		}
	}))
	defer srv.Close()

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)

	store, err := config.NewStore(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	doc := config.DefaultDocument()
	doc.StreamerBot = config.StreamerBotConfig{Enabled: true, Host: host, Port: port}
	if err := store.Save(context.Background(), doc); err != nil {
		t.Fatal(err)
	}

	events := bus.New(10)
	defer events.Close()
	client := NewClient(store, events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	deadline := time.Now().Add(3 * time.Second)
	for !client.Connected() {
		if time.Now().After(deadline) {
			t.Fatal("client never connected")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := client.SendChat("hello chat"); err != nil {
		t.Fatalf("SendChat: %v", err)
	}
	if err := client.TimeoutUser("troll", 300*time.Second); err != nil {
		t.Fatalf("TimeoutUser: %v", err)
	}

	var req struct {
		Request string         `json:"request"`
		ID      string         `json:"id"`
		Action  map[string]any `json:"action"`
		Args    map[string]any `json:"args"`
	}
	select {
	case raw := <-frames:
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if req.Request != "DoAction" || req.Action["name"] != "SendChatMessage" {
			t.Errorf("first frame = %+v", req)
		}
		if req.Args["message"] != "hello chat" || req.ID == "" {
			t.Errorf("first frame args = %+v", req)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no chat frame received")
	}
	select {
	case raw := <-frames:
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if req.Action["name"] != "TimeoutUser" || req.Args["duration"] != float64(300) {
			t.Errorf("second frame = %+v", req)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no timeout frame received")
	}
}

func TestSendFailsWhenDisconnected(t *testing.T) {
	store, err := config.NewStore(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	events := bus.New(10)
	defer events.Close()
	client := NewClient(store, events)
	if err := client.SendChat("nobody listening"); err == nil {
		t.Fatal("expected error while disconnected")
	}
}
