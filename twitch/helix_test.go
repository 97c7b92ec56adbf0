package twitch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"
)

func newMockHelix(t *testing.T, live bool) *HelixClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/streams" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer app-token" || r.Header.Get("Client-Id") != "cid" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		data := []map[string]string{}
		if live {
			data = append(data, map[string]string{"type": "live"})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data}) //nolint:errcheck // test mock response
	}))
	t.Cleanup(srv.Close)
	return &HelixClient{
		clientID: "cid",
		baseURL:  srv.URL,
		source:   oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "app-token"}),
		http:     srv.Client(),
	}
}

func TestIsLive(t *testing.T) {
	ctx := context.Background()
	if live, err := newMockHelix(t, true).IsLive(ctx, "somechannel"); err != nil || !live {
		t.Errorf("IsLive = %v, %v; want true, nil", live, err)
	}
	if live, err := newMockHelix(t, false).IsLive(ctx, "somechannel"); err != nil || live {
		t.Errorf("IsLive = %v, %v; want false, nil", live, err)
	}
	if _, err := newMockHelix(t, false).IsLive(ctx, ""); err == nil {
		t.Error("empty channel should error")
	}
}
