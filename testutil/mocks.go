// Package testutil provides mock servers and database helpers shared by tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// MockProviderServer mocks an OpenAI-compatible chat completions endpoint.
type MockProviderServer struct {
	*httptest.Server
	Calls atomic.Int64

	// Reply is returned on success; Status overrides the response code when
	// non-zero (anything >= 400 produces an API error).
	Reply  string
	Status int
}

// NewMockProviderServer creates a mock provider answering /chat/completions.
func NewMockProviderServer(t *testing.T) *MockProviderServer {
	t.Helper()
	m := &MockProviderServer{Reply: "mock response"}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Calls.Add(1)
		if m.Status >= 400 {
			w.WriteHeader(m.Status)
			_, _ = w.Write([]byte(`{"error":{"message":"mock failure"}}`)) //nolint:errcheck // test mock response
			return
		}
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck // test mock request
		response := map[string]any{
			"id":    "chatcmpl-mock",
			"model": req.Model,
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": m.Reply},
					"finish_reason": "stop",
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}))
	t.Cleanup(m.Close)
	return m
}
