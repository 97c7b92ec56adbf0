package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const helixBaseURL = "https://api.twitch.tv/helix"

// HelixClient answers read-only Helix queries using an app access token.
// App tokens cannot join IRC chat; the Reader carries its own user token.
type HelixClient struct {
	clientID string
	baseURL  string
	source   oauth2.TokenSource
	http     *http.Client
}

// NewHelixClient builds a client backed by the client-credentials flow. The
// token source caches and refreshes the app token on its own.
func NewHelixClient(clientID, clientSecret string) *HelixClient {
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     "https://id.twitch.tv/oauth2/token",
	}
	return &HelixClient{
		clientID: clientID,
		baseURL:  helixBaseURL,
		source:   cc.TokenSource(context.Background()),
		http:     http.DefaultClient,
	}
}

// Configured reports whether Helix credentials were provided at all.
func (hc *HelixClient) Configured() bool { return hc != nil && hc.clientID != "" }

// IsLive reports whether the given channel is currently streaming.
func (hc *HelixClient) IsLive(ctx context.Context, channel string) (bool, error) {
	if channel == "" {
		return false, fmt.Errorf("channel empty")
	}
	tok, err := hc.source.Token()
	if err != nil {
		return false, fmt.Errorf("helix app token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.baseURL+"/streams", nil)
	if err != nil {
		return false, err
	}
	q := req.URL.Query()
	q.Set("user_login", channel)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.clientID)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	resp, err := hc.http.Do(req)
	if err != nil {
		return false, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("helix streams request failed: %s", resp.Status)
	}
	var body struct {
		Data []struct {
			Type string `json:"type"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, err
	}
	return len(body.Data) > 0, nil
}
