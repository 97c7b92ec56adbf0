package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/streamforge/copilot/config"
)

// UDPSpeaker ships utterances to the out-of-process audio player as JSON
// datagrams on the configured per-channel ports. The player owns the actual
// synthesis; this side paces itself by a words-per-minute estimate so the
// worker never overlaps utterances on the same channel.
type UDPSpeaker struct {
	store *config.Store

	// wordsPerMinute drives the playback-duration estimate. 150 approximates
	// the default neural voice rate.
	wordsPerMinute int
}

// NewUDPSpeaker builds a speaker that resolves voice, volume, and ports from
// the live config document on every call, so dashboard edits apply immediately.
func NewUDPSpeaker(store *config.Store) *UDPSpeaker {
	return &UDPSpeaker{store: store, wordsPerMinute: 150}
}

type udpPayload struct {
	Text    string `json:"text"`
	Voice   string `json:"voice"`
	Volume  string `json:"volume"`
	Channel string `json:"channel"`
}

func (s *UDPSpeaker) Speak(ctx context.Context, item Item) error {
	doc := s.store.Get()
	if !doc.Audio.Enabled {
		return nil
	}
	port := doc.Audio.UDPPorts.Public
	if item.Channel == Secret {
		port = doc.Audio.UDPPorts.Secret
	}
	if port <= 0 {
		return nil // channel transport not configured
	}

	conn, err := net.Dial("udp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return fmt.Errorf("dial audio player: %w", err)
	}
	defer conn.Close()

	payload, err := json.Marshal(udpPayload{
		Text:    item.Text,
		Voice:   doc.Audio.Voice,
		Volume:  doc.Audio.Volume,
		Channel: string(item.Channel),
	})
	if err != nil {
		return fmt.Errorf("marshal audio payload: %w", err)
	}
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("send audio payload: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.estimate(item.Text)):
		return nil
	}
}

// estimate approximates how long the player will take to speak text.
func (s *UDPSpeaker) estimate(text string) time.Duration {
	words := 1
	for _, r := range text {
		if r == ' ' {
			words++
		}
	}
	d := time.Duration(float64(words) / float64(s.wordsPerMinute) * float64(time.Minute))
	if d < 500*time.Millisecond {
		d = 500 * time.Millisecond
	}
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}
