package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// Document is the full operator-editable configuration served by GET /config and
// replaced atomically by POST /config. List order in provider and model slices is
// failover priority order; nothing reorders them.
type Document struct {
	YouTube     YouTubeConfig     `json:"youtube"`
	StreamerBot StreamerBotConfig `json:"streamer_bot"`
	Audio       AudioConfig       `json:"audio"`
	Commands    CommandsConfig    `json:"commands"`
	Moderation  ModerationConfig  `json:"moderation"`
	Cooldowns   CooldownConfig    `json:"cooldowns"`
	AITopology  TopologyConfig    `json:"ai_topology"`
	Loyalty     LoyaltyConfig     `json:"loyalty"`
	UPIGateway  UPIGatewayConfig  `json:"upi_gateway"`
}

type YouTubeConfig struct {
	VideoID string `json:"video_id"`
}

type StreamerBotConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

type AudioConfig struct {
	Enabled   bool     `json:"enabled"`
	Voice     string   `json:"voice"`
	Volume    string   `json:"volume"`
	QueueSize int      `json:"queue_size"`
	UDPPorts  UDPPorts `json:"udp_ports"`
}

type UDPPorts struct {
	Public int `json:"public"`
	Secret int `json:"secret"`
}

type CommandsConfig struct {
	Enabled bool   `json:"enabled"`
	Prefix  string `json:"prefix"`
}

type ModerationConfig struct {
	IgnoreList      []string         `json:"ignore_list"`
	AITriggers      AITriggersConfig `json:"ai_triggers"`
	ProtectionLogic ProtectionLogic  `json:"protection_logic"`
	Filters         FiltersConfig    `json:"filters"`
}

type AITriggersConfig struct {
	Enabled  bool     `json:"enabled"`
	Prefixes []string `json:"prefixes"`
	Keywords []string `json:"keywords"`
}

type ProtectionLogic struct {
	WarningEnabled  bool `json:"warning_enabled"`
	MaxWarnings     int  `json:"max_warnings"`
	TimeoutDuration int  `json:"timeout_duration"` // seconds
	WarningReset    int  `json:"warning_reset"`    // seconds of no violations before warnings clear
}

type FiltersConfig struct {
	SpamProtection SpamFilter    `json:"spam_protection"`
	WordBlacklist  WordFilter    `json:"word_blacklist"`
	ExcessSymbols  SymbolsFilter `json:"excess_symbols"`
}

type SpamFilter struct {
	Enabled bool   `json:"enabled"`
	Limit   int    `json:"limit"`  // max messages inside the window
	Window  int    `json:"window"` // seconds
	Message string `json:"message"`
}

type WordFilter struct {
	Enabled bool     `json:"enabled"`
	Words   []string `json:"words"` // trailing '*' marks a prefix wildcard
	Message string   `json:"message"`
}

type SymbolsFilter struct {
	Enabled bool   `json:"enabled"`
	Limit   int    `json:"limit"` // max non-alphanumeric characters
	Message string `json:"message"`
}

type CooldownConfig struct {
	Global         int    `json:"global"` // seconds between any two AI responses
	User           int    `json:"user"`   // seconds between AI responses to the same user
	WarningMessage string `json:"warning_message"`
}

type TopologyConfig struct {
	SystemPrompt string     `json:"system_prompt"`
	Providers    []Provider `json:"providers"`
}

type Provider struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Type    string  `json:"type"` // openai | ollama | custom
	APIKey  string  `json:"api_key"`
	BaseURL string  `json:"base_url"`
	Enabled bool    `json:"enabled"`
	Models  []Model `json:"models"`
}

type Model struct {
	ID       string `json:"id"`
	Priority int    `json:"priority"`
	Enabled  bool   `json:"enabled"`
}

type LoyaltyConfig struct {
	Enabled       bool   `json:"enabled"`
	StreakMessage string `json:"streak_message"` // 2-day streak
	WeekMessage   string `json:"week_message"`   // 7-day streak
	MonthMessage  string `json:"month_message"`  // 30-day streak
	ReturnMessage string `json:"return_message"` // back after a 3+ day break
}

type UPIGatewayConfig struct {
	Enabled   bool    `json:"enabled"`
	UPIID     string  `json:"upi_id"`
	SecretKey string  `json:"secret_key"`
	MinAmount float64 `json:"min_amount"`
}

// DefaultDocument returns the document used until an operator saves one.
func DefaultDocument() *Document {
	return &Document{
		YouTube:     YouTubeConfig{},
		StreamerBot: StreamerBotConfig{Host: "127.0.0.1", Port: 8080},
		Audio: AudioConfig{
			Voice:     "en-US-JennyNeural",
			Volume:    "+0%",
			QueueSize: 8,
		},
		Commands: CommandsConfig{Prefix: "!"},
		Moderation: ModerationConfig{
			IgnoreList: []string{},
			AITriggers: AITriggersConfig{Prefixes: []string{}, Keywords: []string{}},
			ProtectionLogic: ProtectionLogic{
				WarningEnabled:  true,
				MaxWarnings:     3,
				TimeoutDuration: 300,
				WarningReset:    600,
			},
			Filters: FiltersConfig{
				SpamProtection: SpamFilter{Limit: 5, Window: 10, Message: "Hey {author}, slow down!"},
				WordBlacklist:  WordFilter{Words: []string{}, Message: "Hey {author}, that word is banned!"},
				ExcessSymbols:  SymbolsFilter{Limit: 20, Message: "Hey {author}, too many symbols!"},
			},
		},
		Cooldowns: CooldownConfig{Global: 15, User: 60, WarningMessage: "System busy..."},
		AITopology: TopologyConfig{
			SystemPrompt: "You are a helpful AI assistant.",
			Providers:    []Provider{},
		},
		Loyalty: LoyaltyConfig{
			Enabled:       true,
			StreakMessage: "{author} is on a {days} day streak!",
			WeekMessage:   "{author} has been here every day for a week!",
			MonthMessage:  "{author} completed a whole month. Legend!",
			ReturnMessage: "Welcome back {author}, we missed you!",
		},
		UPIGateway: UPIGatewayConfig{MinAmount: 10},
	}
}

var validProviderTypes = map[string]bool{"openai": true, "ollama": true, "custom": true}

// Validate rejects documents that would leave the pipeline in an unusable state.
// It returns the first problem found; the caller keeps the prior document active.
func (d *Document) Validate() error {
	if d.Moderation.ProtectionLogic.MaxWarnings < 1 {
		return fmt.Errorf("moderation.protection_logic.max_warnings must be >= 1")
	}
	if d.Moderation.ProtectionLogic.TimeoutDuration < 1 {
		return fmt.Errorf("moderation.protection_logic.timeout_duration must be >= 1")
	}
	if d.Cooldowns.Global < 0 || d.Cooldowns.User < 0 {
		return fmt.Errorf("cooldowns must not be negative")
	}
	if d.Audio.QueueSize < 1 {
		return fmt.Errorf("audio.queue_size must be >= 1")
	}
	seen := map[string]bool{}
	for i, p := range d.AITopology.Providers {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("ai_topology.providers[%d]: id is required", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("ai_topology.providers: duplicate id %q", p.ID)
		}
		seen[p.ID] = true
		if !validProviderTypes[p.Type] {
			return fmt.Errorf("ai_topology.providers[%d]: unknown type %q", i, p.Type)
		}
		for j, m := range p.Models {
			if strings.TrimSpace(m.ID) == "" {
				return fmt.Errorf("ai_topology.providers[%d].models[%d]: id is required", i, j)
			}
		}
	}
	if d.UPIGateway.MinAmount < 0 {
		return fmt.Errorf("upi_gateway.min_amount must not be negative")
	}
	return nil
}

// Normalize disables filters whose numeric limits are unusable instead of
// rejecting the document. A broken filter must never block all traffic.
func (d *Document) Normalize() {
	f := &d.Moderation.Filters
	if f.SpamProtection.Enabled && (f.SpamProtection.Limit < 1 || f.SpamProtection.Window < 1) {
		slog.Warn("disabling spam_protection filter: invalid limit or window",
			slog.Int("limit", f.SpamProtection.Limit), slog.Int("window", f.SpamProtection.Window))
		f.SpamProtection.Enabled = false
	}
	if f.ExcessSymbols.Enabled && f.ExcessSymbols.Limit < 1 {
		slog.Warn("disabling excess_symbols filter: invalid limit", slog.Int("limit", f.ExcessSymbols.Limit))
		f.ExcessSymbols.Enabled = false
	}
	if d.Moderation.ProtectionLogic.WarningReset < 0 {
		d.Moderation.ProtectionLogic.WarningReset = 0
	}
	if d.Commands.Prefix == "" {
		d.Commands.Prefix = "!"
	}
}
