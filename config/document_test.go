package config

import (
	"strings"
	"testing"
)

func TestValidateCatchesBadDocuments(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Document)
		wantErr string
	}{
		{"zero max warnings", func(d *Document) { d.Moderation.ProtectionLogic.MaxWarnings = 0 }, "max_warnings"},
		{"zero timeout", func(d *Document) { d.Moderation.ProtectionLogic.TimeoutDuration = 0 }, "timeout_duration"},
		{"negative cooldown", func(d *Document) { d.Cooldowns.User = -1 }, "cooldowns"},
		{"zero queue size", func(d *Document) { d.Audio.QueueSize = 0 }, "queue_size"},
		{"provider without id", func(d *Document) {
			d.AITopology.Providers = []Provider{{Type: "openai"}}
		}, "id is required"},
		{"duplicate provider id", func(d *Document) {
			d.AITopology.Providers = []Provider{
				{ID: "a", Type: "openai"},
				{ID: "a", Type: "ollama"},
			}
		}, "duplicate id"},
		{"unknown provider type", func(d *Document) {
			d.AITopology.Providers = []Provider{{ID: "a", Type: "acme"}}
		}, "unknown type"},
		{"model without id", func(d *Document) {
			d.AITopology.Providers = []Provider{{ID: "a", Type: "openai", Models: []Model{{}}}}
		}, "id is required"},
		{"negative min amount", func(d *Document) { d.UPIGateway.MinAmount = -1 }, "min_amount"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := DefaultDocument()
			tc.mutate(doc)
			err := doc.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestDefaultDocumentIsValid(t *testing.T) {
	if err := DefaultDocument().Validate(); err != nil {
		t.Fatalf("default document invalid: %v", err)
	}
}

func TestNormalizeDisablesBrokenFilters(t *testing.T) {
	doc := DefaultDocument()
	doc.Moderation.Filters.SpamProtection.Enabled = true
	doc.Moderation.Filters.SpamProtection.Limit = 0
	doc.Moderation.Filters.ExcessSymbols.Enabled = true
	doc.Moderation.Filters.ExcessSymbols.Limit = -5
	doc.Commands.Prefix = ""

	doc.Normalize()
	if doc.Moderation.Filters.SpamProtection.Enabled {
		t.Error("spam filter with zero limit left enabled")
	}
	if doc.Moderation.Filters.ExcessSymbols.Enabled {
		t.Error("symbols filter with negative limit left enabled")
	}
	if doc.Commands.Prefix != "!" {
		t.Errorf("empty prefix normalized to %q, want !", doc.Commands.Prefix)
	}
}
