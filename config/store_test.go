package config

import (
	"context"
	"testing"
)

func TestMemoryStoreStartsWithDefaults(t *testing.T) {
	s, err := NewStore(context.Background(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if s.Get().Cooldowns.Global != 15 {
		t.Errorf("default global cooldown = %d", s.Get().Cooldowns.Global)
	}
}

func TestSaveSwapsAtomicallyAndNotifies(t *testing.T) {
	s, _ := NewStore(context.Background(), nil)

	var notified *Document
	s.OnChange(func(d *Document) { notified = d })

	doc := DefaultDocument()
	doc.Cooldowns.Global = 99
	if err := s.Save(context.Background(), doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if s.Get().Cooldowns.Global != 99 {
		t.Error("saved document not active")
	}
	if notified == nil || notified.Cooldowns.Global != 99 {
		t.Error("listener not notified with the new document")
	}
}

func TestSaveRejectionKeepsPriorDocument(t *testing.T) {
	s, _ := NewStore(context.Background(), nil)
	prior := s.Get()

	bad := DefaultDocument()
	bad.Audio.QueueSize = 0
	if err := s.Save(context.Background(), bad); err == nil {
		t.Fatal("expected validation error")
	}
	if s.Get() != prior {
		t.Error("rejected save replaced the active document")
	}
}
