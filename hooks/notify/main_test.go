package main

import (
	"testing"

	"github.com/ayusman/volverse/internal/events"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name      string
		event     events.Event
		wantTitle string
		wantBody  string
	}{
		{
			name:      "toggle",
			event:     events.Event{Type: events.TypeCloakToggle, Gesture: "thumbs_up", Detail: "fading_to_invisible"},
			wantTitle: "Invisibility cloak",
			wantBody:  "fading to invisible",
		},
		{
			name:      "no detail falls back to gesture",
			event:     events.Event{Type: events.TypeCanvasClear, Gesture: "open_palm"},
			wantTitle: "Canvas cleared",
			wantBody:  "open_palm",
		},
		{
			name:      "unknown type",
			event:     events.Event{Type: "wave", Detail: "hi"},
			wantTitle: "wave",
			wantBody:  "hi",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, body := message(tt.event)
			if title != tt.wantTitle || body != tt.wantBody {
				t.Errorf("message() = %q, %q, want %q, %q", title, body, tt.wantTitle, tt.wantBody)
			}
		})
	}
}
