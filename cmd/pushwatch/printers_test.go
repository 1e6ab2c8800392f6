package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/spotiflac/pushclient/internal/reconnect"
	"github.com/spotiflac/pushclient/internal/router"
)

func init() {
	color.NoColor = true
}

func TestPrinter_Handlers(t *testing.T) {
	tests := []struct {
		name string
		ev   router.Event
		want string
	}{
		{
			name: "connected",
			ev:   router.Event{Type: "connected", Data: json.RawMessage(`{"message":"Connected to SpotiFLAC server"}`)},
			want: "[CONNECTED] Connected to SpotiFLAC server\n",
		},
		{
			name: "progress",
			ev:   router.Event{Type: "download_progress", Data: json.RawMessage(`{"is_downloading":true,"percentage":25,"mb_downloaded":2.5,"mb_total":10,"speed_mbps":1.25}`)},
			want: "[PROGRESS] 25.0% (2.50/10.00 MB) at 1.25 MB/s\n",
		},
		{
			name: "queue with active item",
			ev: router.Event{Type: "queue_update", Data: json.RawMessage(`{
				"queue":[{"id":"1","title":"Song","status":"downloading","progress":40}],
				"queued_count":2,"completed_count":1,"current_speed":1.5,"total_downloaded":3}`)},
			want: `[QUEUE] queued=2 completed=1 failed=0 skipped=0 speed=1.50MB/s total=3.00MB active="Song" (40%)` + "\n",
		},
		{
			name: "pong",
			ev:   router.Event{Type: "pong"},
			want: "[PONG]\n",
		},
		{
			name: "unknown type prints raw",
			ev:   router.Event{Type: "custom", Data: json.RawMessage(`{"a":1}`)},
			want: "[custom] {\"a\":1}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			p := newPrinter(&buf, false)
			if err := p.handler(tt.ev.Type).HandleEvent(tt.ev); err != nil {
				t.Fatalf("HandleEvent() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrinter_BadPayload(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, false)

	err := p.handler("queue_update").HandleEvent(router.Event{Type: "queue_update", Data: json.RawMessage(`"oops"`)})
	if err == nil {
		t.Fatal("HandleEvent() error = nil for undecodable payload")
	}
	if buf.Len() != 0 {
		t.Errorf("printed %q for undecodable payload", buf.String())
	}
}

func TestPrinter_Verbose(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, true)

	ev := router.Event{Type: "queue_update", Data: json.RawMessage(`{"queued_count":1}`)}
	if err := p.handler(ev.Type).HandleEvent(ev); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	want := "[queue_update] \n{\n  \"queued_count\": 1\n}\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestPrinter_State(t *testing.T) {
	tests := []struct {
		from, to reconnect.State
		want     string
	}{
		{reconnect.Idle, reconnect.Connected, "connected"},
		{reconnect.Connected, reconnect.Scheduled, "reconnecting"},
		{reconnect.Scheduled, reconnect.Exhausted, "disconnected"},
		{reconnect.Connected, reconnect.Idle, "connected -> idle"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		newPrinter(&buf, false).state(tt.from, tt.to)
		if !strings.Contains(buf.String(), tt.want) {
			t.Errorf("state(%v, %v) = %q, want to contain %q", tt.from, tt.to, buf.String(), tt.want)
		}
	}
}
