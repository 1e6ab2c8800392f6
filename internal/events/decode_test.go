package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/spotiflac/pushclient/internal/router"
)

func TestDecode_QueueUpdate(t *testing.T) {
	ev := router.Event{
		Type: TypeQueueUpdate,
		Data: json.RawMessage(`{
			"queue": [
				{"id": "a", "title": "Song A", "artists": "X", "status": "completed", "progress": 100},
				{"id": "b", "title": "Song B", "artists": "Y", "status": "downloading", "progress": 42.5}
			],
			"is_downloading": true,
			"queued_count": 3,
			"completed_count": 1,
			"failed_count": 0,
			"skipped_count": 2,
			"current_speed": 1.5,
			"total_downloaded": 12.25,
			"session_start_time": 1700000000
		}`),
	}

	q, err := Decode[QueueUpdate](ev)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(q.Queue) != 2 || q.QueuedCount != 3 || q.SkippedCount != 2 {
		t.Errorf("Decode() = %+v", q)
	}
	if q.SessionStartTime != 1700000000 {
		t.Errorf("SessionStartTime = %d", q.SessionStartTime)
	}

	active, ok := q.Active()
	if !ok || active.ID != "b" {
		t.Errorf("Active() = %+v, %v; want item b", active, ok)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"no data", "", ErrNoData},
		{"wrong shape", `[1,2,3]`, nil},
		{"wrong field type", `{"percentage":"half"}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := router.Event{Type: TypeDownloadProgress, Data: json.RawMessage(tt.data)}
			_, err := Decode[DownloadProgress](ev)
			if err == nil {
				t.Fatal("Decode() error = nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecode_StatusUpdate(t *testing.T) {
	ev := router.Event{
		Type: TypeStatusUpdate,
		Data: json.RawMessage(`{"progress":{"is_downloading":true,"percentage":10},"queue":{"queued_count":4}}`),
	}
	s, err := Decode[StatusUpdate](ev)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !s.Progress.IsDownloading || s.Progress.Percentage != 10 || s.Queue.QueuedCount != 4 {
		t.Errorf("Decode() = %+v", s)
	}
}

func TestHandler(t *testing.T) {
	var got Connected
	h := Handler(func(ev router.Event, c Connected) error {
		got = c
		return nil
	})

	if err := h.HandleEvent(router.Event{Type: TypeConnected, Data: json.RawMessage(`{"message":"hi"}`)}); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if got.Message != "hi" {
		t.Errorf("Message = %q, want hi", got.Message)
	}

	if err := h.HandleEvent(router.Event{Type: TypeConnected}); !errors.Is(err, ErrNoData) {
		t.Errorf("HandleEvent(no data) = %v, want ErrNoData", err)
	}
}

func TestExpect(t *testing.T) {
	ev := router.Event{Type: TypePong}
	if err := Expect(ev, TypePong); err != nil {
		t.Errorf("Expect(pong) = %v", err)
	}
	if err := Expect(ev, TypeQueueUpdate); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Expect(queue_update) = %v, want ErrTypeMismatch", err)
	}
}

func TestDownloadProgress_String(t *testing.T) {
	tests := []struct {
		p    DownloadProgress
		want string
	}{
		{DownloadProgress{}, "idle"},
		{DownloadProgress{IsDownloading: true, Percentage: 50, MBDownloaded: 5, MBTotal: 10, SpeedMBps: 2.5}, "50.0% (5.00/10.00 MB) at 2.50 MB/s"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestIsKnown(t *testing.T) {
	for _, typ := range Known() {
		if !IsKnown(typ) {
			t.Errorf("IsKnown(%q) = false", typ)
		}
	}
	if IsKnown("ping") {
		t.Error("IsKnown(ping) = true; ping is client-to-server")
	}
}
