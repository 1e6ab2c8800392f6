package main

import (
	"encoding/json"
	"net/http"

	"github.com/spotiflac/pushclient/internal/journal"
	"github.com/spotiflac/pushclient/internal/push"
	"github.com/spotiflac/pushclient/internal/reconnect"
)

type statsSource interface {
	Stats() push.Stats
}

type journalStats interface {
	Stats() journal.Stats
}

// createHealthHandler creates the HTTP handler for health checks. jw may
// be nil when the journal is disabled.
func createHealthHandler(client statsSource, jw journalStats) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := client.Stats()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		conn := map[string]any{
			"state":      stats.State.String(),
			"attempts":   stats.Attempts,
			"next_delay": stats.NextDelay.String(),
		}
		if stats.Connected {
			conn["session_id"] = stats.SessionID.String()
		}
		health.Components["connection"] = conn

		switch stats.State {
		case reconnect.Connected:
		case reconnect.Scheduled:
			health.Status = "degraded"
		default:
			health.Status = "unhealthy"
		}

		health.Components["router"] = map[string]any{
			"received":         stats.Router.MessagesReceived,
			"routed":           stats.Router.MessagesRouted,
			"parse_errors":     stats.Router.ParseErrors,
			"unknown":          stats.Router.UnknownMessages,
			"handler_failures": stats.Router.HandlerFailures,
		}

		if jw != nil {
			js := jw.Stats()
			health.Components["journal"] = map[string]any{
				"queued":  js.Queued,
				"inserts": js.Inserts,
				"dropped": js.Dropped,
				"errors":  js.Errors,
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
