package events

import (
	"errors"
	"fmt"
)

// Server event types.
const (
	TypeConnected        = "connected"
	TypePong             = "pong"
	TypeStatusUpdate     = "status_update"
	TypeDownloadProgress = "download_progress"
	TypeQueueUpdate      = "queue_update"
)

// Known returns every server event type in a stable order.
func Known() []string {
	return []string{
		TypeConnected,
		TypePong,
		TypeStatusUpdate,
		TypeDownloadProgress,
		TypeQueueUpdate,
	}
}

// IsKnown reports whether eventType is one of the server's event types.
func IsKnown(eventType string) bool {
	for _, t := range Known() {
		if t == eventType {
			return true
		}
	}
	return false
}

// Errors
var (
	ErrNoData       = errors.New("event has no data")
	ErrTypeMismatch = errors.New("event type mismatch")
)

// Connected is sent once after the server accepts a connection.
type Connected struct {
	Message string `json:"message"`
}

// DownloadProgress reports the transfer in progress.
type DownloadProgress struct {
	IsDownloading bool    `json:"is_downloading"`
	MBDownloaded  float64 `json:"mb_downloaded"`
	MBTotal       float64 `json:"mb_total"`
	Percentage    float64 `json:"percentage"`
	SpeedMBps     float64 `json:"speed_mbps"`
}

func (p DownloadProgress) String() string {
	if !p.IsDownloading {
		return "idle"
	}
	return fmt.Sprintf("%.1f%% (%.2f/%.2f MB) at %.2f MB/s",
		p.Percentage, p.MBDownloaded, p.MBTotal, p.SpeedMBps)
}

// Item statuses.
const (
	StatusPending     = "pending"
	StatusDownloading = "downloading"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
	StatusSkipped     = "skipped"
)

// QueueItem is one entry of the download queue.
type QueueItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Artists    string  `json:"artists"`
	Album      string  `json:"album,omitempty"`
	Status     string  `json:"status"`
	Progress   float64 `json:"progress"`
	Error      string  `json:"error,omitempty"`
	URL        string  `json:"url,omitempty"`
	Quality    string  `json:"quality,omitempty"`
	Downloader string  `json:"downloader,omitempty"`
}

// QueueUpdate is the full download queue state.
type QueueUpdate struct {
	Queue            []QueueItem `json:"queue"`
	IsDownloading    bool        `json:"is_downloading"`
	QueuedCount      int         `json:"queued_count"`
	CompletedCount   int         `json:"completed_count"`
	FailedCount      int         `json:"failed_count"`
	SkippedCount     int         `json:"skipped_count"`
	CurrentSpeed     float64     `json:"current_speed"`
	TotalDownloaded  float64     `json:"total_downloaded"`
	SessionStartTime int64       `json:"session_start_time"` // Unix seconds, 0 when no session
}

// Active returns the item currently downloading, if any.
func (q QueueUpdate) Active() (QueueItem, bool) {
	for _, item := range q.Queue {
		if item.Status == StatusDownloading {
			return item, true
		}
	}
	return QueueItem{}, false
}

// StatusUpdate answers a request_status message.
type StatusUpdate struct {
	Progress DownloadProgress `json:"progress"`
	Queue    QueueUpdate      `json:"queue"`
}
