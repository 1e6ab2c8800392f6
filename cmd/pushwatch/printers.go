package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/spotiflac/pushclient/internal/events"
	"github.com/spotiflac/pushclient/internal/reconnect"
	"github.com/spotiflac/pushclient/internal/router"
)

var (
	tagColor      = color.New(color.FgCyan, color.Bold)
	progressColor = color.New(color.FgGreen)
	queueColor    = color.New(color.FgBlue)
	failColor     = color.New(color.FgRed)
	dimColor      = color.New(color.Faint)
)

// printer writes one line per event to out.
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
}

func newPrinter(out io.Writer, verbose bool) *printer {
	return &printer{out: out, verbose: verbose}
}

// handler returns the console handler for eventType.
func (p *printer) handler(eventType string) router.Handler {
	if p.verbose {
		return router.HandlerFunc(p.printRaw)
	}

	switch eventType {
	case events.TypeConnected:
		return events.Handler(p.printConnected)
	case events.TypeDownloadProgress:
		return events.Handler(p.printProgress)
	case events.TypeQueueUpdate:
		return events.Handler(p.printQueue)
	case events.TypeStatusUpdate:
		return events.Handler(p.printStatus)
	case events.TypePong:
		return router.HandlerFunc(func(router.Event) error {
			p.line("PONG", dimColor, "")
			return nil
		})
	default:
		return router.HandlerFunc(p.printRaw)
	}
}

func (p *printer) printConnected(_ router.Event, c events.Connected) error {
	p.line("CONNECTED", progressColor, c.Message)
	return nil
}

func (p *printer) printProgress(_ router.Event, dp events.DownloadProgress) error {
	p.line("PROGRESS", progressColor, dp.String())
	return nil
}

func (p *printer) printQueue(_ router.Event, q events.QueueUpdate) error {
	msg := fmt.Sprintf("queued=%d completed=%d failed=%d skipped=%d speed=%.2fMB/s total=%.2fMB",
		q.QueuedCount, q.CompletedCount, q.FailedCount, q.SkippedCount, q.CurrentSpeed, q.TotalDownloaded)
	if item, ok := q.Active(); ok {
		msg += fmt.Sprintf(" active=%q (%.0f%%)", item.Title, item.Progress)
	}
	c := queueColor
	if q.FailedCount > 0 {
		c = failColor
	}
	p.line("QUEUE", c, msg)
	return nil
}

func (p *printer) printStatus(_ router.Event, s events.StatusUpdate) error {
	p.line("STATUS", queueColor, fmt.Sprintf("progress: %s, queued=%d completed=%d failed=%d",
		s.Progress, s.Queue.QueuedCount, s.Queue.CompletedCount, s.Queue.FailedCount))
	return nil
}

func (p *printer) printRaw(ev router.Event) error {
	body := string(ev.Data)
	if p.verbose && len(ev.Data) > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, ev.Data, "", "  "); err == nil {
			body = "\n" + buf.String()
		}
	}
	p.line(ev.Type, dimColor, body)
	return nil
}

// state prints a connection state transition.
func (p *printer) state(from, to reconnect.State) {
	switch to {
	case reconnect.Connected:
		p.line("STATE", progressColor, "connected")
	case reconnect.Scheduled:
		p.line("STATE", color.New(color.FgYellow), "reconnecting")
	case reconnect.Exhausted:
		p.line("STATE", failColor, "disconnected (gave up reconnecting)")
	default:
		p.line("STATE", dimColor, fmt.Sprintf("%s -> %s", from, to))
	}
}

func (p *printer) line(tag string, c *color.Color, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tagColor.Fprintf(p.out, "[%s]", tag)
	if msg != "" {
		fmt.Fprint(p.out, " ")
		c.Fprint(p.out, msg)
	}
	fmt.Fprintln(p.out)
}
