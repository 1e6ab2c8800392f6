package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spotiflac/pushclient/internal/connection"
	"github.com/spotiflac/pushclient/internal/reconnect"
)

// Config is the root configuration for a push client.
type Config struct {
	Endpoint      EndpointConfig      `yaml:"endpoint"`
	Reconnect     ReconnectConfig     `yaml:"reconnect"`
	Connection    ConnectionConfig    `yaml:"connection"`
	Subscriptions SubscriptionsConfig `yaml:"subscriptions"`
	Journal       JournalConfig       `yaml:"journal"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// EndpointConfig locates the push server. URL, when set, wins over the
// individual parts.
type EndpointConfig struct {
	URL    string `yaml:"url"`
	Scheme string `yaml:"scheme"` // ws or wss
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Path   string `yaml:"path"`
}

// Address returns the WebSocket URL to dial.
func (e EndpointConfig) Address() string {
	if e.URL != "" {
		return e.URL
	}
	host := e.Host
	if e.Port != 0 {
		host = net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
	}
	path := e.Path
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("%s://%s%s", e.Scheme, host, path)
}

// ReconnectConfig holds backoff settings. A negative max_attempts retries
// forever.
type ReconnectConfig struct {
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	MaxAttempts  int           `yaml:"max_attempts"`
}

// Policy converts the section into a reconnect policy.
func (r ReconnectConfig) Policy() reconnect.Policy {
	return reconnect.Policy{
		InitialDelay: r.InitialDelay,
		MaxDelay:     r.MaxDelay,
		MaxAttempts:  r.MaxAttempts,
	}
}

// ConnectionConfig holds transport settings.
type ConnectionConfig struct {
	HandshakeTimeout time.Duration     `yaml:"handshake_timeout"`
	PingInterval     time.Duration     `yaml:"ping_interval"` // WebSocket control pings
	PingTimeout      time.Duration     `yaml:"ping_timeout"`  // Silence before the connection is stale
	WriteTimeout     time.Duration     `yaml:"write_timeout"`
	ReadLimit        int64             `yaml:"read_limit"`
	AppPingInterval  time.Duration     `yaml:"app_ping_interval"` // {"type":"ping"} messages, 0 disables
	StatusInterval   time.Duration     `yaml:"status_interval"`   // {"type":"request_status"} messages, 0 disables
	ErrorBuffer      int               `yaml:"error_buffer"`
	Headers          map[string]string `yaml:"headers"`
}

// Dialer converts the section into dialer settings.
func (c ConnectionConfig) Dialer() connection.DialerConfig {
	cfg := connection.DialerConfig{
		HandshakeTimeout: c.HandshakeTimeout,
		PingInterval:     c.PingInterval,
		PingTimeout:      c.PingTimeout,
		WriteTimeout:     c.WriteTimeout,
		ReadLimit:        c.ReadLimit,
	}
	if len(c.Headers) > 0 {
		cfg.Header = make(http.Header, len(c.Headers))
		for k, v := range c.Headers {
			cfg.Header.Set(k, v)
		}
	}
	return cfg
}

// SubscriptionsConfig lists the event types to subscribe to.
type SubscriptionsConfig struct {
	Types []string `yaml:"types"`
}

// JournalConfig holds the optional PostgreSQL event journal.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Database      DBConfig      `yaml:"database"`
	Table         string        `yaml:"table"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// LoggingConfig holds slog handler settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// SlogLevel returns the configured level, or info when unrecognised.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
