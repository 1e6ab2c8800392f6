package config

import (
	"time"

	"github.com/spotiflac/pushclient/internal/events"
)

// Default values for optional configuration fields.
const (
	DefaultScheme            = "ws"
	DefaultHost              = "localhost"
	DefaultPort              = 8080
	DefaultPath              = "/ws"
	DefaultInitialDelay      = 1 * time.Second
	DefaultMaxDelay          = 30 * time.Second
	DefaultMaxAttempts       = 10
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultPingInterval      = 30 * time.Second
	DefaultPingTimeout       = 60 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultReadLimit         = 1 << 20
	DefaultAppPingInterval   = 30 * time.Second
	DefaultStatusInterval    = 1 * time.Minute
	DefaultErrorBuffer       = 64
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 4
	DefaultMinConns          = 1
	DefaultJournalTable      = "push_events"
	DefaultJournalBatchSize  = 100
	DefaultJournalFlush      = 1 * time.Second
	DefaultJournalBufferSize = 10000
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

func (c *Config) applyDefaults() {
	// Endpoint defaults, only when no full URL is given
	if c.Endpoint.URL == "" {
		if c.Endpoint.Scheme == "" {
			c.Endpoint.Scheme = DefaultScheme
		}
		if c.Endpoint.Host == "" {
			c.Endpoint.Host = DefaultHost
		}
		if c.Endpoint.Port == 0 {
			c.Endpoint.Port = DefaultPort
		}
		if c.Endpoint.Path == "" {
			c.Endpoint.Path = DefaultPath
		}
	}

	// Reconnect defaults
	if c.Reconnect.InitialDelay == 0 {
		c.Reconnect.InitialDelay = DefaultInitialDelay
	}
	if c.Reconnect.MaxDelay == 0 {
		c.Reconnect.MaxDelay = DefaultMaxDelay
	}
	if c.Reconnect.MaxAttempts == 0 {
		c.Reconnect.MaxAttempts = DefaultMaxAttempts
	}

	// Connection defaults
	if c.Connection.HandshakeTimeout == 0 {
		c.Connection.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Connection.PingInterval == 0 {
		c.Connection.PingInterval = DefaultPingInterval
	}
	if c.Connection.PingTimeout == 0 {
		c.Connection.PingTimeout = DefaultPingTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.ReadLimit == 0 {
		c.Connection.ReadLimit = DefaultReadLimit
	}
	if c.Connection.AppPingInterval == 0 {
		c.Connection.AppPingInterval = DefaultAppPingInterval
	}
	if c.Connection.StatusInterval == 0 {
		c.Connection.StatusInterval = DefaultStatusInterval
	}
	if c.Connection.ErrorBuffer == 0 {
		c.Connection.ErrorBuffer = DefaultErrorBuffer
	}

	// Subscriptions default to every known server event
	if len(c.Subscriptions.Types) == 0 {
		c.Subscriptions.Types = events.Known()
	}

	// Journal defaults
	applyDBDefaults(&c.Journal.Database)
	if c.Journal.Table == "" {
		c.Journal.Table = DefaultJournalTable
	}
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultJournalBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultJournalFlush
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultJournalBufferSize
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
