package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var identifierRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if err := c.Endpoint.validate("endpoint"); err != nil {
		return err
	}

	if c.Reconnect.InitialDelay <= 0 {
		return errors.New("reconnect.initial_delay must be > 0")
	}
	if c.Reconnect.MaxDelay < c.Reconnect.InitialDelay {
		return fmt.Errorf("reconnect.max_delay (%v) cannot be less than initial_delay (%v)",
			c.Reconnect.MaxDelay, c.Reconnect.InitialDelay)
	}

	if c.Connection.HandshakeTimeout <= 0 {
		return errors.New("connection.handshake_timeout must be > 0")
	}
	if c.Connection.PingInterval < 0 || c.Connection.PingTimeout < 0 || c.Connection.WriteTimeout < 0 {
		return errors.New("connection timeouts must be >= 0")
	}
	if c.Connection.PingInterval > 0 && c.Connection.PingTimeout > 0 &&
		c.Connection.PingTimeout <= c.Connection.PingInterval {
		return fmt.Errorf("connection.ping_timeout (%v) must exceed ping_interval (%v)",
			c.Connection.PingTimeout, c.Connection.PingInterval)
	}
	if c.Connection.ReadLimit < 0 {
		return errors.New("connection.read_limit must be >= 0")
	}
	if c.Connection.AppPingInterval < 0 {
		return errors.New("connection.app_ping_interval must be >= 0")
	}
	if c.Connection.StatusInterval < 0 {
		return errors.New("connection.status_interval must be >= 0")
	}
	if c.Connection.ErrorBuffer < 1 {
		return errors.New("connection.error_buffer must be >= 1")
	}

	for i, typ := range c.Subscriptions.Types {
		if strings.TrimSpace(typ) == "" {
			return fmt.Errorf("subscriptions.types[%d] is empty", i)
		}
	}

	if c.Journal.Enabled {
		if err := c.Journal.Database.validate("journal.database"); err != nil {
			return err
		}
		if !identifierRe.MatchString(c.Journal.Table) {
			return fmt.Errorf("journal.table %q is not a valid identifier", c.Journal.Table)
		}
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if c.Journal.BufferSize < 1 {
			return errors.New("journal.buffer_size must be >= 1")
		}
		if c.Journal.FlushInterval <= 0 {
			return errors.New("journal.flush_interval must be > 0")
		}
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}

	return nil
}

func (e *EndpointConfig) validate(prefix string) error {
	addr := e.Address()
	u, err := url.Parse(addr)
	if err != nil {
		return fmt.Errorf("%s: invalid address %q: %w", prefix, addr, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%s scheme must be ws or wss, got %q", prefix, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if e.URL == "" && (e.Port < 0 || e.Port > 65535) {
		return fmt.Errorf("%s.port must be between 0 and 65535, got %d", prefix, e.Port)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
