package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *ChatConfig) Validate() error {
	if c.Environment == "" {
		return errors.New("environment is required")
	}

	endpoint, ok := c.Endpoints[c.Environment]
	if !ok || endpoint == "" {
		return fmt.Errorf("endpoints.%s is required", c.Environment)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("endpoints.%s: %w", c.Environment, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("endpoints.%s must use ws or wss, got %q", c.Environment, u.Scheme)
	}

	if err := c.Connection.validate("connection"); err != nil {
		return err
	}

	if c.Session.ResponseTimeout <= 0 {
		return errors.New("session.response_timeout must be > 0")
	}
	if c.Session.SendRate < 0 {
		return errors.New("session.send_rate must be >= 0")
	}
	if c.Session.SendBurst < 0 {
		return errors.New("session.send_burst must be >= 0")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

func (cc *ConnectionConfig) validate(prefix string) error {
	if cc.ConnectTimeout <= 0 {
		return fmt.Errorf("%s.connect_timeout must be > 0", prefix)
	}
	if cc.ReconnectAttempts < 1 {
		return fmt.Errorf("%s.reconnect_attempts must be >= 1", prefix)
	}
	if cc.ReconnectInterval < 0 {
		return fmt.Errorf("%s.reconnect_interval must be >= 0", prefix)
	}
	if cc.BufferSize < 1 {
		return fmt.Errorf("%s.buffer_size must be >= 1", prefix)
	}
	if cc.PingInterval > 0 && cc.PingTimeout > 0 && cc.PingTimeout < cc.PingInterval {
		return fmt.Errorf("%s.ping_timeout (%s) cannot be less than ping_interval (%s)", prefix, cc.PingTimeout, cc.PingInterval)
	}
	return nil
}
