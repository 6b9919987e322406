package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultEnvironment       = EnvDevelopment
	DefaultDevelopmentURL    = "ws://localhost:3030/chat"
	DefaultConnectTimeout    = 5 * time.Second
	DefaultReconnectAttempts = 5
	DefaultReconnectInterval = 5 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultPingInterval      = 30 * time.Second
	DefaultPingTimeout       = 90 * time.Second
	DefaultBufferSize        = 256
	DefaultResponseTimeout   = 30 * time.Second
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// Known environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

func (c *ChatConfig) applyDefaults() {
	if c.Environment == "" {
		c.Environment = DefaultEnvironment
	}
	if c.Endpoints == nil {
		c.Endpoints = make(map[string]string)
	}
	if c.Endpoints[EnvDevelopment] == "" {
		c.Endpoints[EnvDevelopment] = DefaultDevelopmentURL
	}

	// Connection defaults
	if c.Connection.ConnectTimeout == 0 {
		c.Connection.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Connection.ReconnectAttempts == 0 {
		c.Connection.ReconnectAttempts = DefaultReconnectAttempts
	}
	if c.Connection.ReconnectInterval == 0 {
		c.Connection.ReconnectInterval = DefaultReconnectInterval
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.PingInterval == 0 {
		c.Connection.PingInterval = DefaultPingInterval
	}
	if c.Connection.PingTimeout == 0 {
		c.Connection.PingTimeout = DefaultPingTimeout
	}
	if c.Connection.BufferSize == 0 {
		c.Connection.BufferSize = DefaultBufferSize
	}

	// Session defaults
	if c.Session.ResponseTimeout == 0 {
		c.Session.ResponseTimeout = DefaultResponseTimeout
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}
