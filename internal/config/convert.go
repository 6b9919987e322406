package config

import (
	"log/slog"
	"strings"

	"github.com/rickgao/journal-chat/internal/chat"
	"github.com/rickgao/journal-chat/internal/connection"
	"github.com/rickgao/journal-chat/internal/transport"
	"github.com/rickgao/journal-chat/internal/version"
)

// Endpoint returns the WebSocket URL for the configured environment.
func (c *ChatConfig) Endpoint() string {
	return c.Endpoints[c.Environment]
}

// ManagerConfig converts to a Connection Manager config.
func (c *ChatConfig) ManagerConfig() connection.Config {
	return connection.Config{
		ConnectTimeout:    c.Connection.ConnectTimeout,
		ReconnectAttempts: c.Connection.ReconnectAttempts,
		ReconnectInterval: c.Connection.ReconnectInterval,
		EventBufferSize:   c.Connection.BufferSize,
	}
}

// WebSocketConfig converts to a transport config for Endpoint.
func (c *ChatConfig) WebSocketConfig() transport.WebSocketConfig {
	return transport.WebSocketConfig{
		URL:              c.Endpoint(),
		UserAgent:        version.UserAgent(),
		HandshakeTimeout: c.Connection.ConnectTimeout,
		PingInterval:     c.Connection.PingInterval,
		PingTimeout:      c.Connection.PingTimeout,
		WriteTimeout:     c.Connection.WriteTimeout,
		BufferSize:       c.Connection.BufferSize,
	}
}

// SessionConfig converts to a Chat Session config.
func (c *ChatConfig) SessionConfig() chat.Config {
	return chat.Config{
		ResponseTimeout: c.Session.ResponseTimeout,
		SendRate:        c.Session.SendRate,
		SendBurst:       c.Session.SendBurst,
	}
}

// SlogLevel maps logging.level onto a slog level.
func (c *ChatConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
