package config

import "time"

// ChatConfig is the root configuration for a chat client.
type ChatConfig struct {
	Environment string            `yaml:"environment" toml:"environment"`
	Endpoints   map[string]string `yaml:"endpoints" toml:"endpoints"` // environment → WebSocket URL
	Connection  ConnectionConfig  `yaml:"connection" toml:"connection"`
	Session     SessionConfig     `yaml:"session" toml:"session"`
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`
}

// ConnectionConfig holds Connection Manager and transport settings.
type ConnectionConfig struct {
	ConnectTimeout    time.Duration `yaml:"connect_timeout" toml:"connect_timeout"`
	ReconnectAttempts int           `yaml:"reconnect_attempts" toml:"reconnect_attempts"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval" toml:"reconnect_interval"`
	WriteTimeout      time.Duration `yaml:"write_timeout" toml:"write_timeout"`
	PingInterval      time.Duration `yaml:"ping_interval" toml:"ping_interval"`
	PingTimeout       time.Duration `yaml:"ping_timeout" toml:"ping_timeout"`
	BufferSize        int           `yaml:"buffer_size" toml:"buffer_size"`
}

// SessionConfig holds Chat Session settings.
type SessionConfig struct {
	ResponseTimeout time.Duration `yaml:"response_timeout" toml:"response_timeout"`
	UserID          string        `yaml:"user_id" toml:"user_id"`     // Usually ${JOURNAL_USER_ID}
	SendRate        float64       `yaml:"send_rate" toml:"send_rate"` // Messages per second, 0 = unlimited
	SendBurst       int           `yaml:"send_burst" toml:"send_burst"`
}

// LoggingConfig holds slog handler settings.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`  // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // text or json
}
