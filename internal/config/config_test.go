package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
environment: production
endpoints:
  development: ws://localhost:3030/chat
  production: wss://journal.example.com/chat
connection:
  connect_timeout: 2s
  reconnect_attempts: 3
  reconnect_interval: 1500ms
session:
  response_timeout: 45s
  user_id: user-42
logging:
  level: debug
  format: json
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Environment != "production" {
		t.Errorf("Environment = %q, want production", cfg.Environment)
	}
	if cfg.Endpoint() != "wss://journal.example.com/chat" {
		t.Errorf("Endpoint() = %q, want %q", cfg.Endpoint(), "wss://journal.example.com/chat")
	}
	if cfg.Connection.ConnectTimeout != 2*time.Second {
		t.Errorf("Connection.ConnectTimeout = %v, want 2s", cfg.Connection.ConnectTimeout)
	}
	if cfg.Connection.ReconnectInterval != 1500*time.Millisecond {
		t.Errorf("Connection.ReconnectInterval = %v, want 1.5s", cfg.Connection.ReconnectInterval)
	}
	if cfg.Session.UserID != "user-42" {
		t.Errorf("Session.UserID = %q, want user-42", cfg.Session.UserID)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want debug", cfg.SlogLevel())
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_CHAT_URL", "wss://staging.example.com/chat")
	t.Setenv("TEST_USER_ID", "user-from-env")

	yaml := `
environment: staging
endpoints:
  staging: ${TEST_CHAT_URL}
session:
  user_id: ${TEST_USER_ID}
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}

	if cfg.Endpoint() != "wss://staging.example.com/chat" {
		t.Errorf("Endpoint() = %q", cfg.Endpoint())
	}
	if cfg.Session.UserID != "user-from-env" {
		t.Errorf("Session.UserID = %q, want user-from-env", cfg.Session.UserID)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, "logging:\n  level: warn\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Environment != DefaultEnvironment {
		t.Errorf("Environment = %q, want default %q", cfg.Environment, DefaultEnvironment)
	}
	if cfg.Endpoint() != DefaultDevelopmentURL {
		t.Errorf("Endpoint() = %q, want default %q", cfg.Endpoint(), DefaultDevelopmentURL)
	}
	if cfg.Connection.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("Connection.ConnectTimeout = %v, want default %v", cfg.Connection.ConnectTimeout, DefaultConnectTimeout)
	}
	if cfg.Connection.ReconnectAttempts != DefaultReconnectAttempts {
		t.Errorf("Connection.ReconnectAttempts = %d, want default %d", cfg.Connection.ReconnectAttempts, DefaultReconnectAttempts)
	}
	if cfg.Connection.ReconnectInterval != DefaultReconnectInterval {
		t.Errorf("Connection.ReconnectInterval = %v, want default %v", cfg.Connection.ReconnectInterval, DefaultReconnectInterval)
	}
	if cfg.Session.ResponseTimeout != DefaultResponseTimeout {
		t.Errorf("Session.ResponseTimeout = %v, want default %v", cfg.Session.ResponseTimeout, DefaultResponseTimeout)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn (explicit value kept)", cfg.Logging.Level)
	}
	if cfg.Logging.Format != DefaultLogFormat {
		t.Errorf("Logging.Format = %q, want default %q", cfg.Logging.Format, DefaultLogFormat)
	}
}

func TestLoadTOML(t *testing.T) {
	t.Setenv("TEST_USER_ID", "toml-user")

	data := `
environment = "development"

[endpoints]
development = "ws://127.0.0.1:4000/chat"

[connection]
connect_timeout = "3s"
reconnect_attempts = 2

[session]
user_id = "${TEST_USER_ID}"
send_rate = 2.5
send_burst = 4
`
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}

	if cfg.Endpoint() != "ws://127.0.0.1:4000/chat" {
		t.Errorf("Endpoint() = %q", cfg.Endpoint())
	}
	if cfg.Connection.ConnectTimeout != 3*time.Second {
		t.Errorf("Connection.ConnectTimeout = %v, want 3s", cfg.Connection.ConnectTimeout)
	}
	if cfg.Connection.ReconnectAttempts != 2 {
		t.Errorf("Connection.ReconnectAttempts = %d, want 2", cfg.Connection.ReconnectAttempts)
	}
	if cfg.Connection.ReconnectInterval != DefaultReconnectInterval {
		t.Errorf("Connection.ReconnectInterval = %v, want default", cfg.Connection.ReconnectInterval)
	}
	if cfg.Session.UserID != "toml-user" {
		t.Errorf("Session.UserID = %q, want toml-user", cfg.Session.UserID)
	}
	if sc := cfg.SessionConfig(); sc.SendRate != 2.5 || sc.SendBurst != 4 {
		t.Errorf("SessionConfig() rate = %v burst = %d", sc.SendRate, sc.SendBurst)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("connection: [unterminated")); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *ChatConfig {
		return Default()
	}

	tests := []struct {
		name    string
		mutate  func(*ChatConfig)
		wantErr string
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*ChatConfig) {},
			wantErr: "",
		},
		{
			name:    "missing endpoint for environment",
			mutate:  func(c *ChatConfig) { c.Environment = EnvProduction },
			wantErr: "endpoints.production is required",
		},
		{
			name: "non websocket scheme",
			mutate: func(c *ChatConfig) {
				c.Endpoints[EnvDevelopment] = "http://localhost:3030/chat"
			},
			wantErr: `endpoints.development must use ws or wss, got "http"`,
		},
		{
			name:    "negative reconnect attempts",
			mutate:  func(c *ChatConfig) { c.Connection.ReconnectAttempts = -1 },
			wantErr: "connection.reconnect_attempts must be >= 1",
		},
		{
			name:    "negative connect timeout",
			mutate:  func(c *ChatConfig) { c.Connection.ConnectTimeout = -time.Second },
			wantErr: "connection.connect_timeout must be > 0",
		},
		{
			name: "ping timeout below interval",
			mutate: func(c *ChatConfig) {
				c.Connection.PingInterval = 30 * time.Second
				c.Connection.PingTimeout = 10 * time.Second
			},
			wantErr: "connection.ping_timeout (10s) cannot be less than ping_interval (30s)",
		},
		{
			name:    "non positive response timeout",
			mutate:  func(c *ChatConfig) { c.Session.ResponseTimeout = -time.Second },
			wantErr: "session.response_timeout must be > 0",
		},
		{
			name:    "negative send rate",
			mutate:  func(c *ChatConfig) { c.Session.SendRate = -1 },
			wantErr: "session.send_rate must be >= 0",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *ChatConfig) { c.Logging.Level = "verbose" },
			wantErr: `logging.level must be one of debug, info, warn, error, got "verbose"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Connection.ReconnectAttempts = 7

	mc := cfg.ManagerConfig()
	if mc.ReconnectAttempts != 7 {
		t.Errorf("ManagerConfig().ReconnectAttempts = %d, want 7", mc.ReconnectAttempts)
	}
	if mc.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("ManagerConfig().ConnectTimeout = %v", mc.ConnectTimeout)
	}

	wc := cfg.WebSocketConfig()
	if wc.URL != DefaultDevelopmentURL {
		t.Errorf("WebSocketConfig().URL = %q", wc.URL)
	}
	if wc.UserAgent == "" {
		t.Error("WebSocketConfig().UserAgent should be set")
	}

	if sc := cfg.SessionConfig(); sc.ResponseTimeout != DefaultResponseTimeout {
		t.Errorf("SessionConfig().ResponseTimeout = %v", sc.ResponseTimeout)
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("SlogLevel() = %v, want info", cfg.SlogLevel())
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
