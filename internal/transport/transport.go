package transport

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// Dialer opens connections to a fixed endpoint.
type Dialer interface {
	// Dial opens a new connection. It must honour ctx cancellation.
	Dial(ctx context.Context) (Conn, error)

	// Endpoint returns the target URL, for logging.
	Endpoint() string
}

// Conn is one open full-duplex connection.
type Conn interface {
	// Send writes one text frame.
	Send(data []byte) error

	// Close gracefully closes the connection. Safe to call more than once.
	Close() error

	// Messages returns a channel of inbound frames.
	Messages() <-chan TimestampedMessage

	// Errors delivers at most one terminal error (read failure, remote close,
	// stale keepalive). Nothing is sent after Close.
	Errors() <-chan error

	// Done is closed once Close has been called.
	Done() <-chan struct{}
}

// TimestampedMessage wraps raw frame data with its receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw frame bytes
	ReceivedAt time.Time // Local timestamp when the read returned
}

// WebSocketConfig configures the gorilla WebSocket transport.
type WebSocketConfig struct {
	URL              string        // e.g. ws://localhost:3030/chat
	UserAgent        string        // Sent as User-Agent on the handshake
	HandshakeTimeout time.Duration // Upper bound for the HTTP upgrade
	PingInterval     time.Duration // Client ping cadence (0 disables)
	PingTimeout      time.Duration // Max time without ping/pong before the conn is stale
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Inbound channel buffer size
}

// DefaultWebSocketConfig returns sensible defaults.
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      90 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       256,
	}
}
