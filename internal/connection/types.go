package connection

import (
	"errors"
	"fmt"
	"time"

	"github.com/rickgao/journal-chat/internal/transport"
)

// Errors
var (
	ErrNotConnected     = transport.ErrNotConnected
	ErrConnectTimeout   = errors.New("connect timeout")
	ErrConnectionClosed = errors.New("connection closed")
)

// State is the lifecycle state of the managed connection.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// EventType identifies a lifecycle or data event.
type EventType int

const (
	EventOpen EventType = iota + 1
	EventMessage
	EventError
	EventClose
)

func (t EventType) String() string {
	switch t {
	case EventOpen:
		return "open"
	case EventMessage:
		return "message"
	case EventError:
		return "error"
	case EventClose:
		return "close"
	}
	return fmt.Sprintf("event(%d)", int(t))
}

// Event is published on Manager.Events.
type Event struct {
	Type       EventType
	Data       []byte    // EventMessage only
	ReceivedAt time.Time // EventMessage only
	Err        error     // EventError, and EventClose when unexpected
}

// ConnectionError is returned to Connect callers once a connect cycle has
// given up.
type ConnectionError struct {
	Endpoint string
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s failed after %d attempt(s): %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// SendError is returned by Send when the connection is not open or the
// transport write fails. It is never retried.
type SendError struct {
	State State
	Err   error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send while %s: %v", e.State, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Config configures the Connection Manager.
type Config struct {
	ConnectTimeout    time.Duration // Per-dial deadline
	ReconnectAttempts int           // Max dials since the last successful open
	ReconnectInterval time.Duration // Fixed wait between dials
	EventBufferSize   int           // Buffer size for the events channel
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:    5 * time.Second,
		ReconnectAttempts: 5,
		ReconnectInterval: 5 * time.Second,
		EventBufferSize:   256,
	}
}
