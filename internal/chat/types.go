package chat

import (
	"errors"
	"fmt"
	"time"
)

// ProbeID is the id of the synthetic acknowledgment returned for a blank
// message.
const ProbeID = "connection-test"

// Errors
var (
	ErrCleanupInProgress = errors.New("session cleanup in progress")
	ErrSessionCleanup    = errors.New("session cleaned up")
	ErrSessionClosed     = errors.New("session closed")
)

// Response is the reply to one chat turn.
type Response struct {
	ID         string
	Message    string
	Timestamp  time.Time // Server timestamp, zero if absent or unparseable
	ReceivedAt time.Time // Local receive time, zero for probes
	Probe      bool      // True for the synthetic connectivity acknowledgment
}

// SendFailedError is returned when the envelope could not be written.
type SendFailedError struct {
	ID  string
	Err error
}

func (e *SendFailedError) Error() string {
	return fmt.Sprintf("send message %s: %v", e.ID, e.Err)
}

func (e *SendFailedError) Unwrap() error {
	return e.Err
}

// Config configures a Session.
type Config struct {
	ResponseTimeout time.Duration // Per-request response deadline
	SendRate        float64       // Outbound messages per second, 0 = unlimited
	SendBurst       int           // Limiter burst, at least 1 when SendRate > 0
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ResponseTimeout: 30 * time.Second,
	}
}
