package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/singleflight"

	"github.com/rickgao/journal-chat/internal/transport"
)

// connectKey names the single in-flight connect slot.
const connectKey = "connect"

// Manager owns one connection to the chat endpoint.
type Manager interface {
	// Connect returns once the connection is open. Concurrent callers share
	// one in-flight attempt. Returns *ConnectionError when the retry policy
	// is exhausted or the attempt is cancelled by Close.
	Connect(ctx context.Context) error

	// Send writes one frame. Returns *SendError unless the state is Open.
	Send(data []byte) error

	// Close tears the connection down and suppresses reconnection until
	// the next Connect.
	Close() error

	// State returns the current lifecycle state.
	State() State

	// Attempts returns the number of dials since the last successful open.
	Attempts() int

	// Events returns the channel of lifecycle and data events.
	Events() <-chan Event
}

// manager implements the Manager interface.
type manager struct {
	cfg    Config
	dialer transport.Dialer
	logger *slog.Logger

	events chan Event
	group  singleflight.Group

	mu          sync.Mutex
	state       State
	conn        transport.Conn
	attempts    int
	intentional bool               // Set by Close, cleared by Connect
	gen         uint64             // Bumped per cycle and by Close
	cycleCancel context.CancelFunc // Cancels the running cycle
}

// NewManager creates a Connection Manager. No connection is opened until
// Connect is called.
func NewManager(cfg Config, dialer transport.Dialer, logger *slog.Logger) Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.EventBufferSize <= 0 {
		cfg.EventBufferSize = DefaultConfig().EventBufferSize
	}

	return &manager{
		cfg:    cfg,
		dialer: dialer,
		logger: logger.With("component", "connection", "endpoint", dialer.Endpoint()),
		events: make(chan Event, cfg.EventBufferSize),
		state:  StateClosed,
	}
}

// Connect opens the connection or joins the attempt already in flight.
func (m *manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateOpen {
		m.mu.Unlock()
		return nil
	}
	m.intentional = false
	m.mu.Unlock()

	ch := m.group.DoChan(connectKey, func() (interface{}, error) {
		return nil, m.runCycle(false)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Shared {
			m.logger.Debug("joined in-flight connect attempt")
		}
		return res.Err
	}
}

// Send writes data to the open connection.
func (m *manager) Send(data []byte) error {
	m.mu.Lock()
	state, conn := m.state, m.conn
	m.mu.Unlock()

	if state != StateOpen || conn == nil {
		return &SendError{State: state, Err: ErrNotConnected}
	}
	if err := conn.Send(data); err != nil {
		return &SendError{State: state, Err: err}
	}
	return nil
}

// Close shuts the connection down and cancels any connect cycle.
func (m *manager) Close() error {
	m.mu.Lock()
	m.intentional = true
	m.gen++
	cancel := m.cycleCancel
	m.cycleCancel = nil
	conn := m.conn
	m.conn = nil
	prev := m.state
	m.state = StateClosed
	m.mu.Unlock()

	// A later Connect must start fresh rather than join the cancelled cycle.
	m.group.Forget(connectKey)
	if cancel != nil {
		cancel()
	}

	if conn == nil {
		if prev != StateClosed {
			m.logger.Info("connect attempt cancelled", "state", prev)
		}
		return nil
	}

	err := conn.Close()
	m.emit(Event{Type: EventClose})
	m.logger.Info("connection closed")
	return err
}

// State returns the current lifecycle state.
func (m *manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempts returns the number of dials since the last successful open.
func (m *manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Events returns the event channel.
func (m *manager) Events() <-chan Event {
	return m.events
}

// runCycle dials until success, exhaustion of the attempt budget, or
// cancellation. When delayFirst is set the first dial waits one interval,
// which is how an unexpected drop is retried.
func (m *manager) runCycle(delayFirst bool) error {
	m.mu.Lock()
	if m.state == StateOpen {
		m.mu.Unlock()
		return nil
	}
	if delayFirst && m.intentional {
		attempts := m.attempts
		m.mu.Unlock()
		return m.connectionError(attempts, ErrConnectionClosed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.gen++
	gen := m.gen
	m.cycleCancel = cancel
	m.state = StateConnecting

	// An explicit Connect always gets at least one dial.
	budget := m.cfg.ReconnectAttempts - m.attempts
	if budget < 1 {
		budget = 1
	}
	m.mu.Unlock()
	defer cancel()

	if delayFirst {
		m.logger.Info("scheduling reconnection",
			"attempt", m.Attempts()+1,
			"max_attempts", m.cfg.ReconnectAttempts,
			"in", m.cfg.ReconnectInterval,
		)
		timer := time.NewTimer(m.cfg.ReconnectInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return m.failCycle(gen, ErrConnectionClosed)
		case <-timer.C:
		}
	}

	var lastErr error
	err := retry.Do(
		func() error {
			conn, err := m.dialOnce(ctx)
			if err != nil {
				lastErr = err
				if ctx.Err() != nil {
					return retry.Unrecoverable(err)
				}
				return err
			}
			if !m.install(gen, conn) {
				conn.Close()
				lastErr = ErrConnectionClosed
				return retry.Unrecoverable(lastErr)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(budget)),
		retry.Delay(m.cfg.ReconnectInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			m.logger.Debug("connect attempt failed", "try", n+1, "budget", budget, "error", err)
		}),
	)
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		lastErr = ErrConnectionClosed
	}
	if lastErr == nil {
		lastErr = err
	}
	return m.failCycle(gen, lastErr)
}

// dialOnce performs one counted dial under the connect timeout.
func (m *manager) dialOnce(ctx context.Context) (transport.Conn, error) {
	m.mu.Lock()
	m.attempts++
	attempt := m.attempts
	m.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	m.logger.Debug("dialing", "attempt", attempt)

	conn, err := m.dialer.Dial(dialCtx)
	if err == nil {
		return conn, nil
	}

	if ctx.Err() != nil {
		return nil, ErrConnectionClosed
	}
	if errors.Is(dialCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s", ErrConnectTimeout, m.cfg.ConnectTimeout)
	}

	m.logger.Warn("connect attempt failed",
		"attempt", attempt,
		"max_attempts", m.cfg.ReconnectAttempts,
		"error", err,
	)
	m.emit(Event{Type: EventError, Err: err})
	return nil, err
}

// install makes conn the live connection, unless the cycle that dialed it
// has been superseded.
func (m *manager) install(gen uint64, conn transport.Conn) bool {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return false
	}
	m.conn = conn
	m.state = StateOpen
	m.attempts = 0
	m.cycleCancel = nil
	m.mu.Unlock()

	m.logger.Info("connection opened")
	m.emit(Event{Type: EventOpen})

	go m.pump(conn)
	return true
}

// failCycle marks the cycle as given up and builds the caller's error.
func (m *manager) failCycle(gen uint64, err error) error {
	m.mu.Lock()
	if gen == m.gen {
		m.state = StateClosed
		m.cycleCancel = nil
	}
	attempts := m.attempts
	m.mu.Unlock()

	m.logger.Warn("giving up on connection",
		"attempts", attempts,
		"max_attempts", m.cfg.ReconnectAttempts,
		"error", err,
	)
	return m.connectionError(attempts, err)
}

func (m *manager) connectionError(attempts int, err error) error {
	return &ConnectionError{
		Endpoint: m.dialer.Endpoint(),
		Attempts: attempts,
		Err:      err,
	}
}

// pump forwards frames from conn until it closes or fails.
func (m *manager) pump(conn transport.Conn) {
	for {
		select {
		case <-conn.Done():
			return

		case msg := <-conn.Messages():
			m.emit(Event{Type: EventMessage, Data: msg.Data, ReceivedAt: msg.ReceivedAt})

		case err := <-conn.Errors():
			// Frames read before the failure are still deliverable.
			for drained := false; !drained; {
				select {
				case msg := <-conn.Messages():
					m.emit(Event{Type: EventMessage, Data: msg.Data, ReceivedAt: msg.ReceivedAt})
				default:
					drained = true
				}
			}
			m.handleDrop(conn, err)
			return
		}
	}
}

// handleDrop reacts to a connection failure not caused by Close.
func (m *manager) handleDrop(conn transport.Conn, cause error) {
	m.mu.Lock()
	if m.conn != conn {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.state = StateClosed
	intentional := m.intentional
	attempts := m.attempts
	m.mu.Unlock()

	conn.Close()

	m.logger.Warn("connection closed unexpectedly",
		"error", cause,
		"attempts", attempts,
		"max_attempts", m.cfg.ReconnectAttempts,
	)
	m.emit(Event{Type: EventClose, Err: cause})

	if intentional || attempts >= m.cfg.ReconnectAttempts {
		return
	}

	go m.group.Do(connectKey, func() (interface{}, error) {
		return nil, m.runCycle(true)
	})
}

// emit publishes ev without blocking.
func (m *manager) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		m.logger.Warn("event buffer full, dropping event", "type", ev.Type)
	}
}
