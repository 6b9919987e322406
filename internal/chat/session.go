package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/rickgao/journal-chat/internal/connection"
	"github.com/rickgao/journal-chat/internal/correlator"
	"github.com/rickgao/journal-chat/internal/wire"
)

// Session is the public entry point for chat traffic.
type Session struct {
	cfg     Config
	conn    connection.Manager
	pending *correlator.Correlator
	limiter *rate.Limiter // nil when unthrottled
	logger  *slog.Logger

	newID   func() string
	now     func() time.Time
	onEvent func(connection.Event)

	cleanupMu sync.Mutex
	cleaning  atomic.Bool

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Option configures a Session.
type Option func(*Session)

// WithIDGenerator overrides the correlation id source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Session) {
		s.newID = fn
	}
}

// WithClock overrides the timestamp source for outbound envelopes.
func WithClock(fn func() time.Time) Option {
	return func(s *Session) {
		s.now = fn
	}
}

// WithEventHook registers fn for open, error and close events. It runs on
// the dispatcher goroutine and must not block.
func WithEventHook(fn func(connection.Event)) Option {
	return func(s *Session) {
		s.onEvent = fn
	}
}

// NewSession creates a Session over conn and starts its event dispatcher.
// Call Close to stop it.
func NewSession(cfg Config, conn connection.Manager, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ResponseTimeout <= 0 {
		cfg.ResponseTimeout = DefaultConfig().ResponseTimeout
	}

	s := &Session{
		cfg:     cfg,
		conn:    conn,
		pending: correlator.New(logger.With("component", "correlator")),
		logger:  logger.With("component", "chat"),
		newID:   uuid.NewString,
		now:     time.Now,
		done:    make(chan struct{}),
	}

	if cfg.SendRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.SendRate), max(cfg.SendBurst, 1))
	}

	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.dispatch()

	return s
}

// SendMessage sends one chat turn and waits for its correlated response.
//
// A blank message only validates connectivity: once the connection is open
// it returns a probe acknowledgment without sending anything. Failures are
// per message; they never affect other in-flight calls.
func (s *Session) SendMessage(ctx context.Context, message, userID string) (*Response, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}

	if err := s.conn.Connect(ctx); err != nil {
		return nil, err
	}
	if err := s.usable(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(message) == "" {
		s.logger.Debug("connection probe acknowledged")
		return &Response{ID: ProbeID, Probe: true}, nil
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for send slot: %w", err)
		}
	}

	id := s.newID()
	data, err := wire.Encode(wire.NewChatMessage(id, message, userID, s.now()))
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	results, err := s.pending.Register(id, s.cfg.ResponseTimeout)
	if err != nil {
		return nil, fmt.Errorf("register message %s: %w", id, err)
	}

	if err := s.conn.Send(data); err != nil {
		s.pending.Remove(id)
		s.logger.Warn("failed to send message", "id", id, "error", err)
		return nil, &SendFailedError{ID: id, Err: err}
	}
	s.logger.Debug("message sent", "id", id, "user_id", userID)

	select {
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		return s.toResponse(res.Envelope), nil
	case <-ctx.Done():
		s.pending.Remove(id)
		return nil, ctx.Err()
	}
}

// Cleanup closes the connection without reconnecting and cancels every
// pending request. It is safe to call repeatedly; the session can be used
// again afterwards.
func (s *Session) Cleanup() {
	s.cleanupMu.Lock()
	defer s.cleanupMu.Unlock()

	s.cleaning.Store(true)
	defer s.cleaning.Store(false)

	s.logger.Info("starting cleanup")

	if err := s.conn.Close(); err != nil {
		s.logger.Warn("error closing connection", "error", err)
	}
	n := s.pending.ClearAll(ErrSessionCleanup)

	s.logger.Info("cleanup complete", "cancelled", n)
}

// Close runs Cleanup and stops the dispatcher. Later SendMessage calls
// return ErrSessionClosed.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.Cleanup()
		s.wg.Wait()
	})
	return nil
}

// Status returns the connection state, for connectivity banners.
func (s *Session) Status() connection.State {
	return s.conn.State()
}

// Pending returns the number of requests awaiting a response.
func (s *Session) Pending() int {
	return s.pending.Pending()
}

func (s *Session) usable() error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	if s.cleaning.Load() {
		return ErrCleanupInProgress
	}
	return nil
}

// dispatch consumes connection events until Close.
func (s *Session) dispatch() {
	defer s.wg.Done()

	events := s.conn.Events()
	for {
		select {
		case <-s.done:
			return
		case ev := <-events:
			s.handleEvent(ev)
		}
	}
}

func (s *Session) handleEvent(ev connection.Event) {
	if ev.Type != connection.EventMessage {
		if ev.Err != nil {
			s.logger.Debug("connection event", "type", ev.Type, "error", ev.Err)
		}
		if s.onEvent != nil {
			s.onEvent(ev)
		}
		return
	}

	env, err := wire.Decode(ev.Data)
	if err != nil {
		var perr *wire.ProtocolError
		if errors.As(err, &perr) {
			s.logger.Warn("dropping inbound frame", "reason", perr.Reason, "error", perr.Err)
		}
		return
	}

	s.pending.Deliver(env)
}

func (s *Session) toResponse(env wire.Envelope) *Response {
	resp := &Response{
		ID:         env.Payload.ID,
		Message:    env.Payload.Message,
		ReceivedAt: s.now(),
	}
	if ts, ok := env.Payload.Time(); ok {
		resp.Timestamp = ts
	}
	return resp
}
