package correlator

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/journal-chat/internal/wire"
)

// Result is the single outcome of a registered request.
type Result struct {
	Envelope wire.Envelope // Set on success
	Err      error         // *RequestTimeoutError, *CancelledError
}

// pendingRequest is one outstanding exchange.
type pendingRequest struct {
	id        string
	createdAt time.Time
	timeout   time.Duration
	timer     *time.Timer
	result    chan Result // Buffered(1); written exactly once
}

// Correlator matches inbound envelopes to outstanding requests.
type Correlator struct {
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingRequest
}

// New creates an empty Correlator.
func New(logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Correlator{
		logger:  logger,
		pending: make(map[string]*pendingRequest),
	}
}

// Register records a pending request and starts its timeout timer. The
// returned channel receives exactly one Result.
func (c *Correlator) Register(id string, timeout time.Duration) (<-chan Result, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.pending[id]; exists {
		return nil, ErrDuplicateID
	}

	p := &pendingRequest{
		id:        id,
		createdAt: time.Now(),
		timeout:   timeout,
		result:    make(chan Result, 1),
	}
	p.timer = time.AfterFunc(timeout, func() {
		if c.settle(id, p, Result{Err: &RequestTimeoutError{ID: id, Timeout: timeout}}) {
			c.logger.Warn("request timed out", "id", id, "timeout", timeout)
		}
	})
	c.pending[id] = p

	return p.result, nil
}

// Deliver routes env to its pending request. It returns false when no
// request with that id is outstanding; the envelope is then discarded.
func (c *Correlator) Deliver(env wire.Envelope) bool {
	id := env.Payload.ID

	c.mu.Lock()
	p, ok := c.pending[id]
	c.mu.Unlock()

	if !ok || !c.settle(id, p, Result{Envelope: env}) {
		c.logger.Debug("no pending request for response", "id", id)
		return false
	}

	c.logger.Debug("response routed",
		"id", id,
		"latency", time.Since(p.createdAt),
	)
	return true
}

// Remove drops a pending request without settling it. Used when the
// request never made it onto the wire. Removing an unknown id is a no-op.
func (c *Correlator) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[id]
	if !ok {
		return false
	}
	delete(c.pending, id)
	p.timer.Stop()
	return true
}

// ClearAll settles every pending request with a *CancelledError wrapping
// reason and stops all timers. It returns the number of requests cleared.
func (c *Correlator) ClearAll(reason error) int {
	c.mu.Lock()
	cleared := c.pending
	c.pending = make(map[string]*pendingRequest)
	for _, p := range cleared {
		p.timer.Stop()
	}
	c.mu.Unlock()

	for id, p := range cleared {
		p.result <- Result{Err: &CancelledError{ID: id, Reason: reason}}
	}

	if len(cleared) > 0 {
		c.logger.Info("cleared pending requests", "count", len(cleared), "reason", reason)
	}
	return len(cleared)
}

// Pending returns the number of outstanding requests.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// settle removes p and publishes res, unless p was already removed.
// Comparing the pointer keeps a stale timer from settling a newer request
// registered under the same id.
func (c *Correlator) settle(id string, p *pendingRequest, res Result) bool {
	c.mu.Lock()
	cur, ok := c.pending[id]
	if !ok || cur != p {
		c.mu.Unlock()
		return false
	}
	delete(c.pending, id)
	p.timer.Stop()
	c.mu.Unlock()

	p.result <- res
	return true
}
