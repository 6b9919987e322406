// Package transporttest provides in-memory transport fakes for tests.
package transporttest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rickgao/journal-chat/internal/transport"
)

// ErrDialRefused is the default failure returned by a refusing Dialer.
var ErrDialRefused = errors.New("dial refused")

// DialFunc decides the outcome of one dial. Returning a nil error yields a
// fresh Conn. The attempt number is 1-based.
type DialFunc func(ctx context.Context, attempt int) error

// Dialer is a scripted transport.Dialer. The zero value is not usable; use
// NewDialer.
type Dialer struct {
	mu       sync.Mutex
	endpoint string
	dialFn   DialFunc
	dials    []time.Time
	conns    []*Conn
	notify   chan *Conn
}

// NewDialer returns a Dialer whose dials all succeed.
func NewDialer() *Dialer {
	return &Dialer{
		endpoint: "fake://chat",
		notify:   make(chan *Conn, 64),
	}
}

// SetDialFunc replaces the dial policy.
func (d *Dialer) SetDialFunc(fn DialFunc) {
	d.mu.Lock()
	d.dialFn = fn
	d.mu.Unlock()
}

// Refuse makes every dial fail immediately with ErrDialRefused.
func (d *Dialer) Refuse() {
	d.SetDialFunc(func(context.Context, int) error { return ErrDialRefused })
}

// Hang makes every dial block until its context expires, which models a
// connect timeout.
func (d *Dialer) Hang() {
	d.SetDialFunc(func(ctx context.Context, _ int) error {
		<-ctx.Done()
		return ctx.Err()
	})
}

// Accept restores the default policy of successful dials.
func (d *Dialer) Accept() {
	d.SetDialFunc(nil)
}

// Endpoint returns a fixed fake URL.
func (d *Dialer) Endpoint() string {
	return d.endpoint
}

// Dial records the attempt and applies the dial policy.
func (d *Dialer) Dial(ctx context.Context) (transport.Conn, error) {
	d.mu.Lock()
	d.dials = append(d.dials, time.Now())
	attempt := len(d.dials)
	fn := d.dialFn
	d.mu.Unlock()

	if fn != nil {
		if err := fn(ctx, attempt); err != nil {
			return nil, err
		}
	}

	c := NewConn()
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()

	select {
	case d.notify <- c:
	default:
	}
	return c, nil
}

// Dials returns the timestamps of every dial attempt so far.
func (d *Dialer) Dials() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]time.Time, len(d.dials))
	copy(out, d.dials)
	return out
}

// DialCount returns the number of dial attempts so far.
func (d *Dialer) DialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dials)
}

// Last returns the most recently opened connection, or nil.
func (d *Dialer) Last() *Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// Opened delivers each successfully opened connection.
func (d *Dialer) Opened() <-chan *Conn {
	return d.notify
}

// Conn is an in-memory transport.Conn.
type Conn struct {
	mu      sync.Mutex
	sent    [][]byte
	sendErr error
	closed  bool

	outbound chan []byte
	messages chan transport.TimestampedMessage
	errors   chan error
	done     chan struct{}
}

// NewConn returns an open fake connection.
func NewConn() *Conn {
	return &Conn{
		outbound: make(chan []byte, 256),
		messages: make(chan transport.TimestampedMessage, 256),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// Send records data, or fails with the injected error.
func (c *Conn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return transport.ErrNotConnected
	}
	if c.sendErr != nil {
		return c.sendErr
	}
	cp := append([]byte(nil), data...)
	c.sent = append(c.sent, cp)
	select {
	case c.outbound <- cp:
	default:
	}
	return nil
}

// Close marks the connection closed.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	return nil
}

// Messages returns inbound frames pushed with Deliver.
func (c *Conn) Messages() <-chan transport.TimestampedMessage {
	return c.messages
}

// Errors returns the terminal error pushed with Drop.
func (c *Conn) Errors() <-chan error {
	return c.errors
}

// Done is closed by Close.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Deliver pushes an inbound frame as if the remote had sent it.
func (c *Conn) Deliver(data []byte) {
	c.messages <- transport.TimestampedMessage{Data: data, ReceivedAt: time.Now()}
}

// Drop simulates a remote close or transport failure.
func (c *Conn) Drop(err error) {
	select {
	case c.errors <- err:
	default:
	}
}

// FailSends makes every later Send return err.
func (c *Conn) FailSends(err error) {
	c.mu.Lock()
	c.sendErr = err
	c.mu.Unlock()
}

// Sent returns a copy of every frame written so far.
func (c *Conn) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

// Outbound delivers each frame as it is written.
func (c *Conn) Outbound() <-chan []byte {
	return c.outbound
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
