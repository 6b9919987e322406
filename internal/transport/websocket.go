package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketDialer dials gorilla WebSocket connections.
type WebSocketDialer struct {
	cfg    WebSocketConfig
	logger *slog.Logger
}

// NewWebSocketDialer creates a dialer for cfg.URL.
func NewWebSocketDialer(cfg WebSocketConfig, logger *slog.Logger) *WebSocketDialer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultWebSocketConfig().BufferSize
	}

	return &WebSocketDialer{
		cfg:    cfg,
		logger: logger,
	}
}

// Endpoint returns the configured URL.
func (d *WebSocketDialer) Endpoint() string {
	return d.cfg.URL
}

// Dial establishes the WebSocket connection and starts its read and
// heartbeat loops.
func (d *WebSocketDialer) Dial(ctx context.Context) (Conn, error) {
	header := http.Header{}
	header.Set("Accept", "application/json")
	if d.cfg.UserAgent != "" {
		header.Set("User-Agent", d.cfg.UserAgent)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: d.cfg.HandshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}

	ws, _, err := dialer.DialContext(ctx, d.cfg.URL, header)
	if err != nil {
		return nil, err
	}

	c := &wsConn{
		cfg:        d.cfg,
		logger:     d.logger,
		conn:       ws,
		messages:   make(chan TimestampedMessage, d.cfg.BufferSize),
		errors:     make(chan error, 1),
		done:       make(chan struct{}),
		lastPingAt: time.Now(),
	}

	// Server pings refresh liveness; gorilla writes the pong for us only if
	// we do it here, since we replace the default handler.
	ws.SetPingHandler(func(data string) error {
		c.touch()
		return ws.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})
	ws.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	go c.readLoop()
	if d.cfg.PingInterval > 0 {
		go c.heartbeatLoop()
	}

	d.logger.Debug("websocket connected", "url", d.cfg.URL)

	return c, nil
}

// wsConn implements Conn over a gorilla connection.
type wsConn struct {
	cfg    WebSocketConfig
	logger *slog.Logger

	conn *websocket.Conn

	messages chan TimestampedMessage
	errors   chan error
	done     chan struct{}

	// gorilla allows one concurrent writer.
	writeMu sync.Mutex

	mu         sync.Mutex
	lastPingAt time.Time
	closed     bool
}

func (c *wsConn) touch() {
	c.mu.Lock()
	c.lastPingAt = time.Now()
	c.mu.Unlock()
}

// Send writes one text frame.
func (c *wsConn) Send(data []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and tears the socket down.
func (c *wsConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)

	c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.conn.Close()
}

// Messages returns the inbound channel.
func (c *wsConn) Messages() <-chan TimestampedMessage {
	return c.messages
}

// Errors returns the terminal error channel.
func (c *wsConn) Errors() <-chan error {
	return c.errors
}

// Done is closed by Close.
func (c *wsConn) Done() <-chan struct{} {
	return c.done
}

func (c *wsConn) report(err error) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.errors <- err:
	default:
	}
}

// readLoop pumps frames into the messages channel until the socket fails.
func (c *wsConn) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			c.report(err)
			return
		}

		msg := TimestampedMessage{
			Data:       data,
			ReceivedAt: receivedAt,
		}

		select {
		case c.messages <- msg:
		case <-c.done:
			return
		default:
			c.logger.Warn("message buffer full, dropping message")
		}
	}
}

// heartbeatLoop pings the server and flags the connection stale when
// neither a ping nor a pong arrived within PingTimeout.
func (c *wsConn) heartbeatLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			wait := c.cfg.WriteTimeout
			if wait <= 0 {
				wait = time.Second
			}
			deadline := time.Now().Add(wait)
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}

			c.mu.Lock()
			lastPing := c.lastPingAt
			c.mu.Unlock()

			if c.cfg.PingTimeout > 0 && time.Since(lastPing) > c.cfg.PingTimeout {
				c.logger.Warn("no ping received, connection stale",
					"last_ping", lastPing,
					"timeout", c.cfg.PingTimeout,
				)
				c.report(ErrStaleConnection)
				// Unblocks readLoop; its error is swallowed since errors is full.
				c.conn.Close()
				return
			}
		}
	}
}
