// Package echo is a development stand-in for the chat service. It answers
// every chat_message with a reply carrying the same id, after a random delay,
// so replies to concurrent requests arrive out of order.
package echo

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/journal-chat/internal/wire"
)

// Config controls reply timing.
type Config struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	Prefix   string // prepended to echoed text
}

// DefaultConfig returns delays small enough for interactive use.
func DefaultConfig() Config {
	return Config{
		MinDelay: 50 * time.Millisecond,
		MaxDelay: 750 * time.Millisecond,
		Prefix:   "echo: ",
	}
}

// Handler upgrades requests and echoes chat messages.
type Handler struct {
	cfg      Config
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(cfg Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	return &Handler{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With("component", "echo"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	h.logger.Info("client connected", "remote", r.RemoteAddr, "user_agent", r.UserAgent())

	var (
		writeMu sync.Mutex
		wg      sync.WaitGroup
	)
	defer wg.Wait()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("read error", "remote", r.RemoteAddr, "error", err)
			}
			h.logger.Info("client disconnected", "remote", r.RemoteAddr)
			return
		}

		var env wire.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Kind != wire.KindChatMessage || env.Payload.ID == "" {
			h.logger.Debug("ignoring frame", "size", len(data))
			continue
		}

		wg.Add(1)
		go func(req wire.Envelope) {
			defer wg.Done()
			time.Sleep(h.delay())

			reply := wire.Envelope{
				Kind: wire.KindChatMessage,
				Payload: wire.Payload{
					ID:        req.Payload.ID,
					Message:   h.cfg.Prefix + req.Payload.Message,
					Timestamp: wire.FormatTimestamp(time.Now()),
				},
			}
			out, err := wire.Encode(reply)
			if err != nil {
				h.logger.Error("encode reply", "id", req.Payload.ID, "error", err)
				return
			}

			writeMu.Lock()
			defer writeMu.Unlock()
			if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
				h.logger.Debug("write reply", "id", req.Payload.ID, "error", err)
			}
		}(env)
	}
}

func (h *Handler) delay() time.Duration {
	span := h.cfg.MaxDelay - h.cfg.MinDelay
	if span <= 0 {
		return h.cfg.MinDelay
	}
	return h.cfg.MinDelay + rand.N(span)
}
