// journalchat is a terminal front end for the journal chat service. Each
// input line is sent as one chat turn; replies are printed as they arrive,
// possibly out of order.
//
// Usage: go run ./cmd/journalchat --config configs/journalchat.example.yaml --user me
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rickgao/journal-chat/internal/chat"
	"github.com/rickgao/journal-chat/internal/config"
	"github.com/rickgao/journal-chat/internal/connection"
	"github.com/rickgao/journal-chat/internal/correlator"
	"github.com/rickgao/journal-chat/internal/transport"
	"github.com/rickgao/journal-chat/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	userID := flag.String("user", "", "user id (overrides session.user_id)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *userID != "" {
		cfg.Session.UserID = *userID
	}
	if cfg.Session.UserID == "" {
		fmt.Fprintln(os.Stderr, "a user id is required (--user or session.user_id)")
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("starting journalchat",
		"version", version.Version,
		"commit", version.Commit,
		"environment", cfg.Environment,
		"endpoint", cfg.Endpoint(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	dialer := transport.NewWebSocketDialer(cfg.WebSocketConfig(), logger.With("component", "transport"))
	manager := connection.NewManager(cfg.ManagerConfig(), dialer, logger)
	session := chat.NewSession(cfg.SessionConfig(), manager, logger, chat.WithEventHook(banner))
	defer session.Close()

	// Validate connectivity up front without creating a chat turn.
	if _, err := session.SendMessage(ctx, "", cfg.Session.UserID); err != nil {
		logger.Warn("initial connection failed, will retry on first message", "error", err)
	}

	run(ctx, session, cfg.Session.UserID)

	logger.Info("shutting down", "pending", session.Pending())
}

func loadConfig(path string) (*config.ChatConfig, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.LoadAndValidate(path)
}

func newLogger(cfg *config.ChatConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.EqualFold(cfg.Logging.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// banner reflects session-level connectivity.
func banner(ev connection.Event) {
	switch ev.Type {
	case connection.EventOpen:
		fmt.Println("-- connected")
	case connection.EventClose:
		if ev.Err != nil {
			fmt.Println("-- connection lost, reconnecting...")
		}
	case connection.EventError:
		fmt.Printf("-- connection problem: %v\n", ev.Err)
	}
}

// run reads lines until EOF or ctx is done. Every line is sent on its own
// goroutine so a slow reply never blocks the next entry.
func run(ctx context.Context, session *chat.Session, userID string) {
	var (
		wg  sync.WaitGroup
		out sync.Mutex
		seq atomic.Int64
	)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case line, ok := <-lines:
			if !ok {
				wg.Wait()
				return
			}
			if strings.TrimSpace(line) == "" {
				continue
			}

			n := seq.Add(1)
			out.Lock()
			fmt.Printf("[%d] sending...\n", n)
			out.Unlock()

			wg.Add(1)
			go func() {
				defer wg.Done()
				start := time.Now()
				resp, err := session.SendMessage(ctx, line, userID)

				out.Lock()
				defer out.Unlock()
				if err != nil {
					fmt.Printf("[%d] failed: %s\n", n, describe(err))
					return
				}
				fmt.Printf("[%d] (%s) %s\n", n, time.Since(start).Round(time.Millisecond), resp.Message)
			}()
		}
	}
}

// describe turns an error into a short per-message status.
func describe(err error) string {
	var (
		cerr *connection.ConnectionError
		terr *correlator.RequestTimeoutError
		ferr *chat.SendFailedError
	)
	switch {
	case errors.As(err, &terr):
		return "no reply within " + terr.Timeout.String()
	case errors.As(err, &cerr):
		return fmt.Sprintf("could not reach chat service after %d attempt(s)", cerr.Attempts)
	case errors.As(err, &ferr):
		return "not sent: " + ferr.Err.Error()
	case errors.Is(err, correlator.ErrCancelled):
		return "cancelled"
	}
	return err.Error()
}
