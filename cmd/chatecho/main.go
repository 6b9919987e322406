// chatecho serves a local stand-in for the chat service. Replies echo the
// request text under the same id after a random delay.
// Usage: go run ./cmd/chatecho --addr :3030
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/journal-chat/internal/echo"
)

func main() {
	addr := flag.String("addr", ":3030", "listen address")
	path := flag.String("path", "/chat", "websocket path")
	minDelay := flag.Duration("min-delay", echo.DefaultConfig().MinDelay, "minimum reply delay")
	maxDelay := flag.Duration("max-delay", echo.DefaultConfig().MaxDelay, "maximum reply delay")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg := echo.DefaultConfig()
	cfg.MinDelay = *minDelay
	cfg.MaxDelay = *maxDelay

	mux := http.NewServeMux()
	mux.Handle(*path, echo.NewHandler(cfg, logger))

	server := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown error", "error", err)
		}
	}()

	logger.Info("echo server listening", "addr", *addr, "path", *path)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("echo server stopped")
}
