package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/N0-C0M/Serenada-sub002/internal/banner"
	"github.com/N0-C0M/Serenada-sub002/internal/devserver"
	"github.com/N0-C0M/Serenada-sub002/internal/logger"
)

func main() {
	port := flag.Int("port", 8080, "HTTP listen port")
	bind := flag.String("bind", "0.0.0.0", "Bind address")
	loglevel := flag.String("loglevel", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	// Initialize logger
	logger.InitLogger(os.Stdout)
	logger.SetLevel(*loglevel)

	addr := fmt.Sprintf("%s:%d", *bind, *port)

	// Print startup banner
	banner.Print("DEV SERVER", []banner.ConfigLine{
		{Label: "HTTP Listen", Value: addr},
		{Label: "Endpoints", Value: "/ws, /sse, /api"},
		{Label: "Log Level", Value: logger.GetLevel()},
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: devserver.New().Handler(),
	}

	go func() {
		slog.Info("Dev server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("Shutting down dev server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}
	slog.Info("Dev server stopped")
}
