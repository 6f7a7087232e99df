package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andrew/rag-chat-client/pkg/logger"
	"github.com/andrew/rag-chat-client/pkg/stubapi"
)

var (
	port     = flag.Int("port", 8000, "Port to listen on")
	logLevel = flag.String("log-level", "info", "Log level: debug, info, warn or error")
)

func main() {
	flag.Parse()

	log := logger.New(*logLevel, os.Stderr)

	// Initialize context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupts
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("\nShutting down...")
		cancel()
	}()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: stubapi.New(log).Router(),
	}

	go func() {
		log.Info("starting stub API", "port", *port)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "err", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()

	// Shutdown the server gracefully
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "err", err)
		os.Exit(1)
	}
}
