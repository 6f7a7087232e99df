package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andrew/rag-chat-client/pkg/config"
	"github.com/andrew/rag-chat-client/pkg/llm"
	"github.com/andrew/rag-chat-client/pkg/logger"
	"github.com/andrew/rag-chat-client/pkg/retrieval"
	"github.com/andrew/rag-chat-client/pkg/session"
)

var (
	configFile  = flag.String("config", "", "Path to a TOML config file")
	envFile     = flag.String("env-file", ".env", "Path to a dotenv file")
	apiURL      = flag.String("api-url", "", "API base URL (overrides API_URL)")
	backend     = flag.String("session", "", "Session backend: memory, file or pebble")
	sessionPath = flag.String("session-path", "", "Directory for the file or pebble session backend")
	debug       = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log, logCloser := logger.Open(cfg.LogLevel, cfg.LogFile)
	defer logCloser.Close()

	if *envFile != "" && !config.EnvFileExists(*envFile) {
		log.Debug("env file not found, using process environment", "path", *envFile)
	}

	store, err := session.Open(cfg.Session, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening session store: %v\n", err)
		os.Exit(1)
	}

	generator := llm.NewAPIClient(cfg.LLM())
	a := &app{
		in:        bufio.NewScanner(os.Stdin),
		out:       os.Stdout,
		store:     store,
		generator: generator,
		pinger:    generator,
		curator:   retrieval.NewHTTPCurator(cfg.Retrieval(), nil),
		logger:    log,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Exiting is the unload path: the session slot goes with the process
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Fprintln(a.out, "\nShutting down...")
		cancel()
		a.shutdown()
		_ = logCloser.Close()
		os.Exit(0)
	}()

	log.Debug("starting chat client", "api_url", cfg.APIURL, "session_backend", cfg.Session.Backend)
	a.run(ctx)
	a.shutdown()
}

func applyFlags(cfg *config.Config) {
	if *apiURL != "" {
		cfg.APIURL = *apiURL
	}
	if *backend != "" {
		cfg.Session.Backend = *backend
	}
	if *sessionPath != "" {
		cfg.Session.Path = *sessionPath
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
}
