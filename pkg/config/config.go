// Package config resolves client settings from defaults, an optional TOML
// file, a .env file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/andrew/rag-chat-client/pkg/llm"
	"github.com/andrew/rag-chat-client/pkg/retrieval"
	"github.com/andrew/rag-chat-client/pkg/session"
)

type Config struct {
	// API
	APIURL      string        `toml:"api_url" env:"API_URL"`
	HTTPTimeout time.Duration `toml:"http_timeout" env:"HTTP_TIMEOUT"`

	// Session slot
	Session session.Config `toml:"session"`

	// Logging
	LogLevel string `toml:"log_level" env:"LOG_LEVEL"`
	LogFile  string `toml:"log_file" env:"LOG_FILE"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		APIURL:   llm.DefaultConfig().BaseURL,
		Session:  session.DefaultConfig(),
		LogLevel: "warn",
	}
}

// Load builds a Config. file is an optional TOML file; envFile is a dotenv
// file whose variables are exported unless already set. Neither has to exist
// when left at its default (empty file, ".env").
func Load(file, envFile string) (*Config, error) {
	cfg := Default()

	if file != "" {
		if _, err := toml.DecodeFile(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate reports settings the client cannot run with
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid API_URL %q: %w", c.APIURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid API_URL %q: want an absolute http(s) URL", c.APIURL)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("invalid HTTP_TIMEOUT %s", c.HTTPTimeout)
	}
	if !session.ValidBackend(c.Session.Backend) {
		return fmt.Errorf("unknown session backend: %s", c.Session.Backend)
	}
	return nil
}

// LLM returns the inference client settings
func (c *Config) LLM() llm.Config {
	return llm.Config{BaseURL: c.APIURL, Timeout: c.HTTPTimeout}
}

// Retrieval returns the curation client settings
func (c *Config) Retrieval() retrieval.Config {
	return retrieval.Config{BaseURL: c.APIURL, Timeout: c.HTTPTimeout}
}

// EnvFileExists reports whether path names a readable file
func EnvFileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
