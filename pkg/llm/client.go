package llm

import (
	"context"
	"fmt"
	"time"
)

// Generator is the interface for asking the remote question-answering API
type Generator interface {
	GenerateMessage(ctx context.Context, username, question string) (string, error)
}

// Config holds configuration for the inference API client
type Config struct {
	// BaseURL is the API root; endpoints are resolved below it
	BaseURL string
	// Timeout bounds a whole request. Zero leaves the transport default.
	Timeout time.Duration
}

// DefaultConfig returns a configuration pointing at a local backend
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8000",
	}
}

// StatusError is returned when the API answers with a non-2xx status
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error from %s (status %d): %s", e.Endpoint, e.StatusCode, e.Body)
}
