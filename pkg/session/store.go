// Package session persists the chat thread in a single string-keyed slot.
//
// The slot lives for one run of the client, the way a browser tab's session
// storage does: it is read once when the thread starts, overwritten after every
// change and removed on logout or exit.
package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/andrew/rag-chat-client/pkg/models"
)

// Key names the slot that holds the serialized thread
const Key = "chat_messages"

// Backend names
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendPebble = "pebble"
)

// Store defines the contract of the session slot
type Store interface {
	// Load returns the stored thread. It returns an empty sequence when nothing
	// is stored or the content cannot be parsed, and never fails.
	Load() []models.Message

	// Save overwrites the slot with messages
	Save(messages []models.Message) error

	// Clear removes the slot. Clearing an empty slot is not an error.
	Clear() error

	// Close releases resources held by the backend
	Close() error
}

// Config selects and locates a Store backend
type Config struct {
	Backend string `toml:"backend" env:"SESSION_BACKEND"`
	Path    string `toml:"path" env:"SESSION_PATH"`
}

// DefaultConfig returns a tab-scoped in-memory slot
func DefaultConfig() Config {
	return Config{
		Backend: BackendMemory,
		Path:    filepath.Join(".chat", "session"),
	}
}

// Open creates the Store described by cfg
func Open(cfg Config, logger *slog.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendMemory:
		return NewMemoryStore(logger), nil
	case BackendFile:
		return NewFileStore(cfg.Path, logger)
	case BackendPebble:
		return NewPebbleStore(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unknown session backend: %s", cfg.Backend)
	}
}

// ValidBackend reports whether name is a known backend
func ValidBackend(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendMemory, BackendFile, BackendPebble:
		return true
	}
	return false
}

func encode(messages []models.Message) ([]byte, error) {
	if messages == nil {
		messages = []models.Message{}
	}
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	return data, nil
}

// decode parses a stored thread. Empty or malformed content means no prior session.
func decode(data []byte, logger *slog.Logger) []models.Message {
	if len(strings.TrimSpace(string(data))) == 0 {
		return []models.Message{}
	}
	var messages []models.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		logger.Warn("discarding unreadable session data", "key", Key, "err", err)
		return []models.Message{}
	}
	if messages == nil {
		return []models.Message{}
	}
	return messages
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
