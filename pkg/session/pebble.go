package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	pebble "github.com/cockroachdb/pebble"

	"github.com/andrew/rag-chat-client/pkg/models"
)

// PebbleStore keeps the slot under Key in a pebble database. After Close,
// Load returns an empty thread and writes fail with pebble.ErrClosed.
type PebbleStore struct {
	db     *pebble.DB
	logger *slog.Logger
}

// NewPebbleStore opens (or creates) the database at path
func NewPebbleStore(path string, logger *slog.Logger) (*PebbleStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to ensure session dir: %w", err)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	return &PebbleStore{db: db, logger: orDefault(logger)}, nil
}

func (s *PebbleStore) Load() []models.Message {
	if s.db == nil {
		return []models.Message{}
	}
	v, closer, err := s.db.Get([]byte(Key))
	if err != nil {
		if !errors.Is(err, pebble.ErrNotFound) {
			s.logger.Warn("failed to read session db", "key", Key, "err", err)
		}
		return []models.Message{}
	}
	defer closer.Close()
	// v is only valid until closer.Close
	data := make([]byte, len(v))
	copy(data, v)
	return decode(data, s.logger)
}

func (s *PebbleStore) Save(messages []models.Message) error {
	data, err := encode(messages)
	if err != nil {
		return err
	}
	if s.db == nil {
		return pebble.ErrClosed
	}
	if err := s.db.Set([]byte(Key), data, pebble.Sync); err != nil {
		return fmt.Errorf("write session db: %w", err)
	}
	return nil
}

func (s *PebbleStore) Clear() error {
	if s.db == nil {
		return pebble.ErrClosed
	}
	if err := s.db.Delete([]byte(Key), pebble.Sync); err != nil {
		return fmt.Errorf("delete session key: %w", err)
	}
	return nil
}

func (s *PebbleStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
