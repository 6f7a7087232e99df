package session

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/andrew/rag-chat-client/pkg/models"
)

// FileStore keeps the slot in a JSON file named after Key inside dir
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileStore creates dir if needed and returns a store writing to
// dir/chat_messages.json
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure session dir: %w", err)
	}
	return &FileStore{
		path:   filepath.Join(dir, Key+".json"),
		logger: orDefault(logger),
	}, nil
}

// Path returns the file backing the slot
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to read session file", "path", s.path, "err", err)
		}
		return []models.Message{}
	}
	return decode(data, s.logger)
}

func (s *FileStore) Save(messages []models.Message) error {
	data, err := encode(messages)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open session file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	return f.Close()
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
