package session

import (
	"log/slog"
	"sync"

	"github.com/andrew/rag-chat-client/pkg/models"
)

// MemoryStore keeps the serialized slot in process memory.
// The slot disappears with the process, like a tab's session storage.
type MemoryStore struct {
	mu     sync.Mutex
	data   []byte
	logger *slog.Logger
}

// NewMemoryStore creates an empty in-memory slot
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	return &MemoryStore{logger: orDefault(logger)}
}

func (s *MemoryStore) Load() []models.Message {
	s.mu.Lock()
	data := s.data
	s.mu.Unlock()
	return decode(data, s.logger)
}

func (s *MemoryStore) Save(messages []models.Message) error {
	data, err := encode(messages)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}

func (s *MemoryStore) Close() error { return nil }
