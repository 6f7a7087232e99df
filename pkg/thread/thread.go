// Package thread owns the ordered sequence of chat messages for one session.
package thread

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/andrew/rag-chat-client/pkg/models"
	"github.com/andrew/rag-chat-client/pkg/session"
)

// ErrNotFound is returned by UpdateMessage when no message has the given id
var ErrNotFound = errors.New("message not found")

// Observer is called with a copy of the thread after every change. Calls are
// made one at a time in the order the changes happened; an observer may read
// the thread but must not change it.
type Observer func(messages []models.Message)

// Thread is the in-memory message sequence, persisted to a session.Store after
// every change. It is safe for concurrent use.
type Thread struct {
	// notifyMu is held from a change until its observers return, so
	// snapshots are delivered in order. Taken before mu.
	notifyMu  sync.Mutex
	mu        sync.Mutex
	messages  []models.Message
	lastID    int64
	store     session.Store
	observers []Observer
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Thread
type Option func(*Thread)

// WithClock sets the time source used for ids and timestamps
func WithClock(now func() time.Time) Option {
	return func(t *Thread) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLogger sets the logger used for persistence failures
func WithLogger(logger *slog.Logger) Option {
	return func(t *Thread) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New restores a thread from store
func New(store session.Store, opts ...Option) *Thread {
	t := &Thread{
		store:  store,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}

	t.messages = store.Load()
	for _, m := range t.messages {
		if m.ID > t.lastID {
			t.lastID = m.ID
		}
	}
	return t
}

// Subscribe registers fn to be called after every change
func (t *Thread) Subscribe(fn Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, fn)
}

// AppendUserMessage appends a message typed by sender. It does not wait on
// anything: the message is visible to observers before the call returns.
func (t *Thread) AppendUserMessage(sender, text string) models.Message {
	return t.append(sender, text)
}

// AppendAssistantMessage appends an answer from the inference API
func (t *Thread) AppendAssistantMessage(text string) models.Message {
	return t.append(models.SenderAssistant, text)
}

func (t *Thread) append(sender, text string) models.Message {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	now := t.now().UTC()
	id := now.UnixMilli()
	if id <= t.lastID {
		id = t.lastID + 1
	}
	t.lastID = id

	msg := models.Message{
		ID:        id,
		Sender:    sender,
		Text:      text,
		CreatedAt: now,
	}
	t.messages = append(t.messages, msg)
	snapshot, observers := t.changedLocked()
	t.mu.Unlock()

	t.notify(snapshot, observers)
	return msg
}

// UpdateMessage applies patch to the message with the given id and returns
// the updated message
func (t *Thread) UpdateMessage(id int64, patch models.Patch) (models.Message, error) {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	idx := t.indexLocked(id)
	if idx < 0 {
		t.mu.Unlock()
		return models.Message{}, ErrNotFound
	}
	updated, err := patch.Apply(t.messages[idx])
	if err != nil {
		t.mu.Unlock()
		return t.messages[idx], err
	}
	t.messages[idx] = updated
	snapshot, observers := t.changedLocked()
	t.mu.Unlock()

	t.notify(snapshot, observers)
	return updated, nil
}

// Reset empties the thread and clears the store
func (t *Thread) Reset() error {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	t.messages = nil
	err := t.store.Clear()
	snapshot := []models.Message{}
	observers := append([]Observer(nil), t.observers...)
	t.mu.Unlock()

	if err != nil {
		t.logger.Error("failed to clear session", "err", err)
	}
	t.notify(snapshot, observers)
	return err
}

// Messages returns a copy of the thread in insertion order
func (t *Thread) Messages() []models.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Len returns the number of messages
func (t *Thread) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

// Get returns the message with the given id
func (t *Thread) Get(id int64) (models.Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx := t.indexLocked(id); idx >= 0 {
		return t.messages[idx], true
	}
	return models.Message{}, false
}

// LastFrom returns the most recent message by position from sender
func (t *Thread) LastFrom(sender string) (models.Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Sender == sender {
			return t.messages[i], true
		}
	}
	return models.Message{}, false
}

// LastAssistant returns the most recent assistant message by position
func (t *Thread) LastAssistant() (models.Message, bool) {
	return t.LastFrom(models.SenderAssistant)
}

func (t *Thread) indexLocked(id int64) int {
	for i := range t.messages {
		if t.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *Thread) snapshotLocked() []models.Message {
	out := make([]models.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// changedLocked persists the current sequence and returns what observers need
func (t *Thread) changedLocked() ([]models.Message, []Observer) {
	snapshot := t.snapshotLocked()
	if err := t.store.Save(snapshot); err != nil {
		t.logger.Error("failed to save session", "messages", len(snapshot), "err", err)
	}
	return snapshot, append([]Observer(nil), t.observers...)
}

func (t *Thread) notify(snapshot []models.Message, observers []Observer) {
	for _, fn := range observers {
		fn(snapshot)
	}
}
