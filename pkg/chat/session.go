// Package chat drives one logged-in conversation: optimistic sends to the
// inference API and feedback on its answers.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andrew/rag-chat-client/pkg/feedback"
	"github.com/andrew/rag-chat-client/pkg/llm"
	"github.com/andrew/rag-chat-client/pkg/models"
	"github.com/andrew/rag-chat-client/pkg/retrieval"
	"github.com/andrew/rag-chat-client/pkg/session"
	"github.com/andrew/rag-chat-client/pkg/thread"
)

var (
	// ErrEmptyUsername is returned when the login name is blank
	ErrEmptyUsername = errors.New("username is required")
	// ErrReservedUsername is returned for a name that would collide with the
	// assistant's sender
	ErrReservedUsername = errors.New("username is reserved")
	// ErrEmptyMessage is returned when a message to send is blank
	ErrEmptyMessage = errors.New("message is empty")
	// ErrBusy is returned while a previous send is still waiting for its answer
	ErrBusy = errors.New("a message is already being sent")
	// ErrClosed is returned by a session after Logout or Close
	ErrClosed = errors.New("chat session is closed")
)

// Login validates a username typed at the login prompt
func Login(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyUsername
	}
	if strings.EqualFold(name, models.SenderAssistant) {
		return "", ErrReservedUsername
	}
	return name, nil
}

// Deps are the collaborators of a Session
type Deps struct {
	Store     session.Store
	Generator llm.Generator
	Curator   retrieval.Curator
	Logger    *slog.Logger
	// Clock is optional and defaults to time.Now
	Clock func() time.Time
}

// Session is one user's conversation
type Session struct {
	id        string
	username  string
	store     session.Store
	thread    *thread.Thread
	generator llm.Generator
	feedback  *feedback.Submitter
	logger    *slog.Logger

	mu       sync.Mutex
	loading  bool
	closed   bool
	released bool
}

// NewSession restores username's thread from deps.Store
func NewSession(username string, deps Deps) (*Session, error) {
	username, err := Login(username)
	if err != nil {
		return nil, err
	}
	if deps.Store == nil || deps.Generator == nil || deps.Curator == nil {
		return nil, fmt.Errorf("chat session needs a store, a generator and a curator")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	id := uuid.New().String()
	log := deps.Logger.With("session", id, "user", username)
	th := thread.New(deps.Store, thread.WithClock(deps.Clock), thread.WithLogger(log))

	log.Debug("session started", "restored", th.Len())
	return &Session{
		id:        id,
		username:  username,
		store:     deps.Store,
		thread:    th,
		generator: deps.Generator,
		feedback:  feedback.New(th, deps.Curator, username, log),
		logger:    log,
	}, nil
}

func (s *Session) ID() string       { return s.id }
func (s *Session) Username() string { return s.username }

// Messages returns the thread in insertion order
func (s *Session) Messages() []models.Message { return s.thread.Messages() }

// Subscribe registers fn to be called with the thread after every change
func (s *Session) Subscribe(fn thread.Observer) { s.thread.Subscribe(fn) }

// Loading reports whether a send is waiting for its answer
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Send appends text as the user's message and asks the API for an answer.
// The user's message is in the thread before the request starts. On failure
// the error is logged and returned and no answer is appended.
func (s *Session) Send(ctx context.Context, text string) (models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return models.Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.Message{}, ErrClosed
	}
	if s.loading {
		s.mu.Unlock()
		return models.Message{}, ErrBusy
	}
	s.loading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	question := s.thread.AppendUserMessage(s.username, text)

	answer, err := s.generator.GenerateMessage(ctx, s.username, text)
	if err != nil {
		s.logger.Error("failed to get an answer", "message_id", question.ID, "err", err)
		return models.Message{}, fmt.Errorf("send message: %w", err)
	}

	if s.isClosed() {
		// answer arrived after logout or exit; there is no thread to show it in
		s.logger.Debug("dropping late answer", "message_id", question.ID)
		return models.Message{}, nil
	}
	return s.thread.AppendAssistantMessage(answer), nil
}

// React likes the latest answer. See feedback.Submitter.SubmitReaction.
func (s *Session) React(ctx context.Context) (models.Message, error) {
	if s.isClosed() {
		return models.Message{}, ErrClosed
	}
	return s.feedback.SubmitReaction(ctx)
}

// Edit submits a corrected answer for the latest question. The thread is
// not changed.
func (s *Session) Edit(ctx context.Context, text string) error {
	if s.isClosed() {
		return ErrClosed
	}
	return s.feedback.SubmitEditedAnswer(ctx, text)
}

// Logout empties the thread and removes the session slot. Requests already in
// flight are not cancelled; their answers are dropped.
func (s *Session) Logout() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.thread.Reset(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.logger.Debug("logged out")
	return nil
}

// Close is the exit path: it empties the thread, removes the session slot and
// releases the store. The session cannot be used afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.released = true
	s.mu.Unlock()

	// Reset logs its own failure
	return errors.Join(s.thread.Reset(), s.store.Close())
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
