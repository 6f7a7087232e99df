// Package feedback republishes liked or corrected answers to the curation endpoint.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/andrew/rag-chat-client/pkg/models"
	"github.com/andrew/rag-chat-client/pkg/retrieval"
	"github.com/andrew/rag-chat-client/pkg/thread"
)

var (
	// ErrNoExchange means the thread has no question (or no answer) to submit
	ErrNoExchange = errors.New("no question and answer to submit")
	// ErrEmptyAnswer means an edited answer was blank
	ErrEmptyAnswer = errors.New("edited answer is empty")
)

// Submitter picks the latest question/answer pair of a thread and posts it
// to a Curator.
//
// The pair is chosen by position over the whole thread: the last message from
// the user and the last assistant message, even if they are not a question
// and its reply.
type Submitter struct {
	thread   *thread.Thread
	curator  retrieval.Curator
	username string
	logger   *slog.Logger
}

// New creates a Submitter for username's messages in th
func New(th *thread.Thread, curator retrieval.Curator, username string, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{
		thread:   th,
		curator:  curator,
		username: username,
		logger:   logger,
	}
}

// SubmitReaction posts the latest pair as liked. When the endpoint accepts it
// the answer is marked confirmed in the thread and the updated message is
// returned. Submitting again posts the same pair again.
func (s *Submitter) SubmitReaction(ctx context.Context) (models.Message, error) {
	question, ok := s.thread.LastFrom(s.username)
	if !ok {
		return models.Message{}, ErrNoExchange
	}
	answer, ok := s.thread.LastAssistant()
	if !ok {
		return models.Message{}, ErrNoExchange
	}

	pair := models.QnA{Question: question.Text, Answer: answer.Text}
	if err := s.curator.UploadQnA(ctx, pair); err != nil {
		s.logger.Error("reaction not accepted", "message_id", answer.ID, "err", err)
		return answer, fmt.Errorf("submit reaction: %w", err)
	}

	updated, err := s.thread.UpdateMessage(answer.ID, models.Confirm())
	if err != nil {
		// the answer disappeared (logout) while the request was in flight
		s.logger.Warn("reaction accepted for a message no longer in the thread", "message_id", answer.ID, "err", err)
		return answer, err
	}
	s.logger.Debug("reaction confirmed", "message_id", updated.ID)
	return updated, nil
}

// SubmitEditedAnswer posts the latest question with editedText as its answer.
// The thread itself is not changed.
func (s *Submitter) SubmitEditedAnswer(ctx context.Context, editedText string) error {
	if strings.TrimSpace(editedText) == "" {
		return ErrEmptyAnswer
	}
	question, ok := s.thread.LastFrom(s.username)
	if !ok {
		return ErrNoExchange
	}

	pair := models.QnA{Question: question.Text, Answer: editedText}
	if err := s.curator.UploadQnA(ctx, pair); err != nil {
		s.logger.Error("edited answer not accepted", "question_id", question.ID, "err", err)
		return fmt.Errorf("submit edited answer: %w", err)
	}
	s.logger.Debug("edited answer submitted", "question_id", question.ID)
	return nil
}
