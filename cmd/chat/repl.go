package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/andrew/rag-chat-client/pkg/chat"
	"github.com/andrew/rag-chat-client/pkg/feedback"
	"github.com/andrew/rag-chat-client/pkg/llm"
	"github.com/andrew/rag-chat-client/pkg/models"
	"github.com/andrew/rag-chat-client/pkg/retrieval"
	"github.com/andrew/rag-chat-client/pkg/session"
)

var (
	boldGreen = color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan  = color.New(color.FgCyan, color.Bold).SprintFunc()
	faint     = color.New(color.Faint).SprintFunc()
)

const helpText = `Commands:
  /like          confirm the latest answer
  /edit <text>   submit a corrected answer for the latest question
  /history       show the conversation
  /ping          check that the API is reachable
  /logout        end the session and clear it
  /exit          quit`

type pinger interface {
	Health(ctx context.Context) error
}

// app is the terminal view: a login prompt followed by a chat loop
type app struct {
	in        *bufio.Scanner
	out       io.Writer
	store     session.Store
	generator llm.Generator
	pinger    pinger
	curator   retrieval.Curator
	logger    *slog.Logger

	mu       sync.Mutex
	current  *chat.Session
	shutOnce sync.Once
}

func (a *app) run(ctx context.Context) {
	fmt.Fprintln(a.out, boldGreen("💬 RAG Chat"))
	for {
		username, ok := a.login()
		if !ok {
			return
		}

		s, err := chat.NewSession(username, chat.Deps{
			Store:     a.store,
			Generator: a.generator,
			Curator:   a.curator,
			Logger:    a.logger,
		})
		if err != nil {
			a.logger.Error("failed to start session", "err", err)
			return
		}
		a.setSession(s)

		if !a.chatLoop(ctx, s) {
			return
		}
	}
}

// login prompts until a username is given. It returns false on end of input.
func (a *app) login() (string, bool) {
	for {
		fmt.Fprint(a.out, boldGreen("Username: "))
		if !a.in.Scan() {
			return "", false
		}
		name, err := chat.Login(a.in.Text())
		if err == nil {
			return name, true
		}
	}
}

// chatLoop reads lines until logout (true) or exit/end of input (false)
func (a *app) chatLoop(ctx context.Context, s *chat.Session) bool {
	fmt.Fprintf(a.out, "Welcome, %s. Type /help for commands.\n", boldCyan(s.Username()))

	shown := len(s.Messages())
	if shown > 0 {
		a.printHistory(s.Messages())
	}
	s.Subscribe(func(msgs []models.Message) {
		// the user's own lines are already on screen; print new answers
		if len(msgs) < shown {
			shown = len(msgs)
			return
		}
		for _, m := range msgs[shown:] {
			if m.IsAssistant() {
				fmt.Fprintf(a.out, "%s %s\n", boldCyan("Assistant:"), m.Text)
			}
		}
		shown = len(msgs)
	})

	for {
		fmt.Fprint(a.out, boldGreen(s.Username()+": "))
		if !a.in.Scan() {
			return false
		}
		line := strings.TrimSpace(a.in.Text())
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "/") && !isExit(line) {
			// blocks until the answer arrives, so no second send can start
			_, _ = s.Send(ctx, line)
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		switch strings.ToLower(cmd) {
		case "/exit", "exit", "quit":
			return false
		case "/logout":
			if err := s.Logout(); err == nil {
				fmt.Fprintln(a.out, "👋 Logged out.")
			}
			a.setSession(nil)
			return true
		case "/like":
			a.like(ctx, s)
		case "/edit":
			a.edit(ctx, s, strings.TrimSpace(arg))
		case "/history":
			a.printHistory(s.Messages())
		case "/ping":
			if err := a.pinger.Health(ctx); err != nil {
				a.logger.Error("API health check failed", "err", err)
				fmt.Fprintln(a.out, "⚠️  API unreachable")
			} else {
				fmt.Fprintln(a.out, "✅ API reachable")
			}
		default:
			fmt.Fprintln(a.out, helpText)
		}
	}
}

func (a *app) like(ctx context.Context, s *chat.Session) {
	m, err := s.React(ctx)
	switch {
	case err == nil:
		fmt.Fprintf(a.out, "👍 Confirmed: %s\n", faint(m.Text))
	case errors.Is(err, feedback.ErrNoExchange):
		fmt.Fprintln(a.out, "Nothing to like yet.")
	}
}

func (a *app) edit(ctx context.Context, s *chat.Session, text string) {
	err := s.Edit(ctx, text)
	switch {
	case err == nil:
		fmt.Fprintln(a.out, "✏️  Corrected answer submitted.")
	case errors.Is(err, feedback.ErrEmptyAnswer):
		fmt.Fprintln(a.out, "Usage: /edit <corrected answer>")
	case errors.Is(err, feedback.ErrNoExchange):
		fmt.Fprintln(a.out, "Ask a question first.")
	}
}

func (a *app) printHistory(msgs []models.Message) {
	for _, m := range msgs {
		stamp := faint(m.CreatedAt.Local().Format("15:04:05"))
		if m.IsAssistant() {
			mark := ""
			if m.Confirmed {
				mark = " ✓"
			}
			fmt.Fprintf(a.out, "%s %s %s%s\n", stamp, boldCyan("Assistant:"), m.Text, mark)
			continue
		}
		fmt.Fprintf(a.out, "%s %s %s\n", stamp, boldGreen(m.Sender+":"), m.Text)
	}
}

func (a *app) setSession(s *chat.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = s
}

// shutdown clears the session slot and closes the store. Safe to call twice.
func (a *app) shutdown() {
	a.shutOnce.Do(func() {
		a.mu.Lock()
		s := a.current
		a.mu.Unlock()

		if s != nil {
			if err := s.Close(); err != nil {
				a.logger.Error("failed to close session", "err", err)
			}
			return
		}
		if err := a.store.Clear(); err != nil {
			a.logger.Error("failed to clear session", "err", err)
		}
		if err := a.store.Close(); err != nil {
			a.logger.Error("failed to close session store", "err", err)
		}
	})
}

func isExit(line string) bool {
	switch strings.ToLower(line) {
	case "exit", "quit":
		return true
	}
	return false
}
