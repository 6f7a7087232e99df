// Package stubapi is a local stand-in for the question-answering backend.
// It speaks the same JSON contract as the real API so the client can be run
// and tested without it.
package stubapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/andrew/rag-chat-client/pkg/llm"
	"github.com/andrew/rag-chat-client/pkg/models"
)

// Server answers questions from an in-memory corpus of curated pairs
type Server struct {
	mu     sync.RWMutex
	corpus map[string]models.QnA
	logger *slog.Logger
}

// New creates a server with an empty corpus
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{corpus: make(map[string]models.QnA), logger: logger}
}

// Router returns the HTTP routes of the backend
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/llm/generate_message", s.handleGenerate).Methods(http.MethodPost)
	r.HandleFunc("/rag/upload_qna", s.handleUpload).Methods(http.MethodPost)
	return r
}

// Corpus returns the curated pairs in no particular order
func (s *Server) Corpus() []models.QnA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.QnA, 0, len(s.corpus))
	for _, pair := range s.corpus {
		out = append(out, pair)
	}
	return out
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Hello World"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req llm.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, "Question is required", http.StatusBadRequest)
		return
	}

	answer := fmt.Sprintf("You asked: %s", req.Question)
	s.mu.RLock()
	if pair, ok := s.corpus[corpusKey(req.Question)]; ok {
		answer = pair.Answer
	}
	s.mu.RUnlock()

	s.logger.Info("generated message", "user", req.UserName)
	writeJSON(w, http.StatusOK, llm.GenerateResponse{Answer: answer})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var pair models.QnA
	if err := json.NewDecoder(r.Body).Decode(&pair); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(pair.Question) == "" || strings.TrimSpace(pair.Answer) == "" {
		http.Error(w, "Question and answer are required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.corpus[corpusKey(pair.Question)] = pair
	size := len(s.corpus)
	s.mu.Unlock()

	s.logger.Info("stored qna", "corpus_size", size)
	writeJSON(w, http.StatusOK, map[string]string{"status": "stored"})
}

func corpusKey(question string) string {
	return strings.ToLower(strings.TrimSpace(question))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
