package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/andrew/rag-chat-client/pkg/models"
)

// Curator publishes accepted question/answer pairs to the retrieval corpus
type Curator interface {
	// UploadQnA stores pair so that future answers can be retrieved from it
	UploadQnA(ctx context.Context, pair models.QnA) error
}

// Config contains configuration for the curation endpoint
type Config struct {
	// BaseURL is the API root; the RAG routes live below it
	BaseURL string
	// Timeout bounds a whole upload; zero means no limit
	Timeout time.Duration
}

// StatusError is returned when the curation endpoint rejects a pair
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("curation API error (status %d): %s", e.StatusCode, e.Body)
}
