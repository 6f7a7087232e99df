package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andrew/rag-chat-client/pkg/models"
)

const uploadPath = "/rag/upload_qna"

// HTTPCurator posts pairs to the backend's RAG routes
type HTTPCurator struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPCurator creates a curator for the API rooted at cfg.BaseURL.
// A nil httpClient means a client bounded by cfg.Timeout.
func NewHTTPCurator(cfg Config, httpClient *http.Client) *HTTPCurator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPCurator{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

// UploadQnA posts pair to the curation endpoint. Only the status is checked.
func (c *HTTPCurator) UploadQnA(ctx context.Context, pair models.QnA) error {
	reqBody, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadPath, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
