package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	generatePath = "/llm/generate_message"
	// error bodies are cut to this many bytes
	maxErrorBody = 512
)

// APIClient talks to the backend's LLM routes over HTTP
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// GenerateRequest is the body of a generate_message call
type GenerateRequest struct {
	UserName string `json:"user_name"`
	Question string `json:"question"`
}

// GenerateResponse is the body returned by generate_message
type GenerateResponse struct {
	Answer string `json:"answer"`
}

// NewAPIClient creates a client for the API rooted at cfg.BaseURL
func NewAPIClient(cfg Config) *APIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultConfig().BaseURL
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// BaseURL returns the API root the client resolves endpoints against
func (c *APIClient) BaseURL() string { return c.baseURL }

// GenerateMessage asks the API to answer question on behalf of username
func (c *APIClient) GenerateMessage(ctx context.Context, username, question string) (string, error) {
	reqBody, err := json.Marshal(GenerateRequest{UserName: username, Question: question})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", newStatusError(generatePath, resp)
	}

	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to parse generate response: %w", err)
	}
	return out.Answer, nil
}

// Health checks that the API root answers
func (c *APIClient) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError("/", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func newStatusError(endpoint string, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
