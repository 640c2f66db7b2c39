package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/parentnote/backend/services/analysis"
	"github.com/parentnote/backend/services/analysis/schema"
	"go.uber.org/zap"
)

const (
	// Name is the backend identifier
	Name = "remote"

	// DefaultPriority puts the remote service ahead of every other backend
	DefaultPriority = 100

	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 20 * time.Second

	// maxResponseBytes bounds how much of an upstream body is read
	maxResponseBytes = 1 << 20
)

// Config holds configuration for the remote analysis service
type Config struct {
	// BaseURL of an OpenAI-compatible API, e.g. https://api.openai.com/v1
	BaseURL string

	// APIKey for authentication
	APIKey string

	// Model identifier sent with each request
	Model string

	// Timeout bounds the whole round trip
	Timeout time.Duration

	// Priority overrides DefaultPriority when non-zero
	Priority int
}

// Analyzer delegates interpretation to a remote chat completion service
type Analyzer struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAnalyzer creates a new remote analyzer
func NewAnalyzer(config Config, logger *zap.Logger) *Analyzer {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.Priority == 0 {
		config.Priority = DefaultPriority
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Analyzer{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

// Name returns the backend name
func (a *Analyzer) Name() string {
	return Name
}

// Priority returns the backend priority
func (a *Analyzer) Priority() int {
	return a.config.Priority
}

// IsAvailable reports whether the service is configured. It does not call it.
func (a *Analyzer) IsAvailable(ctx context.Context) bool {
	return a.config.BaseURL != "" && a.config.APIKey != ""
}

// TryAnalyze performs a single chat completion round trip
func (a *Analyzer) TryAnalyze(ctx context.Context, req analysis.Request) analysis.Outcome {
	if !a.IsAvailable(ctx) {
		return analysis.Failed(analysis.NewBackendError(Name, analysis.CodeUnavailable, "remote analysis service is not configured", 0, nil))
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	startTime := time.Now()

	reqBody, err := json.Marshal(a.buildChatRequest(req))
	if err != nil {
		return analysis.Failed(analysis.NewBackendError(Name, analysis.CodeTransport, "failed to marshal request", 0, err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return analysis.Failed(analysis.NewBackendError(Name, analysis.CodeTransport, "failed to create request", 0, err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(ctx, err) {
			return analysis.Failed(analysis.NewBackendError(Name, analysis.CodeTimeout, "remote analysis timed out", 0, err))
		}
		return analysis.Failed(analysis.NewBackendError(Name, analysis.CodeTransport, "HTTP request failed", 0, err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(ctx, err) {
			return analysis.Failed(analysis.NewBackendError(Name, analysis.CodeTimeout, "remote analysis timed out", httpResp.StatusCode, err))
		}
		return analysis.Failed(analysis.NewBackendError(Name, analysis.CodeTransport, "failed to read response", httpResp.StatusCode, err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return analysis.Failed(a.handleErrorResponse(httpResp.StatusCode, respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return analysis.Failed(analysis.NewBackendError(Name, analysis.CodeMalformedResponse, "failed to unmarshal response", httpResp.StatusCode, err))
	}
	if len(chatResp.Choices) == 0 {
		return analysis.Failed(analysis.NewBackendError(Name, analysis.CodeMalformedResponse, "response has no choices", httpResp.StatusCode, nil))
	}

	result, err := schema.Decode(chatResp.Choices[0].Message.Content, analysis.SourceRemote)
	if err != nil {
		return analysis.Failed(analysis.NewBackendError(Name, analysis.CodeMalformedResponse, "failed to decode interpretation", httpResp.StatusCode, err))
	}

	a.logger.Debug("remote analysis succeeded",
		zap.String("model", chatResp.Model),
		zap.Int("total_tokens", chatResp.Usage.TotalTokens),
		zap.Duration("latency", time.Since(startTime)))

	return analysis.Succeeded(result)
}

// buildChatRequest converts an analysis request to the chat completion format
func (a *Analyzer) buildChatRequest(req analysis.Request) *chatRequest {
	temperature := 0.4
	return &chatRequest{
		Model: a.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: schema.SystemPrompt},
			{Role: "user", Content: schema.BuildUserPrompt(req)},
		},
		Temperature:    &temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
}

// handleErrorResponse converts a non-200 reply into a backend error
func (a *Analyzer) handleErrorResponse(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return analysis.NewBackendError(Name, analysis.CodeHTTPStatus, "unexpected status from remote analysis service", statusCode, nil)
	}
	return analysis.NewBackendError(Name, analysis.CodeHTTPStatus, errResp.Error.Message, statusCode, errors.New(errResp.Error.Type))
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Wire types for the OpenAI-compatible chat completion API

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
