package anthropic

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/parentnote/backend/services/analysis"
	"github.com/parentnote/backend/services/analysis/schema"
)

const (
	// Name is the backend identifier
	Name = "anthropic"

	// DefaultPriority places this backend between the remote service and the local heuristic
	DefaultPriority = 50

	defaultModel     = "claude-3-5-haiku-latest"
	defaultTimeout   = 20 * time.Second
	defaultMaxTokens = 1024
)

// Config holds configuration for the Anthropic Messages API backend
type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the SDK default endpoint
	BaseURL string

	Timeout  time.Duration
	Priority int
}

// Analyzer asks Claude for an interpretation through the Messages API
type Analyzer struct {
	config Config
	client *anthropic.Client
	logger *zap.Logger
}

// NewAnalyzer creates a new Anthropic analyzer. The SDK's own retries are
// disabled; falling back is the orchestrator's job.
func NewAnalyzer(config Config, logger *zap.Logger) *Analyzer {
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

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(config.Timeout),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	return &Analyzer{
		config: config,
		client: &client,
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

// IsAvailable reports whether an API key is configured
func (a *Analyzer) IsAvailable(ctx context.Context) bool {
	return a.config.APIKey != ""
}

// TryAnalyze sends one Messages API request
func (a *Analyzer) TryAnalyze(ctx context.Context, req analysis.Request) analysis.Outcome {
	if !a.IsAvailable(ctx) {
		return analysis.Failed(analysis.NewBackendError(Name, analysis.CodeUnavailable, "anthropic API key is not configured", 0, nil))
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	startTime := time.Now()

	response, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.config.Model),
		MaxTokens: defaultMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: schema.SystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(schema.BuildUserPrompt(req))),
		},
	})
	if err != nil {
		return analysis.Failed(classify(ctx, err))
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	result, err := schema.Decode(text.String(), analysis.SourceAnthropic)
	if err != nil {
		return analysis.Failed(analysis.NewBackendError(Name, analysis.CodeMalformedResponse, "failed to decode interpretation", 0, err))
	}

	a.logger.Debug("anthropic analysis succeeded",
		zap.String("model", string(response.Model)),
		zap.Int64("output_tokens", response.Usage.OutputTokens),
		zap.Duration("latency", time.Since(startTime)))

	return analysis.Succeeded(result)
}

// classify maps SDK errors onto backend error codes
func classify(ctx context.Context, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return analysis.NewBackendError(Name, analysis.CodeHTTPStatus, "anthropic API returned an error", apiErr.StatusCode, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return analysis.NewBackendError(Name, analysis.CodeTimeout, "anthropic analysis timed out", 0, err)
	}
	return analysis.NewBackendError(Name, analysis.CodeTransport, "anthropic request failed", 0, err)
}
