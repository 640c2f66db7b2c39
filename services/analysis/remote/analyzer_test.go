package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parentnote/backend/services/analysis"
)

const validContent = `{"development_stage":"Preschool","interpretation":"Sharing shows growing empathy.",` +
	`"suggestions":[{"type":"encourage","content":"Praise the sharing."}],"confidence":"high"}`

func chatReply(content string) string {
	resp := chatResponse{
		ID:    "chatcmpl-1",
		Model: "gpt-4o-mini",
		Choices: []chatChoice{
			{Index: 0, Message: chatMessage{Role: "assistant", Content: content}, FinishReason: "stop"},
		},
		Usage: chatUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}
	body, _ := json.Marshal(resp)
	return string(body)
}

func testRequest() analysis.Request {
	return analysis.Request{
		ChildAgeMonths: 36,
		BehaviorText:   "shares a toy with a sibling, ask mom@example.com",
		Category:       analysis.CategorySocial,
	}
}

func newTestAnalyzer(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Analyzer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewAnalyzer(Config{BaseURL: server.URL + "/", APIKey: "test-key", Timeout: timeout}, nil)
}

func TestNewAnalyzer_Defaults(t *testing.T) {
	a := NewAnalyzer(Config{BaseURL: "https://api.example.com/v1/", APIKey: "k"}, nil)

	assert.Equal(t, Name, a.Name())
	assert.Equal(t, DefaultPriority, a.Priority())
	assert.Equal(t, "https://api.example.com/v1", a.config.BaseURL)
	assert.Equal(t, defaultModel, a.config.Model)
	assert.Equal(t, defaultTimeout, a.config.Timeout)
	assert.Equal(t, defaultTimeout, a.httpClient.Timeout)

	custom := NewAnalyzer(Config{Priority: 7}, nil)
	assert.Equal(t, 7, custom.Priority())
}

func TestAnalyzer_IsAvailable(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   bool
	}{
		{name: "configured", config: Config{BaseURL: "http://x", APIKey: "k"}, want: true},
		{name: "missing key", config: Config{BaseURL: "http://x"}, want: false},
		{name: "missing url", config: Config{APIKey: "k"}, want: false},
		{name: "empty", config: Config{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewAnalyzer(tt.config, nil).IsAvailable(context.Background()))
		})
	}
}

func TestAnalyzer_TryAnalyze_Success(t *testing.T) {
	var captured chatRequest
	a := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatReply(validContent))
	}, time.Second)

	outcome := a.TryAnalyze(context.Background(), testRequest())

	require.True(t, outcome.OK(), "unexpected error: %v", outcome.Err())
	result := outcome.Result()
	assert.Equal(t, analysis.SourceRemote, result.Source)
	assert.Equal(t, analysis.ConfidenceHigh, result.Confidence)
	assert.Equal(t, "Preschool", result.DevelopmentStage)
	require.NoError(t, result.Validate())

	assert.Equal(t, defaultModel, captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.NotContains(t, captured.Messages[1].Content, "mom@example.com")
	assert.Contains(t, captured.Messages[1].Content, "[EMAIL_REDACTED]")
	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_object", captured.ResponseFormat.Type)
}

func TestAnalyzer_TryAnalyze_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantCode   string
		wantStatus int
	}{
		{
			name:       "upstream error with message",
			status:     http.StatusTooManyRequests,
			body:       `{"error":{"message":"Rate limit exceeded","type":"rate_limit_error"}}`,
			wantCode:   analysis.CodeHTTPStatus,
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "upstream error without body",
			status:     http.StatusBadGateway,
			body:       "",
			wantCode:   analysis.CodeHTTPStatus,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "body is not json",
			status:     http.StatusOK,
			body:       "<html>oops</html>",
			wantCode:   analysis.CodeMalformedResponse,
			wantStatus: http.StatusOK,
		},
		{
			name:       "no choices",
			status:     http.StatusOK,
			body:       `{"id":"x","choices":[]}`,
			wantCode:   analysis.CodeMalformedResponse,
			wantStatus: http.StatusOK,
		},
		{
			name:       "content is not an interpretation",
			status:     http.StatusOK,
			body:       chatReply("I think the child is doing great!"),
			wantCode:   analysis.CodeMalformedResponse,
			wantStatus: http.StatusOK,
		},
		{
			name:       "interpretation missing suggestions",
			status:     http.StatusOK,
			body:       chatReply(`{"development_stage":"Toddler","interpretation":"x","suggestions":[],"confidence":"low"}`),
			wantCode:   analysis.CodeMalformedResponse,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}, time.Second)

			outcome := a.TryAnalyze(context.Background(), testRequest())

			require.False(t, outcome.OK())
			var backendErr *analysis.BackendError
			require.ErrorAs(t, outcome.Err(), &backendErr)
			assert.Equal(t, Name, backendErr.Backend)
			assert.Equal(t, tt.wantCode, backendErr.Code)
			assert.Equal(t, tt.wantStatus, backendErr.StatusCode)
		})
	}
}

func TestAnalyzer_TryAnalyze_UpstreamMessageIsKept(t *testing.T) {
	a := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Invalid API key","type":"invalid_request_error"}}`)
	}, time.Second)

	outcome := a.TryAnalyze(context.Background(), testRequest())

	require.False(t, outcome.OK())
	assert.True(t, strings.Contains(outcome.Err().Error(), "Invalid API key"))
}

func TestAnalyzer_TryAnalyze_Timeout(t *testing.T) {
	release := make(chan struct{})
	a := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)
	defer close(release)

	start := time.Now()
	outcome := a.TryAnalyze(context.Background(), testRequest())

	require.False(t, outcome.OK())
	assert.Equal(t, analysis.CodeTimeout, analysis.ErrorCode(outcome.Err()))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestAnalyzer_TryAnalyze_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	a := NewAnalyzer(Config{BaseURL: url, APIKey: "k", Timeout: time.Second}, nil)
	outcome := a.TryAnalyze(context.Background(), testRequest())

	require.False(t, outcome.OK())
	assert.Equal(t, analysis.CodeTransport, analysis.ErrorCode(outcome.Err()))
}

func TestAnalyzer_TryAnalyze_NotConfigured(t *testing.T) {
	a := NewAnalyzer(Config{}, nil)

	outcome := a.TryAnalyze(context.Background(), testRequest())

	require.False(t, outcome.OK())
	assert.Equal(t, analysis.CodeUnavailable, analysis.ErrorCode(outcome.Err()))
}
