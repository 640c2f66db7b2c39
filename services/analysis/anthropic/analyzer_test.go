package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parentnote/backend/services/analysis"
)

func messageReply(text string) string {
	body, _ := json.Marshal(map[string]any{
		"id":            "msg_01",
		"type":          "message",
		"role":          "assistant",
		"model":         defaultModel,
		"content":       []map[string]any{{"type": "text", "text": text}},
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"usage":         map[string]any{"input_tokens": 12, "output_tokens": 34},
	})
	return string(body)
}

func newTestAnalyzer(t *testing.T, handler http.HandlerFunc) *Analyzer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewAnalyzer(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 2 * time.Second}, nil)
}

func testRequest() analysis.Request {
	return analysis.Request{
		ChildAgeMonths: 30,
		BehaviorText:   "throws food on the floor, nanny's phone 555-123-4567",
		Category:       analysis.CategoryEating,
	}
}

func TestNewAnalyzer_Defaults(t *testing.T) {
	a := NewAnalyzer(Config{APIKey: "k"}, nil)

	assert.Equal(t, Name, a.Name())
	assert.Equal(t, DefaultPriority, a.Priority())
	assert.Equal(t, defaultModel, a.config.Model)
	assert.Equal(t, defaultTimeout, a.config.Timeout)
	assert.True(t, a.IsAvailable(context.Background()))

	assert.False(t, NewAnalyzer(Config{}, nil).IsAvailable(context.Background()))
}

func TestAnalyzer_TryAnalyze_Success(t *testing.T) {
	var captured map[string]any
	a := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, messageReply("```json\n"+
			`{"development_stage":"Toddler","interpretation":"Dropping food tests cause and effect.",`+
			`"suggestions":[{"type":"environment","content":"Use a plate with suction."},{"type":"guidance","content":"Calmly end the meal."}],`+
			`"confidence":"medium"}`+"\n```"))
	})

	outcome := a.TryAnalyze(context.Background(), testRequest())

	require.True(t, outcome.OK(), "unexpected error: %v", outcome.Err())
	result := outcome.Result()
	assert.Equal(t, analysis.SourceAnthropic, result.Source)
	assert.Equal(t, analysis.ConfidenceMedium, result.Confidence)
	assert.Len(t, result.Suggestions, 2)

	assert.Equal(t, defaultModel, captured["model"])
	raw, err := json.Marshal(captured["messages"])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "555-123-4567")
	assert.Contains(t, string(raw), "[PHONE_REDACTED]")
}

func TestAnalyzer_TryAnalyze_APIError(t *testing.T) {
	calls := 0
	a := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"api_error","message":"overloaded"}}`)
	})

	outcome := a.TryAnalyze(context.Background(), testRequest())

	require.False(t, outcome.OK())
	var backendErr *analysis.BackendError
	require.ErrorAs(t, outcome.Err(), &backendErr)
	assert.Equal(t, analysis.CodeHTTPStatus, backendErr.Code)
	assert.Equal(t, http.StatusInternalServerError, backendErr.StatusCode)
	assert.Equal(t, 1, calls, "retries must be disabled")
}

func TestAnalyzer_TryAnalyze_UndecodableText(t *testing.T) {
	a := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, messageReply("Sure! Here is some advice for you."))
	})

	outcome := a.TryAnalyze(context.Background(), testRequest())

	require.False(t, outcome.OK())
	assert.Equal(t, analysis.CodeMalformedResponse, analysis.ErrorCode(outcome.Err()))
}

func TestAnalyzer_TryAnalyze_NotConfigured(t *testing.T) {
	outcome := NewAnalyzer(Config{}, nil).TryAnalyze(context.Background(), testRequest())

	require.False(t, outcome.OK())
	assert.Equal(t, analysis.CodeUnavailable, analysis.ErrorCode(outcome.Err()))
}
