package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parentnote/backend/services/analysis"
	"github.com/parentnote/backend/services/analysis/local"
	"github.com/parentnote/backend/services/analysis/remote"
)

func TestMetrics_ObserveAttempt(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.ObserveAttempt("remote", analysis.AttemptFailed, 120*time.Millisecond)
	m.ObserveAttempt("remote", analysis.AttemptFailed, 80*time.Millisecond)
	m.ObserveAttempt("local", analysis.AttemptSucceeded, time.Millisecond)
	m.ObserveAttempt("anthropic", analysis.AttemptSkipped, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.attemptsTotal.WithLabelValues("remote", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attemptsTotal.WithLabelValues("local", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attemptsTotal.WithLabelValues("anthropic", "skipped")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.attemptDuration), "skipped attempts are not timed")
}

func TestMetrics_ObserveResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.ObserveResult(analysis.SourceLocal, 10*time.Millisecond)
	m.ObserveResult(analysis.SourceFallback, time.Millisecond)
	m.ObserveResult(analysis.SourceLocal, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.resultsTotal.WithLabelValues("local")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resultsTotal.WithLabelValues("fallback")))
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	var already prometheus.AlreadyRegisteredError
	assert.True(t, errors.As(err, &already))
}

func TestMetrics_WithOrchestrator(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	o := analysis.NewOrchestrator(nil, m,
		remote.NewAnalyzer(remote.Config{}, nil),
		local.NewAnalyzer(nil, nil),
	)
	o.Analyze(context.Background(), analysis.Request{ChildAgeMonths: 36, BehaviorText: "shares a toy", Category: analysis.CategorySocial})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.attemptsTotal.WithLabelValues(remote.Name, "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attemptsTotal.WithLabelValues(local.Name, "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resultsTotal.WithLabelValues("local")))
}
