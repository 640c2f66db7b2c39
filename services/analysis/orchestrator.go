package analysis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AttemptOutcome labels what happened to one backend within a call
type AttemptOutcome string

const (
	AttemptSkipped   AttemptOutcome = "skipped"
	AttemptFailed    AttemptOutcome = "failed"
	AttemptSucceeded AttemptOutcome = "succeeded"
)

// Attempt is one entry of the request-scoped attempt log
type Attempt struct {
	Backend  string
	Outcome  AttemptOutcome
	Error    string
	Duration time.Duration
}

// BackendStatus is the availability report for one backend
type BackendStatus struct {
	Name      string `json:"name"`
	Priority  int    `json:"priority"`
	Available bool   `json:"available"`
}

// Recorder receives metrics about analysis calls
type Recorder interface {
	ObserveAttempt(backend string, outcome AttemptOutcome, duration time.Duration)
	ObserveResult(source Source, duration time.Duration)
}

// NopRecorder discards all observations
type NopRecorder struct{}

func (NopRecorder) ObserveAttempt(string, AttemptOutcome, time.Duration) {}
func (NopRecorder) ObserveResult(Source, time.Duration)                  {}

// Orchestrator walks a fixed, priority-ordered list of backends and always
// returns a usable result. The backend list is read-only after construction,
// so one Orchestrator can serve concurrent requests.
type Orchestrator struct {
	backends []Backend
	logger   *zap.Logger
	recorder Recorder
}

// NewOrchestrator creates an orchestrator over backends.
// Backends are sorted by descending priority; equal priorities keep the
// order in which they were passed.
func NewOrchestrator(logger *zap.Logger, recorder Recorder, backends ...Backend) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}

	ordered := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b != nil {
			ordered = append(ordered, b)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() > ordered[j].Priority()
	})

	names := make([]string, len(ordered))
	for i, b := range ordered {
		names[i] = b.Name()
	}
	logger.Info("analysis orchestrator initialized", zap.Strings("backends", names))

	return &Orchestrator{
		backends: ordered,
		logger:   logger,
		recorder: recorder,
	}
}

// Backends returns the registered backend names in the order they are tried
func (o *Orchestrator) Backends() []string {
	names := make([]string, len(o.backends))
	for i, b := range o.backends {
		names[i] = b.Name()
	}
	return names
}

// Analyze returns the first successful backend result, or the synthesized
// fallback when every backend is unavailable or fails. It never fails.
func (o *Orchestrator) Analyze(ctx context.Context, req Request) Result {
	result, _ := o.AnalyzeWithAttempts(ctx, req)
	return result
}

// AnalyzeWithAttempts behaves like Analyze and also returns the attempt log
// of this call.
func (o *Orchestrator) AnalyzeWithAttempts(ctx context.Context, req Request) (Result, []Attempt) {
	start := time.Now()
	attempts := make([]Attempt, 0, len(o.backends))

	for _, backend := range o.backends {
		name := backend.Name()
		attemptStart := time.Now()

		if !o.checkAvailable(ctx, backend) {
			attempts = append(attempts, Attempt{Backend: name, Outcome: AttemptSkipped})
			o.recorder.ObserveAttempt(name, AttemptSkipped, 0)
			o.logger.Debug("analysis backend unavailable, skipping", zap.String("backend", name))
			continue
		}

		outcome := o.invoke(ctx, backend, req)
		elapsed := time.Since(attemptStart)

		if outcome.OK() {
			attempts = append(attempts, Attempt{Backend: name, Outcome: AttemptSucceeded, Duration: elapsed})
			o.recorder.ObserveAttempt(name, AttemptSucceeded, elapsed)

			result := outcome.Result()
			o.recorder.ObserveResult(result.Source, time.Since(start))
			o.logger.Info("analysis completed",
				zap.String("backend", name),
				zap.String("source", string(result.Source)),
				zap.String("confidence", string(result.Confidence)),
				zap.Int("attempts", len(attempts)),
				zap.Duration("latency", time.Since(start)))
			return result, attempts
		}

		attempts = append(attempts, Attempt{
			Backend:  name,
			Outcome:  AttemptFailed,
			Error:    outcome.Err().Error(),
			Duration: elapsed,
		})
		o.recorder.ObserveAttempt(name, AttemptFailed, elapsed)
		o.logger.Warn("analysis backend failed, trying next",
			zap.String("backend", name),
			zap.String("code", ErrorCode(outcome.Err())),
			zap.Duration("elapsed", elapsed),
			zap.Error(outcome.Err()))
	}

	result := BuildFallback(req)
	o.recorder.ObserveResult(result.Source, time.Since(start))
	o.logger.Warn("all analysis backends exhausted, using fallback result",
		zap.Int("attempts", len(attempts)),
		zap.Any("attempt_log", attempts))
	return result, attempts
}

// ListBackendStatus reports every backend's availability in priority order.
// Checks run concurrently and never fail; a panicking check reports false.
func (o *Orchestrator) ListBackendStatus(ctx context.Context) []BackendStatus {
	statuses := make([]BackendStatus, len(o.backends))

	var g errgroup.Group
	for i, backend := range o.backends {
		statuses[i] = BackendStatus{Name: backend.Name(), Priority: backend.Priority()}
		g.Go(func() error {
			statuses[i].Available = o.checkAvailable(ctx, backend)
			return nil
		})
	}
	_ = g.Wait()

	return statuses
}

// checkAvailable calls IsAvailable and treats a panic as unavailable
func (o *Orchestrator) checkAvailable(ctx context.Context, backend Backend) (available bool) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("analysis backend availability check panicked",
				zap.String("backend", backend.Name()),
				zap.Any("panic", r))
			available = false
		}
	}()
	return backend.IsAvailable(ctx)
}

// invoke calls TryAnalyze and turns panics, empty outcomes and incomplete results into failures
func (o *Orchestrator) invoke(ctx context.Context, backend Backend, req Request) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Failed(NewBackendError(backend.Name(), CodePanic, fmt.Sprintf("analysis panicked: %v", r), 0, nil))
		}
	}()

	outcome = backend.TryAnalyze(ctx, req)
	if !outcome.OK() {
		if outcome.Err() == nil {
			return Failed(NewBackendError(backend.Name(), CodeInvalidResult, "backend returned an empty outcome", 0, nil))
		}
		return outcome
	}
	if err := outcome.Result().Validate(); err != nil {
		return Failed(NewBackendError(backend.Name(), CodeInvalidResult, "backend returned an incomplete result", 0, err))
	}
	return Succeeded(outcome.Result().clone())
}
