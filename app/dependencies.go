package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/parentnote/backend/config"
	"github.com/parentnote/backend/internal/observability"
	"github.com/parentnote/backend/middleware"
	"github.com/parentnote/backend/repositories"
	"github.com/parentnote/backend/repositories/postgres"
	"github.com/parentnote/backend/services/analysis"
	"github.com/parentnote/backend/services/analysis/anthropic"
	"github.com/parentnote/backend/services/analysis/local"
	"github.com/parentnote/backend/services/analysis/remote"
	"github.com/parentnote/backend/services/records"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Children repositories.ChildRepository
	Records  repositories.RecordRepository

	// Metrics
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	// Analysis
	Orchestrator *analysis.Orchestrator

	// Services
	RecordService *records.Service

	// HTTP middleware
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter
}

// NewDependencies connects to the database and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := factory.InitSchema(ctx); err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := NewDependenciesWithFactory(cfg, factory, logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	return deps, nil
}

// NewDependenciesWithFactory wires everything on top of an existing repository factory
func NewDependenciesWithFactory(cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	// Initialize repositories
	repos := factory.NewRepositories()
	deps.Children = repos.Children
	deps.Records = repos.Records
	logger.Info("repositories initialized")

	if err := deps.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	orchestrator, err := NewOrchestrator(cfg.Analysis, deps.Metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize analysis: %w", err)
	}
	deps.Orchestrator = orchestrator

	deps.RecordService = records.NewService(repos, orchestrator, logger)

	deps.initAuth(cfg)
	deps.RateLimiter = middleware.NewRateLimiter(cfg.RateLimit.AnalysisPerMinute, cfg.RateLimit.AnalysisBurst, logger)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initMetrics creates a private registry carrying the analysis and runtime collectors
func (d *Dependencies) initMetrics() error {
	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := observability.NewMetrics(d.Registry)
	if err != nil {
		return err
	}
	d.Metrics = metrics
	return nil
}

// NewOrchestrator registers the configured backends. The local backend is always
// present so a configured remote service is never required.
func NewOrchestrator(cfg config.AnalysisConfig, recorder analysis.Recorder, logger *zap.Logger) (*analysis.Orchestrator, error) {
	var backends []analysis.Backend

	if cfg.Remote.Enabled() {
		backends = append(backends, remote.NewAnalyzer(remote.Config{
			BaseURL: cfg.Remote.BaseURL,
			APIKey:  cfg.Remote.APIKey,
			Model:   cfg.Remote.Model,
			Timeout: cfg.Remote.Timeout,
		}, logger))
		logger.Info("registered analysis backend", zap.String("backend", remote.Name))
	}

	if cfg.Anthropic.Enabled() {
		backends = append(backends, anthropic.NewAnalyzer(anthropic.Config{
			APIKey:  cfg.Anthropic.APIKey,
			Model:   cfg.Anthropic.Model,
			BaseURL: cfg.Anthropic.BaseURL,
			Timeout: cfg.Anthropic.Timeout,
		}, logger))
		logger.Info("registered analysis backend", zap.String("backend", anthropic.Name))
	}

	rules := local.DefaultRuleSet()
	if cfg.LocalRulesPath != "" {
		loaded, err := local.LoadRuleSet(cfg.LocalRulesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load local rules: %w", err)
		}
		rules = loaded
		logger.Info("loaded local analysis rules", zap.String("path", cfg.LocalRulesPath))
	}
	backends = append(backends, local.NewAnalyzer(rules, logger))

	if !cfg.Remote.Enabled() && !cfg.Anthropic.Enabled() {
		logger.Warn("no remote analysis backend configured, using local heuristics only")
	}

	return analysis.NewOrchestrator(logger, recorder, backends...), nil
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	if cfg.Auth.JWTSecret == "" {
		d.Logger.Warn("JWT secret not configured, protected endpoints will reject all requests")
	}
	validator := middleware.NewJWTValidator(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Close database connection
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.RepoFactory = nil
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return errors.Join(errs...)
}
