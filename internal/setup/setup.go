// Package setup bootstraps the application dependencies in order.
package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/reveal-labs/reveal/internal/ai"
	"github.com/reveal-labs/reveal/internal/classify"
	"github.com/reveal-labs/reveal/internal/notify"
	"github.com/reveal-labs/reveal/internal/setup/config"
	"github.com/reveal-labs/reveal/internal/simulation"
	"github.com/reveal-labs/reveal/internal/storage"
	"github.com/reveal-labs/reveal/pkg/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// App bundles all core dependencies and services needed by the application.
type App struct {
	Config     *config.Config        // Application configuration
	Logger     *zap.Logger           // Main application logger
	Store      storage.Store         // Persistent key-value state
	AIClient   *ai.Client            // Local model client
	Analyzer   *classify.Analyzer    // Classification facade with fallback
	Dispatcher *notify.Dispatcher    // Parent alert dispatcher
	Tracker    *simulation.ProgressTracker // Per-mode points and badges
	Engine     *simulation.Engine          // Training simulation engine
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context) (*App, error) {
	cfg, configDir, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging comes up first to capture setup issues.
	logger, err := newLogger(cfg.Debug.LogLevel)
	if err != nil {
		return nil, err
	}

	logger.Info("Configuration loaded", zap.String("dir", configDir))

	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	aiClient := ai.NewClient(&cfg.Ollama, logger)

	// Non-fatal availability probe with backoff: the model may still be
	// starting up alongside us.
	status, err := utils.WithRetry(ctx, func() (*ai.ServiceStatus, error) {
		return aiClient.CheckStatus(ctx)
	}, utils.GetProbeRetryOptions())
	if err != nil {
		logger.Warn("Local model unavailable at startup, analysis will use rule fallback",
			zap.Error(err))
	} else {
		logger.Info("Local model available", zap.String("version", status.Version))
	}

	analyzer := classify.NewAnalyzer(aiClient, logger)

	relay := notify.NewEmailJSRelay(&cfg.Notifier, "", logger)
	composer := notify.NewExecComposer(logger)
	dispatcher := notify.NewDispatcher(&cfg.Notifier, store, relay, composer, time.Now, logger)

	tracker := simulation.NewProgressTracker()
	engine := simulation.NewEngine(aiClient, tracker, logger)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		AIClient:   aiClient,
		Analyzer:   analyzer,
		Dispatcher: dispatcher,
		Tracker:    tracker,
		Engine:     engine,
	}, nil
}

// Cleanup ensures graceful shutdown of the components that hold resources.
func (a *App) Cleanup() {
	if err := a.Store.Close(); err != nil {
		a.Logger.Error("Failed to close state store", zap.Error(err))
	}

	_ = a.Logger.Sync()
}

// openStore selects sqlite-backed or in-memory notification state.
func openStore(cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	if cfg.Notifier.StatePath == "" {
		logger.Debug("No state path configured, using in-memory store")
		return storage.NewMemoryStore(), nil
	}

	store, err := storage.OpenSQLite(cfg.Notifier.StatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	return store, nil
}

// newLogger builds the application logger at the configured level.
func newLogger(level string) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}
