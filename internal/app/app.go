// Package app assembles the bot from config: storage driver, provider and
// sink clients, the detection engine, the HTTP surface and the poll worker.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/matchpoint/external/sofascore"
	"github.com/riskibarqy/matchpoint/external/telegram"
	"github.com/riskibarqy/matchpoint/internal/config"
	"github.com/riskibarqy/matchpoint/internal/domain/notification"
	"github.com/riskibarqy/matchpoint/internal/domain/user"
	"github.com/riskibarqy/matchpoint/internal/domain/watchlist"
	"github.com/riskibarqy/matchpoint/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/matchpoint/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/matchpoint/internal/infrastructure/repository/sqlite"
	"github.com/riskibarqy/matchpoint/internal/interfaces/botapi"
	"github.com/riskibarqy/matchpoint/internal/observability"
	"github.com/riskibarqy/matchpoint/internal/platform/logging"
	"github.com/riskibarqy/matchpoint/internal/platform/resilience"
	"github.com/riskibarqy/matchpoint/internal/usecase"
)

// App holds the long-lived pieces main runs and later shuts down.
type App struct {
	Config config.Config
	Logger *logging.Logger
	Server *http.Server
	// Worker is nil when POLL_ENABLED=false; the internal jobs endpoint
	// still drives cycles on demand.
	Worker *usecase.PollWorker

	slog      *slog.Logger
	messenger *telegram.Client
	closers   []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

func (a *App) addCloser(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// New builds the whole object graph. Callers own Server and Worker
// lifecycles; Close releases everything else in reverse order.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	baseLogger := logging.NewJSON(cfg.LogLevel)
	logger, logFlush, err := observability.InitBetterStackLogger(cfg, baseLogger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logging.SetDefault(logger)

	app := &App{
		Config: cfg,
		Logger: logger,
		slog: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slogLevel(cfg.LogLevel),
		})),
	}
	app.addCloser("logger", logFlush)

	traceShutdown, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		_ = app.Close(ctx)
		return nil, fmt.Errorf("init uptrace: %w", err)
	}
	app.addCloser("uptrace", traceShutdown)

	profStop, err := observability.InitPyroscope(cfg, app.slog)
	if err != nil {
		_ = app.Close(ctx)
		return nil, fmt.Errorf("init pyroscope: %w", err)
	}
	app.addCloser("pyroscope", func(context.Context) error { return profStop() })

	pprofSrv, err := observability.StartPprofServer(cfg, app.slog)
	if err != nil {
		_ = app.Close(ctx)
		return nil, fmt.Errorf("start pprof: %w", err)
	}
	if pprofSrv != nil {
		app.addCloser("pprof", func(context.Context) error {
			return observability.StopPprofServer(pprofSrv, app.slog, 5*time.Second)
		})
	}

	userRepo, watchRepo, notifiedRepo, storage, err := app.openStorage(ctx)
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}

	provider := sofascore.NewClient(sofascore.ClientConfig{
		BaseURLs:    cfg.SofaScoreBaseURLs,
		Timeout:     cfg.SofaScoreTimeout,
		MaxRetries:  cfg.SofaScoreMaxRetries,
		RateLimit:   cfg.SofaScoreRateLimit,
		RateBurst:   cfg.SofaScoreRateBurst,
		ScheduleTTL: cfg.ScheduleCacheTTL,
		Logger:      logger.Named("sofascore"),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.SofaScoreCircuitEnabled,
			FailureThreshold: cfg.SofaScoreCircuitFailureCount,
			OpenTimeout:      cfg.SofaScoreCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.SofaScoreCircuitHalfOpenMaxReq,
		},
	})

	messenger, sink := app.buildMessenger()

	detector := usecase.NewDetectionService(
		userRepo,
		watchRepo,
		notifiedRepo,
		provider,
		sink,
		logger.Named("detection"),
		usecase.DetectionConfig{
			WorkerCount:   cfg.WorkerConcurrency,
			RetentionDays: cfg.NotifiedRetentionDays,
			AdminChatID:   cfg.AdminChatID,
		},
	)
	watchlists := usecase.NewWatchlistService(userRepo, watchRepo, provider)

	handler := botapi.NewHandler(
		watchlists,
		detector,
		messenger,
		storage,
		cfg.TelegramWebhookSecret,
		cfg.PollInterval,
		app.slog,
	)
	router := botapi.NewRouter(handler, app.slog, cfg.InternalJobToken)

	app.Server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if app.Server.Addr == "" {
		_ = app.Close(ctx)
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	if cfg.PollEnabled {
		app.Worker = usecase.NewPollWorker(detector, logger.Named("worker"), cfg.PollInterval, cfg.CycleTimeout)
	} else {
		logger.Info("poll worker disabled", "reason", "POLL_ENABLED=false")
	}

	return app, nil
}

// RegisterWebhook points the Bot API at this deployment. Only acts when a
// public URL is configured; existing registrations are left alone otherwise.
func (a *App) RegisterWebhook(ctx context.Context) error {
	if !a.Config.TelegramEnabled || a.Config.TelegramWebhookURL == "" || a.messenger == nil {
		return nil
	}
	if err := a.messenger.SetWebhook(ctx, a.Config.TelegramWebhookURL, a.Config.TelegramWebhookSecret); err != nil {
		return fmt.Errorf("register telegram webhook: %w", err)
	}
	a.Logger.Info("telegram webhook registered", "url", a.Config.TelegramWebhookURL)
	return nil
}

// Close releases resources in reverse construction order. Errors are logged
// and the remaining closers still run.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			a.Logger.Error("close failed", "component", c.name, "error", err.Error())
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	a.closers = nil
	return firstErr
}

func (a *App) openStorage(ctx context.Context) (user.Repository, watchlist.Repository, notification.Repository, botapi.StoragePinger, error) {
	cfg := a.Config
	switch cfg.StorageDriver {
	case config.StorageDriverPostgres:
		db, err := postgres.Open(ctx, cfg.DBURL)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("open storage: %w", err)
		}
		a.trackDB(db)
		a.Logger.Info("storage ready",
			"driver", cfg.StorageDriver, "db", dbNameFromURL(cfg.DBURL))
		return postgres.NewUserRepository(db), postgres.NewWatchlistRepository(db), postgres.NewNotifiedRepository(db), db, nil
	case config.StorageDriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("open storage: %w", err)
		}
		a.trackDB(db)
		a.Logger.Info("storage ready", "driver", cfg.StorageDriver, "path", cfg.SQLitePath)
		return sqlite.NewUserRepository(db), sqlite.NewWatchlistRepository(db), sqlite.NewNotifiedRepository(db), db, nil
	case config.StorageDriverMemory:
		a.Logger.Warn("storage ready", "driver", cfg.StorageDriver, "persistence", false)
		return memory.NewUserRepository(), memory.NewWatchlistRepository(), memory.NewNotifiedRepository(), nil, nil
	default:
		return nil, nil, nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func (a *App) trackDB(db *sqlx.DB) {
	a.addCloser("storage", func(context.Context) error { return db.Close() })
}

// buildMessenger returns the webhook-reply messenger and the detection sink.
// Both are the real Bot API client when a token is configured; the log sink
// otherwise, so dry runs still walk the whole detection path.
func (a *App) buildMessenger() (botapi.Messenger, usecase.NotificationSink) {
	cfg := a.Config
	if !cfg.TelegramEnabled {
		a.Logger.Info("telegram disabled, using log sink", "reason", "TELEGRAM_ENABLED=false")
		sink := telegram.NewLogSink(a.Logger.Named("logsink"))
		return sink, sink
	}

	client := telegram.NewClient(telegram.ClientConfig{
		BaseURL:    cfg.TelegramAPIBaseURL,
		Token:      cfg.TelegramBotToken,
		Timeout:    cfg.TelegramTimeout,
		MaxRetries: cfg.TelegramMaxRetries,
		Logger:     a.Logger.Named("telegram"),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.TelegramCircuitEnabled,
			FailureThreshold: cfg.TelegramCircuitFailureCount,
			OpenTimeout:      cfg.TelegramCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.TelegramCircuitHalfOpenMaxReq,
		},
	})
	a.messenger = client
	return client, client
}

func slogLevel(level logging.Level) slog.Level {
	switch {
	case level <= logging.LevelDebug:
		return slog.LevelDebug
	case level >= logging.LevelError:
		return slog.LevelError
	case level == logging.LevelWarn:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
