package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/interview-assistant/internal/assessment"
	"github.com/jonathan/interview-assistant/internal/config"
	"github.com/jonathan/interview-assistant/internal/db"
	"github.com/jonathan/interview-assistant/internal/interview"
	"github.com/jonathan/interview-assistant/internal/llm"
	"github.com/jonathan/interview-assistant/internal/logger"
	"github.com/jonathan/interview-assistant/internal/store"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	client  llm.Client
	gateway *assessment.Gateway
	store   *store.Store
	svc     *interview.Service

	closers []func()
}

// loadConfig reads the config file and applies the logging flags.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if jsonLogs {
		cfg.Log.JSON = true
	}
	if debugLogs {
		cfg.Log.Debug = true
	}

	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

// newGatewayApp wires config, logger and the assessment gateway.
func newGatewayApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, func() { _ = log.Sync() })

	if cfg.Offline() {
		log.Info("no Gemini API key configured, running offline")
	} else {
		client, err := llm.NewClient(ctx, cfg.LLMClientConfig(), cfg.LLM.APIKey)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.client = client
		a.closers = append(a.closers, func() { _ = client.Close() })
	}

	a.gateway = assessment.NewGateway(a.client,
		assessment.WithLogger(log),
		assessment.WithRecheckInterval(cfg.Assessment.RecheckInterval),
		assessment.WithCallTimeout(cfg.LLM.CallTimeout),
		assessment.WithThrottle(assessment.Throttle{
			Extract:   cfg.Assessment.Throttle.Extract,
			Generate:  cfg.Assessment.Throttle.Generate,
			Evaluate:  cfg.Assessment.Throttle.Evaluate,
			Summarize: cfg.Assessment.Throttle.Summarize,
		}))
	return a, nil
}

// newApp wires the full interview service over the configured store backend.
func newApp(ctx context.Context, opts ...interview.Option) (*app, error) {
	a, err := newGatewayApp(ctx)
	if err != nil {
		return nil, err
	}

	backend, err := a.openBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.store = store.New(backend, store.WithLogger(a.log))
	if err := a.store.Open(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open candidate store: %w", err)
	}

	a.svc = interview.NewService(a.store, a.gateway, append([]interview.Option{interview.WithLogger(a.log)}, opts...)...)
	a.closers = append(a.closers, a.svc.Close)
	return a, nil
}

// openBackend connects the persistence backend named in the config.
func (a *app) openBackend(ctx context.Context) (store.Backend, error) {
	sc := a.cfg.Store
	switch sc.Backend {
	case config.BackendMemory:
		return store.NewMemoryBackend(), nil
	case config.BackendRedis:
		client, err := store.ConnectRedis(ctx, store.RedisOptions{
			Addr:     sc.Redis.Addr,
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		return store.NewRedisBackend(client, sc.Redis.Key), nil
	case config.BackendPostgres:
		database, err := db.Connect(ctx, sc.Postgres.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, database.Close)
		if err := database.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store.NewPostgresBackend(database, sc.Postgres.Key), nil
	default:
		return store.NewFileBackend(sc.FilePath), nil
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
