package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dx-junkyard/interest-category-matching/internal/config"
	"github.com/dx-junkyard/interest-category-matching/internal/core/ports"
	"github.com/dx-junkyard/interest-category-matching/internal/core/usecase"
	"github.com/dx-junkyard/interest-category-matching/internal/infrastructure/llm/ollama"
	natsqueue "github.com/dx-junkyard/interest-category-matching/internal/infrastructure/queue/nats"
	"github.com/dx-junkyard/interest-category-matching/internal/infrastructure/resilience"
	"github.com/dx-junkyard/interest-category-matching/internal/infrastructure/taxonomy/jsonl"
	"github.com/dx-junkyard/interest-category-matching/internal/infrastructure/taxonomy/postgres"
)

type App struct {
	Config config.Config

	Store    ports.TaxonomyStore
	Queue    ports.ResolveQueue
	Resolver ports.InterestResolver

	closeFn func()
}

func New(_ context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts: cfg.RetryMaxAttempts,
		BreakerEnabled:   cfg.BreakerEnabled,
	})

	store, closeStore, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		Timeout:            time.Duration(cfg.OllamaTimeoutSeconds) * time.Second,
		ResilienceExecutor: executor,
	})
	classifier := ollama.NewClassifier(ollamaClient)
	embedder := ollama.NewEmbedder(ollamaClient)

	resolver, err := usecase.NewResolveUseCase(store, classifier, embedder, usecase.ResolveOptions{
		TopSubCategories: cfg.ResolverTopSubCategories,
		TopLeaves:        cfg.ResolverTopLeaves,
		TopResults:       cfg.ResolverTopResults,
		AllGuessBranches: cfg.ResolverAllGuessBranches,
	}, logger)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("init resolver: %w", err)
	}

	var queue ports.ResolveQueue
	closeQueue := func() {}
	if cfg.NATSURL != "" {
		q, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, cfg.NATSResultSubject, natsqueue.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			closeStore()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		queue = q
		closeQueue = q.Close
	}

	return &App{
		Config:   cfg,
		Store:    store,
		Queue:    queue,
		Resolver: resolver,
		closeFn: func() {
			closeQueue()
			closeStore()
		},
	}, nil
}

func newStore(cfg config.Config) (ports.TaxonomyStore, func(), error) {
	switch cfg.TaxonomyBackend {
	case "", "jsonl":
		store, err := jsonl.New(cfg.TaxonomyDir, cfg.TaxonomyIndexFile)
		if err != nil {
			return nil, nil, fmt.Errorf("init jsonl taxonomy store: %w", err)
		}
		return store, func() {}, nil
	case "postgres":
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		return postgres.NewStore(db), func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown taxonomy backend: %q", cfg.TaxonomyBackend)
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
