package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kdocs/attribution-engine/internal/config"
	"github.com/kdocs/attribution-engine/internal/core/engine"
	"github.com/kdocs/attribution-engine/internal/core/ports"
	"github.com/kdocs/attribution-engine/internal/core/usecase"
	natsqueue "github.com/kdocs/attribution-engine/internal/infrastructure/queue/nats"
	"github.com/kdocs/attribution-engine/internal/infrastructure/repository/postgres"
	"github.com/kdocs/attribution-engine/internal/infrastructure/resilience"
	"github.com/kdocs/attribution-engine/internal/observability/logging"
)

// App wires the attribution stack for a process. Both the API and the
// worker boot through here so they share the same repositories, engine
// configuration, and queue settings.
type App struct {
	Config config.Config
	Log    *slog.Logger

	Queue ports.MessageQueue
	Docs  ports.DocumentRepository

	SuggestUC    *usecase.SuggestUseCase
	CorrectionUC *usecase.RecordCorrectionUseCase
	ReclassifyUC *usecase.ReclassifyUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	log := logging.NewJSONLogger(service, cfg.LogLevel)

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, fmt.Errorf("load engine config: %w", err)
	}
	eng, err := engine.New(engineCfg, log)
	if err != nil {
		return nil, fmt.Errorf("init engine: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	docs := postgres.NewDocumentRepository(db)
	rules := postgres.NewRuleRepository(db)
	corrections := postgres.NewCorrectionRepository(db)
	if err := docs.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure documents schema: %w", err)
	}
	if err := rules.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure rules schema: %w", err)
	}
	if err := corrections.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure corrections schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), log)
	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		ResilienceExecutor: executor,
		Logger:             log,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	suggestUC := usecase.NewSuggestUseCase(docs, rules, corrections, eng, cfg.CorpusWindow, cfg.SuggestionThreshold, log)
	correctionUC := usecase.NewRecordCorrectionUseCase(docs, corrections, eng, log)
	reclassifyUC := usecase.NewReclassifyUseCase(docs, suggestUC, correctionUC, queue, cfg.AutoApplyThreshold, log)

	return &App{
		Config: cfg,
		Log:    log,
		Queue:  queue,
		Docs:   docs,

		SuggestUC:    suggestUC,
		CorrectionUC: correctionUC,
		ReclassifyUC: reclassifyUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
