package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/health-doc-pipeline/internal/config"
	"github.com/kirillkom/health-doc-pipeline/internal/core/ports"
	"github.com/kirillkom/health-doc-pipeline/internal/core/usecase"
	"github.com/kirillkom/health-doc-pipeline/internal/infrastructure/analyzer"
	"github.com/kirillkom/health-doc-pipeline/internal/infrastructure/classifier"
	"github.com/kirillkom/health-doc-pipeline/internal/infrastructure/export"
	"github.com/kirillkom/health-doc-pipeline/internal/infrastructure/extractor"
	"github.com/kirillkom/health-doc-pipeline/internal/infrastructure/llm/openaicompat"
	"github.com/kirillkom/health-doc-pipeline/internal/infrastructure/queue/nats"
	"github.com/kirillkom/health-doc-pipeline/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/health-doc-pipeline/internal/infrastructure/resilience"
	"github.com/kirillkom/health-doc-pipeline/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue    ports.MessageQueue
	Repo     ports.AnalysisRepository
	IngestUC ports.DocumentIngestor
	QueryUC  ports.DocumentQueryService
	AssessUC ports.HealthAdvisor
	Pipeline ports.DocumentAnalysisPipeline
	Exporter *export.Service

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewAnalysisRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	store, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init file store: %w", err)
	}

	exec := resilience.NewExecutor(resilience.DefaultConfig(), logger)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: exec,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	completion := openaicompat.New(openaicompat.Config{
		BaseURL: cfg.CompletionBaseURL,
		APIKey:  cfg.CompletionAPIKey,
		Model:   cfg.CompletionModel,
	}, exec, logger)

	docAnalyzer, err := analyzer.New(completion, logger)
	if err != nil {
		return nil, fmt.Errorf("init analyzer: %w", err)
	}

	keyword, err := classifier.NewKeyword()
	if err != nil {
		return nil, fmt.Errorf("init classifier: %w", err)
	}

	registry := extractor.New(extractor.Config{
		Tesseract:     cfg.TesseractBinary,
		TesseractLang: cfg.TesseractLang,
	}, logger)

	ingestUC := usecase.NewIngestDocumentUseCase(repo, store, queue)
	analyzeUC := usecase.NewAnalyzeDocumentUseCase(repo, store, registry, keyword, classifier.NewScorer(), docAnalyzer)
	queryUC := usecase.NewQueryUseCase(repo)
	assessUC := usecase.NewAssessUseCase(docAnalyzer)
	exporter := export.NewService(repo, logger)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:    queue,
		Repo:     repo,
		IngestUC: ingestUC,
		QueryUC:  queryUC,
		AssessUC: assessUC,
		Pipeline: analyzeUC,
		Exporter: exporter,

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
