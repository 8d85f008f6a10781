package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/terrafield/crewsheet-cli/internal/extract"
	"github.com/terrafield/crewsheet-cli/internal/imagery"
	"github.com/terrafield/crewsheet-cli/internal/learning"
	"github.com/terrafield/crewsheet-cli/internal/pipeline"
	"github.com/terrafield/crewsheet-cli/internal/scorer"
	"github.com/terrafield/crewsheet-cli/internal/store"
	"github.com/terrafield/crewsheet-cli/pkg/vision"
)

// appEnv holds the initialized store and pipeline used by the commands.
type appEnv struct {
	Store   store.Store
	Service *pipeline.Service
	Learner *learning.Engine
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initEnv validates the config for the given mode, opens the store, and
// wires the full pipeline. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	client := vision.NewClient(cfg.Anthropic.Key, cfg.Anthropic.Model)
	validator := scorer.NewQualityValidator()
	orchestrator := extract.NewOrchestrator(
		imagery.NewAssessor(),
		imagery.NewPreprocessor(),
		extract.NewExtractor(client, validator),
		extract.NewMultiStage(client, validator),
		extract.SelectionConfig{
			LowQualityCutoff: cfg.Extraction.LowQualityCutoff,
			MidQualityCutoff: cfg.Extraction.MidQualityCutoff,
			MaxStrategies:    cfg.Extraction.MaxStrategies,
		},
	)

	cache := learning.NewTTLCache()
	learner := learning.NewEngine(st, cache, learning.Settings{
		PatternCacheTTL:  time.Duration(cfg.Learning.PatternCacheTTLSecs) * time.Second,
		FeedbackCacheTTL: time.Duration(cfg.Learning.FeedbackCacheTTLSecs) * time.Second,
		PatternWindow:    time.Duration(cfg.Learning.PatternWindowDays) * 24 * time.Hour,
		PatternMinEdits:  cfg.Learning.PatternMinEdits,
	})

	svc := pipeline.NewService(st, orchestrator, pipeline.ServiceConfig{
		FieldWeights: scorer.FieldWeights{
			OCR:         cfg.Scoring.FieldWeightOCR,
			Structure:   cfg.Scoring.FieldWeightStructure,
			Consistency: cfg.Scoring.FieldWeightConsistent,
			Historical:  cfg.Scoring.FieldWeightHistorical,
		},
		ReviewThreshold: cfg.Scoring.ReviewThreshold,
		PairHoursPieces: cfg.Scoring.PairHoursPieces,
	}, learner, learning.NewPromptManager(cache))

	zap.L().Info("pipeline initialized",
		zap.String("store", cfg.Store.Driver),
		zap.String("model", cfg.Anthropic.Model),
	)

	return &appEnv{Store: st, Service: svc, Learner: learner}, nil
}
