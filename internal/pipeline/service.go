// Package pipeline ties extraction, scoring, persistence, and learning into
// the end-to-end crew sheet workflow.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/terrafield/crewsheet-cli/internal/extract"
	"github.com/terrafield/crewsheet-cli/internal/learning"
	"github.com/terrafield/crewsheet-cli/internal/model"
	"github.com/terrafield/crewsheet-cli/internal/scorer"
	"github.com/terrafield/crewsheet-cli/internal/store"
)

// recentSheetWindow bounds how many completed sheets feed historical scoring.
const recentSheetWindow = 10

// Extractor runs the smart-retry cascade for one image.
type Extractor interface {
	Execute(ctx context.Context, req extract.Request) (*model.ExtractionResult, error)
}

// Options tunes one processing run.
type Options struct {
	TemplateID    string
	MaxStrategies int
	MinConfidence float64
}

// Outcome is everything one processed sheet produced.
type Outcome struct {
	Sheet       *model.Sheet            `json:"sheet"`
	Result      *model.ExtractionResult `json:"result"`
	Assessment  *scorer.Assessment      `json:"assessment,omitempty"`
	Context     *scorer.ContextOutcome  `json:"context,omitempty"`
	FieldScores []model.FieldConfidence `json:"field_scores,omitempty"`
}

// ServiceConfig carries the scoring knobs the service needs.
type ServiceConfig struct {
	FieldWeights    scorer.FieldWeights
	ReviewThreshold float64
	PairHoursPieces bool
}

// DefaultServiceConfig returns the standard scoring configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		FieldWeights:    scorer.DefaultFieldWeights(),
		ReviewThreshold: 0.7,
		PairHoursPieces: true,
	}
}

// Service is the application facade over the extraction pipeline.
type Service struct {
	store      store.Store
	extractor  Extractor
	ctxVal     *scorer.ContextAwareValidator
	enhanced   *scorer.EnhancedScorer
	fields     *scorer.FieldScorer
	learner    *learning.Engine
	prompts    *learning.PromptManager
	pairFields bool
}

// NewService wires the pipeline from its parts. learner and prompts may be
// nil when the learning loop is not configured.
func NewService(st store.Store, ex Extractor, cfg ServiceConfig, learner *learning.Engine, prompts *learning.PromptManager) *Service {
	if cfg.FieldWeights == (scorer.FieldWeights{}) {
		cfg.FieldWeights = scorer.DefaultFieldWeights()
	}
	return &Service{
		store:      st,
		extractor:  ex,
		ctxVal:     scorer.NewContextAwareValidator(),
		enhanced:   scorer.NewEnhancedScorer(cfg.ReviewThreshold),
		fields:     scorer.NewFieldScorer(cfg.FieldWeights),
		learner:    learner,
		prompts:    prompts,
		pairFields: cfg.PairHoursPieces,
	}
}

// ProcessSheet runs the full workflow for one image: record the sheet, run
// the retry cascade, adjust and assess confidence, persist per-cell scores,
// and mark the sheet complete or failed.
func (s *Service) ProcessSheet(ctx context.Context, userID, imagePath string, opts Options) (*Outcome, error) {
	sheet, err := s.store.CreateSheet(ctx, userID, imagePath)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create sheet")
	}
	log := zap.L().With(zap.String("sheet_id", sheet.ID), zap.String("image", imagePath))

	if err := s.store.UpdateSheetStatus(ctx, sheet.ID, model.SheetStatusProcessing); err != nil {
		return nil, eris.Wrap(err, "pipeline: mark processing")
	}

	profile, template, recent := s.loadContext(ctx, userID, opts.TemplateID)

	req := extract.Request{
		ImagePath:     imagePath,
		Template:      template,
		Profile:       profile,
		MaxStrategies: opts.MaxStrategies,
		MinConfidence: opts.MinConfidence,
	}
	if s.prompts != nil {
		req.Adaptive = s.prompts.Additions(userID)
	}

	result, err := s.extractor.Execute(ctx, req)
	if err != nil {
		if failErr := s.store.FailSheet(ctx, sheet.ID, err.Error()); failErr != nil {
			log.Warn("pipeline: mark failed", zap.Error(failErr))
		}
		return nil, eris.Wrap(err, "pipeline: extract")
	}

	if !result.Valid {
		if err := s.store.FailSheet(ctx, sheet.ID, result.ErrorMessage); err != nil {
			return nil, eris.Wrap(err, "pipeline: mark failed")
		}
		sheet.Status = model.SheetStatusFailed
		sheet.ErrorMessage = result.ErrorMessage
		log.Warn("pipeline: extraction failed", zap.String("reason", result.ErrorMessage))
		return &Outcome{Sheet: sheet, Result: result}, nil
	}

	s.annotateMetadata(result, profile, template)

	ctxOutcome := s.ctxVal.Validate(result, scorer.ValidationContext{
		RecentResults:   recentResults(recent),
		Profile:         profile,
		Template:        template,
		PairHoursPieces: s.pairFields,
	})
	result.Confidence = ctxOutcome.Adjusted
	result.ValidationIssues = append(result.ValidationIssues, ctxOutcome.Errors...)

	fieldScores := s.scoreFields(ctx, sheet.ID, userID, result)

	assessment := s.enhanced.Assess(result, scorer.AssessmentInput{
		Template:          template,
		FieldScores:       fieldScores,
		RecentConfidences: recentConfidences(recent),
	})

	s.persistQuality(ctx, sheet.ID, result, &assessment, fieldScores, log)
	s.recordTemplateUse(ctx, template, result.Confidence, log)

	if err := s.store.CompleteSheet(ctx, sheet.ID, result, assessment.NeedsReview); err != nil {
		return nil, eris.Wrap(err, "pipeline: complete sheet")
	}
	sheet.Status = model.SheetStatusCompleted
	sheet.Result = result
	sheet.NeedsReview = assessment.NeedsReview

	log.Info("pipeline: sheet processed",
		zap.Float64("confidence", result.Confidence),
		zap.String("level", assessment.Level),
		zap.Bool("needs_review", assessment.NeedsReview),
	)
	return &Outcome{
		Sheet:       sheet,
		Result:      result,
		Assessment:  &assessment,
		Context:     &ctxOutcome,
		FieldScores: fieldScores,
	}, nil
}

// ProcessFeedback records one user correction and runs the learning loop.
func (s *Service) ProcessFeedback(ctx context.Context, edit *model.UserEdit) (*learning.FeedbackResult, error) {
	if s.learner == nil {
		return nil, eris.New("pipeline: learning engine not configured")
	}
	return s.learner.Process(ctx, edit)
}

// loadContext fetches the profile, template, and recent completed sheets for
// the user. All three are optional; lookup failures degrade to nil.
func (s *Service) loadContext(ctx context.Context, userID, templateID string) (*model.CompanyProfile, *model.SheetTemplate, []model.Sheet) {
	var profile *model.CompanyProfile
	if userID != "" {
		p, err := s.store.GetProfile(ctx, userID)
		if err != nil {
			zap.L().Warn("pipeline: load profile", zap.Error(err))
		} else {
			profile = p
		}
	}

	var template *model.SheetTemplate
	if templateID != "" {
		t, err := s.store.GetTemplate(ctx, templateID)
		if err != nil {
			zap.L().Warn("pipeline: load template", zap.Error(err))
		} else if t == nil {
			zap.L().Warn("pipeline: template not found", zap.String("template_id", templateID))
		} else {
			template = t
		}
	}

	recent, err := s.store.ListSheets(ctx, store.SheetFilter{
		UserID: userID,
		Status: model.SheetStatusCompleted,
		Limit:  recentSheetWindow,
	})
	if err != nil {
		zap.L().Warn("pipeline: load recent sheets", zap.Error(err))
	}

	return profile, template, recent
}

func (s *Service) annotateMetadata(result *model.ExtractionResult, profile *model.CompanyProfile, template *model.SheetTemplate) {
	if result.Metadata == nil {
		result.Metadata = &model.ExtractionMetadata{}
	}
	if profile != nil {
		result.Metadata.ProfileID = profile.ID
	}
	if template != nil {
		result.Metadata.TemplateID = template.ID
	}
}

// avgHistory adapts the store's per-field averages to the field scorer.
type avgHistory map[string]float64

func (h avgHistory) FieldConfidence(fieldName string) (float64, bool) {
	v, ok := h[fieldName]
	return v, ok
}

func (s *Service) scoreFields(ctx context.Context, sheetID, userID string, result *model.ExtractionResult) []model.FieldConfidence {
	var hist scorer.HistoricalSource
	if userID != "" {
		avgs, err := s.store.AverageFieldConfidence(ctx, userID)
		if err != nil {
			zap.L().Warn("pipeline: load field averages", zap.Error(err))
		} else if len(avgs) > 0 {
			hist = avgHistory(avgs)
		}
	}
	return s.fields.ScoreAll(sheetID, result, hist)
}

// persistQuality saves field scores and the assessment. Both are advisory
// records; failures are logged and do not fail the run.
func (s *Service) persistQuality(ctx context.Context, sheetID string, result *model.ExtractionResult, a *scorer.Assessment, fieldScores []model.FieldConfidence, log *zap.Logger) {
	if err := s.store.SaveFieldConfidence(ctx, fieldScores); err != nil {
		log.Warn("pipeline: save field confidence", zap.Error(err))
	}

	issues := append(append([]string{}, a.RedFlags...), a.Warnings...)
	record := &model.SheetAssessment{
		SheetID:            sheetID,
		ExtractionAccuracy: a.Confidence,
		DataCompleteness:   result.FilledCellRatio(),
		FormatConsistency:  a.Breakdown.DataConsistency,
		Issues:             issues,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.store.SaveAssessment(ctx, record); err != nil {
		log.Warn("pipeline: save assessment", zap.Error(err))
	}
}

func (s *Service) recordTemplateUse(ctx context.Context, template *model.SheetTemplate, confidence float64, log *zap.Logger) {
	if template == nil {
		return
	}
	template.RecordUse(confidence)
	if err := s.store.SaveTemplate(ctx, template); err != nil {
		log.Warn("pipeline: save template usage", zap.Error(err))
	}
}

func recentResults(sheets []model.Sheet) []*model.ExtractionResult {
	var out []*model.ExtractionResult
	for i := range sheets {
		if sheets[i].Result != nil {
			out = append(out, sheets[i].Result)
		}
	}
	return out
}

func recentConfidences(sheets []model.Sheet) []float64 {
	var out []float64
	for i := range sheets {
		if sheets[i].Result != nil {
			out = append(out, sheets[i].Result.Confidence)
		}
	}
	return out
}
