package extract

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/terrafield/crewsheet-cli/internal/imagery"
	"github.com/terrafield/crewsheet-cli/internal/model"
)

// allStrategiesFailed is the error message carried by a fully failed run.
const allStrategiesFailed = "All retry strategies failed"

// Request bundles everything needed for one smart-retry extraction run.
type Request struct {
	ImagePath     string
	Template      *model.SheetTemplate
	Profile       *model.CompanyProfile
	Adaptive      string
	MaxStrategies int
	MinConfidence float64
}

// strategyRunner executes one strategy against an image.
type strategyRunner interface {
	Extract(ctx context.Context, imagePath string, st Strategy, tmpl *model.SheetTemplate, profile *model.CompanyProfile, adaptive string) (*model.ExtractionResult, error)
}

// QualityAssessor measures image quality ahead of strategy selection.
type QualityAssessor interface {
	Assess(path string) imagery.QualityReport
}

// Preprocessor rewrites an image for OCR, returning the path to use.
type Preprocessor interface {
	Optimize(path string, aggressive bool) string
	Adaptive(path string, report imagery.QualityReport) string
}

// Orchestrator runs strategies sequentially against a sheet image, keeping
// the best valid result and stopping early once confidence is good enough.
type Orchestrator struct {
	assessor  QualityAssessor
	pre       Preprocessor
	single    strategyRunner
	multi     strategyRunner
	selection SelectionConfig
}

// NewOrchestrator wires the orchestrator from its stages.
func NewOrchestrator(assessor QualityAssessor, pre Preprocessor, single, multi strategyRunner, selection SelectionConfig) *Orchestrator {
	return &Orchestrator{
		assessor:  assessor,
		pre:       pre,
		single:    single,
		multi:     multi,
		selection: selection,
	}
}

// Execute runs the smart-retry cascade. Extraction failures are values: the
// returned result is always non-nil, with Valid=false and full attempt
// history when every strategy failed. The error is reserved for context
// cancellation.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (*model.ExtractionResult, error) {
	start := time.Now()

	quality := o.assessor.Assess(req.ImagePath)
	sel := o.selection
	if req.MaxStrategies > 0 {
		sel.MaxStrategies = req.MaxStrategies
	}
	minConfidence := req.MinConfidence
	if minConfidence <= 0 {
		minConfidence = 0.7
	}

	plan := SelectStrategies(quality.Overall, req.Template != nil, sel)
	zap.L().Info("extract: strategy plan",
		zap.String("image", req.ImagePath),
		zap.Float64("quality", quality.Overall),
		zap.Strings("strategies", strategyNames(plan)),
	)

	var (
		best       *model.ExtractionResult
		history    []model.StrategyAttempt
		successful int
	)

	for _, st := range plan {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		imagePath := req.ImagePath
		if st.Preprocess {
			if st.Name == "aggressive" {
				imagePath = o.pre.Optimize(req.ImagePath, true)
			} else {
				imagePath = o.pre.Adaptive(req.ImagePath, quality)
			}
		}

		runner := o.single
		if st.MultiStage {
			runner = o.multi
		}

		attemptStart := time.Now()
		res, err := runner.Extract(ctx, imagePath, st, req.Template, req.Profile, req.Adaptive)
		attempt := model.StrategyAttempt{
			Strategy:   st.Name,
			DurationMS: time.Since(attemptStart).Milliseconds(),
		}

		switch {
		case err != nil:
			attempt.Error = err.Error()
			zap.L().Warn("extract: strategy failed",
				zap.String("strategy", st.Name),
				zap.Error(err),
			)
		case res.Valid:
			attempt.Success = true
			attempt.Confidence = res.Confidence
			successful++
			if best == nil || res.Confidence > best.Confidence {
				best = res
			}
		default:
			attempt.Error = res.ErrorMessage
		}
		history = append(history, attempt)

		if best != nil && best.Confidence >= minConfidence {
			zap.L().Info("extract: confidence target reached",
				zap.String("strategy", st.Name),
				zap.Float64("confidence", best.Confidence),
			)
			break
		}
	}

	meta := &model.RetryMetadata{
		StrategiesAttempted: len(history),
		SuccessfulAttempts:  successful,
		AttemptHistory:      history,
		ImageQualityScore:   quality.Overall,
		TotalProcessingMS:   time.Since(start).Milliseconds(),
	}

	if best == nil {
		return &model.ExtractionResult{
			Valid:        false,
			ErrorMessage: allStrategiesFailed,
			Retry:        meta,
		}, nil
	}

	meta.BestStrategy = bestStrategyName(history, best.Confidence)
	best.Retry = meta
	return best, nil
}

// bestStrategyName resolves ties toward the earliest attempt that reached
// the winning confidence.
func bestStrategyName(history []model.StrategyAttempt, confidence float64) string {
	for _, a := range history {
		if a.Success && a.Confidence == confidence {
			return a.Strategy
		}
	}
	return ""
}

func strategyNames(plan []Strategy) []string {
	names := make([]string, len(plan))
	for i, st := range plan {
		names[i] = st.Name
	}
	return names
}
