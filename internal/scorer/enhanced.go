package scorer

import (
	"github.com/terrafield/crewsheet-cli/internal/model"
)

// Breakdown factor weights, summing to 1.0.
const (
	weightStructure      = 0.25
	weightConsistency    = 0.20
	weightTemplateMatch  = 0.15
	weightFieldAccuracy  = 0.20
	weightHistorical     = 0.10
	weightExtractionMeta = 0.10
	neutralTemplateMatch = 0.5
	defaultMetadataScore = 0.8
	defaultFieldAccuracy = 0.7
	redFlagPenalty       = 0.2
	warningPenalty       = 0.05
	strengthBonus        = 0.02
	strengthBonusCap     = 0.1
)

// ConfidenceBreakdown is the six-factor decomposition of a final score.
type ConfidenceBreakdown struct {
	Structure          float64 `json:"structure_score"`
	DataConsistency    float64 `json:"data_consistency"`
	TemplateMatch      float64 `json:"template_match"`
	FieldAccuracy      float64 `json:"field_accuracy"`
	Historical         float64 `json:"historical_performance"`
	ExtractionMetadata float64 `json:"extraction_metadata"`
}

// Assessment is the reviewer-facing verdict for one extraction.
type Assessment struct {
	Confidence     float64             `json:"confidence"`
	Level          string              `json:"level"`
	Breakdown      ConfidenceBreakdown `json:"breakdown"`
	RedFlags       []string            `json:"red_flags,omitempty"`
	Warnings       []string            `json:"warnings,omitempty"`
	Strengths      []string            `json:"strengths,omitempty"`
	ReviewPriority string              `json:"review_priority"`
	NeedsReview    bool                `json:"needs_review"`
}

// AssessmentInput carries the context the aggregator folds in beyond the
// result itself. Any field may be zero-valued.
type AssessmentInput struct {
	Template          *model.SheetTemplate
	FieldScores       []model.FieldConfidence
	RecentConfidences []float64 // confidences of recent completed sheets, newest first
}

// EnhancedScorer combines structural, historical, and metadata signals into
// a single reviewer-facing confidence with a breakdown.
type EnhancedScorer struct {
	reviewThreshold float64
}

// NewEnhancedScorer creates an EnhancedScorer. Sheets below reviewThreshold
// are flagged for human review.
func NewEnhancedScorer(reviewThreshold float64) *EnhancedScorer {
	if reviewThreshold <= 0 {
		reviewThreshold = 0.7
	}
	return &EnhancedScorer{reviewThreshold: reviewThreshold}
}

// Assess computes the six-factor breakdown, applies red-flag, warning, and
// strength adjustments, and maps the result to a level and review priority.
func (s *EnhancedScorer) Assess(res *model.ExtractionResult, in AssessmentInput) Assessment {
	a := Assessment{}

	a.Breakdown.Structure = s.structureFactor(res, &a)
	a.Breakdown.DataConsistency = s.consistencyFactor(res, &a)
	a.Breakdown.TemplateMatch = s.templateFactor(res, in.Template, &a)
	a.Breakdown.FieldAccuracy = s.fieldAccuracyFactor(in.FieldScores, &a)
	a.Breakdown.Historical = s.historicalFactor(in.RecentConfidences)
	a.Breakdown.ExtractionMetadata = s.metadataFactor(res, &a)

	conf := weightStructure*a.Breakdown.Structure +
		weightConsistency*a.Breakdown.DataConsistency +
		weightTemplateMatch*a.Breakdown.TemplateMatch +
		weightFieldAccuracy*a.Breakdown.FieldAccuracy +
		weightHistorical*a.Breakdown.Historical +
		weightExtractionMeta*a.Breakdown.ExtractionMetadata

	conf -= redFlagPenalty * float64(len(a.RedFlags))
	conf -= warningPenalty * float64(len(a.Warnings))
	bonus := strengthBonus * float64(len(a.Strengths))
	if bonus > strengthBonusCap {
		bonus = strengthBonusCap
	}
	conf += bonus

	a.Confidence = clamp01(conf)
	a.Level = confidenceLevel(a.Confidence)
	a.ReviewPriority = reviewPriority(a.Confidence, len(a.RedFlags), len(a.Warnings))
	a.NeedsReview = a.Confidence < s.reviewThreshold
	return a
}

func (s *EnhancedScorer) structureFactor(res *model.ExtractionResult, a *Assessment) float64 {
	if len(res.Employees) == 0 {
		a.RedFlags = append(a.RedFlags, "No employee data extracted")
		return 0
	}
	if len(res.TableHeaders) == 0 {
		a.RedFlags = append(a.RedFlags, "No table headers extracted")
		return 0
	}
	score := 1.0
	if len(res.TableHeaders) < 3 {
		score = 0.7
		a.Warnings = append(a.Warnings, "very few columns extracted")
	}
	if len(res.Employees) >= 5 && len(res.TableHeaders) >= 5 {
		a.Strengths = append(a.Strengths, "substantial table extracted")
	}
	return score
}

func (s *EnhancedScorer) consistencyFactor(res *model.ExtractionResult, a *Assessment) float64 {
	ratio := res.FilledCellRatio()
	if ratio < 0.5 {
		a.Warnings = append(a.Warnings, "more than half of cells are empty")
	}
	if ratio >= 0.9 {
		a.Strengths = append(a.Strengths, "nearly all cells populated")
	}
	return ratio
}

func (s *EnhancedScorer) templateFactor(res *model.ExtractionResult, tmpl *model.SheetTemplate, a *Assessment) float64 {
	if tmpl == nil || len(tmpl.ExpectedHeaders) == 0 {
		return neutralTemplateMatch
	}
	have := map[string]bool{}
	for _, h := range res.TableHeaders {
		have[h] = true
	}
	found := 0
	for _, h := range tmpl.ExpectedHeaders {
		if have[h] {
			found++
		}
	}
	match := float64(found) / float64(len(tmpl.ExpectedHeaders))
	if match < 0.5 {
		a.Warnings = append(a.Warnings, "extraction diverges from the sheet template")
	}
	if match == 1 {
		a.Strengths = append(a.Strengths, "full template conformity")
	}
	return match
}

func (s *EnhancedScorer) fieldAccuracyFactor(scores []model.FieldConfidence, a *Assessment) float64 {
	if len(scores) == 0 {
		return defaultFieldAccuracy
	}
	var sum float64
	uncertain := 0
	for _, fc := range scores {
		sum += fc.Confidence
		if fc.IsUncertain {
			uncertain++
		}
	}
	avg := sum / float64(len(scores))
	if float64(uncertain)/float64(len(scores)) > 0.3 {
		a.Warnings = append(a.Warnings, "many fields have low individual confidence")
	}
	return avg
}

func (s *EnhancedScorer) historicalFactor(recent []float64) float64 {
	if len(recent) == 0 {
		return neutralHistorical
	}
	if len(recent) > 10 {
		recent = recent[:10]
	}
	var sum float64
	for _, c := range recent {
		sum += c
	}
	return sum / float64(len(recent))
}

func (s *EnhancedScorer) metadataFactor(res *model.ExtractionResult, a *Assessment) float64 {
	score := defaultMetadataScore
	if res.Retry != nil && res.Retry.SuccessfulAttempts > 0 && len(res.Retry.AttemptHistory) == 1 {
		score += 0.1
		a.Strengths = append(a.Strengths, "first strategy succeeded")
	}
	if len(res.ValidationIssues) > 2 {
		score -= 0.1
		a.Warnings = append(a.Warnings, "multiple validation issues recorded")
	}
	return clamp01(score)
}

func confidenceLevel(conf float64) string {
	switch {
	case conf >= 0.9:
		return "EXCELLENT"
	case conf >= 0.8:
		return "HIGH"
	case conf >= 0.7:
		return "GOOD"
	case conf >= 0.6:
		return "MODERATE"
	case conf >= 0.4:
		return "LOW"
	default:
		return "POOR"
	}
}

func reviewPriority(conf float64, redFlags, warnings int) string {
	switch {
	case redFlags > 0 || conf < 0.5:
		return "URGENT"
	case warnings > 3 || conf < 0.7:
		return "HIGH"
	case warnings > 1 || conf < 0.8:
		return "MEDIUM"
	default:
		return "LOW"
	}
}
