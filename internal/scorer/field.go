package scorer

import (
	"strconv"
	"strings"

	"github.com/terrafield/crewsheet-cli/internal/model"
)

// FieldWeights distributes per-field confidence across its factors. The
// weights should sum to 1.0.
type FieldWeights struct {
	OCR         float64
	Structure   float64
	Consistency float64
	Historical  float64
}

// DefaultFieldWeights returns the standard factor weighting.
func DefaultFieldWeights() FieldWeights {
	return FieldWeights{OCR: 0.3, Structure: 0.3, Consistency: 0.2, Historical: 0.2}
}

// Without per-character OCR telemetry the OCR factor is a fixed prior.
const ocrPrior = 0.8

// The historical factor is neutral until the learning loop has data.
const neutralHistorical = 0.5

// fieldPlaceholders are values that say "could not read" rather than data.
var fieldPlaceholders = map[string]bool{
	"✓": true, "?": true, "TBD": true, "NA": true, "unclear": true, "uncertain": true,
}

// FieldScorer computes weighted per-cell confidence.
type FieldScorer struct {
	weights FieldWeights
}

// NewFieldScorer creates a FieldScorer.
func NewFieldScorer(weights FieldWeights) *FieldScorer {
	return &FieldScorer{weights: weights}
}

// HistoricalSource supplies learned per-field confidence, when available.
type HistoricalSource interface {
	FieldConfidence(fieldName string) (float64, bool)
}

// ScoreField computes the confidence for one cell. hist may be nil.
func (s *FieldScorer) ScoreField(fieldName, value string, hist HistoricalSource) float64 {
	historical := neutralHistorical
	if hist != nil {
		if h, ok := hist.FieldConfidence(fieldName); ok {
			historical = h
		}
	}

	return s.weights.OCR*ocrPrior +
		s.weights.Structure*structureScore(fieldName, value) +
		s.weights.Consistency*consistencyScore(value) +
		s.weights.Historical*historical
}

// ScoreAll produces per-cell confidence records for a whole result.
func (s *FieldScorer) ScoreAll(sheetID string, res *model.ExtractionResult, hist HistoricalSource) []model.FieldConfidence {
	out := make([]model.FieldConfidence, 0, len(res.TableHeaders)*len(res.Employees))
	for i, emp := range res.Employees {
		for _, h := range res.TableHeaders {
			fc := model.FieldConfidence{
				SheetID:       sheetID,
				FieldName:     h,
				EmployeeIndex: i,
				Confidence:    s.ScoreField(h, emp[h], hist),
			}
			fc.FlagThresholds()
			out = append(out, fc)
		}
	}
	return out
}

// structureScore checks the value against what its column should hold.
func structureScore(fieldName, value string) float64 {
	value = strings.TrimSpace(value)
	upper := strings.ToUpper(fieldName)

	switch {
	case model.IsTimeHeader(fieldName):
		if timePattern.MatchString(value) {
			return 0.9
		}
		return 0.3
	case strings.Contains(upper, "HRS") || strings.Contains(upper, "HOURS"):
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0.2
		}
		if f >= 0 && f <= 24 {
			return 0.9
		}
		return 0.5
	case strings.Contains(upper, "PIECE") || strings.Contains(upper, "PCS"):
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0.2
		}
		if n >= 0 {
			return 0.9
		}
		return 0.5
	case model.IsNameHeader(fieldName):
		if strings.Contains(value, " ") {
			return 0.9
		}
		return 0.4
	default:
		return 0.7
	}
}

// consistencyScore judges the value on its own shape.
func consistencyScore(value string) float64 {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return 0.0
	case fieldPlaceholders[value]:
		return 0.2
	case len(value) > 100:
		return 0.3
	default:
		return 0.8
	}
}
