package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/terrafield/crewsheet-cli/internal/model"
)

func fullResult() *model.ExtractionResult {
	return &model.ExtractionResult{
		Valid:        true,
		TableHeaders: []string{"EMPLOYEE_NAME", "START", "STOP"},
		Employees: []model.EmployeeRecord{
			{"EMPLOYEE_NAME": "John Smith", "START": "7:00", "STOP": "15:30"},
			{"EMPLOYEE_NAME": "Maria Lopez", "START": "7:15", "STOP": "15:45"},
		},
	}
}

func TestAssessSolidExtraction(t *testing.T) {
	s := NewEnhancedScorer(0.7)
	a := s.Assess(fullResult(), AssessmentInput{})

	// .25 + .20 + .15*.5 + .20*.7 + .10*.5 + .10*.8, plus one strength.
	assert.InDelta(t, 0.815, a.Confidence, 1e-9)
	assert.Equal(t, "HIGH", a.Level)
	assert.Equal(t, "LOW", a.ReviewPriority)
	assert.False(t, a.NeedsReview)
	assert.Empty(t, a.RedFlags)
	assert.Contains(t, a.Strengths, "nearly all cells populated")
}

func TestAssessEmptyExtractionIsUrgent(t *testing.T) {
	s := NewEnhancedScorer(0.7)
	res := &model.ExtractionResult{
		TableHeaders: []string{"EMPLOYEE_NAME", "START", "STOP"},
		Employees:    []model.EmployeeRecord{},
	}
	a := s.Assess(res, AssessmentInput{})

	assert.Contains(t, a.RedFlags, "No employee data extracted")
	assert.InDelta(t, 0.095, a.Confidence, 1e-9)
	assert.Equal(t, "POOR", a.Level)
	assert.Equal(t, "URGENT", a.ReviewPriority)
	assert.True(t, a.NeedsReview)
	assert.Equal(t, 0.0, a.Breakdown.Structure)
}

func TestAssessWithFullContext(t *testing.T) {
	s := NewEnhancedScorer(0.7)
	res := fullResult()
	res.Retry = &model.RetryMetadata{
		SuccessfulAttempts: 1,
		AttemptHistory:     []model.StrategyAttempt{{Strategy: "structure_first", Success: true}},
	}

	a := s.Assess(res, AssessmentInput{
		Template: &model.SheetTemplate{ExpectedHeaders: res.TableHeaders},
		FieldScores: []model.FieldConfidence{
			{Confidence: 0.9},
			{Confidence: 0.8},
		},
		RecentConfidences: []float64{0.9, 0.8},
	})

	assert.InDelta(t, 1.0, a.Confidence, 1e-9)
	assert.Equal(t, "EXCELLENT", a.Level)
	assert.Contains(t, a.Strengths, "full template conformity")
	assert.Contains(t, a.Strengths, "first strategy succeeded")
	assert.Equal(t, 1.0, a.Breakdown.TemplateMatch)
	assert.InDelta(t, 0.85, a.Breakdown.FieldAccuracy, 1e-9)
	assert.InDelta(t, 0.85, a.Breakdown.Historical, 1e-9)
	assert.InDelta(t, 0.9, a.Breakdown.ExtractionMetadata, 1e-9)
}

func TestHistoricalFactorWindow(t *testing.T) {
	s := NewEnhancedScorer(0.7)

	assert.Equal(t, 0.5, s.historicalFactor(nil))

	// Only the ten most recent confidences count.
	recent := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0}
	assert.InDelta(t, 1.0, s.historicalFactor(recent), 1e-9)
}

func TestConfidenceLevels(t *testing.T) {
	cases := []struct {
		conf float64
		want string
	}{
		{0.95, "EXCELLENT"},
		{0.85, "HIGH"},
		{0.75, "GOOD"},
		{0.65, "MODERATE"},
		{0.45, "LOW"},
		{0.2, "POOR"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, confidenceLevel(tc.conf), "%v", tc.conf)
	}
}

func TestReviewPriorities(t *testing.T) {
	assert.Equal(t, "URGENT", reviewPriority(0.9, 1, 0))
	assert.Equal(t, "URGENT", reviewPriority(0.45, 0, 0))
	assert.Equal(t, "HIGH", reviewPriority(0.9, 0, 4))
	assert.Equal(t, "HIGH", reviewPriority(0.65, 0, 0))
	assert.Equal(t, "MEDIUM", reviewPriority(0.9, 0, 2))
	assert.Equal(t, "MEDIUM", reviewPriority(0.75, 0, 0))
	assert.Equal(t, "LOW", reviewPriority(0.85, 0, 1))
}

func TestAssessManyUncertainFieldsWarns(t *testing.T) {
	s := NewEnhancedScorer(0.7)
	scores := []model.FieldConfidence{
		{Confidence: 0.5, IsUncertain: true},
		{Confidence: 0.5, IsUncertain: true},
		{Confidence: 0.9},
	}
	a := s.Assess(fullResult(), AssessmentInput{FieldScores: scores})
	assert.Contains(t, a.Warnings, "many fields have low individual confidence")
}
