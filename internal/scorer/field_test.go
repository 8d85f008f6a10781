package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrafield/crewsheet-cli/internal/model"
)

type fixedHistory map[string]float64

func (h fixedHistory) FieldConfidence(fieldName string) (float64, bool) {
	c, ok := h[fieldName]
	return c, ok
}

func TestScoreFieldWeightedSum(t *testing.T) {
	s := NewFieldScorer(DefaultFieldWeights())

	// 0.3*0.8 + 0.3*0.9 + 0.2*0.8 + 0.2*0.5
	assert.InDelta(t, 0.77, s.ScoreField("START", "7:30", nil), 1e-9)

	// Name without a space scores structure 0.4.
	assert.InDelta(t, 0.62, s.ScoreField("EMPLOYEE_NAME", "John", nil), 1e-9)

	// A checkmark in an hours column is both unparseable and a placeholder.
	assert.InDelta(t, 0.44, s.ScoreField("JOB_HRS", "✓", nil), 1e-9)
}

func TestScoreFieldUsesHistory(t *testing.T) {
	s := NewFieldScorer(DefaultFieldWeights())
	hist := fixedHistory{"START": 0.9}

	assert.InDelta(t, 0.85, s.ScoreField("START", "7:30", hist), 1e-9)

	// Unknown fields fall back to the neutral historical factor.
	assert.InDelta(t, 0.77, s.ScoreField("STOP", "15:30", hist), 1e-9)
}

func TestStructureScoreByFieldType(t *testing.T) {
	cases := []struct {
		field string
		value string
		want  float64
	}{
		{"START", "7:00", 0.9},
		{"START", "✓", 0.3},
		{"TOTAL_HRS", "8.5", 0.9},
		{"TOTAL_HRS", "30", 0.5},
		{"TOTAL_HRS", "abc", 0.2},
		{"WORK_PCS", "12", 0.9},
		{"WORK_PCS", "-3", 0.5},
		{"WORK_PCS", "x", 0.2},
		{"EMPLOYEE_NAME", "John Smith", 0.9},
		{"EMPLOYEE_NAME", "John", 0.4},
		{"DATE", "5/12", 0.7},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, structureScore(tc.field, tc.value), 1e-9, "%s=%q", tc.field, tc.value)
	}
}

func TestConsistencyScoreShapes(t *testing.T) {
	assert.Equal(t, 0.0, consistencyScore(""))
	assert.Equal(t, 0.2, consistencyScore("✓"))
	assert.Equal(t, 0.2, consistencyScore("TBD"))
	assert.Equal(t, 0.8, consistencyScore("7:30"))

	long := make([]byte, 120)
	for i := range long {
		long[i] = 'x'
	}
	assert.Equal(t, 0.3, consistencyScore(string(long)))
}

func TestScoreAllCoversEveryCell(t *testing.T) {
	s := NewFieldScorer(DefaultFieldWeights())
	res := &model.ExtractionResult{
		TableHeaders: []string{"EMPLOYEE_NAME", "JOB_HRS"},
		Employees: []model.EmployeeRecord{
			{"EMPLOYEE_NAME": "John Smith", "JOB_HRS": "8"},
			{"EMPLOYEE_NAME": "Maria Lopez", "JOB_HRS": "✓"},
		},
	}

	records := s.ScoreAll("sheet-1", res, nil)
	require.Len(t, records, 4)

	byCell := map[string]model.FieldConfidence{}
	for _, fc := range records {
		assert.Equal(t, "sheet-1", fc.SheetID)
		byCell[fc.FieldName+string(rune('0'+fc.EmployeeIndex))] = fc
	}

	good := byCell["JOB_HRS0"]
	assert.False(t, good.IsUncertain)

	bad := byCell["JOB_HRS1"]
	assert.InDelta(t, 0.44, bad.Confidence, 1e-9)
	assert.True(t, bad.IsUncertain)
	assert.False(t, bad.NeedsReview)
}
