package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrafield/crewsheet-cli/internal/model"
)

func timedResult(conf float64, start, stop string) *model.ExtractionResult {
	return &model.ExtractionResult{
		Valid:        true,
		Confidence:   conf,
		TableHeaders: []string{"EMPLOYEE_NAME", "START", "STOP"},
		Employees: []model.EmployeeRecord{
			{"EMPLOYEE_NAME": "John Smith", "START": start, "STOP": stop},
		},
	}
}

func TestValidateRewardsCorrectTimeOrder(t *testing.T) {
	v := NewContextAwareValidator()
	out := v.Validate(timedResult(0.8, "7:00", "15:30"), ValidationContext{})

	// Time impact +0.04 averaged with a zero math impact.
	assert.InDelta(t, 0.04, out.Impacts["time_sequences"], 1e-9)
	assert.InDelta(t, 0.82, out.Adjusted, 1e-9)
	assert.Empty(t, out.Errors)
}

func TestValidatePenalizesTimeOrderViolation(t *testing.T) {
	v := NewContextAwareValidator()
	out := v.Validate(timedResult(0.8, "8:00", "7:00"), ValidationContext{})

	assert.InDelta(t, -0.16, out.Impacts["time_sequences"], 1e-9)
	assert.InDelta(t, 0.72, out.Adjusted, 1e-9)
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0], "not after")
}

func TestValidateClampsToFloor(t *testing.T) {
	v := NewContextAwareValidator()
	out := v.Validate(timedResult(0.12, "8:00", "7:00"), ValidationContext{})
	assert.InDelta(t, 0.1, out.Adjusted, 1e-9)
}

func TestMathImpactChecksTotals(t *testing.T) {
	v := NewContextAwareValidator()
	res := &model.ExtractionResult{
		TableHeaders: []string{"EMPLOYEE_NAME", "JOB_A_HRS", "JOB_B_HRS", "TOTAL_HRS"},
		Employees: []model.EmployeeRecord{
			{"EMPLOYEE_NAME": "John Smith", "JOB_A_HRS": "4", "JOB_B_HRS": "4", "TOTAL_HRS": "8"},
		},
	}
	impact, errs := v.mathImpact(res)
	assert.InDelta(t, 0.03, impact, 1e-9)
	assert.Empty(t, errs)

	res.Employees[0]["JOB_B_HRS"] = "3"
	impact, errs = v.mathImpact(res)
	assert.InDelta(t, -0.12, impact, 1e-9)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "off by")
}

func TestMathImpactTolerance(t *testing.T) {
	v := NewContextAwareValidator()
	res := &model.ExtractionResult{
		TableHeaders: []string{"JOB_A_HRS", "TOTAL_HRS"},
		Employees: []model.EmployeeRecord{
			{"JOB_A_HRS": "4.05", "TOTAL_HRS": "4"},
		},
	}
	impact, errs := v.mathImpact(res)
	assert.InDelta(t, 0.03, impact, 1e-9)
	assert.Empty(t, errs)
}

func TestRelationshipImpactPairsHoursAndPieces(t *testing.T) {
	v := NewContextAwareValidator()
	res := &model.ExtractionResult{
		TableHeaders: []string{"02-100_PLANT_HRS", "02-100_PLANT_PCS"},
		Employees: []model.EmployeeRecord{
			{"02-100_PLANT_HRS": "8", "02-100_PLANT_PCS": "120"},
		},
	}
	impact, errs := v.relationshipImpact(res)
	assert.InDelta(t, 0.03, impact, 1e-9)
	assert.Empty(t, errs)

	res.Employees[0]["02-100_PLANT_PCS"] = ""
	impact, errs = v.relationshipImpact(res)
	assert.InDelta(t, -0.07, impact, 1e-9)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "02-100_PLANT")
}

func TestPatternConsistencyAgainstRecentSheets(t *testing.T) {
	v := NewContextAwareValidator()
	recent := make([]*model.ExtractionResult, 3)
	for i := range recent {
		r := &model.ExtractionResult{TableHeaders: []string{"EMPLOYEE_NAME", "START", "STOP"}}
		for j := 0; j < 4; j++ {
			r.Employees = append(r.Employees, model.EmployeeRecord{"EMPLOYEE_NAME": "x y"})
		}
		recent[i] = r
	}

	// Same headers, same crew size: both checks pass.
	match := &model.ExtractionResult{TableHeaders: []string{"EMPLOYEE_NAME", "START", "STOP"}}
	for j := 0; j < 4; j++ {
		match.Employees = append(match.Employees, model.EmployeeRecord{})
	}
	assert.InDelta(t, 0.03, v.patternConsistencyImpact(match, recent), 1e-9)

	// Unfamiliar headers and a wildly different crew size: both fail.
	odd := &model.ExtractionResult{TableHeaders: []string{"X"}}
	for j := 0; j < 20; j++ {
		odd.Employees = append(odd.Employees, model.EmployeeRecord{})
	}
	assert.InDelta(t, -0.07, v.patternConsistencyImpact(odd, recent), 1e-9)
}

func TestCompanyVocabularyImpact(t *testing.T) {
	v := NewContextAwareValidator()
	profile := &model.CompanyProfile{
		CostCenters: []string{"02-100"},
		Tasks:       []string{"PLANT"},
	}

	res := &model.ExtractionResult{
		TableHeaders: []string{"02-100_PLANT_HRS", "09-300_HARVEST_HRS"},
	}
	// 2 of 4 vocabulary tokens known: rate 0.5, zero impact.
	impact, ok := v.companyVocabularyImpact(res, profile)
	require.True(t, ok)
	assert.InDelta(t, 0.0, impact, 1e-9)

	// No hierarchical headers means the check does not apply.
	flat := &model.ExtractionResult{TableHeaders: []string{"NAME"}}
	_, ok = v.companyVocabularyImpact(flat, profile)
	assert.False(t, ok)
}

func TestTemplateConformityImpact(t *testing.T) {
	v := NewContextAwareValidator()
	tmpl := &model.SheetTemplate{ExpectedHeaders: []string{"EMPLOYEE_NAME", "START", "STOP", "TOTAL_HRS"}}

	full := &model.ExtractionResult{TableHeaders: tmpl.ExpectedHeaders}
	assert.InDelta(t, 0.06, v.templateConformityImpact(full, tmpl), 1e-9)

	half := &model.ExtractionResult{TableHeaders: []string{"EMPLOYEE_NAME", "START"}}
	assert.InDelta(t, -0.04, v.templateConformityImpact(half, tmpl), 1e-9)
}

func TestValidateIncludesAllApplicableImpacts(t *testing.T) {
	v := NewContextAwareValidator()
	res := timedResult(0.8, "7:00", "15:30")
	out := v.Validate(res, ValidationContext{
		RecentResults:   []*model.ExtractionResult{timedResult(0.9, "7:00", "15:00")},
		Profile:         &model.CompanyProfile{CostCenters: []string{"02-100"}},
		Template:        &model.SheetTemplate{ExpectedHeaders: []string{"EMPLOYEE_NAME"}},
		PairHoursPieces: true,
	})

	assert.Contains(t, out.Impacts, "time_sequences")
	assert.Contains(t, out.Impacts, "calculations")
	assert.Contains(t, out.Impacts, "field_relationships")
	assert.Contains(t, out.Impacts, "historical_patterns")
	assert.Contains(t, out.Impacts, "template_conformity")
	// No hierarchical headers, so company vocabulary does not apply.
	assert.NotContains(t, out.Impacts, "company_patterns")
}

func TestParseClockFormats(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"7:30", 450, true},
		{"7", 420, true},
		{"7.5", 450, true},
		{"", 0, false},
		{"25:00", 0, false},
		{"seven", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseClock(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.InDelta(t, tc.want, got, 1e-9, tc.in)
		}
	}
}

func TestOrderedTimeHeadersCanonicalOrder(t *testing.T) {
	headers := []string{"STOP", "EMPLOYEE_NAME", "START", "LUNCH_IN", "LUNCH_OUT"}
	got := orderedTimeHeaders(headers)
	assert.Equal(t, []string{"START", "LUNCH_OUT", "LUNCH_IN", "STOP"}, got)
}
