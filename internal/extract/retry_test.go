package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrafield/crewsheet-cli/internal/imagery"
	"github.com/terrafield/crewsheet-cli/internal/model"
)

func newTestOrchestrator(quality float64, single, multi strategyRunner) (*Orchestrator, *fakePre) {
	pre := &fakePre{}
	o := NewOrchestrator(
		fakeAssessor{report: imagery.QualityReport{Overall: quality}},
		pre, single, multi, DefaultSelection(),
	)
	return o, pre
}

func TestExecuteEarlyStopWithTemplate(t *testing.T) {
	multi := &scriptedRunner{results: []*model.ExtractionResult{validResult(0.85)}}
	single := &scriptedRunner{}
	o, _ := newTestOrchestrator(0.9, single, multi)

	res, err := o.Execute(context.Background(), Request{
		ImagePath:     "sheet.jpg",
		Template:      &model.SheetTemplate{ID: "t1", ExpectedHeaders: []string{"EMPLOYEE_NAME"}},
		MinConfidence: 0.7,
	})
	require.NoError(t, err)

	assert.True(t, res.Valid)
	assert.InDelta(t, 0.85, res.Confidence, 1e-9)
	require.NotNil(t, res.Retry)
	assert.Equal(t, 1, res.Retry.StrategiesAttempted)
	assert.Equal(t, 1, res.Retry.SuccessfulAttempts)
	assert.Equal(t, "template_guided", res.Retry.BestStrategy)
	assert.Equal(t, 0, single.calls)
}

func TestExecuteKeepsBestAcrossAttempts(t *testing.T) {
	// First result clears validity but not the confidence target; the
	// second is better and stops the cascade.
	multi := &scriptedRunner{results: []*model.ExtractionResult{validResult(0.55), validResult(0.75)}}
	single := &scriptedRunner{}
	o, _ := newTestOrchestrator(0.9, single, multi)

	res, err := o.Execute(context.Background(), Request{ImagePath: "sheet.jpg", MinConfidence: 0.7})
	require.NoError(t, err)

	assert.InDelta(t, 0.75, res.Confidence, 1e-9)
	assert.Equal(t, 2, res.Retry.StrategiesAttempted)
	assert.Equal(t, 2, res.Retry.SuccessfulAttempts)
	assert.Equal(t, "high_detail", res.Retry.BestStrategy)
	assert.Equal(t, "structure_first", res.Retry.AttemptHistory[0].Strategy)
}

func TestExecuteAllStrategiesFail(t *testing.T) {
	boom := errors.New("api down")
	multi := &scriptedRunner{errs: []error{boom, boom, boom}}
	single := &scriptedRunner{errs: []error{boom, boom, boom}}
	o, _ := newTestOrchestrator(0.9, single, multi)

	res, err := o.Execute(context.Background(), Request{ImagePath: "sheet.jpg"})
	require.NoError(t, err)

	assert.False(t, res.Valid)
	assert.Equal(t, "All retry strategies failed", res.ErrorMessage)
	require.NotNil(t, res.Retry)
	assert.Equal(t, 3, res.Retry.StrategiesAttempted)
	assert.Equal(t, 0, res.Retry.SuccessfulAttempts)
	assert.Empty(t, res.Retry.BestStrategy)
	assert.Len(t, res.Retry.AttemptHistory, 3)
	for _, a := range res.Retry.AttemptHistory {
		assert.False(t, a.Success)
		assert.Equal(t, "api down", a.Error)
	}
}

func TestExecuteLowQualityLeadsWithAggressive(t *testing.T) {
	single := &scriptedRunner{results: []*model.ExtractionResult{validResult(0.9)}}
	multi := &scriptedRunner{}
	o, pre := newTestOrchestrator(0.2, single, multi)

	res, err := o.Execute(context.Background(), Request{ImagePath: "sheet.jpg", MinConfidence: 0.7})
	require.NoError(t, err)

	assert.Equal(t, "aggressive", res.Retry.BestStrategy)
	// Aggressive preprocessing path, not the adaptive one.
	require.Len(t, pre.optimizeCalls, 1)
	assert.True(t, pre.optimizeCalls[0])
	assert.Equal(t, 0, pre.adaptiveCalls)
	assert.Equal(t, "sheet.jpg.processed", single.paths[0])
}

func TestExecuteMixedFailureThenSuccess(t *testing.T) {
	multi := &scriptedRunner{
		errs:    []error{errors.New("timeout"), nil},
		results: []*model.ExtractionResult{nil, validResult(0.72)},
	}
	single := &scriptedRunner{}
	o, _ := newTestOrchestrator(0.9, single, multi)

	res, err := o.Execute(context.Background(), Request{ImagePath: "sheet.jpg", MinConfidence: 0.7})
	require.NoError(t, err)

	assert.True(t, res.Valid)
	assert.Equal(t, 2, res.Retry.StrategiesAttempted)
	assert.Equal(t, 1, res.Retry.SuccessfulAttempts)
	assert.Equal(t, "timeout", res.Retry.AttemptHistory[0].Error)
	assert.Equal(t, "high_detail", res.Retry.BestStrategy)
}

func TestExecuteRespectsMaxStrategies(t *testing.T) {
	multi := &scriptedRunner{}
	single := &scriptedRunner{}
	o, _ := newTestOrchestrator(0.9, single, multi)

	res, err := o.Execute(context.Background(), Request{ImagePath: "sheet.jpg", MaxStrategies: 1})
	require.NoError(t, err)

	assert.False(t, res.Valid)
	assert.Equal(t, 1, res.Retry.StrategiesAttempted)
}

func TestExecuteCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o, _ := newTestOrchestrator(0.9, &scriptedRunner{}, &scriptedRunner{})
	_, err := o.Execute(ctx, Request{ImagePath: "sheet.jpg"})
	assert.Error(t, err)
}

func TestExecuteRoutesMultiStageStrategies(t *testing.T) {
	multi := &scriptedRunner{results: []*model.ExtractionResult{validResult(0.3), validResult(0.35)}}
	single := &scriptedRunner{results: []*model.ExtractionResult{validResult(0.4)}}
	o, _ := newTestOrchestrator(0.9, single, multi)

	res, err := o.Execute(context.Background(), Request{ImagePath: "sheet.jpg", MinConfidence: 0.99})
	require.NoError(t, err)

	// structure_first and high_detail are multi-stage, conservative is not.
	assert.Equal(t, 2, multi.calls)
	assert.Equal(t, 1, single.calls)
	assert.InDelta(t, 0.4, res.Confidence, 1e-9)
	assert.Equal(t, "conservative", res.Retry.BestStrategy)
}

func TestAnalyze(t *testing.T) {
	stats := Analyze(
		[]model.StrategyAttempt{
			{Strategy: "high_detail", Success: true, Confidence: 0.8, DurationMS: 100},
			{Strategy: "structure_first", Success: false, DurationMS: 50},
		},
		[]model.StrategyAttempt{
			{Strategy: "high_detail", Success: false, DurationMS: 300},
		},
	)

	hd := stats["high_detail"]
	assert.Equal(t, 2, hd.Attempts)
	assert.Equal(t, 1, hd.Successes)
	assert.InDelta(t, 0.5, hd.SuccessRate, 1e-9)
	assert.InDelta(t, 200, hd.AvgDurationMS, 1e-9)
	assert.InDelta(t, 0.8, hd.BestConfidence, 1e-9)

	sf := stats["structure_first"]
	assert.InDelta(t, 0.0, sf.SuccessRate, 1e-9)
}
