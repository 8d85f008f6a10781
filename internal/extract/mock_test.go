package extract

import (
	"context"

	"github.com/terrafield/crewsheet-cli/internal/imagery"
	"github.com/terrafield/crewsheet-cli/internal/model"
	"github.com/terrafield/crewsheet-cli/pkg/vision"
)

// fakeVision replays canned responses in order.
type fakeVision struct {
	responses []string
	errs      []error
	calls     int
	requests  []vision.Request
}

func (f *fakeVision) ExtractSheet(_ context.Context, req vision.Request) (*vision.Response, error) {
	i := f.calls
	f.calls++
	f.requests = append(f.requests, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	text := ""
	if i < len(f.responses) {
		text = f.responses[i]
	}
	return &vision.Response{Text: text, Model: "claude-sonnet-4-5-20250929"}, nil
}

// fixedValidator returns a constant score.
type fixedValidator struct {
	conf   float64
	issues []string
}

func (v fixedValidator) Score(*model.ExtractionResult) (float64, []string) {
	return v.conf, v.issues
}

// fakeAssessor returns a fixed quality report.
type fakeAssessor struct {
	report imagery.QualityReport
}

func (f fakeAssessor) Assess(string) imagery.QualityReport { return f.report }

// fakePre records preprocessing calls and passes the path through.
type fakePre struct {
	optimizeCalls []bool
	adaptiveCalls int
}

func (f *fakePre) Optimize(path string, aggressive bool) string {
	f.optimizeCalls = append(f.optimizeCalls, aggressive)
	return path + ".processed"
}

func (f *fakePre) Adaptive(path string, _ imagery.QualityReport) string {
	f.adaptiveCalls++
	return path + ".processed"
}

// scriptedRunner returns queued results or errors per call.
type scriptedRunner struct {
	results []*model.ExtractionResult
	errs    []error
	calls   int
	seen    []Strategy
	paths   []string
}

func (r *scriptedRunner) Extract(_ context.Context, imagePath string, st Strategy, _ *model.SheetTemplate, _ *model.CompanyProfile, _ string) (*model.ExtractionResult, error) {
	i := r.calls
	r.calls++
	r.seen = append(r.seen, st)
	r.paths = append(r.paths, imagePath)
	if i < len(r.errs) && r.errs[i] != nil {
		return nil, r.errs[i]
	}
	if i < len(r.results) {
		return r.results[i], nil
	}
	return &model.ExtractionResult{Valid: false, ErrorMessage: "no scripted result"}, nil
}

func validResult(conf float64) *model.ExtractionResult {
	return &model.ExtractionResult{
		Valid:        true,
		Confidence:   conf,
		TableHeaders: []string{"EMPLOYEE_NAME", "START"},
		Employees:    []model.EmployeeRecord{{"EMPLOYEE_NAME": "John Smith", "START": "7:00"}},
		Metadata:     &model.ExtractionMetadata{},
	}
}
