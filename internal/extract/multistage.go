package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/terrafield/crewsheet-cli/internal/model"
	"github.com/terrafield/crewsheet-cli/pkg/vision"
)

// SheetStructure is the first-stage layout analysis of a sheet.
type SheetStructure struct {
	HeaderRows      int      `json:"header_rows"`
	DataRows        int      `json:"data_rows"`
	ColumnCount     int      `json:"column_count"`
	Sections        []string `json:"sections"`
	ExpectedColumns []string `json:"expected_columns"`
}

// MultiStage runs the structure -> data -> cross-validation pipeline.
type MultiStage struct {
	client    vision.Client
	validator ResultValidator
}

// NewMultiStage creates a multi-stage extractor.
func NewMultiStage(client vision.Client, validator ResultValidator) *MultiStage {
	return &MultiStage{client: client, validator: validator}
}

// Extract performs the staged extraction. Only stage-call failures abort the
// run; implausible structure findings merely degrade confidence.
func (m *MultiStage) Extract(ctx context.Context, imagePath string, st Strategy, tmpl *model.SheetTemplate, profile *model.CompanyProfile, adaptive string) (*model.ExtractionResult, error) {
	if !st.UseTemplate {
		tmpl = nil
	}

	structure, err := m.analyzeStructure(ctx, imagePath, st)
	if err != nil {
		return nil, err
	}
	stages := []string{"structure"}

	structureIssues := validateStructure(structure)

	res, err := m.extractData(ctx, imagePath, st, structure, tmpl, profile, adaptive)
	if err != nil {
		return nil, err
	}
	stages = append(stages, "data")

	if res.Valid {
		crossValidate(res, structure)
		res.CloseOverHeaders()
		stages = append(stages, "cross_validation")
	}

	// Structure-stage findings penalize the final confidence: 0.1 per
	// issue, floored at 0.3.
	if len(structureIssues) > 0 {
		res.ValidationIssues = append(res.ValidationIssues, structureIssues...)
		res.Confidence -= 0.1 * float64(len(structureIssues))
		if res.Confidence < 0.3 {
			res.Confidence = 0.3
		}
	}

	if tmpl != nil {
		applyTemplateEnhancement(res, tmpl)
		stages = append(stages, "template_enhancement")
	}
	if profile != nil {
		annotateCompanyPatterns(res, profile)
		stages = append(stages, "company_patterns")
	}
	res.Metadata.StagesCompleted = stages

	zap.L().Debug("extract: multi-stage complete",
		zap.String("strategy", st.Name),
		zap.Strings("stages", stages),
		zap.Float64("confidence", res.Confidence),
	)
	return res, nil
}

func (m *MultiStage) analyzeStructure(ctx context.Context, imagePath string, st Strategy) (*SheetStructure, error) {
	resp, err := m.client.ExtractSheet(ctx, vision.Request{
		ImagePath:   imagePath,
		System:      structureSystemPrompt,
		Prompt:      structurePrompt,
		MaxTokens:   1024,
		Temperature: st.Temperature,
		Timeout:     st.Timeout,
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(resp.Model, st.Name+":structure")

	var structure SheetStructure
	if err := vision.DecodeJSON(resp.Text, &structure); err != nil {
		// An unreadable structure stage degrades to no structure context.
		zap.L().Warn("extract: structure stage unparseable", zap.Error(err))
		return nil, nil
	}
	return &structure, nil
}

func (m *MultiStage) extractData(ctx context.Context, imagePath string, st Strategy, structure *SheetStructure, tmpl *model.SheetTemplate, profile *model.CompanyProfile, adaptive string) (*model.ExtractionResult, error) {
	resp, err := m.client.ExtractSheet(ctx, vision.Request{
		ImagePath:   imagePath,
		System:      extractionSystemPrompt,
		Prompt:      BuildDataPrompt(structure, tmpl, profile, adaptive),
		MaxTokens:   st.MaxTokens,
		Temperature: st.Temperature,
		Timeout:     st.Timeout,
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(resp.Model, st.Name+":data")

	var payload extractionPayload
	if err := vision.DecodeJSON(resp.Text, &payload); err != nil {
		return &model.ExtractionResult{
			Valid:        false,
			ErrorMessage: "model output was not valid JSON",
			Metadata:     metadataFor(st, tmpl, profile),
		}, nil
	}

	res := resultFromPayload(payload, st, tmpl, profile)
	if m.validator != nil {
		conf, issues := m.validator.Score(res)
		res.Confidence = conf
		res.ValidationIssues = append(res.ValidationIssues, issues...)
	}
	return res, nil
}

// validateStructure sanity-checks the stage-1 findings. A sheet needs at
// least one header row, one data row, two columns, and an employee section.
func validateStructure(s *SheetStructure) []string {
	if s == nil {
		return []string{"structure analysis unavailable"}
	}
	var issues []string
	if s.HeaderRows < 1 {
		issues = append(issues, "No header rows detected")
	}
	if s.DataRows < 1 {
		issues = append(issues, "No data rows detected")
	}
	if s.ColumnCount < 2 {
		issues = append(issues, "Too few columns detected")
	}
	if !containsString(s.Sections, "employee_info") {
		issues = append(issues, "No employee info section detected")
	}
	return issues
}

// crossValidate reconciles the data stage against the structure stage:
// 0.05 per expected column the headers lack, 0.03 per header missing from
// employee records, floored at 0.1. Missing headers are then back-filled
// into every record and expected columns appended to the header list.
func crossValidate(res *model.ExtractionResult, structure *SheetStructure) {
	if structure == nil {
		return
	}

	have := make(map[string]bool, len(res.TableHeaders))
	for _, h := range res.TableHeaders {
		have[h] = true
	}

	adjustment := 0.0
	for _, col := range structure.ExpectedColumns {
		if !have[col] {
			adjustment -= 0.05
			res.ValidationIssues = append(res.ValidationIssues, "expected column missing: "+col)
		}
	}

	for _, h := range res.TableHeaders {
		missing := false
		for _, emp := range res.Employees {
			if _, ok := emp[h]; !ok {
				missing = true
				break
			}
		}
		if missing {
			adjustment -= 0.03
		}
	}

	res.Confidence += adjustment
	if res.Confidence < 0.1 {
		res.Confidence = 0.1
	}

	// Align headers with the structure stage; the caller re-closes records.
	for _, col := range structure.ExpectedColumns {
		if !have[col] {
			res.TableHeaders = append(res.TableHeaders, col)
			have[col] = true
		}
	}
}
