package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/terrafield/crewsheet-cli/internal/model"
	"github.com/terrafield/crewsheet-cli/pkg/vision"
)

// ResultValidator scores a freshly parsed extraction, returning a confidence
// in [0,1] and the issues it found.
type ResultValidator interface {
	Score(res *model.ExtractionResult) (float64, []string)
}

// extractionPayload is the JSON shape the model is instructed to return.
type extractionPayload struct {
	TableHeaders []string               `json:"table_headers"`
	Employees    []model.EmployeeRecord `json:"employees"`
	Confidence   float64                `json:"confidence"`
	Notes        string                 `json:"notes"`
}

// Extractor runs the single-pass extraction pipeline.
type Extractor struct {
	client    vision.Client
	validator ResultValidator
}

// NewExtractor creates a single-pass Extractor.
func NewExtractor(client vision.Client, validator ResultValidator) *Extractor {
	return &Extractor{client: client, validator: validator}
}

// Extract runs one vision call and validates the parsed result. API errors
// surface as errors; unparseable model output comes back as an invalid
// result value so the orchestrator can record it and move on.
func (e *Extractor) Extract(ctx context.Context, imagePath string, st Strategy, tmpl *model.SheetTemplate, profile *model.CompanyProfile, adaptive string) (*model.ExtractionResult, error) {
	if !st.UseTemplate {
		tmpl = nil
	}

	resp, err := e.client.ExtractSheet(ctx, vision.Request{
		ImagePath:   imagePath,
		System:      extractionSystemPrompt,
		Prompt:      BuildExtractionPrompt(tmpl, profile, adaptive),
		MaxTokens:   st.MaxTokens,
		Temperature: st.Temperature,
		Timeout:     st.Timeout,
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(resp.Model, st.Name)

	var payload extractionPayload
	if err := vision.DecodeJSON(resp.Text, &payload); err != nil {
		zap.L().Warn("extract: unparseable model output",
			zap.String("strategy", st.Name),
			zap.Error(err),
		)
		return &model.ExtractionResult{
			Valid:        false,
			ErrorMessage: "model output was not valid JSON",
			Metadata:     metadataFor(st, tmpl, profile),
		}, nil
	}

	res := resultFromPayload(payload, st, tmpl, profile)
	finishResult(res, e.validator, tmpl)
	return res, nil
}

func resultFromPayload(payload extractionPayload, st Strategy, tmpl *model.SheetTemplate, profile *model.CompanyProfile) *model.ExtractionResult {
	res := &model.ExtractionResult{
		TableHeaders: payload.TableHeaders,
		Employees:    payload.Employees,
		Confidence:   payload.Confidence,
		Metadata:     metadataFor(st, tmpl, profile),
	}
	res.Valid = len(res.TableHeaders) > 0 && len(res.Employees) > 0
	return res
}

// finishResult closes records over headers, scores the result, and applies
// template enhancement when a template was in play.
func finishResult(res *model.ExtractionResult, validator ResultValidator, tmpl *model.SheetTemplate) {
	res.CloseOverHeaders()

	if validator != nil {
		conf, issues := validator.Score(res)
		res.Confidence = conf
		res.ValidationIssues = append(res.ValidationIssues, issues...)
	}

	if tmpl != nil {
		applyTemplateEnhancement(res, tmpl)
	}
}

// applyTemplateEnhancement penalizes results missing fields the template
// expects: 0.02 per missing header, floored at 0.1.
func applyTemplateEnhancement(res *model.ExtractionResult, tmpl *model.SheetTemplate) {
	have := make(map[string]bool, len(res.TableHeaders))
	for _, h := range res.TableHeaders {
		have[h] = true
	}
	missing := 0
	for _, h := range tmpl.ExpectedHeaders {
		if !have[h] {
			missing++
		}
	}
	if missing == 0 {
		return
	}
	res.Confidence -= 0.02 * float64(missing)
	if res.Confidence < 0.1 {
		res.Confidence = 0.1
	}
}

func metadataFor(st Strategy, tmpl *model.SheetTemplate, profile *model.CompanyProfile) *model.ExtractionMetadata {
	md := &model.ExtractionMetadata{
		Strategy:     st.Name,
		Preprocessed: st.Preprocess,
	}
	if tmpl != nil {
		md.TemplateID = tmpl.ID
	}
	if profile != nil {
		md.ProfileID = profile.ID
	}
	return md
}

// annotateCompanyPatterns records hierarchical header vocabulary the company
// profile has not seen before.
func annotateCompanyPatterns(res *model.ExtractionResult, profile *model.CompanyProfile) {
	if profile == nil || res.Metadata == nil {
		return
	}
	for _, h := range res.TableHeaders {
		if cc := model.CostCenterOf(h); cc != "" && !containsString(profile.CostCenters, cc) {
			if !containsString(res.Metadata.UnknownCostCenters, cc) {
				res.Metadata.UnknownCostCenters = append(res.Metadata.UnknownCostCenters, cc)
			}
		}
		if task := model.TaskOf(h); task != "" && !containsString(profile.Tasks, task) {
			if !containsString(res.Metadata.UnknownTasks, task) {
				res.Metadata.UnknownTasks = append(res.Metadata.UnknownTasks, task)
			}
		}
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
