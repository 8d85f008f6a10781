package learning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/terrafield/crewsheet-cli/internal/model"
)

// Repository is the slice of the store the learning loop needs.
type Repository interface {
	RecordEdit(ctx context.Context, e *model.UserEdit) error
	EditsSince(ctx context.Context, userID string, since time.Time) ([]model.UserEdit, error)
	GetFieldConfidence(ctx context.Context, sheetID, fieldName string, employeeIndex int) (*model.FieldConfidence, error)
	UpdateFieldConfidence(ctx context.Context, rec *model.FieldConfidence) error
	GetSheet(ctx context.Context, sheetID string) (*model.Sheet, error)
	GetProfile(ctx context.Context, id string) (*model.CompanyProfile, error)
	SaveProfile(ctx context.Context, p *model.CompanyProfile) error
	GetTemplate(ctx context.Context, id string) (*model.SheetTemplate, error)
	SaveTemplate(ctx context.Context, t *model.SheetTemplate) error
	AssessmentsSince(ctx context.Context, userID string, since time.Time) ([]model.SheetAssessment, error)
}

// Settings tunes the learning loop's windows and cache lifetimes.
type Settings struct {
	PatternCacheTTL  time.Duration
	FeedbackCacheTTL time.Duration
	PatternWindow    time.Duration
	PatternMinEdits  int
}

// DefaultSettings returns the standard learning configuration.
func DefaultSettings() Settings {
	return Settings{
		PatternCacheTTL:  5 * time.Minute,
		FeedbackCacheTTL: time.Minute,
		PatternWindow:    7 * 24 * time.Hour,
		PatternMinEdits:  3,
	}
}

// FeedbackResult reports what one recorded correction taught the system.
type FeedbackResult struct {
	CorrectionType        string   `json:"correction_type"`
	LearningUpdates       []string `json:"learning_updates,omitempty"`
	ImmediateImprovements []string `json:"immediate_improvements,omitempty"`
	PatternDiscoveries    []string `json:"pattern_discoveries,omitempty"`
	Recommendations       []string `json:"recommendations,omitempty"`
}

// Engine runs the learning loop over recorded user corrections.
type Engine struct {
	repo     Repository
	cache    Cache
	settings Settings
	now      func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(repo Repository, cache Cache, settings Settings) *Engine {
	if settings.PatternMinEdits <= 0 {
		settings = DefaultSettings()
	}
	return &Engine{repo: repo, cache: cache, settings: settings, now: time.Now}
}

// Confidence deltas applied per correction.
const (
	changedPenalty  = 0.2
	resaveBonus     = 0.05
	confidenceFloor = 0.1
)

// Process classifies and records one edit, then runs every learning step.
// Only the edit record itself can fail the call; learning steps are
// advisory and log their errors instead of returning them.
func (e *Engine) Process(ctx context.Context, edit *model.UserEdit) (*FeedbackResult, error) {
	if edit.CorrectionType == "" {
		edit.CorrectionType = ClassifyCorrection(edit.FieldName, edit.OldValue, edit.NewValue)
	}
	if err := e.repo.RecordEdit(ctx, edit); err != nil {
		return nil, eris.Wrap(err, "learning: record edit")
	}

	res := &FeedbackResult{CorrectionType: edit.CorrectionType}
	e.adjustFieldConfidence(ctx, edit, res)
	e.updateProfile(ctx, edit, res)
	e.degradeTemplate(ctx, edit, res)
	e.detectPatterns(ctx, edit, res)
	e.recommend(ctx, edit, res)

	zap.L().Debug("learning: processed edit",
		zap.String("field", edit.FieldName),
		zap.String("correction_type", edit.CorrectionType),
		zap.Int("updates", len(res.LearningUpdates)),
	)
	return res, nil
}

func (e *Engine) adjustFieldConfidence(ctx context.Context, edit *model.UserEdit, res *FeedbackResult) {
	rec, err := e.repo.GetFieldConfidence(ctx, edit.SheetID, edit.FieldName, edit.EmployeeIndex)
	if err != nil {
		zap.L().Warn("learning: load field confidence", zap.Error(err))
		return
	}
	if rec == nil {
		return
	}

	if edit.Changed() {
		rec.Confidence -= changedPenalty
		if rec.Confidence < confidenceFloor {
			rec.Confidence = confidenceFloor
		}
	} else {
		rec.Confidence += resaveBonus
		if rec.Confidence > 1.0 {
			rec.Confidence = 1.0
		}
	}
	rec.FlagThresholds()

	if err := e.repo.UpdateFieldConfidence(ctx, rec); err != nil {
		zap.L().Warn("learning: update field confidence", zap.Error(err))
		return
	}
	res.LearningUpdates = append(res.LearningUpdates,
		fmt.Sprintf("%s confidence adjusted to %.2f", edit.FieldName, rec.Confidence))
}

func (e *Engine) updateProfile(ctx context.Context, edit *model.UserEdit, res *FeedbackResult) {
	if edit.UserID == "" {
		return
	}

	profile, err := e.repo.GetProfile(ctx, edit.UserID)
	if err != nil {
		zap.L().Warn("learning: load profile", zap.Error(err))
		return
	}
	if profile == nil {
		profile = &model.CompanyProfile{ID: edit.UserID}
	}

	changed := false
	if cc := model.CostCenterOf(edit.FieldName); profile.AddCostCenter(cc) {
		changed = true
		res.ImmediateImprovements = append(res.ImmediateImprovements, "learned cost center "+cc)
	}
	if task := model.TaskOf(edit.FieldName); profile.AddTask(task) {
		changed = true
		res.ImmediateImprovements = append(res.ImmediateImprovements, "learned task "+task)
	}
	if model.IsNameHeader(edit.FieldName) && strings.Contains(edit.NewValue, " ") {
		if profile.AddCrewName(strings.TrimSpace(edit.NewValue)) {
			changed = true
			res.ImmediateImprovements = append(res.ImmediateImprovements, "learned crew name "+strings.TrimSpace(edit.NewValue))
		}
	}
	if model.IsTimeHeader(edit.FieldName) && strings.Contains(edit.NewValue, ":") && !profile.TimeFormats["prefers_colon_format"] {
		profile.SetTimeFormat("prefers_colon_format", true)
		changed = true
		res.ImmediateImprovements = append(res.ImmediateImprovements, "recorded colon time format preference")
	}

	if !changed {
		return
	}
	if err := e.repo.SaveProfile(ctx, profile); err != nil {
		zap.L().Warn("learning: save profile", zap.Error(err))
	}
}

func (e *Engine) degradeTemplate(ctx context.Context, edit *model.UserEdit, res *FeedbackResult) {
	sheet, err := e.repo.GetSheet(ctx, edit.SheetID)
	if err != nil {
		zap.L().Warn("learning: load sheet for template", zap.Error(err))
		return
	}
	if sheet.Result == nil || sheet.Result.Metadata == nil || sheet.Result.Metadata.TemplateID == "" {
		return
	}

	tmpl, err := e.repo.GetTemplate(ctx, sheet.Result.Metadata.TemplateID)
	if err != nil || tmpl == nil {
		if err != nil {
			zap.L().Warn("learning: load template", zap.Error(err))
		}
		return
	}

	tmpl.RecordCorrection()
	if err := e.repo.SaveTemplate(ctx, tmpl); err != nil {
		zap.L().Warn("learning: save template", zap.Error(err))
		return
	}
	res.LearningUpdates = append(res.LearningUpdates,
		fmt.Sprintf("template %s success rate now %.2f", tmpl.ID, tmpl.SuccessRate))
}

func (e *Engine) detectPatterns(ctx context.Context, edit *model.UserEdit, res *FeedbackResult) {
	key := patternKey(edit.UserID)
	if cached, ok := e.cache.Get(key); ok {
		if lines, ok := cached.([]string); ok {
			res.PatternDiscoveries = append(res.PatternDiscoveries, lines...)
		}
		return
	}

	edits, err := e.repo.EditsSince(ctx, edit.UserID, e.now().Add(-e.settings.PatternWindow))
	if err != nil {
		zap.L().Warn("learning: load edits for patterns", zap.Error(err))
		return
	}

	discoveries := detectFrequentCorrections(edits, e.settings.PatternMinEdits)
	e.cache.Set(key, discoveries, e.settings.PatternCacheTTL)
	res.PatternDiscoveries = append(res.PatternDiscoveries, discoveries...)
}

// detectFrequentCorrections finds fields corrected at least minEdits times
// in the window where the same before/after pair repeats.
func detectFrequentCorrections(edits []model.UserEdit, minEdits int) []string {
	byField := map[string][]model.UserEdit{}
	for _, e := range edits {
		byField[e.FieldName] = append(byField[e.FieldName], e)
	}

	var out []string
	for field, fieldEdits := range byField {
		if len(fieldEdits) < minEdits {
			continue
		}
		pairs := map[string]int{}
		for _, fe := range fieldEdits {
			pairs[fe.OldValue+" -> "+fe.NewValue]++
		}
		for pair, n := range pairs {
			if n >= 2 {
				confidence := float64(n) / float64(len(fieldEdits))
				if confidence > 1 {
					confidence = 1
				}
				out = append(out, fmt.Sprintf("%s frequently corrected %s (%d times, confidence %.2f)", field, pair, n, confidence))
			}
		}
	}
	return out
}

func (e *Engine) recommend(ctx context.Context, edit *model.UserEdit, res *FeedbackResult) {
	week, err := e.repo.EditsSince(ctx, edit.UserID, e.now().Add(-7*24*time.Hour))
	if err != nil {
		zap.L().Warn("learning: load edits for recommendations", zap.Error(err))
		return
	}

	if len(week) > 10 {
		res.Recommendations = append(res.Recommendations,
			"High correction volume this week; consider retaking photos with better lighting")
	}

	twoWeeks, err := e.repo.EditsSince(ctx, edit.UserID, e.now().Add(-14*24*time.Hour))
	if err == nil {
		sameField := 0
		for _, we := range twoWeeks {
			if we.FieldName == edit.FieldName {
				sameField++
			}
		}
		if sameField >= 3 {
			res.Recommendations = append(res.Recommendations,
				fmt.Sprintf("%s is corrected often; a sheet template would improve extraction", edit.FieldName))
		}
	}

	if edit.CorrectionType == CorrectionCheckmarkToTime {
		res.Recommendations = append(res.Recommendations,
			"Checkmarks are being replaced with clock times; prompts will request explicit times")
	}

	if len(res.Recommendations) > 0 {
		e.cache.Set(feedbackKey(edit.UserID), res.Recommendations, e.settings.FeedbackCacheTTL)
	}
}

func patternKey(userID string) string  { return "patterns:" + userID }
func feedbackKey(userID string) string { return "feedback:" + userID }
