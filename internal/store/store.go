package store

import (
	"context"
	"time"

	"github.com/terrafield/crewsheet-cli/internal/model"
)

// SheetFilter specifies criteria for listing sheets.
type SheetFilter struct {
	UserID string            `json:"user_id,omitempty"`
	Status model.SheetStatus `json:"status,omitempty"`
	Since  time.Time         `json:"since,omitempty"`
	Limit  int               `json:"limit,omitempty"`
}

// Store defines the persistence interface for the extraction pipeline and
// the learning loop.
type Store interface {
	// Sheets
	CreateSheet(ctx context.Context, userID, imagePath string) (*model.Sheet, error)
	GetSheet(ctx context.Context, sheetID string) (*model.Sheet, error)
	UpdateSheetStatus(ctx context.Context, sheetID string, status model.SheetStatus) error
	CompleteSheet(ctx context.Context, sheetID string, result *model.ExtractionResult, needsReview bool) error
	FailSheet(ctx context.Context, sheetID, message string) error
	ListSheets(ctx context.Context, filter SheetFilter) ([]model.Sheet, error)

	// Quality assessments
	SaveAssessment(ctx context.Context, a *model.SheetAssessment) error
	AssessmentsSince(ctx context.Context, userID string, since time.Time) ([]model.SheetAssessment, error)

	// Field confidence
	SaveFieldConfidence(ctx context.Context, records []model.FieldConfidence) error
	GetFieldConfidence(ctx context.Context, sheetID, fieldName string, employeeIndex int) (*model.FieldConfidence, error)
	ListFieldConfidence(ctx context.Context, sheetID string) ([]model.FieldConfidence, error)
	UpdateFieldConfidence(ctx context.Context, rec *model.FieldConfidence) error
	AverageFieldConfidence(ctx context.Context, userID string) (map[string]float64, error)

	// Company profiles
	GetProfile(ctx context.Context, id string) (*model.CompanyProfile, error)
	SaveProfile(ctx context.Context, p *model.CompanyProfile) error

	// Sheet templates
	GetTemplate(ctx context.Context, id string) (*model.SheetTemplate, error)
	SaveTemplate(ctx context.Context, t *model.SheetTemplate) error
	ListTemplates(ctx context.Context) ([]model.SheetTemplate, error)

	// User edits
	RecordEdit(ctx context.Context, e *model.UserEdit) error
	EditsSince(ctx context.Context, userID string, since time.Time) ([]model.UserEdit, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
