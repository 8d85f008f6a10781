package model

import "time"

// SheetStatus tracks a crew sheet through the processing lifecycle.
type SheetStatus string

const (
	SheetStatusPending    SheetStatus = "pending"
	SheetStatusProcessing SheetStatus = "processing"
	SheetStatusCompleted  SheetStatus = "completed"
	SheetStatusFailed     SheetStatus = "failed"
)

// Sheet is a single uploaded crew sheet image and its extraction state.
type Sheet struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id,omitempty"`
	ImagePath    string            `json:"image_path"`
	Status       SheetStatus       `json:"status"`
	NeedsReview  bool              `json:"needs_review"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Result       *ExtractionResult `json:"result,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// SheetAssessment records post-extraction quality metrics for a sheet.
type SheetAssessment struct {
	ID                 string    `json:"id"`
	SheetID            string    `json:"sheet_id"`
	ExtractionAccuracy float64   `json:"extraction_accuracy"`
	DataCompleteness   float64   `json:"data_completeness"`
	FormatConsistency  float64   `json:"format_consistency"`
	Issues             []string  `json:"issues,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// FieldConfidence is the per-cell confidence record used by the learning loop.
type FieldConfidence struct {
	ID            string    `json:"id"`
	SheetID       string    `json:"sheet_id"`
	FieldName     string    `json:"field_name"`
	EmployeeIndex int       `json:"employee_index"`
	Confidence    float64   `json:"confidence"`
	IsUncertain   bool      `json:"is_uncertain"`
	NeedsReview   bool      `json:"needs_review"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FlagThresholds applies the uncertainty and review flags from the confidence value.
func (f *FieldConfidence) FlagThresholds() {
	f.IsUncertain = f.Confidence < 0.6
	f.NeedsReview = f.Confidence < 0.4
}
