package model

import "time"

// SheetTemplate describes a known sheet layout: the headers the crew's
// paper form carries and how well extractions against it have performed.
type SheetTemplate struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	ExpectedHeaders []string          `json:"expected_headers"`
	FieldMappings   map[string]string `json:"field_mappings,omitempty"`
	SuccessRate     float64           `json:"success_rate"`
	UsageCount      int               `json:"usage_count"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// RecordUse folds one extraction confidence into the running success rate.
func (t *SheetTemplate) RecordUse(confidence float64) {
	t.UsageCount++
	n := float64(t.UsageCount)
	t.SuccessRate = ((t.SuccessRate * (n - 1)) + confidence) / n
}

// RecordCorrection degrades the success rate after a user fixed a field,
// scaled to the template width so wide sheets degrade gently.
func (t *SheetTemplate) RecordCorrection() {
	headers := len(t.ExpectedHeaders)
	if headers < 1 {
		headers = 1
	}
	t.SuccessRate -= 1.0 / float64(headers)
	if t.SuccessRate < 0.1 {
		t.SuccessRate = 0.1
	}
}
