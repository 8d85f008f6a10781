package model

import "time"

// UserEdit is one correction a reviewer made to an extracted cell.
type UserEdit struct {
	ID             string    `json:"id"`
	SheetID        string    `json:"sheet_id"`
	UserID         string    `json:"user_id,omitempty"`
	SessionID      string    `json:"session_id,omitempty"`
	FieldName      string    `json:"field_name"`
	EmployeeIndex  int       `json:"employee_index"`
	OldValue       string    `json:"old_value"`
	NewValue       string    `json:"new_value"`
	CorrectionType string    `json:"correction_type,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Changed reports whether the edit actually altered the value.
func (e UserEdit) Changed() bool {
	return e.OldValue != e.NewValue
}
