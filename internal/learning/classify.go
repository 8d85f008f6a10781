package learning

import (
	"strconv"
	"strings"

	"github.com/terrafield/crewsheet-cli/internal/model"
)

// Correction types produced by ClassifyCorrection.
const (
	CorrectionCheckmarkToTime    = "checkmark_to_time"
	CorrectionTimeFormat         = "time_format_correction"
	CorrectionTimeDeletion       = "time_deletion"
	CorrectionTimeOther          = "time_other"
	CorrectionNumericAdjustment  = "numeric_adjustment"
	CorrectionCheckmarkToNumeric = "checkmark_to_numeric"
	CorrectionNumericFormat      = "numeric_format_correction"
	CorrectionName               = "name_correction"
	CorrectionValueTruncation    = "value_truncation"
	CorrectionValueExpansion     = "value_expansion"
	CorrectionCheckmark          = "checkmark_replacement"
	CorrectionValueReplacement   = "value_replacement"
)

// ClassifyCorrection buckets an edit by the field's semantic type and the
// shape of the before/after values. The buckets drive pattern detection and
// prompt adaptation downstream.
func ClassifyCorrection(fieldName, oldVal, newVal string) string {
	oldVal = strings.TrimSpace(oldVal)
	newVal = strings.TrimSpace(newVal)

	switch {
	case model.IsTimeHeader(fieldName):
		switch {
		case oldVal == "✓" && strings.Contains(newVal, ":"):
			return CorrectionCheckmarkToTime
		case strings.Contains(oldVal, ":") && strings.Contains(newVal, ":"):
			return CorrectionTimeFormat
		case oldVal != "" && newVal == "":
			return CorrectionTimeDeletion
		default:
			return CorrectionTimeOther
		}
	case model.IsHoursHeader(fieldName) || model.IsPieceHeader(fieldName):
		switch {
		case isNumeric(oldVal) && isNumeric(newVal):
			return CorrectionNumericAdjustment
		case oldVal == "✓" && isNumeric(newVal):
			return CorrectionCheckmarkToNumeric
		default:
			return CorrectionNumericFormat
		}
	case model.IsNameHeader(fieldName):
		return CorrectionName
	default:
		switch {
		case oldVal == "✓":
			return CorrectionCheckmark
		case len(newVal) < len(oldVal):
			return CorrectionValueTruncation
		case len(newVal) > len(oldVal):
			return CorrectionValueExpansion
		default:
			return CorrectionValueReplacement
		}
	}
}

func isNumeric(v string) bool {
	if v == "" {
		return false
	}
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}
