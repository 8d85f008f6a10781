package model

import (
	"regexp"
	"strings"
)

// Hierarchical headers encode company vocabulary with underscores, e.g.
// "02-320_PLANT_DET" is cost center 02-320, task PLANT, job type DET.
// Only headers whose first segment looks like a cost-center code take part
// in vocabulary matching; "EMPLOYEE_NAME" is not a job column.

var costCenterPattern = regexp.MustCompile(`^\d{2}-\d{3}$`)

// HeaderParts splits a header on underscores.
func HeaderParts(header string) []string {
	return strings.Split(header, "_")
}

// CostCenterOf returns the cost-center segment of a hierarchical job header,
// or "" when the header is not cost-center coded.
func CostCenterOf(header string) string {
	parts := HeaderParts(header)
	if len(parts) < 2 || !costCenterPattern.MatchString(parts[0]) {
		return ""
	}
	return parts[0]
}

// TaskOf returns the task segment of a hierarchical job header, or "" when
// the header has no task segment.
func TaskOf(header string) string {
	parts := HeaderParts(header)
	if len(parts) < 3 || !costCenterPattern.MatchString(parts[0]) {
		return ""
	}
	return parts[1]
}

// GroupKey returns the grouping key for hierarchical consistency checks:
// everything except the trailing segment, rejoined. Flat headers group as "".
func GroupKey(header string) string {
	parts := HeaderParts(header)
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[:len(parts)-1], "_")
}

// Time-ish and numeric-ish header classification used across scoring and
// learning. Matching is substring-based on the upper-cased header.

var timeHeaderKeywords = []string{"TIME", "START", "STOP", "BREAK", "LUNCH", "END"}

// IsTimeHeader reports whether the header names a clock-time column.
func IsTimeHeader(header string) bool {
	u := strings.ToUpper(header)
	for _, kw := range timeHeaderKeywords {
		if strings.Contains(u, kw) {
			return true
		}
	}
	return false
}

// IsHoursHeader reports whether the header names an hours-worked column.
func IsHoursHeader(header string) bool {
	u := strings.ToUpper(header)
	return strings.Contains(u, "HRS") || strings.Contains(u, "HOURS")
}

// IsPieceHeader reports whether the header names a piece-count column.
func IsPieceHeader(header string) bool {
	u := strings.ToUpper(header)
	return strings.Contains(u, "PIECE") || strings.Contains(u, "PCS")
}

// IsNameHeader reports whether the header names the employee-name column.
func IsNameHeader(header string) bool {
	u := strings.ToUpper(header)
	return strings.Contains(u, "NAME") || strings.Contains(u, "EMPLOYEE")
}
