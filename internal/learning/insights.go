package learning

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
)

const insightsWindow = 30 * 24 * time.Hour

// Insights summarizes a user's recent extraction quality and correction
// activity.
type Insights struct {
	WindowDays        int            `json:"window_days"`
	SheetsAssessed    int            `json:"sheets_assessed"`
	AverageAccuracy   float64        `json:"average_accuracy"`
	CommonIssues      []IssueCount   `json:"common_issues,omitempty"`
	TotalEdits        int            `json:"total_edits"`
	MostEditedFields  []FieldCount   `json:"most_edited_fields,omitempty"`
	CorrectionTypes   map[string]int `json:"correction_types,omitempty"`
	Suggestions       []string       `json:"suggestions,omitempty"`
}

// IssueCount is one recurring assessment issue and how often it appeared.
type IssueCount struct {
	Issue string `json:"issue"`
	Count int    `json:"count"`
}

// FieldCount is one field and the number of times it was corrected.
type FieldCount struct {
	Field string `json:"field"`
	Count int    `json:"count"`
}

// Insights builds a 30-day summary for the user from stored assessments
// and edits.
func (e *Engine) Insights(ctx context.Context, userID string) (*Insights, error) {
	since := e.now().Add(-insightsWindow)

	assessments, err := e.repo.AssessmentsSince(ctx, userID, since)
	if err != nil {
		return nil, eris.Wrap(err, "learning: load assessments")
	}
	edits, err := e.repo.EditsSince(ctx, userID, since)
	if err != nil {
		return nil, eris.Wrap(err, "learning: load edits")
	}

	ins := &Insights{
		WindowDays:      int(insightsWindow / (24 * time.Hour)),
		SheetsAssessed:  len(assessments),
		TotalEdits:      len(edits),
		CorrectionTypes: map[string]int{},
	}

	issueCounts := map[string]int{}
	for _, a := range assessments {
		ins.AverageAccuracy += a.ExtractionAccuracy
		for _, issue := range a.Issues {
			issueCounts[issue]++
		}
	}
	if len(assessments) > 0 {
		ins.AverageAccuracy /= float64(len(assessments))
	}
	ins.CommonIssues = topCounts(issueCounts, 5, func(k string, n int) IssueCount {
		return IssueCount{Issue: k, Count: n}
	})

	fieldCounts := map[string]int{}
	for _, ed := range edits {
		fieldCounts[ed.FieldName]++
		if ed.CorrectionType != "" {
			ins.CorrectionTypes[ed.CorrectionType]++
		}
	}
	ins.MostEditedFields = topCounts(fieldCounts, 5, func(k string, n int) FieldCount {
		return FieldCount{Field: k, Count: n}
	})

	ins.Suggestions = buildSuggestions(ins)
	return ins, nil
}

// topCounts returns the top n entries of a count map, highest first, with
// ties broken alphabetically so output is stable.
func topCounts[T any](counts map[string]int, n int, build func(string, int) T) []T {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}

	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, build(k, counts[k]))
	}
	return out
}

func buildSuggestions(ins *Insights) []string {
	var out []string

	if ins.SheetsAssessed > 0 && ins.AverageAccuracy < 0.7 {
		out = append(out, "Extraction accuracy is below 70%; review photo quality and lighting")
	}
	if len(ins.MostEditedFields) > 0 && ins.MostEditedFields[0].Count >= 5 {
		out = append(out, fmt.Sprintf("%s is your most corrected field (%d edits); a sheet template for it would help",
			ins.MostEditedFields[0].Field, ins.MostEditedFields[0].Count))
	}
	if ins.CorrectionTypes[CorrectionCheckmarkToTime] >= 3 {
		out = append(out, "Checkmarks are frequently replaced with times; ask crews to write explicit clock times")
	}
	if ins.TotalEdits == 0 && ins.SheetsAssessed > 0 {
		out = append(out, "No corrections in the window; extractions look reliable")
	}

	return out
}
