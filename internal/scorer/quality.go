package scorer

import (
	"regexp"
	"strings"

	"github.com/terrafield/crewsheet-cli/internal/model"
)

// timePattern accepts "7", "7:00", "12:3", "07:15" but not "✓" or "seven".
var timePattern = regexp.MustCompile(`^\d{1,2}:?\d{0,2}$|^\d{1,2}$`)

// placeholderValues are marks reviewers and models leave when a cell is
// unreadable rather than genuinely empty.
var placeholderValues = map[string]bool{
	"✓": true, "?": true, "TBD": true, "NA": true, "N/A": true,
}

// QualityValidator scores a raw extraction by degrading a perfect score
// through structural penalties and multiplicative format sub-scores.
type QualityValidator struct{}

// NewQualityValidator creates a QualityValidator.
func NewQualityValidator() *QualityValidator {
	return &QualityValidator{}
}

// Score implements the extraction validator contract: a confidence in [0,1]
// plus the issues found.
func (v *QualityValidator) Score(res *model.ExtractionResult) (float64, []string) {
	conf := 1.0
	var issues []string

	switch {
	case res.Employees == nil:
		conf -= 0.3
		issues = append(issues, "missing employees section")
	case len(res.Employees) == 0:
		conf -= 0.4
		issues = append(issues, "No employee data found")
	}
	if res.TableHeaders == nil {
		conf -= 0.2
		issues = append(issues, "missing table headers")
	}

	if timeRate := v.timeFormatRate(res); timeRate < 1 {
		conf *= timeRate
		if timeRate < 0.8 {
			issues = append(issues, "time values in unexpected formats")
		}
	}
	if nameRate := v.nameValidityRate(res); nameRate < 1 {
		conf *= nameRate
		if nameRate < 0.9 && len(res.Employees) > 0 {
			issues = append(issues, "employee names look incomplete")
		}
	}
	if headerScore := v.headerStructureScore(res.TableHeaders); headerScore < 1 {
		conf *= headerScore
		if headerScore < 0.8 && len(res.TableHeaders) > 0 {
			issues = append(issues, "header structure missing expected columns")
		}
	}
	if consistency := v.dataConsistencyScore(res); consistency < 1 {
		conf *= consistency
		if consistency < 0.7 {
			issues = append(issues, "extracted data looks inconsistent")
		}
	}

	return clamp01(conf), issues
}

// timeFormatRate is the share of non-empty time-column values matching the
// accepted clock formats. 1.0 when there is nothing to check.
func (v *QualityValidator) timeFormatRate(res *model.ExtractionResult) float64 {
	total, valid := 0, 0
	for _, emp := range res.Employees {
		for _, h := range res.TableHeaders {
			if !model.IsTimeHeader(h) {
				continue
			}
			val := strings.TrimSpace(emp[h])
			if val == "" {
				continue
			}
			total++
			if timePattern.MatchString(val) {
				valid++
			}
		}
	}
	if total == 0 {
		return 1
	}
	return float64(valid) / float64(total)
}

// nameValidityRate is the share of employees whose name cell looks like a
// real name: more than one character and containing a space. Empty or missing
// name cells count against the employee, and a sheet with no employees at all
// scores 0.
func (v *QualityValidator) nameValidityRate(res *model.ExtractionResult) float64 {
	if len(res.Employees) == 0 {
		return 0
	}
	valid := 0
	for _, emp := range res.Employees {
		for _, h := range res.TableHeaders {
			if !model.IsNameHeader(h) {
				continue
			}
			val := strings.TrimSpace(emp[h])
			if len(val) > 1 && strings.Contains(val, " ") {
				valid++
				break
			}
		}
	}
	return float64(valid) / float64(len(res.Employees))
}

// headerStructureScore rewards the three column families a crew sheet needs:
// a name column, clock columns, and job columns. No headers, no score.
func (v *QualityValidator) headerStructureScore(headers []string) float64 {
	if len(headers) == 0 {
		return 0
	}
	joined := strings.ToUpper(strings.Join(headers, " "))
	score := 0.0
	if strings.Contains(joined, "NAME") || strings.Contains(joined, "EMPLOYEE") {
		score += 0.4
	}
	if containsAny(joined, "START", "BREAK", "LUNCH", "STOP") {
		score += 0.3
	}
	if containsAny(joined, "JOB", "WORK", "HRS", "HOURS") {
		score += 0.3
	}
	return score
}

// dataConsistencyScore penalizes suspicious column uniformity and heavy
// placeholder use.
func (v *QualityValidator) dataConsistencyScore(res *model.ExtractionResult) float64 {
	score := 1.0

	// A column where more than three employees share the same non-empty
	// value usually means the model smeared one cell down the sheet.
	for _, h := range res.TableHeaders {
		counts := map[string]int{}
		for _, emp := range res.Employees {
			if val := strings.TrimSpace(emp[h]); val != "" {
				counts[val]++
			}
		}
		for _, c := range counts {
			if c > 3 {
				score -= 0.1
				break
			}
		}
	}

	nonEmpty, placeholders := 0, 0
	for _, emp := range res.Employees {
		for _, h := range res.TableHeaders {
			val := strings.TrimSpace(emp[h])
			if val == "" {
				continue
			}
			nonEmpty++
			if placeholderValues[val] {
				placeholders++
			}
		}
	}
	if nonEmpty > 0 && float64(placeholders)/float64(nonEmpty) > 0.5 {
		score -= 0.2
	}

	if score < 0 {
		score = 0
	}
	return score
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
