package scorer

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/terrafield/crewsheet-cli/internal/model"
)

// ValidationContext is everything the context-aware pass can compare a new
// extraction against.
type ValidationContext struct {
	RecentResults   []*model.ExtractionResult // the user's last sheets, newest first
	Profile         *model.CompanyProfile
	Template        *model.SheetTemplate
	PairHoursPieces bool
}

// ContextOutcome is the output of context-aware validation.
type ContextOutcome struct {
	Adjusted float64            `json:"adjusted_confidence"`
	Impacts  map[string]float64 `json:"impacts"`
	Errors   []string           `json:"errors,omitempty"`
}

// ContextAwareValidator adjusts a result's confidence using domain logic:
// time ordering, hour arithmetic, hierarchical pairing, history, company
// vocabulary, and template conformity.
type ContextAwareValidator struct{}

// NewContextAwareValidator creates a ContextAwareValidator.
func NewContextAwareValidator() *ContextAwareValidator {
	return &ContextAwareValidator{}
}

// Validate computes applicable impact factors, averages them, and shifts the
// original confidence by the average, clamped to [0.1, 1.0].
func (v *ContextAwareValidator) Validate(res *model.ExtractionResult, vctx ValidationContext) ContextOutcome {
	out := ContextOutcome{Impacts: map[string]float64{}}

	impact, errs := v.timeSequenceImpact(res)
	out.Impacts["time_sequences"] = impact
	out.Errors = append(out.Errors, errs...)

	impact, errs = v.mathImpact(res)
	out.Impacts["calculations"] = impact
	out.Errors = append(out.Errors, errs...)

	if vctx.PairHoursPieces {
		impact, errs = v.relationshipImpact(res)
		out.Impacts["field_relationships"] = impact
		out.Errors = append(out.Errors, errs...)
	}
	if len(vctx.RecentResults) > 0 {
		out.Impacts["historical_patterns"] = v.patternConsistencyImpact(res, vctx.RecentResults)
	}
	if vctx.Profile != nil {
		if impact, ok := v.companyVocabularyImpact(res, vctx.Profile); ok {
			out.Impacts["company_patterns"] = impact
		}
	}
	if vctx.Template != nil {
		out.Impacts["template_conformity"] = v.templateConformityImpact(res, vctx.Template)
	}

	var sum float64
	for _, imp := range out.Impacts {
		sum += imp
	}
	avg := 0.0
	if len(out.Impacts) > 0 {
		avg = sum / float64(len(out.Impacts))
	}

	out.Adjusted = res.Confidence + avg
	if out.Adjusted < 0.1 {
		out.Adjusted = 0.1
	}
	if out.Adjusted > 1.0 {
		out.Adjusted = 1.0
	}
	return out
}

// Canonical intra-day ordering of clock columns.
var timeSequenceOrder = []string{"START", "BREAK1", "LUNCH", "BREAK2", "END", "STOP"}

// timeSequenceImpact verifies each employee's clock values increase through
// the day. Impact is (accuracy - 0.8) * 0.2.
func (v *ContextAwareValidator) timeSequenceImpact(res *model.ExtractionResult) (float64, []string) {
	ordered := orderedTimeHeaders(res.TableHeaders)
	if len(ordered) < 2 {
		return 0, nil
	}

	pairs, violations := 0, 0
	var errs []string
	for i, emp := range res.Employees {
		var times []float64
		var cols []string
		for _, h := range ordered {
			m, ok := parseClock(emp[h])
			if !ok {
				continue
			}
			times = append(times, m)
			cols = append(cols, h)
		}
		for j := 1; j < len(times); j++ {
			pairs++
			if times[j] <= times[j-1] {
				violations++
				errs = append(errs, fmt.Sprintf("row %d: %s (%s) not after %s", i, cols[j], emp[cols[j]], cols[j-1]))
			}
		}
	}
	if pairs == 0 {
		return 0, nil
	}
	accuracy := 1 - float64(violations)/float64(pairs)
	return (accuracy - 0.8) * 0.2, errs
}

// orderedTimeHeaders sorts clock columns by canonical day order; for columns
// sharing a keyword, OUT comes before IN.
func orderedTimeHeaders(headers []string) []string {
	type ranked struct {
		header string
		rank   int
		sub    int
		idx    int
	}
	var out []ranked
	for i, h := range headers {
		if !model.IsTimeHeader(h) {
			continue
		}
		upper := strings.ToUpper(h)
		rank := len(timeSequenceOrder)
		for r, kw := range timeSequenceOrder {
			if strings.Contains(upper, kw) {
				rank = r
				break
			}
		}
		sub := 1
		if strings.Contains(upper, "OUT") {
			sub = 0
		}
		out = append(out, ranked{header: h, rank: rank, sub: sub, idx: i})
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].rank != out[b].rank {
			return out[a].rank < out[b].rank
		}
		if out[a].sub != out[b].sub {
			return out[a].sub < out[b].sub
		}
		return out[a].idx < out[b].idx
	})
	headersOut := make([]string, len(out))
	for i, r := range out {
		headersOut[i] = r.header
	}
	return headersOut
}

// parseClock converts a cell to minutes since midnight. Accepts "7:30",
// "7", and decimal hours like "7.5".
func parseClock(val string) (float64, bool) {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, false
	}
	if strings.Contains(val, ":") {
		parts := strings.SplitN(val, ":", 2)
		hh, err1 := strconv.Atoi(parts[0])
		mm, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
			return 0, false
		}
		return float64(hh*60 + mm), true
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f < 0 || f >= 24 {
		return 0, false
	}
	return f * 60, true
}

// mathImpact checks TOTAL hour columns against the sum of the other hour
// columns, with a 0.1 hour tolerance. Impact is (accuracy - 0.8) * 0.15.
func (v *ContextAwareValidator) mathImpact(res *model.ExtractionResult) (float64, []string) {
	var totalCols, hourCols []string
	for _, h := range res.TableHeaders {
		if !model.IsHoursHeader(h) {
			continue
		}
		if strings.Contains(strings.ToUpper(h), "TOTAL") {
			totalCols = append(totalCols, h)
		} else {
			hourCols = append(hourCols, h)
		}
	}
	if len(totalCols) == 0 || len(hourCols) == 0 {
		return 0, nil
	}

	checks, violations := 0, 0
	var errs []string
	for i, emp := range res.Employees {
		for _, tc := range totalCols {
			total, err := strconv.ParseFloat(strings.TrimSpace(emp[tc]), 64)
			if err != nil {
				continue
			}
			sum := 0.0
			counted := 0
			for _, hc := range hourCols {
				if f, err := strconv.ParseFloat(strings.TrimSpace(emp[hc]), 64); err == nil {
					sum += f
					counted++
				}
			}
			if counted == 0 {
				continue
			}
			checks++
			if diff := math.Abs(total - sum); diff > 0.1 {
				violations++
				errs = append(errs, fmt.Sprintf("row %d: %s=%v but parts sum to %v (off by %.2f)", i, tc, total, sum, diff))
			}
		}
	}
	if checks == 0 {
		return 0, nil
	}
	accuracy := 1 - float64(violations)/float64(checks)
	return (accuracy - 0.8) * 0.15, errs
}

// relationshipImpact enforces the hours-implies-pieces pairing within each
// hierarchical header group. Impact is (accuracy - 0.7) * 0.1.
func (v *ContextAwareValidator) relationshipImpact(res *model.ExtractionResult) (float64, []string) {
	groups := map[string][]string{}
	for _, h := range res.TableHeaders {
		if model.CostCenterOf(h) == "" {
			continue
		}
		if key := model.GroupKey(h); key != "" {
			groups[key] = append(groups[key], h)
		}
	}
	if len(groups) == 0 {
		return 0, nil
	}

	checks, violations := 0, 0
	var errs []string
	for i, emp := range res.Employees {
		for key, headers := range groups {
			hasHours, hasPieces, relevant := false, false, false
			for _, h := range headers {
				val := strings.TrimSpace(emp[h])
				if val == "" {
					continue
				}
				if model.IsHoursHeader(h) {
					hasHours = true
					relevant = true
				}
				if model.IsPieceHeader(h) {
					hasPieces = true
					relevant = true
				}
			}
			if !relevant {
				continue
			}
			checks++
			if hasHours != hasPieces {
				violations++
				errs = append(errs, fmt.Sprintf("row %d: group %s has hours or pieces but not both", i, key))
			}
		}
	}
	if checks == 0 {
		return 0, nil
	}
	accuracy := 1 - float64(violations)/float64(checks)
	return (accuracy - 0.7) * 0.1, errs
}

// patternConsistencyImpact compares the sheet to the user's recent sheets:
// employee count within tolerance, and at most two commonly seen headers
// missing. Impact is (consistency - 0.7) * 0.1.
func (v *ContextAwareValidator) patternConsistencyImpact(res *model.ExtractionResult, recent []*model.ExtractionResult) float64 {
	if len(recent) > 10 {
		recent = recent[:10]
	}

	checks, passed := 0, 0

	// Employee count.
	var countSum float64
	for _, r := range recent {
		countSum += float64(len(r.Employees))
	}
	avg := countSum / float64(len(recent))
	tolerance := math.Max(2, avg*0.3)
	checks++
	if math.Abs(float64(len(res.Employees))-avg) <= tolerance {
		passed++
	}

	// Headers seen in at least half the recent sheets.
	headerCounts := map[string]int{}
	for _, r := range recent {
		for _, h := range r.TableHeaders {
			headerCounts[h]++
		}
	}
	var common []string
	for h, c := range headerCounts {
		if float64(c) >= float64(len(recent))*0.5 {
			common = append(common, h)
		}
	}
	if len(common) > 0 {
		have := map[string]bool{}
		for _, h := range res.TableHeaders {
			have[h] = true
		}
		missing := 0
		for _, h := range common {
			if !have[h] {
				missing++
			}
		}
		checks++
		if missing <= 2 {
			passed++
		}
	}

	consistency := float64(passed) / float64(checks)
	return (consistency - 0.7) * 0.1
}

// companyVocabularyImpact measures how much of the sheet's hierarchical
// vocabulary the company profile recognizes. Impact is (rate - 0.5) * 0.15.
func (v *ContextAwareValidator) companyVocabularyImpact(res *model.ExtractionResult, profile *model.CompanyProfile) (float64, bool) {
	total, matched := 0, 0
	for _, h := range res.TableHeaders {
		if cc := model.CostCenterOf(h); cc != "" {
			total++
			if containsStr(profile.CostCenters, cc) {
				matched++
			}
		}
		if task := model.TaskOf(h); task != "" {
			total++
			if containsStr(profile.Tasks, task) {
				matched++
			}
		}
	}
	if total == 0 {
		return 0, false
	}
	rate := float64(matched) / float64(total)
	return (rate - 0.5) * 0.15, true
}

// templateConformityImpact measures the share of template headers present.
// Impact is (conformity - 0.7) * 0.2.
func (v *ContextAwareValidator) templateConformityImpact(res *model.ExtractionResult, tmpl *model.SheetTemplate) float64 {
	if len(tmpl.ExpectedHeaders) == 0 {
		return 0
	}
	have := map[string]bool{}
	for _, h := range res.TableHeaders {
		have[h] = true
	}
	present := 0
	for _, h := range tmpl.ExpectedHeaders {
		if have[h] {
			present++
		}
	}
	conformity := float64(present) / float64(len(tmpl.ExpectedHeaders))
	return (conformity - 0.7) * 0.2
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
