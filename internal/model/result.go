package model

// EmployeeRecord maps header names to cell values for one row of the sheet.
// A record is closed over the sheet's headers: every header key is present,
// with "" for cells the model could not read.
type EmployeeRecord map[string]string

// ExtractionResult is the outcome of one extraction pass over a sheet image.
// Failed extractions are represented as values (Valid=false) rather than
// errors so the retry orchestrator can compare and keep the best attempt.
type ExtractionResult struct {
	Valid            bool                `json:"valid"`
	Confidence       float64             `json:"confidence"`
	TableHeaders     []string            `json:"table_headers"`
	Employees        []EmployeeRecord    `json:"employees"`
	ValidationIssues []string            `json:"validation_issues,omitempty"`
	ErrorMessage     string              `json:"error_message,omitempty"`
	Retry            *RetryMetadata      `json:"retry_metadata,omitempty"`
	Metadata         *ExtractionMetadata `json:"extraction_metadata,omitempty"`
}

// ExtractionMetadata describes how a result was produced.
type ExtractionMetadata struct {
	Strategy           string   `json:"strategy,omitempty"`
	StagesCompleted    []string `json:"stages_completed,omitempty"`
	Preprocessed       bool     `json:"preprocessed"`
	TemplateID         string   `json:"template_id,omitempty"`
	ProfileID          string   `json:"profile_id,omitempty"`
	UnknownCostCenters []string `json:"unknown_cost_centers,omitempty"`
	UnknownTasks       []string `json:"unknown_tasks,omitempty"`
}

// StrategyAttempt records one strategy execution inside a retry run.
type StrategyAttempt struct {
	Strategy   string  `json:"strategy"`
	Success    bool    `json:"success"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
	DurationMS int64   `json:"duration_ms"`
}

// RetryMetadata summarizes a full smart-retry run.
type RetryMetadata struct {
	StrategiesAttempted int               `json:"strategies_attempted"`
	SuccessfulAttempts  int               `json:"successful_attempts"`
	BestStrategy        string            `json:"best_strategy,omitempty"`
	AttemptHistory      []StrategyAttempt `json:"attempt_history"`
	ImageQualityScore   float64           `json:"image_quality_score"`
	TotalProcessingMS   int64             `json:"total_processing_ms"`
}

// CloseOverHeaders back-fills every employee record so it carries a key for
// each table header, using "" for missing cells.
func (r *ExtractionResult) CloseOverHeaders() {
	for i, emp := range r.Employees {
		if emp == nil {
			emp = EmployeeRecord{}
			r.Employees[i] = emp
		}
		for _, h := range r.TableHeaders {
			if _, ok := emp[h]; !ok {
				emp[h] = ""
			}
		}
	}
}

// FilledCellRatio returns filled cells over total cells, or 0 when empty.
func (r *ExtractionResult) FilledCellRatio() float64 {
	total := len(r.TableHeaders) * len(r.Employees)
	if total == 0 {
		return 0
	}
	filled := 0
	for _, emp := range r.Employees {
		for _, h := range r.TableHeaders {
			if emp[h] != "" {
				filled++
			}
		}
	}
	return float64(filled) / float64(total)
}
