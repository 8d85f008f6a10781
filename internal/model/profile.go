package model

import "time"

// CompanyProfile accumulates the vocabulary a company's sheets use. It grows
// append-only from extractions and user corrections; concurrent updates are
// last-writer-wins.
type CompanyProfile struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	CostCenters []string          `json:"cost_centers,omitempty"`
	Tasks       []string          `json:"tasks,omitempty"`
	CrewNames   []string          `json:"crew_names,omitempty"`
	TimeFormats map[string]bool   `json:"time_format_preferences,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// AddCostCenter appends a cost center if not already known. Reports whether
// the profile changed.
func (p *CompanyProfile) AddCostCenter(cc string) bool {
	if cc == "" || contains(p.CostCenters, cc) {
		return false
	}
	p.CostCenters = append(p.CostCenters, cc)
	return true
}

// AddTask appends a task code if not already known.
func (p *CompanyProfile) AddTask(task string) bool {
	if task == "" || contains(p.Tasks, task) {
		return false
	}
	p.Tasks = append(p.Tasks, task)
	return true
}

// AddCrewName appends a crew member name if not already known.
func (p *CompanyProfile) AddCrewName(name string) bool {
	if name == "" || contains(p.CrewNames, name) {
		return false
	}
	p.CrewNames = append(p.CrewNames, name)
	return true
}

// SetTimeFormat records a time-format preference such as "prefers_colon_format".
func (p *CompanyProfile) SetTimeFormat(key string, val bool) {
	if p.TimeFormats == nil {
		p.TimeFormats = map[string]bool{}
	}
	p.TimeFormats[key] = val
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
