package extract

import "github.com/terrafield/crewsheet-cli/internal/model"

// StrategyStats aggregates attempt history for one strategy.
type StrategyStats struct {
	Attempts       int     `json:"attempts"`
	Successes      int     `json:"successes"`
	SuccessRate    float64 `json:"success_rate"`
	AvgDurationMS  float64 `json:"avg_duration_ms"`
	BestConfidence float64 `json:"best_confidence"`
}

// Analyze folds attempt histories into per-strategy statistics, the raw
// material for tuning the strategy table against a real fleet.
func Analyze(histories ...[]model.StrategyAttempt) map[string]StrategyStats {
	stats := map[string]StrategyStats{}
	for _, history := range histories {
		for _, a := range history {
			s := stats[a.Strategy]
			s.Attempts++
			s.AvgDurationMS += float64(a.DurationMS)
			if a.Success {
				s.Successes++
				if a.Confidence > s.BestConfidence {
					s.BestConfidence = a.Confidence
				}
			}
			stats[a.Strategy] = s
		}
	}
	for name, s := range stats {
		s.AvgDurationMS /= float64(s.Attempts)
		s.SuccessRate = float64(s.Successes) / float64(s.Attempts)
		stats[name] = s
	}
	return stats
}
