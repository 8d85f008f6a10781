package extract

import "time"

// Strategy is one named way of running an extraction: which enhancements to
// apply, which pipeline to use, and how the model is parameterized.
type Strategy struct {
	Name          string
	Preprocess    bool
	UseTemplate   bool
	MultiStage    bool
	Temperature   float64
	MaxTokens     int64
	ConfThreshold float64
	Timeout       time.Duration
	Priority      int
}

// The strategy table. Priority orders the full cascade; selection picks a
// quality-dependent subset.
var strategies = map[string]Strategy{
	"template_guided": {
		Name: "template_guided", Preprocess: true, UseTemplate: true, MultiStage: true,
		Temperature: 0.1, MaxTokens: 4096, ConfThreshold: 0.8, Timeout: 120 * time.Second, Priority: 1,
	},
	"high_detail": {
		Name: "high_detail", Preprocess: true, UseTemplate: false, MultiStage: true,
		Temperature: 0.0, MaxTokens: 6000, ConfThreshold: 0.75, Timeout: 180 * time.Second, Priority: 2,
	},
	"structure_first": {
		Name: "structure_first", Preprocess: false, UseTemplate: false, MultiStage: true,
		Temperature: 0.2, MaxTokens: 4096, ConfThreshold: 0.7, Timeout: 150 * time.Second, Priority: 3,
	},
	"conservative": {
		Name: "conservative", Preprocess: true, UseTemplate: true, MultiStage: false,
		Temperature: 0.0, MaxTokens: 3000, ConfThreshold: 0.6, Timeout: 90 * time.Second, Priority: 4,
	},
	"aggressive": {
		Name: "aggressive", Preprocess: true, UseTemplate: false, MultiStage: false,
		Temperature: 0.3, MaxTokens: 4096, ConfThreshold: 0.5, Timeout: 120 * time.Second, Priority: 5,
	},
}

// StrategyByName returns the named strategy and whether it exists.
func StrategyByName(name string) (Strategy, bool) {
	s, ok := strategies[name]
	return s, ok
}

// SelectionConfig carries the quality cutoffs for strategy selection.
type SelectionConfig struct {
	LowQualityCutoff float64
	MidQualityCutoff float64
	MaxStrategies    int
}

// DefaultSelection returns the standard selection parameters.
func DefaultSelection() SelectionConfig {
	return SelectionConfig{LowQualityCutoff: 0.4, MidQualityCutoff: 0.7, MaxStrategies: 3}
}

// SelectStrategies orders candidate strategies for an image. A known template
// puts template_guided first; image quality decides the rest. The list is
// deduplicated preserving order and capped at MaxStrategies.
func SelectStrategies(quality float64, hasTemplate bool, cfg SelectionConfig) []Strategy {
	var names []string
	if hasTemplate {
		names = append(names, "template_guided")
	}

	switch {
	case quality < cfg.LowQualityCutoff:
		names = append(names, "aggressive", "high_detail", "structure_first")
	case quality < cfg.MidQualityCutoff:
		names = append(names, "high_detail", "structure_first", "conservative")
	default:
		names = append(names, "structure_first", "high_detail", "conservative")
	}

	maxN := cfg.MaxStrategies
	if maxN <= 0 {
		maxN = 3
	}

	seen := make(map[string]bool, len(names))
	out := make([]Strategy, 0, maxN)
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, strategies[n])
		if len(out) == maxN {
			break
		}
	}
	return out
}
