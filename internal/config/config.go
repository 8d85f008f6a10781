package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Learning   LearningConfig   `yaml:"learning" mapstructure:"learning"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds vision API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ExtractionConfig configures the smart-retry orchestrator.
type ExtractionConfig struct {
	MaxStrategies    int     `yaml:"max_strategies" mapstructure:"max_strategies"`
	MinConfidence    float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
	LowQualityCutoff float64 `yaml:"low_quality_cutoff" mapstructure:"low_quality_cutoff"`
	MidQualityCutoff float64 `yaml:"mid_quality_cutoff" mapstructure:"mid_quality_cutoff"`
}

// ScoringConfig configures the confidence validators. The weights are
// operating parameters, not constants: domain owners tune them per fleet.
type ScoringConfig struct {
	FieldWeightOCR        float64 `yaml:"field_weight_ocr" mapstructure:"field_weight_ocr"`
	FieldWeightStructure  float64 `yaml:"field_weight_structure" mapstructure:"field_weight_structure"`
	FieldWeightConsistent float64 `yaml:"field_weight_consistency" mapstructure:"field_weight_consistency"`
	FieldWeightHistorical float64 `yaml:"field_weight_historical" mapstructure:"field_weight_historical"`
	PairHoursPieces       bool    `yaml:"pair_hours_pieces" mapstructure:"pair_hours_pieces"`
	ReviewThreshold       float64 `yaml:"review_threshold" mapstructure:"review_threshold"`
}

// LearningConfig configures the feedback engine.
type LearningConfig struct {
	PatternCacheTTLSecs  int `yaml:"pattern_cache_ttl_secs" mapstructure:"pattern_cache_ttl_secs"`
	FeedbackCacheTTLSecs int `yaml:"feedback_cache_ttl_secs" mapstructure:"feedback_cache_ttl_secs"`
	PatternWindowDays    int `yaml:"pattern_window_days" mapstructure:"pattern_window_days"`
	PatternMinEdits      int `yaml:"pattern_min_edits" mapstructure:"pattern_min_edits"`
}

// BatchConfig configures directory batch processing.
type BatchConfig struct {
	MaxConcurrentSheets int     `yaml:"max_concurrent_sheets" mapstructure:"max_concurrent_sheets"`
	RequestsPerSecond   float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CREWSHEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "crewsheet.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("extraction.max_strategies", 3)
	v.SetDefault("extraction.min_confidence", 0.7)
	v.SetDefault("extraction.low_quality_cutoff", 0.4)
	v.SetDefault("extraction.mid_quality_cutoff", 0.7)
	v.SetDefault("scoring.field_weight_ocr", 0.3)
	v.SetDefault("scoring.field_weight_structure", 0.3)
	v.SetDefault("scoring.field_weight_consistency", 0.2)
	v.SetDefault("scoring.field_weight_historical", 0.2)
	v.SetDefault("scoring.pair_hours_pieces", true)
	v.SetDefault("scoring.review_threshold", 0.7)
	v.SetDefault("learning.pattern_cache_ttl_secs", 300)
	v.SetDefault("learning.feedback_cache_ttl_secs", 60)
	v.SetDefault("learning.pattern_window_days", 7)
	v.SetDefault("learning.pattern_min_edits", 3)
	v.SetDefault("batch.max_concurrent_sheets", 4)
	v.SetDefault("batch.requests_per_second", 1.0)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration is usable for the given mode
// ("extract", "serve", or "learn"). Collected problems are joined so the
// operator sees all of them at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch mode {
	case "extract":
		check(c.Anthropic.Key != "", "anthropic.key is required")
		check(c.Store.DatabaseURL != "", "store.database_url is required")
	case "serve":
		check(c.Server.Port > 0, "server.port must be > 0")
		check(c.Anthropic.Key != "", "anthropic.key is required")
	case "learn":
		check(c.Store.DatabaseURL != "", "store.database_url is required")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	check(c.Extraction.MaxStrategies >= 1 && c.Extraction.MaxStrategies <= 5,
		"extraction.max_strategies must be between 1 and 5")
	check(c.Extraction.MinConfidence >= 0 && c.Extraction.MinConfidence <= 1,
		"extraction.min_confidence must be within [0,1]")
	check(c.Batch.MaxConcurrentSheets >= 1 && c.Batch.MaxConcurrentSheets <= 50,
		"batch.max_concurrent_sheets must be between 1 and 50")

	weightSum := c.Scoring.FieldWeightOCR + c.Scoring.FieldWeightStructure +
		c.Scoring.FieldWeightConsistent + c.Scoring.FieldWeightHistorical
	check(weightSum > 0.99 && weightSum < 1.01, "scoring field weights must sum to 1.0")

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
