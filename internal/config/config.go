package config

import (
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Bedrock  BedrockConfig
	Cache    CacheConfig
	Pipeline PipelineConfig
	Payers   map[string]PayerConfig
	General  GeneralGuidelineConfig
	Output   OutputConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BedrockConfig holds AWS Bedrock model invocation settings.
type BedrockConfig struct {
	Region        string        `mapstructure:"region"`
	ModelID       string        `mapstructure:"model_id"`
	FallbackModel string        `mapstructure:"fallback_model"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
	InputPer1K    float64       `mapstructure:"input_cost_per_1k"`
	OutputPer1K   float64       `mapstructure:"output_cost_per_1k"`
}

// CacheConfig holds the LLM response cache settings.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Dir     string        `mapstructure:"dir"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// PipelineConfig holds orchestration limits.
type PipelineConfig struct {
	Concurrency     int  `mapstructure:"concurrency"`
	SampleWords     int  `mapstructure:"sample_words"`
	MaxChartWords   int  `mapstructure:"max_chart_words"`
	ContextWords    int  `mapstructure:"context_words"`
	MaxContextChars int     `mapstructure:"max_context_chars"`
	TopK            int     `mapstructure:"top_k"`
	MinRelevance    float64 `mapstructure:"min_relevance_score"`
	ImproveChart    bool    `mapstructure:"improve_chart"`
}

// PayerConfig describes one configured payer policy set.
type PayerConfig struct {
	Key          string `mapstructure:"-"`
	Name         string `mapstructure:"name"`
	GuidelineDir string `mapstructure:"guideline_dir"`
	Priority     int    `mapstructure:"priority"`
}

// GeneralGuidelineConfig points at the shared regulatory guideline layer
// evaluated before payer-specific policies.
type GeneralGuidelineConfig struct {
	GuidelineDir string `mapstructure:"guideline_dir"`
}

// OutputConfig holds result output settings.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// SortedPayers returns the configured payers ordered by priority.
func (c *Config) SortedPayers() []PayerConfig {
	payers := make([]PayerConfig, 0, len(c.Payers))
	for _, p := range c.Payers {
		payers = append(payers, p)
	}
	sort.Slice(payers, func(i, j int) bool { return payers[i].Priority < payers[j].Priority })
	return payers
}

// Load reads configuration from environment variables with the CDICHECK_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CDICHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "600s")
	v.SetDefault("server.environment", "development")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "us.anthropic.claude-3-7-sonnet-20250219-v1:0")
	v.SetDefault("bedrock.fallback_model", "anthropic.claude-3-5-sonnet-20240620-v1:0")
	v.SetDefault("bedrock.timeout", "180s")
	v.SetDefault("bedrock.max_retries", 2)
	v.SetDefault("bedrock.input_cost_per_1k", 0.003)
	v.SetDefault("bedrock.output_cost_per_1k", 0.015)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dir", "cache")
	v.SetDefault("cache.ttl", "24h")

	// Pipeline defaults
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.sample_words", 100)
	v.SetDefault("pipeline.max_chart_words", 100000)
	v.SetDefault("pipeline.context_words", 2000)
	v.SetDefault("pipeline.max_context_chars", 12000)
	v.SetDefault("pipeline.top_k", 6)
	v.SetDefault("pipeline.min_relevance_score", 10.0)
	v.SetDefault("pipeline.improve_chart", true)

	// Payer defaults: the fixed evaluated set, ordered by priority.
	v.SetDefault("payers.cigna.name", "Cigna")
	v.SetDefault("payers.cigna.guideline_dir", "guidelines/cigna")
	v.SetDefault("payers.cigna.priority", 1)
	v.SetDefault("payers.uhc.name", "UnitedHealthcare")
	v.SetDefault("payers.uhc.guideline_dir", "guidelines/uhc")
	v.SetDefault("payers.uhc.priority", 2)
	v.SetDefault("payers.anthem.name", "Anthem")
	v.SetDefault("payers.anthem.guideline_dir", "guidelines/anthem")
	v.SetDefault("payers.anthem.priority", 3)
	v.SetDefault("general.guideline_dir", "guidelines/general")

	// Output defaults
	v.SetDefault("output.dir", "outputs")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                  "CDICHECK_SERVER_PORT",
		"server.read_timeout":          "CDICHECK_SERVER_READ_TIMEOUT",
		"server.write_timeout":         "CDICHECK_SERVER_WRITE_TIMEOUT",
		"server.environment":           "CDICHECK_SERVER_ENVIRONMENT",
		"log.level":                    "CDICHECK_LOG_LEVEL",
		"log.format":                   "CDICHECK_LOG_FORMAT",
		"bedrock.region":               "CDICHECK_BEDROCK_REGION",
		"bedrock.model_id":             "CDICHECK_BEDROCK_MODEL_ID",
		"bedrock.fallback_model":       "CDICHECK_BEDROCK_FALLBACK_MODEL",
		"bedrock.timeout":              "CDICHECK_BEDROCK_TIMEOUT",
		"bedrock.max_retries":          "CDICHECK_BEDROCK_MAX_RETRIES",
		"bedrock.input_cost_per_1k":    "CDICHECK_BEDROCK_INPUT_COST_PER_1K",
		"bedrock.output_cost_per_1k":   "CDICHECK_BEDROCK_OUTPUT_COST_PER_1K",
		"cache.enabled":                "CDICHECK_CACHE_ENABLED",
		"cache.dir":                    "CDICHECK_CACHE_DIR",
		"cache.ttl":                    "CDICHECK_CACHE_TTL",
		"pipeline.concurrency":         "CDICHECK_PIPELINE_CONCURRENCY",
		"pipeline.sample_words":        "CDICHECK_PIPELINE_SAMPLE_WORDS",
		"pipeline.max_chart_words":     "CDICHECK_PIPELINE_MAX_CHART_WORDS",
		"pipeline.context_words":       "CDICHECK_PIPELINE_CONTEXT_WORDS",
		"pipeline.max_context_chars":   "CDICHECK_PIPELINE_MAX_CONTEXT_CHARS",
		"pipeline.top_k":               "CDICHECK_PIPELINE_TOP_K",
		"pipeline.min_relevance_score": "CDICHECK_PIPELINE_MIN_RELEVANCE_SCORE",
		"pipeline.improve_chart":       "CDICHECK_PIPELINE_IMPROVE_CHART",
		"payers.cigna.guideline_dir":   "CDICHECK_PAYERS_CIGNA_GUIDELINE_DIR",
		"payers.uhc.guideline_dir":     "CDICHECK_PAYERS_UHC_GUIDELINE_DIR",
		"payers.anthem.guideline_dir":  "CDICHECK_PAYERS_ANTHEM_GUIDELINE_DIR",
		"general.guideline_dir":        "CDICHECK_GENERAL_GUIDELINE_DIR",
		"output.dir":                   "CDICHECK_OUTPUT_DIR",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}
	cfg.Server = ServerConfig{
		Port:         v.GetString("server.port"),
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Bedrock = BedrockConfig{
		Region:        v.GetString("bedrock.region"),
		ModelID:       v.GetString("bedrock.model_id"),
		FallbackModel: v.GetString("bedrock.fallback_model"),
		Timeout:       v.GetDuration("bedrock.timeout"),
		MaxRetries:    v.GetInt("bedrock.max_retries"),
		InputPer1K:    v.GetFloat64("bedrock.input_cost_per_1k"),
		OutputPer1K:   v.GetFloat64("bedrock.output_cost_per_1k"),
	}
	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("cache.enabled"),
		Dir:     v.GetString("cache.dir"),
		TTL:     v.GetDuration("cache.ttl"),
	}
	cfg.Pipeline = PipelineConfig{
		Concurrency:     v.GetInt("pipeline.concurrency"),
		SampleWords:     v.GetInt("pipeline.sample_words"),
		MaxChartWords:   v.GetInt("pipeline.max_chart_words"),
		ContextWords:    v.GetInt("pipeline.context_words"),
		MaxContextChars: v.GetInt("pipeline.max_context_chars"),
		TopK:            v.GetInt("pipeline.top_k"),
		MinRelevance:    v.GetFloat64("pipeline.min_relevance_score"),
		ImproveChart:    v.GetBool("pipeline.improve_chart"),
	}
	cfg.Payers = map[string]PayerConfig{}
	for _, key := range []string{"cigna", "uhc", "anthem"} {
		cfg.Payers[key] = PayerConfig{
			Key:          key,
			Name:         v.GetString("payers." + key + ".name"),
			GuidelineDir: v.GetString("payers." + key + ".guideline_dir"),
			Priority:     v.GetInt("payers." + key + ".priority"),
		}
	}
	cfg.General = GeneralGuidelineConfig{
		GuidelineDir: v.GetString("general.guideline_dir"),
	}
	cfg.Output = OutputConfig{
		Dir: v.GetString("output.dir"),
	}

	return cfg, nil
}
