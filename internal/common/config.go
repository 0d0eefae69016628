package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Storage     StorageConfig  `toml:"storage"`
	Logging     LoggingConfig  `toml:"logging"`
	HTTP        HTTPConfig     `toml:"http"`
	Exchanges   ExchangeConfig `toml:"exchanges"`
	Content     ContentConfig  `toml:"content"`
	PDF         PDFConfig      `toml:"pdf"`
	AI          AIConfig       `toml:"ai"`
	Radar       RadarConfig    `toml:"radar"`
	Monitor     MonitorConfig  `toml:"monitor"`
	Ingest      IngestConfig   `toml:"ingest"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// HTTPConfig holds shared outbound HTTP behavior
type HTTPConfig struct {
	Timeout     time.Duration `toml:"timeout"`      // Per-request timeout
	UserAgent   string        `toml:"user_agent"`   // Default User-Agent header
	MaxAttempts int           `toml:"max_attempts"` // Retry attempts for transient failures
}

// SourceConfig holds per-exchange fetch settings
type SourceConfig struct {
	Enabled  bool          `toml:"enabled"`
	BaseURL  string        `toml:"base_url"`
	PageSize int           `toml:"page_size" validate:"gte=1"`
	DelayMin time.Duration `toml:"delay_min"` // Politeness delay lower bound; zero disables
	DelayMax time.Duration `toml:"delay_max"`
	MaxPages int           `toml:"max_pages"` // Hard page cap per window; zero means source default
}

type ExchangeConfig struct {
	SSE  SourceConfig `toml:"sse"`
	SZSE SourceConfig `toml:"szse"`
	BSE  SourceConfig `toml:"bse"`
}

// ContentConfig bounds detail-page content resolution
type ContentConfig struct {
	MaxConcurrent int           `toml:"max_concurrent" validate:"gte=1"` // Worker pool size for detail fetches
	Timeout       time.Duration `toml:"timeout"`
}

// PDFConfig controls the attachment processor
type PDFConfig struct {
	StorageDir    string        `toml:"storage_dir"`                     // Content-addressed attachment cache
	MaxConcurrent int           `toml:"max_concurrent" validate:"gte=1"` // Simultaneous downloads
	Timeout       time.Duration `toml:"timeout"`
	Cleanup       bool          `toml:"cleanup"` // Delete binaries after text extraction
}

// AIProvider represents the AI provider type
type AIProvider string

const (
	// AIProviderClaude uses Anthropic Claude API
	AIProviderClaude AIProvider = "claude"
	// AIProviderGemini uses Google Gemini API
	AIProviderGemini AIProvider = "gemini"
)

// AIConfig contains configuration for the enrichment providers
type AIConfig struct {
	Provider      AIProvider `toml:"provider"`    // "claude" or "gemini"
	APIKey        string     `toml:"api_key"`     // Provider API key (env override available)
	Model         string     `toml:"model"`       // Model name
	MaxTokens     int        `toml:"max_tokens"`  // Response token budget
	Temperature   float32    `toml:"temperature"` // Low for schema-stable output
	Timeout       string     `toml:"timeout"`     // Operation timeout as duration string
	MaxConcurrent int        `toml:"max_concurrent" validate:"gte=1"`
	RateLimit     string     `toml:"rate_limit"` // Minimum spacing between calls, e.g. "1s"
}

// RadarConfig tunes the scoring engine
type RadarConfig struct {
	FreshnessWindowHours float64 `toml:"freshness_window_hours" validate:"gt=0"`
}

// MonitorConfig drives the poll loops
type MonitorConfig struct {
	ExchangeCron      string        `toml:"exchange_cron"`      // Cron spec for the exchange sweep
	TelegraphInterval time.Duration `toml:"telegraph_interval"` // Telegraph poll spacing
	AnalyzeBatch      int           `toml:"analyze_batch"`      // Pending events enriched per cycle
}

// IngestConfig drives backfill behavior
type IngestConfig struct {
	SourcesFile string `toml:"sources_file"` // Optional YAML source-definitions file
	DefaultDays int    `toml:"default_days" validate:"gte=1"`
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		HTTP: HTTPConfig{
			Timeout:     15 * time.Second,
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			MaxAttempts: 3,
		},
		Exchanges: ExchangeConfig{
			SSE: SourceConfig{
				Enabled:  true,
				BaseURL:  "https://query.sse.com.cn",
				PageSize: 100,
				DelayMin: 300 * time.Millisecond,
				DelayMax: 800 * time.Millisecond,
			},
			SZSE: SourceConfig{
				Enabled:  true,
				BaseURL:  "https://www.szse.cn",
				PageSize: 50,
				DelayMin: 300 * time.Millisecond,
				DelayMax: 800 * time.Millisecond,
				MaxPages: 50,
			},
			BSE: SourceConfig{
				Enabled:  true,
				BaseURL:  "https://www.bse.cn",
				PageSize: 20,
				DelayMin: 300 * time.Millisecond,
				DelayMax: 800 * time.Millisecond,
			},
		},
		Content: ContentConfig{
			MaxConcurrent: 20,
			Timeout:       10 * time.Second,
		},
		PDF: PDFConfig{
			StorageDir:    "./data/attachments",
			MaxConcurrent: 5,
			Timeout:       30 * time.Second,
			Cleanup:       false,
		},
		AI: AIConfig{
			Provider:      AIProviderClaude,
			APIKey:        "", // User must provide API key (ANTHROPIC_API_KEY or config)
			Model:         "claude-haiku-3-5-20241022",
			MaxTokens:     1500,
			Temperature:   0.1,
			Timeout:       "2m",
			MaxConcurrent: 5,
			RateLimit:     "1s",
		},
		Radar: RadarConfig{
			FreshnessWindowHours: 72,
		},
		Monitor: MonitorConfig{
			ExchangeCron:      "0 0 * * * *", // Hourly
			TelegraphInterval: 10 * time.Second,
			AnalyzeBatch:      10,
		},
		Ingest: IngestConfig{
			SourcesFile: "",
			DefaultDays: 7,
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the struct-level constraints
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("STOCKNEWS_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if badgerPath := os.Getenv("STOCKNEWS_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("STOCKNEWS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("STOCKNEWS_LOG_OUTPUT"); output != "" {
		parts := strings.Split(output, ",")
		outputs := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if provider := os.Getenv("STOCKNEWS_AI_PROVIDER"); provider != "" {
		config.AI.Provider = AIProvider(provider)
	}
	if key := os.Getenv("STOCKNEWS_AI_API_KEY"); key != "" {
		config.AI.APIKey = key
	} else if config.AI.APIKey == "" {
		switch config.AI.Provider {
		case AIProviderClaude:
			config.AI.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case AIProviderGemini:
			config.AI.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if model := os.Getenv("STOCKNEWS_AI_MODEL"); model != "" {
		config.AI.Model = model
	}
	if maxConc := os.Getenv("STOCKNEWS_AI_MAX_CONCURRENT"); maxConc != "" {
		if n, err := strconv.Atoi(maxConc); err == nil && n > 0 {
			config.AI.MaxConcurrent = n
		}
	}

	if dir := os.Getenv("STOCKNEWS_PDF_STORAGE_DIR"); dir != "" {
		config.PDF.StorageDir = dir
	}
}
