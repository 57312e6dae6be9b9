// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default values applied by Defaults and MergeWithDefaults.
const (
	DefaultStateDir          = ".repocompare"
	DefaultChunkSize         = 15000
	DefaultMaxIterations     = 5
	DefaultRefineCap         = 3
	DefaultMaxRetries        = 3
	DefaultChunkTimeout      = 180
	DefaultGenerationTimeout = 120
	DefaultReviewTimeout     = 90
	DefaultDigestBudget      = 1500
	DefaultMaxCandidates     = 10
	DefaultMaxFileBytes      = 256 * 1024
)

// Split modes for the chunker.
const (
	SplitAuto  = "auto"
	SplitLines = "lines"
	SplitFiles = "files"
)

// DefaultReviewers are the built-in reviewers run when none are configured.
var DefaultReviewers = []string{"feasibility", "impact", "risk"}

// Config represents the CLI configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Inputs
	Source     string   `json:"source,omitempty" yaml:"source,omitempty"` // Source repository or file to learn from
	Target     string   `json:"target,omitempty" yaml:"target,omitempty"` // Target repository or file to improve
	Extensions []string `json:"extensions,omitempty" yaml:"extensions,omitempty"`
	FocusAreas []string `json:"focus_areas,omitempty" yaml:"focus_areas,omitempty"`

	// Session
	SessionID string `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	StateDir  string `json:"state_dir,omitempty" yaml:"state_dir,omitempty"`

	// Chunking
	ChunkSize    int    `json:"chunk_size,omitempty" yaml:"chunk_size,omitempty" validate:"gte=0"`
	SplitMode    string `json:"split_mode,omitempty" yaml:"split_mode,omitempty" validate:"omitempty,oneof=auto lines files"`
	MaxFileBytes int64  `json:"max_file_bytes,omitempty" yaml:"max_file_bytes,omitempty" validate:"gte=0"`
	DigestBudget int    `json:"digest_budget,omitempty" yaml:"digest_budget,omitempty" validate:"gte=0"`

	// Feedback loop
	MaxIterations int `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty" validate:"gte=0,lte=100"`
	RefineCap     int `json:"refine_cap,omitempty" yaml:"refine_cap,omitempty" validate:"gte=0"`
	MaxCandidates int `json:"max_candidates,omitempty" yaml:"max_candidates,omitempty" validate:"gte=0,lte=50"`

	// Completion service
	MaxRetries               int      `json:"max_retries,omitempty" yaml:"max_retries,omitempty" validate:"gte=0,lte=10"`
	ChunkTimeoutSeconds      int      `json:"chunk_timeout_seconds,omitempty" yaml:"chunk_timeout_seconds,omitempty" validate:"gte=0"`
	GenerationTimeoutSeconds int      `json:"generation_timeout_seconds,omitempty" yaml:"generation_timeout_seconds,omitempty" validate:"gte=0"`
	ReviewTimeoutSeconds     int      `json:"review_timeout_seconds,omitempty" yaml:"review_timeout_seconds,omitempty" validate:"gte=0"`
	AnalysisTier             string   `json:"analysis_tier,omitempty" yaml:"analysis_tier,omitempty" validate:"omitempty,oneof=lite standard advanced"`
	GenerationTier           string   `json:"generation_tier,omitempty" yaml:"generation_tier,omitempty" validate:"omitempty,oneof=lite standard advanced"`
	ReviewTier               string   `json:"review_tier,omitempty" yaml:"review_tier,omitempty" validate:"omitempty,oneof=lite standard advanced"`
	Reviewers                []string `json:"reviewers,omitempty" yaml:"reviewers,omitempty" validate:"omitempty,unique,dive,oneof=feasibility impact risk"`

	// Behavior
	APIKey      string `json:"api_key,omitempty" yaml:"api_key,omitempty"`           // Gemini API key
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"` // PostgreSQL connection URL for the artifact mirror
	Verbose     bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`           // Print detailed debug information
}

// Defaults returns a Config with every tunable set to its default.
func Defaults() Config {
	return Config{
		StateDir:                 DefaultStateDir,
		ChunkSize:                DefaultChunkSize,
		SplitMode:                SplitAuto,
		MaxFileBytes:             DefaultMaxFileBytes,
		DigestBudget:             DefaultDigestBudget,
		MaxIterations:            DefaultMaxIterations,
		RefineCap:                DefaultRefineCap,
		MaxCandidates:            DefaultMaxCandidates,
		MaxRetries:               DefaultMaxRetries,
		ChunkTimeoutSeconds:      DefaultChunkTimeout,
		GenerationTimeoutSeconds: DefaultGenerationTimeout,
		ReviewTimeoutSeconds:     DefaultReviewTimeout,
		AnalysisTier:             "standard",
		GenerationTier:           "advanced",
		ReviewTier:               "standard",
		Reviewers:                append([]string(nil), DefaultReviewers...),
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if c.Source != "" && c.Target != "" {
		src, _ := filepath.Abs(c.Source)
		dst, _ := filepath.Abs(c.Target)
		if src == dst {
			return fmt.Errorf("config error: 'source' and 'target' must differ")
		}
	}

	for name, path := range map[string]string{"source": c.Source, "target": c.Target} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("config error: %s not found: %s", name, path)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	mergeString(&result.Source, defaults.Source)
	mergeString(&result.Target, defaults.Target)
	mergeString(&result.SessionID, defaults.SessionID)
	mergeString(&result.StateDir, defaults.StateDir)
	mergeString(&result.SplitMode, defaults.SplitMode)
	mergeString(&result.AnalysisTier, defaults.AnalysisTier)
	mergeString(&result.GenerationTier, defaults.GenerationTier)
	mergeString(&result.ReviewTier, defaults.ReviewTier)
	mergeString(&result.APIKey, defaults.APIKey)
	mergeString(&result.DatabaseURL, defaults.DatabaseURL)

	// Int fields: use default if zero
	mergeInt(&result.ChunkSize, defaults.ChunkSize)
	mergeInt(&result.DigestBudget, defaults.DigestBudget)
	mergeInt(&result.MaxIterations, defaults.MaxIterations)
	mergeInt(&result.RefineCap, defaults.RefineCap)
	mergeInt(&result.MaxCandidates, defaults.MaxCandidates)
	mergeInt(&result.MaxRetries, defaults.MaxRetries)
	mergeInt(&result.ChunkTimeoutSeconds, defaults.ChunkTimeoutSeconds)
	mergeInt(&result.GenerationTimeoutSeconds, defaults.GenerationTimeoutSeconds)
	mergeInt(&result.ReviewTimeoutSeconds, defaults.ReviewTimeoutSeconds)
	if result.MaxFileBytes == 0 {
		result.MaxFileBytes = defaults.MaxFileBytes
	}

	// Slice fields: use default if empty
	if len(result.Extensions) == 0 {
		result.Extensions = defaults.Extensions
	}
	if len(result.FocusAreas) == 0 {
		result.FocusAreas = defaults.FocusAreas
	}
	if len(result.Reviewers) == 0 {
		result.Reviewers = defaults.Reviewers
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// ApplyEnv fills the API key and database URL from the environment when unset.
func (c *Config) ApplyEnv() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
}

// ChunkTimeout is the per-call timeout of one chunk analysis.
func (c *Config) ChunkTimeout() time.Duration {
	return time.Duration(c.ChunkTimeoutSeconds) * time.Second
}

// GenerationTimeout is the per-call timeout of candidate generation.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutSeconds) * time.Second
}

// ReviewTimeout bounds one reviewer.
func (c *Config) ReviewTimeout() time.Duration {
	return time.Duration(c.ReviewTimeoutSeconds) * time.Second
}

func mergeString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func mergeInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}
