// Package config provides configuration types and defaults for depositform.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	"github.com/zjrosen/depositform/internal/flags"
	"github.com/zjrosen/depositform/internal/log"
	"github.com/zjrosen/depositform/internal/reconcile"
	"github.com/zjrosen/depositform/internal/registry"
	"github.com/zjrosen/depositform/internal/tracing"
	"github.com/zjrosen/depositform/internal/validation"
)

// Config holds all configuration options for depositform.
type Config struct {
	Layout     LayoutConfig     `mapstructure:"layout"`
	Reconcile  ReconcileConfig  `mapstructure:"reconcile"`
	Validation ValidationConfig `mapstructure:"validation"`
	Draft      DraftConfig      `mapstructure:"draft"`
	Submit     SubmitConfig     `mapstructure:"submit"`
	UI         UIConfig         `mapstructure:"ui"`
	Tracing    tracing.Config   `mapstructure:"tracing"`
	Flags      map[string]bool  `mapstructure:"flags"`
}

// LayoutConfig selects the form layout.
type LayoutConfig struct {
	// Path is a YAML layout file. Empty uses the built-in layout.
	Path string `mapstructure:"path"`

	// Watch reloads the layout when the file changes.
	Watch bool `mapstructure:"watch"`

	// Components registers extra field components on top of the stock
	// registry and the layout file's own.
	Components []registry.Entry `mapstructure:"components"`
}

// ReconcileConfig tunes the error reconciler.
type ReconcileConfig struct {
	// Matching is "segments" (default) or "loose".
	Matching  string `mapstructure:"matching"`
	MaxPasses int    `mapstructure:"max_passes"`
}

// ValidationConfig adds local validation rules.
type ValidationConfig struct {
	Rules []validation.Rule `mapstructure:"rules"`
}

// DraftConfig configures local draft recovery.
type DraftConfig struct {
	// DBPath is the SQLite database holding drafts.
	// Default: ~/.config/depositform/drafts.db
	DBPath string `mapstructure:"db_path"`

	// UserID namespaces drafts. Default: $USER.
	UserID string `mapstructure:"user_id"`
}

// SubmitConfig configures the remote repository service.
type SubmitConfig struct {
	// BaseURL of the records API. Empty keeps the form offline.
	BaseURL       string        `mapstructure:"base_url"`
	Token         string        `mapstructure:"token"`
	Timeout       time.Duration `mapstructure:"timeout"`
	VocabularyTTL time.Duration `mapstructure:"vocabulary_ttl"`
}

// UIConfig holds user interface configuration options.
type UIConfig struct {
	MarkdownStyle string `mapstructure:"markdown_style"` // "dark" (default) or "light"
	ShowHelp      bool   `mapstructure:"show_help"`
	Width         int    `mapstructure:"width"` // wrap width for help text, 0 follows the terminal
}

// DefaultConfigDir returns ~/.config/depositform, or "" when the home
// directory is unknown.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "depositform")
}

// DefaultDraftDBPath returns the default location of the draft database.
func DefaultDraftDBPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return "drafts.db"
	}
	return filepath.Join(dir, "drafts.db")
}

// DefaultTracesFilePath returns the default trace file location.
func DefaultTracesFilePath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	tc := tracing.DefaultConfig()
	tc.FilePath = DefaultTracesFilePath()
	return Config{
		Layout: LayoutConfig{
			Watch: true,
		},
		Reconcile: ReconcileConfig{
			Matching:  reconcile.MatchSegments.String(),
			MaxPasses: 4,
		},
		Draft: DraftConfig{
			DBPath: DefaultDraftDBPath(),
			UserID: os.Getenv("USER"),
		},
		Submit: SubmitConfig{
			Timeout:       30 * time.Second,
			VocabularyTTL: time.Hour,
		},
		UI: UIConfig{
			MarkdownStyle: "dark",
			ShowHelp:      true,
		},
		Tracing: tc,
		Flags:   flags.Defaults(),
	}
}

// Validate checks the whole configuration and reports every problem found.
func Validate(c Config) error {
	return multierr.Combine(
		ValidateReconcile(c.Reconcile),
		ValidateSubmit(c.Submit),
		ValidateUI(c.UI),
		ValidateTracing(c.Tracing),
		ValidateRules(c.Validation.Rules),
	)
}

// ValidateReconcile checks reconciler options.
func ValidateReconcile(r ReconcileConfig) error {
	if _, err := reconcile.ParseMatching(r.Matching); err != nil {
		return fmt.Errorf("reconcile.matching: %w", err)
	}
	if r.MaxPasses < 0 {
		return fmt.Errorf("reconcile.max_passes must not be negative, got %d", r.MaxPasses)
	}
	return nil
}

// ValidateSubmit checks the remote service settings. An empty base URL is
// valid and disables remote calls.
func ValidateSubmit(s SubmitConfig) error {
	if s.BaseURL == "" {
		return nil
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return fmt.Errorf("submit.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("submit.base_url must be an http or https URL, got %q", s.BaseURL)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("submit.timeout must not be negative, got %s", s.Timeout)
	}
	return nil
}

// ValidateUI checks user interface options.
func ValidateUI(ui UIConfig) error {
	switch ui.MarkdownStyle {
	case "", "dark", "light":
	default:
		return fmt.Errorf("ui.markdown_style must be \"dark\" or \"light\", got %q", ui.MarkdownStyle)
	}
	if ui.Width < 0 {
		return fmt.Errorf("ui.width must not be negative, got %d", ui.Width)
	}
	return nil
}

// ValidateRules compiles the extra validation rules.
func ValidateRules(rules []validation.Rule) error {
	if len(rules) == 0 {
		return nil
	}
	if _, err := validation.New(rules, nil); err != nil {
		return fmt.Errorf("validation.rules: %w", err)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tc tracing.Config) error {
	if tc.SampleRate < 0.0 || tc.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tc.SampleRate)
	}

	if tc.Exporter != "" {
		switch tc.Exporter {
		case tracing.ExporterNone, tracing.ExporterFile, tracing.ExporterStdout, tracing.ExporterOTLP:
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tc.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tc.Enabled {
		if tc.Exporter == tracing.ExporterFile && tc.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tc.Exporter == tracing.ExporterOTLP && tc.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// Matching returns the parsed reconcile matching mode.
func (c Config) Matching() reconcile.Matching {
	m, err := reconcile.ParseMatching(c.Reconcile.Matching)
	if err != nil {
		return reconcile.MatchSegments
	}
	return m
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# depositform configuration

layout:
  # path: ./layout.yaml  # Form layout file (default: built-in layout)
  watch: true            # Reload the layout file when it changes

reconcile:
  matching: segments     # "segments" (default) or "loose" path prefix matching
  max_passes: 4

# Extra local validation rules
# validation:
#   rules:
#     - path: metadata.description
#       required: true
#       message: A description is required

# Local draft recovery
# draft:
#   db_path: ~/.config/depositform/drafts.db
#   user_id: jdoe

submit:
  # base_url: https://works.example.org
  # token: ""
  timeout: 30s
  vocabulary_ttl: 1h

ui:
  markdown_style: dark   # "dark" (default) or "light"
  show_help: true

flags:
  draft-recovery: true
  remote-vocabulary: true
  autosave: true

# Tracing (OpenTelemetry)
# tracing:
#   enabled: true
#   exporter: file       # "none", "file", "stdout" or "otlp"
#   file_path: ~/.config/depositform/traces/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
