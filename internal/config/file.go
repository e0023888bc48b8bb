package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML configuration shared by both binaries.
type FileConfig struct {
	Server    ServerSection    `yaml:"server"`
	Review    ReviewSection    `yaml:"review"`
	Logging   LoggingSection   `yaml:"logging"`
	DevServer DevServerSection `yaml:"devserver"`
	ExportDir string           `yaml:"export_dir"`
	Style     string           `yaml:"glamour_style"`
}

type ServerSection struct {
	URL         string `yaml:"url"`
	ContextPath string `yaml:"context_path"`
	Token       string `yaml:"token"`
}

type ReviewSection struct {
	SelectionID   string `yaml:"selection_id"`
	PageSize      int    `yaml:"page_size"`
	SortColumn    string `yaml:"sort_column"`
	SortDir       string `yaml:"sort_dir"`
	MessageBudget int    `yaml:"message_budget"`

	SearchDebounce    time.Duration `yaml:"-"`
	SearchDebounceRaw string        `yaml:"search_debounce"`
}

type LoggingSection struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type DevServerSection struct {
	Addr   string `yaml:"addr"`
	DBPath string `yaml:"db_path"`
}

// Load reads a YAML config file, expanding ${VAR} references first.
func Load(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if cfg.Review.SearchDebounceRaw != "" {
		cfg.Review.SearchDebounce, err = time.ParseDuration(cfg.Review.SearchDebounceRaw)
		if err != nil {
			return nil, fmt.Errorf("parsing search_debounce %q: %w", cfg.Review.SearchDebounceRaw, err)
		}
	}
	return &cfg, nil
}

var envVarRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with its value, or the empty string when unset.
func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarRe.FindStringSubmatch(match)[1])
	})
}

// applyApp copies file values onto cfg for every field not set by a flag.
func (f *FileConfig) applyApp(cfg *AppConfig, flagged map[string]bool) {
	setString(&cfg.ServerURL, f.Server.URL, flagged["server"])
	setString(&cfg.ContextPath, f.Server.ContextPath, flagged["context-path"])
	setString(&cfg.Token, f.Server.Token, flagged["token"])
	setString(&cfg.SelectionID, f.Review.SelectionID, flagged["selection"])
	setString(&cfg.SortColumn, f.Review.SortColumn, flagged["sort"])
	setString(&cfg.SortDir, f.Review.SortDir, flagged["sort-dir"])
	setString(&cfg.ExportDir, f.ExportDir, flagged["export-dir"])
	setString(&cfg.GlamourStyle, f.Style, flagged["style"])
	setString(&cfg.Logging.Level, f.Logging.Level, flagged["log-level"])
	setString(&cfg.Logging.Format, f.Logging.Format, flagged["log-format"])
	setString(&cfg.Logging.File, f.Logging.File, flagged["log-file"])
	if f.Review.PageSize != 0 && !flagged["page-size"] {
		cfg.PageSize = f.Review.PageSize
	}
	if f.Review.MessageBudget != 0 && !flagged["message-budget"] {
		cfg.MessageBudget = f.Review.MessageBudget
	}
	if f.Review.SearchDebounceRaw != "" && !flagged["search-debounce"] {
		cfg.SearchDebounce = f.Review.SearchDebounce
	}
}

func (f *FileConfig) applyDevServer(cfg *DevServerConfig, flagged map[string]bool) {
	setString(&cfg.Addr, f.DevServer.Addr, flagged["addr"])
	setString(&cfg.DBPath, f.DevServer.DBPath, flagged["db-path"])
	setString(&cfg.ContextPath, f.Server.ContextPath, flagged["context-path"])
	setString(&cfg.Token, f.Server.Token, flagged["token"])
	setString(&cfg.Logging.Level, f.Logging.Level, flagged["log-level"])
	setString(&cfg.Logging.Format, f.Logging.Format, flagged["log-format"])
}

func setString(dst *string, value string, flagged bool) {
	if value != "" && !flagged {
		*dst = value
	}
}
