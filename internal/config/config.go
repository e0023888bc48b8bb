package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chat-review/internal/review"
)

const (
	DefaultGlamourStyle   = "dark"
	DefaultSearchDebounce = 300 * time.Millisecond
	DefaultExportDir      = "exports"

	EnvServerURL = "CHAT_REVIEW_URL"
	EnvToken     = "CHAT_REVIEW_TOKEN"
)

type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

// AppConfig drives the review TUI.
type AppConfig struct {
	ServerURL      string
	ContextPath    string
	Token          string
	SelectionID    string
	PageSize       int
	SortColumn     string
	SortDir        string
	SearchDebounce time.Duration
	MessageBudget  int
	ExportDir      string
	GlamourStyle   string
	Logging        LoggingConfig
}

func defaultApp() AppConfig {
	return AppConfig{
		PageSize:       review.DefaultLimit,
		SortColumn:     review.DefaultSortColumn,
		SortDir:        string(review.DefaultSortDir),
		SearchDebounce: DefaultSearchDebounce,
		MessageBudget:  review.DefaultMessageBudget,
		ExportDir:      DefaultExportDir,
		GlamourStyle:   DefaultGlamourStyle,
		Logging:        LoggingConfig{Level: "info", Format: "text"},
	}
}

func Parse() (AppConfig, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs resolves the TUI configuration. Explicit flags win over the YAML
// file, which wins over environment variables and built-in defaults.
func ParseArgs(args []string) (AppConfig, error) {
	cfg := defaultApp()
	var configPath string
	var debounce string

	fs := flag.NewFlagSet("chat-review", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&configPath, "config", "", "path to YAML config file")
	fs.StringVar(&cfg.ServerURL, "server", "", "admin backend base URL (env "+EnvServerURL+")")
	fs.StringVar(&cfg.ContextPath, "context-path", "", "servlet context path the admin pages live under")
	fs.StringVar(&cfg.Token, "token", "", "bearer token for the admin backend (env "+EnvToken+")")
	fs.StringVar(&cfg.SelectionID, "selection", "", "selection id to review")
	fs.IntVar(&cfg.PageSize, "page-size", cfg.PageSize, "rows per page")
	fs.StringVar(&cfg.SortColumn, "sort", cfg.SortColumn, "initial sort column")
	fs.StringVar(&cfg.SortDir, "sort-dir", cfg.SortDir, "initial sort direction (ASC or DESC)")
	fs.StringVar(&debounce, "search-debounce", cfg.SearchDebounce.String(), "delay before a search is sent")
	fs.IntVar(&cfg.MessageBudget, "message-budget", cfg.MessageBudget, "maximum characters in a manual message")
	fs.StringVar(&cfg.ExportDir, "export-dir", cfg.ExportDir, "directory for selection exports")
	fs.StringVar(&cfg.GlamourStyle, "style", cfg.GlamourStyle, "glamour style for markdown panes")
	fs.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.Logging.Format, "log-format", cfg.Logging.Format, "log format (text or json)")
	fs.StringVar(&cfg.Logging.File, "log-file", "", "write logs to this file (discarded otherwise)")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	set := visited(fs)
	d, err := time.ParseDuration(debounce)
	if err != nil {
		return cfg, fmt.Errorf("parse -search-debounce %q: %w", debounce, err)
	}
	cfg.SearchDebounce = d

	if configPath != "" {
		file, err := Load(configPath)
		if err != nil {
			return cfg, err
		}
		file.applyApp(&cfg, set)
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = os.Getenv(EnvServerURL)
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv(EnvToken)
	}
	cfg.SortDir = string(review.ParseSortDir(cfg.SortDir))

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func (c AppConfig) Validate() error {
	if strings.TrimSpace(c.ServerURL) == "" {
		return fmt.Errorf("server url is required (-server or %s)", EnvServerURL)
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server url %q must include scheme and host", c.ServerURL)
	}
	if strings.TrimSpace(c.SelectionID) == "" {
		return errors.New("selection id is required (-selection)")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	}
	if !review.IsSortColumn(c.SortColumn) {
		return fmt.Errorf("unknown sort column %q (want one of %s)", c.SortColumn, strings.Join(review.SortColumns, ", "))
	}
	if c.SearchDebounce < 0 {
		return errors.New("search debounce must not be negative")
	}
	if c.MessageBudget <= 0 {
		return fmt.Errorf("message budget must be positive, got %d", c.MessageBudget)
	}
	return validateLogging(c.Logging)
}

// PageDefaults is the initial table state the TUI starts from.
func (c AppConfig) PageDefaults() review.PageState {
	st := review.DefaultPageState()
	st.Limit = c.PageSize
	st.SortColumn = c.SortColumn
	st.SortDir = review.ParseSortDir(c.SortDir)
	return st
}

// DevServerConfig drives cmd/review-devserver.
type DevServerConfig struct {
	Addr        string
	DBPath      string
	ContextPath string
	Token       string
	Logging     LoggingConfig
	// Terms are stored with selections created by the import subcommand.
	Terms       review.SearchTerms
}

// ParseDevServer resolves flags shared by the dev server subcommands.
func ParseDevServer(name string, args []string) (DevServerConfig, []string, error) {
	cfg := DevServerConfig{
		Addr:    "127.0.0.1:8080",
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
	var configPath string

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&configPath, "config", "", "path to YAML config file")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.DBPath, "db-path", "", "path to SQLite store")
	fs.StringVar(&cfg.ContextPath, "context-path", "", "servlet context path to mount routes under")
	fs.StringVar(&cfg.Token, "token", "", "require this bearer token (env "+EnvToken+")")
	fs.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.Logging.Format, "log-format", cfg.Logging.Format, "log format (text or json)")
	fs.StringVar(&cfg.Terms.Global, "global", "", "global search terms recorded on imported selections")
	fs.StringVar(&cfg.Terms.Prompt, "prompt", "", "prompt search terms recorded on imported selections")
	fs.StringVar(&cfg.Terms.Response, "response", "", "response search terms recorded on imported selections")
	if err := fs.Parse(args); err != nil {
		return cfg, nil, err
	}

	if configPath != "" {
		file, err := Load(configPath)
		if err != nil {
			return cfg, nil, err
		}
		file.applyDevServer(&cfg, visited(fs))
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv(EnvToken)
	}

	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.DBPath = filepath.Join(home, ".local", "share", "chat-review", "devserver.sqlite")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return cfg, nil, fmt.Errorf("create db dir: %w", err)
	}
	if err := validateLogging(cfg.Logging); err != nil {
		return cfg, nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, fs.Args(), nil
}

func validateLogging(l LoggingConfig) error {
	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json, got %q", l.Format)
	}
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", l.Level)
	}
	return nil
}

func visited(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}
