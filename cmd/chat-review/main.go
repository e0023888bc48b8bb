// Command chat-review is a terminal reviewer for saved chat selections.
//
// Usage:
//
//	chat-review -server http://localhost:8080 -selection <id>
//	chat-review -config chat-review.yaml
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"chat-review/internal/clipboard"
	"chat-review/internal/config"
	"chat-review/internal/export"
	"chat-review/internal/logging"
	"chat-review/internal/review"
	"chat-review/internal/reviewapi"
	"chat-review/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

const usage = `usage: chat-review -server <url> -selection <id> [flags]

flags:
  -config <file>          YAML config file
  -server <url>           admin backend base URL (env CHAT_REVIEW_URL)
  -context-path <path>    servlet context path
  -token <token>          bearer token (env CHAT_REVIEW_TOKEN)
  -selection <id>         selection to review
  -page-size <n>          rows per page
  -sort <column>          widget_chat_id, prompt, created_at or session_id
  -sort-dir <dir>         ASC or DESC
  -search-debounce <d>    delay before a search is sent
  -message-budget <n>     character budget for manual messages
  -export-dir <dir>       where exports are written
  -style <name>           glamour style
  -log-level <level>      debug, info, warn or error
  -log-format <format>    text or json
  -log-file <path>        write logs here
`

func main() {
	if err := run(); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "chat-review: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Parse()
	if err != nil {
		return err
	}

	var logOut io.Writer
	if cfg.Logging.File != "" {
		f, err := logging.OpenFile(cfg.Logging.File)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	logger := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: logOut,
	})

	client, err := reviewapi.New(cfg.ServerURL, cfg.ContextPath,
		reviewapi.WithToken(cfg.Token),
		reviewapi.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	exporter, err := export.New(cfg.ExportDir)
	if err != nil {
		return err
	}

	logger.Info("starting review", "server", cfg.ServerURL, "selection", cfg.SelectionID)
	m := ui.NewModel(cfg, review.NewTable(cfg.SelectionID, cfg.PageDefaults()), ui.Deps{
		Backend:  client,
		Exporter: exporter,
		Copier:   clipboard.System{},
		Logger:   logger,
	})
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
