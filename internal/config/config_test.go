package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chat-review/internal/review"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "review.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseArgsDefaults(t *testing.T) {
	t.Setenv(EnvServerURL, "http://localhost:8080")
	t.Setenv(EnvToken, "from-env")

	cfg, err := ParseArgs([]string{"-selection", "sel-1"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if cfg.ServerURL != "http://localhost:8080" || cfg.Token != "from-env" {
		t.Fatalf("env fallbacks not applied: %#v", cfg)
	}
	if cfg.PageSize != review.DefaultLimit || cfg.SortColumn != review.ColumnCreatedAt || cfg.SortDir != "DESC" {
		t.Fatalf("unexpected paging defaults: %#v", cfg)
	}
	if cfg.SearchDebounce != 300*time.Millisecond {
		t.Fatalf("search debounce=%v, want 300ms", cfg.SearchDebounce)
	}
	if cfg.MessageBudget != review.DefaultMessageBudget {
		t.Fatalf("message budget=%d", cfg.MessageBudget)
	}

	st := cfg.PageDefaults()
	if st.Limit != 10 || st.Page != 1 || st.SortDir != review.SortDesc {
		t.Fatalf("unexpected page defaults: %#v", st)
	}
}

func TestParseArgsFileAndFlagPrecedence(t *testing.T) {
	t.Setenv(EnvServerURL, "http://env.example")
	t.Setenv("REVIEW_TEST_TOKEN", "expanded")
	path := writeConfig(t, `
server:
  url: http://file.example
  context_path: /ctx
  token: ${REVIEW_TEST_TOKEN}
review:
  selection_id: from-file
  page_size: 25
  sort_column: prompt
  sort_dir: asc
  search_debounce: 1s
logging:
  level: debug
`)

	cfg, err := ParseArgs([]string{"-config", path, "-page-size", "5"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if cfg.ServerURL != "http://file.example" {
		t.Fatalf("file should win over env, got %q", cfg.ServerURL)
	}
	if cfg.Token != "expanded" {
		t.Fatalf("expected ${VAR} expansion, got %q", cfg.Token)
	}
	if cfg.PageSize != 5 {
		t.Fatalf("flag should win over file, got %d", cfg.PageSize)
	}
	if cfg.SelectionID != "from-file" || cfg.SortColumn != "prompt" || cfg.SortDir != "ASC" {
		t.Fatalf("file values not applied: %#v", cfg)
	}
	if cfg.SearchDebounce != time.Second || cfg.Logging.Level != "debug" {
		t.Fatalf("file values not applied: %#v", cfg)
	}
}

func TestParseArgsValidation(t *testing.T) {
	t.Setenv(EnvServerURL, "")
	cases := []struct {
		args []string
		want string
	}{
		{[]string{"-selection", "s"}, "server url is required"},
		{[]string{"-server", "localhost", "-selection", "s"}, "scheme and host"},
		{[]string{"-server", "http://x"}, "selection id is required"},
		{[]string{"-server", "http://x", "-selection", "s", "-sort", "response"}, "unknown sort column"},
		{[]string{"-server", "http://x", "-selection", "s", "-page-size", "0"}, "page size"},
		{[]string{"-server", "http://x", "-selection", "s", "-log-format", "xml"}, "log format"},
		{[]string{"-server", "http://x", "-selection", "s", "-search-debounce", "soon"}, "search-debounce"},
	}
	for _, tc := range cases {
		_, err := ParseArgs(tc.args)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("ParseArgs(%v) err=%v, want %q", tc.args, err, tc.want)
		}
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "review:\n  search_debounce: later\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected duration parse error")
	}
}

func TestParseDevServer(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "devserver:\n  addr: :9999\n  db_path: "+filepath.Join(dir, "db", "x.sqlite")+"\n")

	cfg, rest, err := ParseDevServer("serve", []string{"-config", path, "-context-path", "/admin-ctx", "-prompt", "refund", "extra.jsonl"})
	if err != nil {
		t.Fatalf("ParseDevServer: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.ContextPath != "/admin-ctx" || cfg.Terms.Prompt != "refund" {
		t.Fatalf("unexpected config: %#v", cfg)
	}
	if len(rest) != 1 || rest[0] != "extra.jsonl" {
		t.Fatalf("unexpected positional args: %#v", rest)
	}
	if _, err := os.Stat(filepath.Join(dir, "db")); err != nil {
		t.Fatalf("expected db dir to be created: %v", err)
	}
}
