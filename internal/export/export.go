package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chat-review/internal/review"
)

type Exporter struct {
	dir string
	cwd string
	now func() time.Time
}

func New(dir string) (*Exporter, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve cwd: %w", err)
	}
	return &Exporter{dir: strings.TrimSpace(dir), cwd: cwd, now: time.Now}, nil
}

// Export writes the selected rows as markdown and returns the file path.
func (e *Exporter) Export(selectionID string, terms review.SearchTerms, rows []review.Row) (string, error) {
	if len(rows) == 0 {
		return "", review.ErrNothingToSelect
	}
	now := e.now().UTC()
	path := e.outputPath(now)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	md := BuildSelectionMarkdown(selectionID, terms, rows, now)
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return path, nil
}

func BuildSelectionMarkdown(selectionID string, terms review.SearchTerms, rows []review.Row, now time.Time) string {
	var b strings.Builder
	b.WriteString("# Chat review selection " + safeValue(selectionID) + "\n\n")
	b.WriteString("Exported: " + now.Format(time.RFC3339) + "\n\n")
	b.WriteString("```text\n")
	b.WriteString(fmt.Sprintf("chat_count: %d\n", len(rows)))
	b.WriteString("search_global: " + safeValue(terms.Global) + "\n")
	b.WriteString("search_prompt: " + safeValue(terms.Prompt) + "\n")
	b.WriteString("search_response: " + safeValue(terms.Response) + "\n")
	b.WriteString("```\n\n")

	for _, r := range rows {
		b.WriteString("## Chat " + r.ChatID + "\n\n")
		b.WriteString("- Created At: " + safeValue(review.FormatTime(r.CreatedAt.Time)) + "\n")
		b.WriteString("- Session ID: " + safeValue(r.SessionID) + "\n\n")
		writeSection(&b, "Prompt", r.Prompt)
		writeSection(&b, "Response", r.Response)
	}
	return strings.TrimSpace(b.String()) + "\n"
}

func writeSection(b *strings.Builder, title, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		content = "_(empty)_"
	}
	b.WriteString("### " + title + "\n\n")
	b.WriteString(content + "\n\n")
}

func (e *Exporter) outputPath(now time.Time) string {
	dir := e.dir
	if dir == "" {
		dir = "exports"
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(e.cwd, dir)
	}
	return filepath.Join(dir, safeFileName("selection-"+now.Format("20060102T150405Z"))+".md")
}

func safeFileName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "selection"
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	return replacer.Replace(s)
}

func safeValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "n/a"
	}
	return s
}
