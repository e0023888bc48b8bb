package ui

import (
	"fmt"
	"strings"

	"chat-review/internal/config"
	"chat-review/internal/review"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

const maxDisplayChars = 500_000

// detailMarkdown picks what the detail pane shows: the last manual reply, the one
// selected chat, a preview of several selected chats, or the row under the cursor.
// The second value identifies the content for the render cache.
func (m *Model) detailMarkdown() (string, string) {
	if m.replyActive {
		reply := strings.TrimSpace(m.reply)
		if reply == "" {
			reply = "_No response body._"
		}
		return "## Workspace reply\n\n" + reply + "\n", "reply|" + reply
	}

	sel := m.tbl.Selection()
	switch sel.Len() {
	case 0:
	case 1:
		row := sel.Rows()[0]
		return rowMarkdown(row), "row|" + row.ChatID
	default:
		md := fmt.Sprintf("## Multiple chats selected (%d)\n\n%s\n", sel.Len(), m.tbl.SelectionPreview())
		return md, "multi|" + strings.Join(sel.IDs(), ",")
	}

	row, ok := m.tbl.RowAt(m.table.Cursor())
	if !ok {
		switch {
		case m.tbl.Err() != nil:
			return "_Could not load this page. Press `r` to retry._", "empty|err"
		case m.tbl.Loading():
			return "_Loading selection..._", "empty|loading"
		default:
			return "_No chats on this page._", "empty|none"
		}
	}
	return rowMarkdown(row), "row|" + row.ChatID
}

func rowMarkdown(r review.Row) string {
	var b strings.Builder
	b.WriteString("## Chat " + r.ChatID + "\n\n")
	b.WriteString("- Created At: " + valueOr(review.FormatTime(r.CreatedAt.Time), "(unknown)") + "\n")
	b.WriteString("- Session ID: " + valueOr(r.SessionID, "(none)") + "\n\n")
	b.WriteString("### Prompt\n\n" + valueOr(r.Prompt, "_(missing)_") + "\n\n")
	b.WriteString("### Response\n\n" + valueOr(r.Response, "_(empty)_") + "\n")
	return b.String()
}

func renderMarkdownCmd(md, cacheKey, style string, wrap, nonce int) tea.Cmd {
	return func() tea.Msg {
		if len(md) > maxDisplayChars {
			md = md[:maxDisplayChars] + "\n\n... [truncated for display; use export for full content] ...\n"
		}
		if style == "" {
			style = config.DefaultGlamourStyle
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return renderMsg{cacheKey: cacheKey, rendered: md, nonce: nonce, err: err}
		}
		out, err := r.Render(md)
		if err != nil {
			return renderMsg{cacheKey: cacheKey, rendered: md, nonce: nonce, err: err}
		}
		return renderMsg{cacheKey: cacheKey, rendered: out, nonce: nonce}
	}
}

func valueOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return strings.TrimSpace(s)
}
