package ui

import (
	"fmt"
	"strings"

	"chat-review/internal/review"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	boxWidth      = 3
	chatIDWidth   = 14
	createdWidth  = 20
	sessionWidth  = 12
	minPromptCell = 12
	composerLines = 5
)

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("124")).
			Padding(0, 1)
	searchMatchStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("16")).
				Background(lipgloss.Color("220"))
)

func panelStyle(active bool) lipgloss.Style {
	border := lipgloss.NormalBorder()
	if active {
		return lipgloss.NewStyle().
			Border(border, true).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
	}
	return lipgloss.NewStyle().
		Border(border, true).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	return s
}

// columnsFor lays out the table columns for width, marking the sort column and
// showing the page checkbox state in the first header.
func columnsFor(tbl *review.Table, width int) []table.Column {
	st := tbl.State()
	title := func(label, column string) string {
		if st.SortColumn != column {
			return label
		}
		if st.SortDir == review.SortAsc {
			return label + " ▲"
		}
		return label + " ▼"
	}
	prompt := width - boxWidth - chatIDWidth - createdWidth - sessionWidth - 10
	if prompt < minPromptCell {
		prompt = minPromptCell
	}
	return []table.Column{
		{Title: tbl.HeaderState().Box(), Width: boxWidth},
		{Title: title("Chat ID", review.ColumnChatID), Width: chatIDWidth},
		{Title: title("Prompt", review.ColumnPrompt), Width: prompt},
		{Title: title("Created", review.ColumnCreatedAt), Width: createdWidth},
		{Title: title("Session", review.ColumnSessionID), Width: sessionWidth},
	}
}

// cell flattens s to a single line that fits width.
func cell(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width <= 0 || ansi.StringWidth(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "…")
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	left, right := m.paneWidths()

	bodyHeight := m.height - 2
	if m.composing {
		bodyHeight -= composerLines + 2
	}
	if bodyHeight < 8 {
		bodyHeight = 8
	}

	m.table.SetWidth(left - 4)
	m.table.SetHeight(bodyHeight - 2)
	m.viewport.Width = right - 4
	m.viewport.Height = bodyHeight - 2
	m.composer.SetWidth(m.width - 4)
	m.composer.SetHeight(composerLines)
	m.help.Width = m.width
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Starting..."
	}

	left, right := m.paneWidths()
	height := m.viewport.Height + 2
	leftPane := panelStyle(m.focusOnTable && !m.composing).Width(left - 2).Height(height).Render(m.tableView())
	rightPane := panelStyle(!m.focusOnTable && !m.composing).Width(right - 2).Height(height).Render(m.viewport.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)

	parts := []string{m.statusLine(), body}
	if m.composing {
		parts = append(parts, panelStyle(true).Width(m.width-2).Render(m.composer.View()))
	}

	var helpView string
	switch {
	case m.composing:
		helpView = fmt.Sprintf("%d/%d chars  ", len([]rune(m.composer.Value())), m.cfg.MessageBudget) +
			m.help.View(composeHelp{m.keys})
	case m.searchMode:
		helpView = m.search.View()
	default:
		helpView = m.help.View(m.keys)
		if q := m.tbl.State().Search; q != "" {
			helpView = "search: " + q + "  " + helpView
		}
	}
	parts = append(parts, helpView)

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// tableView shows load errors and empty pages inside the table body.
func (m Model) tableView() string {
	if len(m.table.Rows()) > 0 {
		return m.table.View()
	}
	var note string
	switch {
	case m.tbl.Err() != nil:
		note = errorStyle.Render(cell("Could not load rows: "+m.tbl.Err().Error(), m.table.Width()-2))
	case m.tbl.Loading():
		note = "Loading..."
	default:
		note = "No chats match."
	}
	return m.table.View() + "\n" + note
}

func (m Model) statusLine() string {
	st := m.tbl.State()
	status := fmt.Sprintf(
		"selection=%s  Page %d of %d  rows=%d  selected=%d %s  sort=%s %s",
		shorten(m.tbl.SelectionID(), 18),
		st.Page,
		st.TotalPages,
		st.TotalRows,
		m.tbl.Selection().Len(),
		m.tbl.HeaderState().Box(),
		st.SortColumn,
		st.SortDir,
	)
	if m.tbl.Loading() || m.tbl.SelectingAll() || m.sending {
		status = m.spinner.View() + " " + status
	}
	if terms := m.tbl.SearchTerms(); !terms.Empty() {
		status += "  [filters: " + shorten(formatTerms(terms), 40) + "]"
	}
	if st.Search != "" {
		status += fmt.Sprintf("  [search %q]", st.Search)
		if m.matchCount > 0 {
			status += fmt.Sprintf("  [match %d]", m.matchCount)
		}
	}
	if m.replyActive {
		status += "  [reply]"
	}
	if m.rendering {
		status += "  [rendering]"
	}
	if strings.TrimSpace(m.status) != "" {
		status += "  " + shorten(strings.TrimSpace(m.status), 80)
	}
	line := cell(status, m.width-2)
	if m.err != nil {
		return errorStyle.Width(m.width).Render(cell(line+"  err="+m.err.Error(), m.width-2))
	}
	return statusStyle.Width(m.width).Render(line)
}

func formatTerms(t review.SearchTerms) string {
	var parts []string
	if v := strings.TrimSpace(t.Global); v != "" {
		parts = append(parts, "global="+v)
	}
	if v := strings.TrimSpace(t.Prompt); v != "" {
		parts = append(parts, "prompt="+v)
	}
	if v := strings.TrimSpace(t.Response); v != "" {
		parts = append(parts, "response="+v)
	}
	return strings.Join(parts, " ")
}

func (m *Model) paneWidths() (int, int) {
	left := m.width * 3 / 5
	if left < 48 {
		left = 48
	}
	if left > m.width-32 {
		left = m.width - 32
	}
	if left < 20 {
		left = 20
	}
	right := m.width - left
	if right < 20 {
		right = 20
	}
	return left, right
}

func shorten(s string, n int) string {
	s = strings.TrimSpace(s)
	if ansi.StringWidth(s) <= n {
		return s
	}
	if n <= 3 {
		return ansi.Truncate(s, n, "")
	}
	return ansi.Truncate(s, n, "...")
}
