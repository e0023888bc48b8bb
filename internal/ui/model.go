package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"chat-review/internal/clipboard"
	"chat-review/internal/config"
	"chat-review/internal/highlight"
	"chat-review/internal/review"
	"chat-review/internal/reviewapi"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const requestTimeout = 30 * time.Second

var pageSizes = []int{10, 25, 50, 100}

// Backend is the part of the admin API the TUI needs.
type Backend interface {
	FetchPage(ctx context.Context, q review.Query) (review.Page, error)
	SendManualMessage(ctx context.Context, message string) (reviewapi.ManualReply, error)
}

type Exporter interface {
	Export(selectionID string, terms review.SearchTerms, rows []review.Row) (string, error)
}

type Deps struct {
	Backend  Backend
	Exporter Exporter
	Copier   clipboard.Copier
	Logger   *slog.Logger
}

type Model struct {
	cfg      config.AppConfig
	tbl      *review.Table
	backend  Backend
	exporter Exporter
	copier   clipboard.Copier
	logger   *slog.Logger

	table    table.Model
	viewport viewport.Model
	help     help.Model
	spinner  spinner.Model
	search   textinput.Model
	composer textarea.Model
	keys     keyMap

	width  int
	height int

	focusOnTable bool
	searchMode   bool
	searchTag    int
	composing    bool
	sending      bool
	reply        string
	replyActive  bool
	rendering    bool
	renderNonce  int
	rendered     map[string]string
	matchCount   int

	status string
	err    error
}

type pageMsg struct {
	seq  uint64
	page review.Page
	err  error
}
type selectAllMsg struct {
	seq  uint64
	rows []review.Row
	err  error
}
type searchDebounceMsg struct {
	tag   int
	query string
}
type manualMsg struct {
	reply string
	err   error
}
type renderMsg struct {
	cacheKey string
	rendered string
	nonce    int
	err      error
}
type exportMsg struct {
	path string
	err  error
}
type copyMsg struct {
	chats int
	err   error
}

func NewModel(cfg config.AppConfig, tbl *review.Table, deps Deps) Model {
	t := table.New(
		table.WithColumns(columnsFor(tbl, 80)),
		table.WithFocused(true),
		table.WithHeight(12),
		table.WithKeyMap(tableKeys()),
	)
	t.SetStyles(tableStyles())

	vp := viewport.New(60, 20)
	vp.SetContent("Loading selection...")

	h := help.New()
	h.ShowAll = false

	sp := spinner.New()
	sp.Spinner = spinner.Points

	ti := textinput.New()
	ti.Placeholder = "Search prompt, response or session..."
	ti.Prompt = "/ "
	ti.CharLimit = 256

	ta := textarea.New()
	ta.Placeholder = "Message to send with the selected chats as context..."
	ta.ShowLineNumbers = false
	ta.CharLimit = cfg.MessageBudget

	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	copier := deps.Copier
	if copier == nil {
		copier = clipboard.System{}
	}

	return Model{
		cfg:      cfg,
		tbl:      tbl,
		backend:  deps.Backend,
		exporter: deps.Exporter,
		copier:   copier,
		logger:   logger,
		table:    t,
		viewport: vp,
		help:     h,
		spinner:  sp,
		search:   ti,
		composer: ta,
		keys:     defaultKeys(),

		focusOnTable: true,
		rendered:     make(map[string]string),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchCmd(m.tbl.Reload()))
}

func (m Model) fetchCmd(req review.Request) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		page, err := m.backend.FetchPage(ctx, req.Query)
		return pageMsg{seq: req.Seq, page: page, err: err}
	}
}

func (m Model) selectAllCmd(req review.Request) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		page, err := m.backend.FetchPage(ctx, req.Query)
		return selectAllMsg{seq: req.Seq, rows: page.Rows, err: err}
	}
}

func (m Model) manualCmd(payload string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		reply, err := m.backend.SendManualMessage(ctx, payload)
		return manualMsg{reply: reply.Text, err: err}
	}
}

func (m Model) exportCmd() tea.Cmd {
	rows := m.tbl.Selection().Rows()
	selectionID := m.tbl.SelectionID()
	terms := m.tbl.SearchTerms()
	return func() tea.Msg {
		path, err := m.exporter.Export(selectionID, terms, rows)
		return exportMsg{path: path, err: err}
	}
}

func (m Model) copyCmd() tea.Cmd {
	summary := m.tbl.SelectionSummary(m.cfg.MessageBudget)
	n := m.tbl.Selection().Len()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return copyMsg{chats: n, err: m.copier.Copy(ctx, summary)}
	}
}

func debounceCmd(d time.Duration, tag int, query string) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return searchDebounceMsg{tag: tag, query: query}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.syncRows()
		cmds = append(cmds, m.renderDetail())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case pageMsg:
		cmds = append(cmds, m.applyPage(msg))

	case selectAllMsg:
		cmds = append(cmds, m.applySelectAll(msg))

	case searchDebounceMsg:
		if msg.tag != m.searchTag || msg.query == m.tbl.State().Search {
			break
		}
		cmds = append(cmds, m.navigate(m.tbl.SetSearch(msg.query)))

	case manualMsg:
		m.sending = false
		if msg.err != nil {
			m.err = msg.err
			m.status = "Send failed: " + msg.err.Error()
			m.logger.Warn("manual message failed", "error", msg.err)
			break
		}
		m.err = nil
		m.composing = false
		m.composer.Reset()
		m.composer.Blur()
		m.resize()
		m.reply = msg.reply
		m.replyActive = true
		m.status = "Reply received"
		cmds = append(cmds, m.renderDetail())

	case renderMsg:
		if msg.nonce != m.renderNonce {
			break
		}
		m.rendering = false
		if msg.err != nil {
			m.err = msg.err
			m.status = "Render failed: " + msg.err.Error()
		}
		m.rendered[msg.cacheKey] = msg.rendered
		m.setViewportContent(msg.rendered)

	case exportMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "Export failed: " + msg.err.Error()
		} else {
			m.err = nil
			m.status = "Exported: " + msg.path
		}

	case copyMsg:
		if msg.err != nil {
			m.err = msg.err
			if errors.Is(msg.err, clipboard.ErrToolNotFound) {
				m.status = "Could not copy: clipboard tool not found"
			} else {
				m.status = "Could not copy: " + msg.err.Error()
			}
		} else {
			m.err = nil
			m.status = fmt.Sprintf("Copied summary of %d chats", msg.chats)
		}

	case tea.KeyMsg:
		if m.composing {
			return m.updateComposer(msg)
		}
		if m.searchMode {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) applyPage(msg pageMsg) tea.Cmd {
	if msg.err != nil {
		if !m.tbl.FailPage(msg.seq, msg.err) {
			return nil
		}
		m.err = msg.err
		m.status = "Load failed: " + msg.err.Error()
		m.logger.Warn("page fetch failed", "seq", msg.seq, "error", msg.err)
		m.syncRows()
		return m.renderDetail()
	}
	if !m.tbl.ApplyPage(msg.seq, msg.page) {
		m.logger.Debug("discarded stale page", "seq", msg.seq)
		return nil
	}
	m.err = nil
	st := m.tbl.State()
	m.status = fmt.Sprintf("Page %d/%d", st.Page, st.TotalPages)
	m.syncRows()
	return m.renderDetail()
}

func (m *Model) applySelectAll(msg selectAllMsg) tea.Cmd {
	if msg.err != nil {
		if m.tbl.FailSelectAll(msg.seq) {
			m.err = msg.err
			m.status = "Select all failed: " + msg.err.Error()
		}
		return nil
	}
	n, err := m.tbl.ApplySelectAll(msg.seq, msg.rows)
	switch {
	case errors.Is(err, review.ErrStale):
		m.logger.Debug("discarded stale select-all", "seq", msg.seq)
		return nil
	case errors.Is(err, review.ErrNothingToSelect):
		m.status = "No selectable entries returned."
		return nil
	}
	m.err = nil
	m.status = fmt.Sprintf("Selected %d matching chats (%d total)", n, m.tbl.Selection().Len())
	m.syncRows()
	return m.renderDetail()
}

// navigate records a page request and leaves any manual reply behind.
func (m *Model) navigate(req review.Request) tea.Cmd {
	m.replyActive = false
	return m.fetchCmd(req)
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searchMode = false
		m.search.Blur()
		m.searchTag++
		if m.tbl.State().Search == "" && strings.TrimSpace(m.search.Value()) == "" {
			return m, nil
		}
		m.search.SetValue("")
		return m, m.navigate(m.tbl.SetSearch(""))
	case "enter":
		m.searchMode = false
		m.search.Blur()
		m.searchTag++
		query := strings.TrimSpace(m.search.Value())
		if query == m.tbl.State().Search {
			return m, nil
		}
		return m, m.navigate(m.tbl.SetSearch(query))
	}

	before := strings.TrimSpace(m.search.Value())
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	after := strings.TrimSpace(m.search.Value())
	if after == before {
		return m, cmd
	}
	m.searchTag++
	return m, tea.Batch(cmd, debounceCmd(m.cfg.SearchDebounce, m.searchTag, after))
}

func (m Model) updateComposer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Esc):
		m.composing = false
		m.composer.Blur()
		m.resize()
		return m, nil
	case key.Matches(msg, m.keys.ClearDraft):
		m.composer.Reset()
		m.tbl.ClearSelection()
		m.status = "Message and selection cleared"
		m.syncRows()
		return m, m.renderDetail()
	case key.Matches(msg, m.keys.Send):
		if m.sending {
			return m, nil
		}
		payload, err := m.tbl.ComposeManualMessage(m.composer.Value(), m.cfg.MessageBudget)
		if err != nil {
			m.status = "Cannot send: " + err.Error()
			return m, nil
		}
		m.sending = true
		m.status = "Sending..."
		m.logger.Info("sending manual message", "chars", len(payload), "selected", m.tbl.Selection().Len())
		return m, m.manualCmd(payload)
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.search.SetValue(m.tbl.State().Search)
		m.search.CursorEnd()
		m.search.Focus()
		return m, nil
	case key.Matches(msg, m.keys.Compose):
		m.composing = true
		m.resize()
		return m, m.composer.Focus()
	case key.Matches(msg, m.keys.Tab):
		m.focusOnTable = !m.focusOnTable
		if m.focusOnTable {
			m.table.Focus()
		} else {
			m.table.Blur()
		}
		return m, nil
	case key.Matches(msg, m.keys.NextPage):
		if req, ok := m.tbl.NextPage(); ok {
			return m, m.navigate(req)
		}
		m.status = "Already on the last page"
		return m, nil
	case key.Matches(msg, m.keys.PrevPage):
		if req, ok := m.tbl.PrevPage(); ok {
			return m, m.navigate(req)
		}
		m.status = "Already on the first page"
		return m, nil
	case key.Matches(msg, m.keys.Smaller):
		return m, m.navigate(m.tbl.SetLimit(stepPageSize(m.tbl.State().Limit, -1)))
	case key.Matches(msg, m.keys.Larger):
		return m, m.navigate(m.tbl.SetLimit(stepPageSize(m.tbl.State().Limit, 1)))
	case key.Matches(msg, m.keys.SortChatID):
		return m.sortBy(review.ColumnChatID)
	case key.Matches(msg, m.keys.SortPrompt):
		return m.sortBy(review.ColumnPrompt)
	case key.Matches(msg, m.keys.SortCreated):
		return m.sortBy(review.ColumnCreatedAt)
	case key.Matches(msg, m.keys.SortSession):
		return m.sortBy(review.ColumnSessionID)
	case key.Matches(msg, m.keys.Reload):
		m.status = "Reloading..."
		return m, m.navigate(m.tbl.Reload())
	case key.Matches(msg, m.keys.ToggleRow):
		row, ok := m.tbl.RowAt(m.table.Cursor())
		if !ok {
			return m, nil
		}
		m.tbl.ToggleRow(row)
		m.replyActive = false
		m.syncRows()
		return m, m.renderDetail()
	case key.Matches(msg, m.keys.TogglePage):
		m.tbl.ToggleAllOnPage(m.tbl.HeaderState() != review.CheckAll)
		m.replyActive = false
		m.syncRows()
		return m, m.renderDetail()
	case key.Matches(msg, m.keys.SelectAll):
		req, err := m.tbl.SelectAllMatching()
		switch {
		case errors.Is(err, review.ErrPageNotReady):
			m.status = "Wait for the current page to load before selecting all."
			return m, nil
		case err != nil:
			m.status = "No entries available to select."
			return m, nil
		}
		m.status = fmt.Sprintf("Selecting %d matching chats...", req.Query.Limit)
		return m, m.selectAllCmd(req)
	case key.Matches(msg, m.keys.ClearAll):
		m.tbl.ClearSelection()
		m.replyActive = false
		m.status = "Selection cleared"
		m.syncRows()
		return m, m.renderDetail()
	case key.Matches(msg, m.keys.Copy):
		if m.tbl.Selection().Len() == 0 {
			m.status = "Nothing selected to copy"
			return m, nil
		}
		return m, m.copyCmd()
	case key.Matches(msg, m.keys.Export):
		if m.tbl.Selection().Len() == 0 {
			m.status = "Nothing selected to export"
			return m, nil
		}
		return m, m.exportCmd()
	}

	if !m.focusOnTable {
		switch {
		case key.Matches(msg, m.keys.Up):
			m.viewport.LineUp(1)
		case key.Matches(msg, m.keys.Down):
			m.viewport.LineDown(1)
		}
		return m, nil
	}

	prev := m.table.Cursor()
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	if m.table.Cursor() == prev {
		return m, cmd
	}
	m.replyActive = false
	return m, tea.Batch(cmd, m.renderDetail())
}

func (m Model) sortBy(column string) (tea.Model, tea.Cmd) {
	req, err := m.tbl.SetSort(column)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	return m, m.navigate(req)
}

// stepPageSize moves to the neighbouring preset size in direction dir.
func stepPageSize(current, dir int) int {
	if dir > 0 {
		for _, s := range pageSizes {
			if s > current {
				return s
			}
		}
		return pageSizes[len(pageSizes)-1]
	}
	for i := len(pageSizes) - 1; i >= 0; i-- {
		if pageSizes[i] < current {
			return pageSizes[i]
		}
	}
	return pageSizes[0]
}

// syncRows rebuilds the visible table from the review state. Checkboxes are
// always derived from the selection set, never stored per row.
func (m *Model) syncRows() {
	width := m.table.Width()
	if width <= 0 {
		width = 80
	}
	cols := columnsFor(m.tbl, width)
	rows := m.tbl.Rows()
	out := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		box := review.CheckNone
		if m.tbl.IsSelected(r.ChatID) {
			box = review.CheckAll
		}
		out = append(out, table.Row{
			box.Box(),
			cell(r.ChatID, cols[1].Width),
			cell(r.Prompt, cols[2].Width),
			review.FormatTime(r.CreatedAt.Time),
			cell(r.SessionID, cols[4].Width),
		})
	}
	m.table.SetColumns(cols)
	m.table.SetRows(out)
	if c := m.table.Cursor(); c >= len(out) {
		m.table.SetCursor(max(len(out)-1, 0))
	} else if c < 0 && len(out) > 0 {
		m.table.SetCursor(0)
	}
}

func (m *Model) searchTerms() []string {
	st := m.tbl.State()
	terms := m.tbl.SearchTerms()
	return highlight.Terms(st.Search, terms.Global, terms.Prompt, terms.Response)
}

func (m *Model) setViewportContent(rendered string) {
	res := highlight.ApplyANSI(rendered, m.searchTerms(), func(s string) string {
		return searchMatchStyle.Render(s)
	})
	m.matchCount = res.Count
	m.viewport.SetContent(res.Text)
	m.viewport.GotoTop()
}

// renderDetail refreshes the detail pane for the current selection and cursor.
func (m *Model) renderDetail() tea.Cmd {
	md, cacheKey := m.detailMarkdown()
	wrap := m.viewport.Width - 2
	if wrap < 20 {
		wrap = 20
	}
	cacheKey = fmt.Sprintf("%s|w=%d", cacheKey, wrap)
	if rendered, ok := m.rendered[cacheKey]; ok {
		m.renderNonce++
		m.rendering = false
		m.setViewportContent(rendered)
		return nil
	}
	m.rendering = true
	m.renderNonce++
	return renderMarkdownCmd(md, cacheKey, m.cfg.GlamourStyle, wrap, m.renderNonce)
}
