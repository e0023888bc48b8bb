package review

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStale marks a response that was superseded by a newer request for the same slot.
	ErrStale           = errors.New("stale response")
	ErrNothingToSelect = errors.New("no entries available to select")
	ErrUnknownColumn   = errors.New("unknown sort column")
	// ErrPageNotReady means the page for the current filter has not loaded, so the
	// match count is unknown.
	ErrPageNotReady    = errors.New("current page is not loaded")
)

// Table holds the review table state: the resident page of rows, the paging and
// filter state, and the selection that persists across pages.
//
// Every transition that needs the backend returns a Request. The caller performs it
// and hands the outcome back via ApplyPage/FailPage (or the select-all pair) with the
// request's Seq; only the latest request of each kind is honoured.
type Table struct {
	selectionID string
	defaults    PageState
	state       PageState
	rows        []Row
	terms       SearchTerms
	selected    *SelectionSet
	err         error

	pageSeq      uint64
	pageDone     uint64
	selectSeq    uint64
	selectDone   uint64
	selectSearch string
}

// NewTable starts a table for selectionID. Zero-valued fields of defaults fall back
// to DefaultPageState.
func NewTable(selectionID string, defaults PageState) *Table {
	base := DefaultPageState()
	if defaults.Limit > 0 {
		base.Limit = defaults.Limit
	}
	if IsSortColumn(defaults.SortColumn) {
		base.SortColumn = defaults.SortColumn
	}
	if defaults.SortDir != "" {
		base.SortDir = ParseSortDir(string(defaults.SortDir))
	}
	return &Table{
		selectionID: selectionID,
		defaults:    base,
		state:       base,
		selected:    NewSelectionSet(),
	}
}

func (t *Table) SelectionID() string { return t.selectionID }
func (t *Table) State() PageState { return t.state }
func (t *Table) SearchTerms() SearchTerms { return t.terms }
func (t *Table) Selection() *SelectionSet { return t.selected }
func (t *Table) Err() error { return t.err }
func (t *Table) Loading() bool { return t.pageDone < t.pageSeq }
func (t *Table) SelectingAll() bool { return t.selectDone < t.selectSeq }
func (t *Table) IsSelected(chatID string) bool { return t.selected.Has(chatID) }

// Rows returns the rows of the displayed page.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}

func (t *Table) RowAt(i int) (Row, bool) {
	if i < 0 || i >= len(t.rows) {
		return Row{}, false
	}
	return t.rows[i], true
}

// Reload requests the current page again without changing any state.
func (t *Table) Reload() Request {
	return t.pageRequest()
}

// SetPage moves to page, clamped to the known page range.
func (t *Table) SetPage(page int) Request {
	if page < 1 {
		page = 1
	}
	if t.state.TotalPages > 0 && page > t.state.TotalPages {
		page = t.state.TotalPages
	}
	t.state.Page = page
	return t.pageRequest()
}

func (t *Table) NextPage() (Request, bool) {
	if t.state.Page >= t.state.TotalPages {
		return Request{}, false
	}
	return t.SetPage(t.state.Page + 1), true
}

func (t *Table) PrevPage() (Request, bool) {
	if t.state.Page <= 1 {
		return Request{}, false
	}
	return t.SetPage(t.state.Page - 1), true
}

// SetSort sorts by column. Selecting the current column flips the direction; a new
// column starts descending.
func (t *Table) SetSort(column string) (Request, error) {
	if !IsSortColumn(column) {
		return Request{}, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	if t.state.SortColumn == column {
		t.state.SortDir = t.state.SortDir.Flip()
	} else {
		t.state.SortColumn = column
		t.state.SortDir = SortDesc
	}
	t.state.Page = 1
	return t.pageRequest(), nil
}

func (t *Table) SetSearch(text string) Request {
	t.state.Search = strings.TrimSpace(text)
	t.state.Page = 1
	return t.pageRequest()
}

// SetLimit changes the page size. Non-positive sizes restore the configured default.
func (t *Table) SetLimit(limit int) Request {
	if limit <= 0 {
		limit = t.defaults.Limit
	}
	t.state.Limit = limit
	t.state.Page = 1
	return t.pageRequest()
}

func (t *Table) pageRequest() Request {
	t.pageSeq++
	return Request{Seq: t.pageSeq, Query: t.query(t.state.Limit, t.state.Page)}
}

func (t *Table) query(limit, page int) Query {
	return Query{
		SelectionID: t.selectionID,
		Limit:       limit,
		Page:        page,
		SortColumn:  t.state.SortColumn,
		SortDir:     t.state.SortDir,
		Search:      t.state.Search,
	}
}

// ApplyPage replaces the displayed rows with p if seq is the latest page request.
// It reports whether the response was applied.
func (t *Table) ApplyPage(seq uint64, p Page) bool {
	if seq != t.pageSeq {
		return false
	}
	t.pageDone = seq
	t.rows = append(t.rows[:0:0], p.Rows...)
	t.terms = p.SearchTerms
	t.state.Page = p.Page
	if t.state.Page <= 0 {
		t.state.Page = 1
	}
	t.state.TotalPages = p.TotalPages
	if t.state.TotalPages <= 0 {
		t.state.TotalPages = 1
	}
	t.state.TotalRows = p.TotalRows
	if t.state.TotalRows < 0 {
		t.state.TotalRows = 0
	}
	t.err = nil
	return true
}

// FailPage records a failed page fetch. The displayed rows are dropped so that page
// level actions cannot act on rows that are no longer shown; the selection is kept.
func (t *Table) FailPage(seq uint64, err error) bool {
	if seq != t.pageSeq {
		return false
	}
	t.pageDone = seq
	t.rows = nil
	t.err = err
	return true
}

// ToggleRow flips the selection of row and returns its new state.
func (t *Table) ToggleRow(row Row) bool {
	checked := !t.selected.Has(row.ChatID)
	t.SetRowSelected(row, checked)
	return t.selected.Has(row.ChatID)
}

func (t *Table) SetRowSelected(row Row, checked bool) {
	if row.ChatID == "" {
		return
	}
	if checked {
		t.selected.Add(row)
		return
	}
	t.selected.Remove(row.ChatID)
}

// ToggleAllOnPage adds or removes every row on the displayed page.
func (t *Table) ToggleAllOnPage(checked bool) {
	for _, row := range t.rows {
		t.SetRowSelected(row, checked)
	}
}

// HeaderState reports how much of the displayed page is selected.
func (t *Table) HeaderState() CheckState {
	if len(t.rows) == 0 {
		return CheckNone
	}
	n := 0
	for _, row := range t.rows {
		if t.selected.Has(row.ChatID) {
			n++
		}
	}
	switch {
	case n == 0:
		return CheckNone
	case n == len(t.rows):
		return CheckAll
	default:
		return CheckSome
	}
}

// ClearSelection empties the selection and retires any select-all still in flight.
func (t *Table) ClearSelection() {
	t.selected.Clear()
	t.selectSeq++
	t.selectDone = t.selectSeq
}

// SelectAllMatching requests every row that matches the current filter and sort.
func (t *Table) SelectAllMatching() (Request, error) {
	if t.Loading() || t.err != nil {
		return Request{}, ErrPageNotReady
	}
	if t.state.TotalRows <= 0 {
		return Request{}, ErrNothingToSelect
	}
	t.selectSeq++
	t.selectSearch = t.state.Search
	return Request{Seq: t.selectSeq, Query: t.query(t.state.TotalRows, 1)}, nil
}

// ApplySelectAll adds every returned row in one batch and returns how many were
// added. Responses for an outdated request or a search that has since changed are
// rejected with ErrStale.
func (t *Table) ApplySelectAll(seq uint64, rows []Row) (int, error) {
	if seq != t.selectSeq {
		return 0, ErrStale
	}
	t.selectDone = seq
	if t.selectSearch != t.state.Search {
		return 0, ErrStale
	}
	n := 0
	for _, row := range rows {
		if t.selected.Add(row) {
			n++
		}
	}
	if n == 0 {
		return 0, ErrNothingToSelect
	}
	return n, nil
}

func (t *Table) FailSelectAll(seq uint64) bool {
	if seq != t.selectSeq {
		return false
	}
	t.selectDone = seq
	return true
}
