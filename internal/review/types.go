package review

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Row is one chat entry as served by the review-data endpoint.
type Row struct {
	ChatID    string    `json:"chatId"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	CreatedAt Timestamp `json:"createdAt"`
	SessionID string    `json:"sessionId"`
}

// Timestamp decodes the backend's RFC 3339 instants. Empty or unparseable values
// decode to the zero time.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		if string(data) == "null" {
			t.Time = time.Time{}
			return nil
		}
		return fmt.Errorf("decode timestamp: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		t.Time = time.Time{}
		return nil
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

type SortDir string

const (
	SortAsc  SortDir = "ASC"
	SortDesc SortDir = "DESC"
)

// ParseSortDir accepts any casing of "asc"; everything else is DESC.
func ParseSortDir(s string) SortDir {
	if strings.EqualFold(strings.TrimSpace(s), "asc") {
		return SortAsc
	}
	return SortDesc
}

func (d SortDir) Flip() SortDir {
	if d == SortAsc {
		return SortDesc
	}
	return SortAsc
}

// Sortable columns accepted by the review-data endpoint.
const (
	ColumnChatID    = "widget_chat_id"
	ColumnPrompt    = "prompt"
	ColumnCreatedAt = "created_at"
	ColumnSessionID = "session_id"
)

var SortColumns = []string{ColumnChatID, ColumnPrompt, ColumnCreatedAt, ColumnSessionID}

func IsSortColumn(column string) bool {
	for _, c := range SortColumns {
		if c == column {
			return true
		}
	}
	return false
}

const (
	DefaultLimit      = 10
	DefaultSortColumn = ColumnCreatedAt
	DefaultSortDir    = SortDesc
)

// PageState is the paging, sorting and filter state that drives the next fetch.
type PageState struct {
	Limit      int
	Page       int
	TotalPages int
	TotalRows  int
	SortColumn string
	SortDir    SortDir
	Search     string
}

func DefaultPageState() PageState {
	return PageState{
		Limit:      DefaultLimit,
		Page:       1,
		TotalPages: 1,
		SortColumn: DefaultSortColumn,
		SortDir:    DefaultSortDir,
	}
}

// SearchTerms echoes the filters that produced a selection on the backend.
type SearchTerms struct {
	Global   string `json:"global"`
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
}

func (s SearchTerms) Empty() bool {
	return strings.TrimSpace(s.Global) == "" &&
		strings.TrimSpace(s.Prompt) == "" &&
		strings.TrimSpace(s.Response) == ""
}

// Query is the wire-level part of a fetch.
type Query struct {
	SelectionID string
	Limit       int
	Page        int
	SortColumn  string
	SortDir     SortDir
	Search      string
}

// Page is one decoded review-data response.
type Page struct {
	Rows        []Row
	Page        int
	TotalPages  int
	TotalRows   int
	SearchTerms SearchTerms
}

// Request is a fetch the caller must perform and hand back with the same Seq.
type Request struct {
	Seq   uint64
	Query Query
}

// CheckState is the tri-state of the "select all on page" header checkbox.
type CheckState int

const (
	CheckNone CheckState = iota
	CheckSome
	CheckAll
)

func (c CheckState) String() string {
	switch c {
	case CheckAll:
		return "all"
	case CheckSome:
		return "some"
	default:
		return "none"
	}
}

// Box renders the state as a terminal checkbox.
func (c CheckState) Box() string {
	switch c {
	case CheckAll:
		return "[x]"
	case CheckSome:
		return "[-]"
	default:
		return "[ ]"
	}
}

// FormatTime renders t the way summaries and exports show creation times.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}
