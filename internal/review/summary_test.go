package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func selectedTable(rows ...Row) *Table {
	tbl := NewTable("sel", PageState{})
	for _, r := range rows {
		tbl.SetRowSelected(r, true)
	}
	return tbl
}

func TestSelectionSummaryFormatsBlocks(t *testing.T) {
	created := time.Date(2024, 3, 9, 8, 30, 0, 0, time.UTC)
	tbl := selectedTable(Row{
		ChatID:    "chat-1",
		Prompt:    "How do I reset?   It broke.",
		Response:  "Press the button! Then wait.",
		CreatedAt: Timestamp{created},
		SessionID: "sess-9",
	}, Row{ChatID: "chat-2", Response: "   "})

	got := tbl.SelectionSummary(10_000)
	want := strings.Join([]string{
		"### Chat chat-1",
		"- Prompt: How do I reset?",
		"- Response: Press the button!",
		"- Created At: 2024-03-09 08:30 UTC",
		"- Session ID: sess-9",
		"",
		"### Chat chat-2",
		"- Prompt: (missing)",
		"- Response: (empty)",
		"- Created At: (unknown)",
		"- Session ID: (none)",
	}, "\n")
	if got != want {
		t.Fatalf("unexpected summary\nwant:\n%s\ngot:\n%s", want, got)
	}
}

func TestSelectionSummaryNeverExceedsBudget(t *testing.T) {
	var rows []Row
	for i := 0; i < 40; i++ {
		rows = append(rows, Row{
			ChatID:   fmt.Sprintf("chat-%02d", i),
			Prompt:   strings.Repeat("héllo wörld ", 20),
			Response: "ok.",
		})
	}
	tbl := selectedTable(rows...)

	for _, budget := range []int{1, 10, 37, 64, 200, 999, 5000} {
		got := tbl.SelectionSummary(budget)
		if n := utf8.RuneCountInString(got); n > budget {
			t.Fatalf("budget %d exceeded: %d characters", budget, n)
		}
	}
}

func TestSelectionSummaryMarksTruncation(t *testing.T) {
	tbl := selectedTable(rowsOf("a", "b", "c", "d")...)
	full := tbl.SelectionSummary(100_000)

	got := tbl.SelectionSummary(utf8.RuneCountInString(full) - 1)
	if !strings.HasSuffix(got, "[summary truncated: 3 of 4 chats shown]") {
		t.Fatalf("expected truncation marker, got:\n%s", got)
	}
	if again := tbl.SelectionSummary(utf8.RuneCountInString(full) - 1); again != got {
		t.Fatalf("truncation must be deterministic")
	}
	if !strings.HasPrefix(got, "### Chat a") {
		t.Fatalf("expected digest to keep leading entries, got:\n%s", got)
	}
	if !strings.Contains(got, "### Chat d") {
		t.Fatalf("expected the cut entry to be partly kept, got:\n%s", got)
	}
}

func TestSelectionSummaryEmpty(t *testing.T) {
	tbl := selectedTable()
	if got := tbl.SelectionSummary(100); got != "" {
		t.Fatalf("expected empty summary, got %q", got)
	}
	tbl = selectedTable(rowsOf("a")...)
	if got := tbl.SelectionSummary(0); got != "" {
		t.Fatalf("expected empty summary for zero budget, got %q", got)
	}
}

func TestSelectionPreviewKeepsFullText(t *testing.T) {
	long := strings.Repeat("First sentence. ", 10)
	tbl := selectedTable(Row{ChatID: "x", Prompt: long})
	if !strings.Contains(tbl.SelectionPreview(), long) {
		t.Fatalf("preview should not digest prompt text")
	}
}

func TestComposeManualMessage(t *testing.T) {
	tbl := selectedTable(rowsOf("a", "b")...)

	got, err := tbl.ComposeManualMessage("  please review  ", 500)
	if err != nil {
		t.Fatalf("ComposeManualMessage: %v", err)
	}
	if !strings.HasPrefix(got, "please review\n\nSelected chats context:\n### Chat a") {
		t.Fatalf("unexpected payload:\n%s", got)
	}

	for _, budget := range []int{14, 40, 90, 300} {
		got, err := tbl.ComposeManualMessage("please review", budget)
		if err != nil {
			t.Fatalf("budget %d: %v", budget, err)
		}
		if n := utf8.RuneCountInString(got); n > budget {
			t.Fatalf("budget %d exceeded: %d", budget, n)
		}
	}
}

func TestComposeManualMessageErrors(t *testing.T) {
	tbl := selectedTable()
	if _, err := tbl.ComposeManualMessage("   ", 100); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if _, err := tbl.ComposeManualMessage("too long", 3); !errors.Is(err, ErrMessageTooLong) {
		t.Fatalf("expected ErrMessageTooLong, got %v", err)
	}
	if got, err := tbl.ComposeManualMessage("hi", 100); err != nil || got != "hi" {
		t.Fatalf("no selection should send text as-is, got %q err=%v", got, err)
	}
}

func TestRowDecodesLenientTimestamps(t *testing.T) {
	var rows []Row
	payload := `[
		{"chatId":"a","createdAt":"2024-01-02T03:04:05.123Z"},
		{"chatId":"b","createdAt":""},
		{"chatId":"c","createdAt":"not a date"},
		{"chatId":"d","createdAt":null}
	]`
	if err := json.Unmarshal([]byte(payload), &rows); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rows[0].CreatedAt.IsZero() {
		t.Fatalf("expected a parsed timestamp for a")
	}
	for _, r := range rows[1:] {
		if !r.CreatedAt.IsZero() {
			t.Fatalf("expected zero time for %s, got %v", r.ChatID, r.CreatedAt)
		}
	}
}
