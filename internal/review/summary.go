package review

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMessageBudget is the character budget of a manual message including the
// selection context appended to it.
const DefaultMessageBudget = 8912

const manualContextHeader = "\n\nSelected chats context:\n"

var (
	ErrEmptyMessage   = errors.New("enter a message before sending")
	ErrMessageTooLong = errors.New("message exceeds the character budget")
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	sentenceRe   = regexp.MustCompile(`[.!?]\s`)
)

// SelectionSummary digests every selected chat into at most budget characters.
// When the digest has to be cut, a marker naming how many chats made it in is
// appended; the marker counts toward the budget.
func (t *Table) SelectionSummary(budget int) string {
	return Summarize(t.selected.Rows(), budget)
}

// SelectionPreview lists every selected chat with full prompt and response text.
func (t *Table) SelectionPreview() string {
	rows := t.selected.Rows()
	blocks := make([]string, 0, len(rows))
	for _, r := range rows {
		blocks = append(blocks, formatBlock(r, valueOr(r.Prompt, "(empty)"), valueOr(r.Response, "(empty)")))
	}
	return strings.Join(blocks, "\n\n")
}

// ComposeManualMessage appends the selection summary to text so that the result fits
// in budget characters.
func (t *Table) ComposeManualMessage(text string, budget int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	used := utf8.RuneCountInString(text)
	if used > budget {
		return "", fmt.Errorf("%w: %d > %d characters", ErrMessageTooLong, used, budget)
	}
	if t.selected.Len() == 0 {
		return text, nil
	}
	room := budget - used - utf8.RuneCountInString(manualContextHeader)
	summary := t.SelectionSummary(room)
	if summary == "" {
		return text, nil
	}
	return text + manualContextHeader + summary, nil
}

// Summarize builds the bounded digest for rows in the order given.
func Summarize(rows []Row, budget int) string {
	if budget <= 0 || len(rows) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(rows))
	for _, r := range rows {
		blocks = append(blocks, formatBlock(r, firstSentence(r.Prompt), firstSentence(r.Response)))
	}
	full := strings.Join(blocks, "\n\n")
	if utf8.RuneCountInString(full) <= budget {
		return full
	}

	// Reserve room for the widest marker this selection can produce.
	reserve := utf8.RuneCountInString(truncationMarker(len(rows), len(rows)))
	keep := budget - reserve
	if keep <= 0 {
		return takeRunes(strings.TrimSpace(truncationMarker(0, len(rows))), budget)
	}
	head := strings.TrimRight(takeRunes(full, keep), " \n")
	shown := 0
	start := 0
	for _, b := range blocks {
		if start+len(b) > len(head) {
			break
		}
		shown++
		start += len(b) + len("\n\n")
	}
	return head + truncationMarker(shown, len(rows))
}

func truncationMarker(shown, total int) string {
	return fmt.Sprintf("\n\n[summary truncated: %d of %d chats shown]", shown, total)
}

func formatBlock(r Row, prompt, response string) string {
	created := "(unknown)"
	if !r.CreatedAt.IsZero() {
		created = FormatTime(r.CreatedAt.Time)
	}
	return strings.Join([]string{
		"### Chat " + valueOr(r.ChatID, "(unknown)"),
		"- Prompt: " + prompt,
		"- Response: " + response,
		"- Created At: " + created,
		"- Session ID: " + valueOr(r.SessionID, "(none)"),
	}, "\n")
}

// firstSentence collapses whitespace and keeps the first sentence of text.
func firstSentence(text string) string {
	if text == "" {
		return "(missing)"
	}
	normalized := strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	if normalized == "" {
		return "(empty)"
	}
	if loc := sentenceRe.FindStringIndex(normalized); loc != nil {
		return normalized[:loc[0]+1]
	}
	return normalized
}

func takeRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func valueOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
