package review

import "sort"

// SelectionSet maps chat IDs to the row detail captured when they were selected.
// Entries outlive the page they were selected on.
type SelectionSet struct {
	rows map[string]Row
}

func NewSelectionSet() *SelectionSet {
	return &SelectionSet{rows: make(map[string]Row)}
}

// Add records row under its chat ID. Rows without an ID are ignored.
func (s *SelectionSet) Add(row Row) bool {
	if row.ChatID == "" {
		return false
	}
	s.rows[row.ChatID] = row
	return true
}

func (s *SelectionSet) Remove(chatID string) {
	delete(s.rows, chatID)
}

func (s *SelectionSet) Has(chatID string) bool {
	_, ok := s.rows[chatID]
	return ok
}

func (s *SelectionSet) Get(chatID string) (Row, bool) {
	row, ok := s.rows[chatID]
	return row, ok
}

func (s *SelectionSet) Len() int {
	return len(s.rows)
}

func (s *SelectionSet) Clear() {
	s.rows = make(map[string]Row)
}

// Rows returns the selected rows newest first. Rows with an unknown creation time
// sort last; ties break on chat ID so the order is stable.
func (s *SelectionSet) Rows() []Row {
	out := make([]Row, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt.Time) {
			return a.CreatedAt.After(b.CreatedAt.Time)
		}
		return a.ChatID < b.ChatID
	})
	return out
}

func (s *SelectionSet) IDs() []string {
	ids := make([]string, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
