package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
)

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	Tab         key.Binding
	NextPage    key.Binding
	PrevPage    key.Binding
	Smaller     key.Binding
	Larger      key.Binding
	SortChatID  key.Binding
	SortPrompt  key.Binding
	SortCreated key.Binding
	SortSession key.Binding
	ToggleRow   key.Binding
	TogglePage  key.Binding
	SelectAll   key.Binding
	ClearAll    key.Binding
	Search      key.Binding
	Reload      key.Binding
	Compose     key.Binding
	Send        key.Binding
	ClearDraft  key.Binding
	Esc         key.Binding
	Copy        key.Binding
	Export      key.Binding
	Quit        key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "toggle focus"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "prev page"),
		),
		Smaller: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "fewer rows"),
		),
		Larger: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "more rows"),
		),
		SortChatID: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "sort chat id"),
		),
		SortPrompt: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "sort prompt"),
		),
		SortCreated: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "sort created"),
		),
		SortSession: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "sort session"),
		),
		ToggleRow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "select row"),
		),
		TogglePage: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "select page"),
		),
		SelectAll: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "select all matching"),
		),
		ClearAll: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "deselect all"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Compose: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "manual message"),
		),
		Send: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "send"),
		),
		ClearDraft: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "clear message and selection"),
		),
		Esc: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy summary"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export markdown"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.ToggleRow, k.TogglePage, k.NextPage, k.PrevPage, k.Search, k.Compose, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Tab, k.NextPage, k.PrevPage, k.Smaller, k.Larger},
		{k.SortChatID, k.SortPrompt, k.SortCreated, k.SortSession, k.Search, k.Reload},
		{k.ToggleRow, k.TogglePage, k.SelectAll, k.ClearAll, k.Compose, k.Copy, k.Export, k.Quit},
	}
}

// composeHelp is shown while the manual message editor is open.
type composeHelp struct{ k keyMap }

func (c composeHelp) ShortHelp() []key.Binding {
	return []key.Binding{c.k.Send, c.k.ClearDraft, c.k.Esc}
}

func (c composeHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{c.ShortHelp()}
}

// tableKeys keeps only cursor movement on the table so selection and paging
// keys reach the model.
func tableKeys() table.KeyMap {
	km := table.DefaultKeyMap()
	km.PageUp = key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up"))
	km.PageDown = key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down"))
	km.HalfPageUp = key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("ctrl+u", "½ page up"))
	km.HalfPageDown = key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "½ page down"))
	return km
}
