package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the board.
type KeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding

	// Keyboard moves go through the same path as drops.
	MoveLeft  key.Binding
	MoveRight key.Binding

	Delete  key.Binding
	Refresh key.Binding

	FilterActivate key.Binding
	FilterClear    key.Binding
	FilterAccept   key.Binding
	CycleStatus    key.Binding
	CycleProject   key.Binding
	ToggleMine     key.Binding

	Quit key.Binding
}

// DefaultKeyMap uses vim-style navigation alongside the arrow keys.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Left: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h/←", "prev column"),
	),
	Right: key.NewBinding(
		key.WithKeys("l", "right"),
		key.WithHelp("l/→", "next column"),
	),
	MoveLeft: key.NewBinding(
		key.WithKeys("["),
		key.WithHelp("[", "move left"),
	),
	MoveRight: key.NewBinding(
		key.WithKeys("]"),
		key.WithHelp("]", "move right"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d", "delete"),
		key.WithHelp("d", "delete"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r", "ctrl+r"),
		key.WithHelp("r", "refresh"),
	),
	FilterActivate: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	FilterClear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "clear filter"),
	),
	FilterAccept: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "apply filter"),
	),
	CycleStatus: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "status"),
	),
	CycleProject: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "project"),
	),
	ToggleMine: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "my role"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
