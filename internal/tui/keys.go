package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines keybindings for the stream viewer.
type KeyMap struct {
	Quit key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "stop"),
		),
	}
}
