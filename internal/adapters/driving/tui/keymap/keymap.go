// Package keymap defines keybindings for the terminal views.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the progress view bindings.
type KeyMap struct {
	// Cancel stops a running batch.
	Cancel key.Binding

	// Quit leaves the view once the batch has finished.
	Quit key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Cancel: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("ctrl+c", "cancel batch"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "enter"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown while the batch runs.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Cancel}
}

// FullHelp returns every binding.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Cancel, k.Quit}}
}

// Matches checks if a key string matches a binding.
func Matches(keyStr string, binding key.Binding) bool {
	for _, k := range binding.Keys() {
		if k == keyStr {
			return true
		}
	}
	return false
}
