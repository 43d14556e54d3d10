package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Pause   key.Binding
	Resume  key.Binding
	Stop    key.Binding
	Save    key.Binding
	Predict key.Binding
	Dismiss key.Binding
	Yes     key.Binding
	No      key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Pause:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		Resume:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resume")),
		Stop:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		Save:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "save model")),
		Predict: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "evaluate")),
		Dismiss: key.NewBinding(key.WithKeys("d", "esc", "enter"), key.WithHelp("d", "dismiss")),
		Yes:     key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "confirm")),
		No:      key.NewBinding(key.WithKeys("n", "N", "esc", "enter"), key.WithHelp("n", "cancel")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Resume, k.Stop, k.Save, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pause, k.Resume, k.Stop},
		{k.Save, k.Predict, k.Dismiss},
		{k.Help, k.Quit},
	}
}
