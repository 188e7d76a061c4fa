package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the bindings of the display screen
type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	Left        key.Binding
	Right       key.Binding
	ZoomIn      key.Binding
	ZoomOut     key.Binding
	Mode        key.Binding
	Interpolate key.Binding
	Step        key.Binding
	Unit        key.Binding
	Back        key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "pan north")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "pan south")),
		Left:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "pan west")),
		Right:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "pan east")),
		ZoomIn:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:     key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
		Mode:        key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "colormap/arrows")),
		Interpolate: key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "interpolation")),
		Step:        key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "sample step")),
		Unit:        key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "next unit")),
		Back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "grid list")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ZoomIn, k.ZoomOut, k.Mode, k.Unit, k.Back, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.ZoomIn, k.ZoomOut},
		{k.Mode, k.Interpolate, k.Step, k.Unit},
		{k.Back, k.Help, k.Quit},
	}
}
