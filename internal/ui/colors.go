package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF5F87", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title  lipgloss.Style
	ok     lipgloss.Style
	err    lipgloss.Style
	warn   lipgloss.Style
	help   lipgloss.Style
	muted  lipgloss.Style
	tab    lipgloss.Style
	active lipgloss.Style
	sheet  lipgloss.Style
	fill   lipgloss.Style
}

func NewPalette(accent, success, failure, warning, subtle string) *Palette {
	return &Palette{
		title:  NewBold(accent).MarginBottom(1),
		ok:     NewBold(success),
		err:    NewBold(failure),
		warn:   NewStyle(warning),
		help:   NewEm(subtle),
		muted:  NewStyle(subtle),
		tab:    NewStyle(subtle).Padding(0, 1),
		active: NewBold("#FFFFFF").Background(lipgloss.Color(accent)).Padding(0, 1),
		sheet: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true, false, false, false).
			BorderForeground(lipgloss.Color(accent)),
		fill: NewStyle(accent),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
