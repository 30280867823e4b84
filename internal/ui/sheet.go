package ui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/musix/internal/player"
)

// CellHeight is the number of pixels one terminal row stands for when mouse rows
// are fed to [player.Sheet].
const CellHeight = 16

// buttonWidth is the width of the play/pause control at the left of the bar.
const buttonWidth = 5

// sheetRows returns the number of rows the now-playing sheet occupies.
func (m *Model) sheetRows() int {
	if !m.sheet.Visible() {
		return 0
	}
	full := float64(m.height * CellHeight)
	rows := int(math.Ceil(m.sheet.Height(full) / CellHeight))
	return max(player.BarHeight/CellHeight, min(rows, m.height))
}

// sheetTop returns the first row of the sheet.
func (m *Model) sheetTop() int {
	return m.height - m.sheetRows()
}

// handleMouse converts terminal mouse events into sheet pointer gestures.
func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	y := float64(msg.Y * CellHeight)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || !m.sheet.Visible() || msg.Y < m.sheetTop() {
			return nil
		}
		onButton := msg.Y == m.sheetTop()+1 && msg.X < buttonWidth
		if onButton {
			m.store.TogglePlaying()
		}
		m.sheet.PointerDown(y, onButton)

	case tea.MouseActionMotion:
		if !m.sheet.Dragging() {
			return nil
		}
		if msg.Button == tea.MouseButtonNone {
			// released somewhere the terminal did not report
			m.sheet.PointerLeave()
			return nil
		}
		m.sheet.PointerMove(y)

	case tea.MouseActionRelease:
		m.sheet.PointerUp()
	}
	return nil
}

func (m *Model) renderSheet() string {
	state := m.state
	if state.CurrentTrack == nil {
		return ""
	}
	rows := m.sheetRows()
	width := max(m.width, 20)
	track := state.CurrentTrack

	button := " ▶  "
	switch {
	case state.IsLoadingAudio:
		button = " …  "
	case state.IsPlaying:
		button = " ❚❚ "
	}

	elapsed := player.FormatTime(state.PlaybackPositionSeconds)
	total := player.FormatTime(track.DurationSeconds)
	title := track.Title
	if track.Artist != "" {
		title = fmt.Sprintf("%s • %s", track.Title, styles.muted.Render(track.Artist))
	}

	bar := lipgloss.JoinHorizontal(lipgloss.Top,
		styles.active.Render(button),
		" ",
		lipgloss.NewStyle().Width(max(width-buttonWidth-14, 1)).MaxWidth(max(width-buttonWidth-14, 1)).Render(title),
		styles.muted.Render(fmt.Sprintf(" %s / %s", elapsed, total)),
	)
	lines := []string{bar, progressBar(state.Progress(), width)}

	if state.IsExpanded && rows > 4 {
		body := []string{
			"",
			styles.title.Render(track.Title),
			track.Artist,
			styles.muted.Render(track.CoverURL),
			"",
			styles.help.Render("drag down or press p to collapse"),
		}
		for _, line := range body {
			if len(lines) >= rows-1 {
				break
			}
			lines = append(lines, line)
		}
	}

	return styles.sheet.Width(width).Render(strings.Join(lines, "\n"))
}

func progressBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(math.Round(percent / 100 * float64(width)))
	filled = max(0, min(filled, width))
	return styles.fill.Render(strings.Repeat("━", filled)) + styles.muted.Render(strings.Repeat("─", width-filled))
}
