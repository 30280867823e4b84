package ui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// NoticeTTL is how long a notice stays on screen.
const NoticeTTL = 3 * time.Second

const maxNotices = 3

type notice struct {
	id    int
	text  string
	isErr bool
}

// notify queues a notice and returns the command that expires it.
func (m *Model) notify(text string, isErr bool) tea.Cmd {
	m.noticeSeq++
	id := m.noticeSeq
	m.notices = append(m.notices, notice{id: id, text: text, isErr: isErr})
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
	return tea.Tick(NoticeTTL, func(time.Time) tea.Msg { return noticeExpiredMsg(id) })
}

func (m *Model) expire(id int) {
	kept := m.notices[:0]
	for _, n := range m.notices {
		if n.id != id {
			kept = append(kept, n)
		}
	}
	m.notices = kept
}

func (m *Model) renderNotices() string {
	if len(m.notices) == 0 {
		return ""
	}
	lines := make([]string, len(m.notices))
	for i, n := range m.notices {
		if n.isErr {
			lines[i] = styles.err.Render("✗ " + n.text)
		} else {
			lines[i] = styles.ok.Render("✓ " + n.text)
		}
	}
	return strings.Join(lines, "\n")
}
