package model

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/miosa/modq/board"
	"github.com/miosa/modq/style"
)

// TabsModel renders the queue tabs with their last known totals.
type TabsModel struct {
	queues []board.Queue
	active int
	totals map[board.Queue]string
	width  int
}

// NewTabs returns tabs for every queue with the first one active.
func NewTabs() TabsModel {
	return TabsModel{queues: board.Queues(), totals: make(map[board.Queue]string)}
}

// Active returns the selected queue.
func (m TabsModel) Active() board.Queue { return m.queues[m.active] }

// Select activates q. It reports false for a queue not in the tab set.
func (m *TabsModel) Select(q board.Queue) bool {
	for i, t := range m.queues {
		if t == q {
			m.active = i
			return true
		}
	}
	return false
}

// Next moves to the following tab, wrapping around.
func (m *TabsModel) Next() board.Queue {
	m.active = (m.active + 1) % len(m.queues)
	return m.Active()
}

// Prev moves to the preceding tab, wrapping around.
func (m *TabsModel) Prev() board.Queue {
	m.active = (m.active + len(m.queues) - 1) % len(m.queues)
	return m.Active()
}

// SetTotal records the remote total reported for q.
func (m *TabsModel) SetTotal(q board.Queue, total string) {
	m.totals[q] = total
}

// SetWidth constrains the tab row.
func (m *TabsModel) SetWidth(w int) {
	m.width = w
}

// View renders the tab row. Narrow terminals show only the active tab.
func (m TabsModel) View() string {
	header := style.HeaderTitle.Render("modq")
	var tabs []string
	for i, q := range m.queues {
		label := q.Title()
		if n := m.totals[q]; n != "" && n != "0" {
			label += " " + style.TabCount.Render(n)
		}
		if i == m.active {
			tabs = append(tabs, style.TabActive.Render(label))
		} else {
			tabs = append(tabs, style.TabInactive.Render(label))
		}
	}
	row := header + " " + strings.Join(tabs, "")
	if m.width > 0 && lipgloss.Width(row) > m.width {
		row = header + " " + tabs[m.active]
	}
	return row
}
