package model

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/miosa/modq/board"
	"github.com/miosa/modq/msg"
	"github.com/miosa/modq/style"
)

// QueueListModel renders the rows of the current window with a cursor and a
// scroll offset. Moving down past the last row emits msg.ReachedBottom.
type QueueListModel struct {
	rows    []board.Row
	empty   bool
	loading bool
	cursor  int
	offset  int // first visible row
	height  int // visible rows
	width   int
}

// NewQueueList returns an empty list showing 10 rows.
func NewQueueList() QueueListModel {
	return QueueListModel{height: 10, empty: true}
}

// SetRows replaces the rows. The cursor stays on the same id when it is
// still present, otherwise it is kept in range.
func (m *QueueListModel) SetRows(rows []board.Row, empty bool) {
	var selected string
	if r, ok := m.Selected(); ok {
		selected = r.ID
	}
	m.rows = rows
	m.empty = empty || len(rows) == 0
	for i, r := range rows {
		if r.ID == selected {
			m.cursor = i
			m.follow()
			return
		}
	}
	if m.cursor >= len(rows) {
		m.cursor = max(len(rows)-1, 0)
	}
	m.follow()
}

// SetLoading shows a loading row in place of "no data".
func (m *QueueListModel) SetLoading(loading bool) {
	m.loading = loading
}

// Top moves the cursor to the first row.
func (m *QueueListModel) Top() {
	m.cursor = 0
	m.offset = 0
}

// SetSize constrains the list to width x height cells.
func (m *QueueListModel) SetSize(width, height int) {
	m.width = width
	// each row takes two lines
	m.height = max(height/2, 1)
	m.follow()
}

// Selected returns the row under the cursor.
func (m QueueListModel) Selected() (board.Row, bool) {
	if m.empty || m.cursor < 0 || m.cursor >= len(m.rows) {
		return board.Row{}, false
	}
	return m.rows[m.cursor], true
}

// Cursor returns the cursor index.
func (m QueueListModel) Cursor() int { return m.cursor }

// Len returns the number of rows.
func (m QueueListModel) Len() int { return len(m.rows) }

// Init satisfies tea.Model.
func (m QueueListModel) Init() tea.Cmd {
	return nil
}

// Update handles cursor keys.
func (m QueueListModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := message.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.Type {
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
			m.follow()
		}
	case tea.KeyDown:
		if m.cursor < len(m.rows)-1 {
			m.cursor++
			m.follow()
			if m.cursor == len(m.rows)-1 {
				return m, bottom
			}
			return m, nil
		}
		return m, bottom
	case tea.KeyPgUp:
		m.cursor = max(m.cursor-m.height, 0)
		m.follow()
	case tea.KeyPgDown:
		m.cursor = max(min(m.cursor+m.height, len(m.rows)-1), 0)
		m.follow()
		if m.cursor == len(m.rows)-1 {
			return m, bottom
		}
	}
	return m, nil
}

func bottom() tea.Msg { return msg.ReachedBottom{} }

func (m *QueueListModel) follow() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// View renders the visible rows.
func (m QueueListModel) View() string {
	if m.empty {
		if m.loading {
			return style.EmptyRow.Render("  loading…")
		}
		return style.EmptyRow.Render("  no data")
	}

	width := m.width
	if width <= 0 {
		width = 80
	}
	end := min(m.offset+m.height, len(m.rows))

	var sb strings.Builder
	if m.offset > 0 {
		sb.WriteString(style.RowMore.Render("  ↑ more above") + "\n")
	}
	for i := m.offset; i < end; i++ {
		sb.WriteString(m.renderRow(m.rows[i], i == m.cursor, width))
		sb.WriteString("\n")
	}
	if end < len(m.rows) {
		sb.WriteString(style.RowMore.Render("  ↓ more below") + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m QueueListModel) renderRow(r board.Row, isCursor bool, width int) string {
	cursor := "    "
	title := style.RowTitle
	if isCursor {
		cursor = style.RowCursor.Render("  > ")
		title = title.Bold(true)
	}
	line := cursor + title.Render(style.Truncate(r.Title, width-4))
	sub := "    " + style.RowSubtitle.Render(style.Truncate(r.Subtitle, width-4))
	return line + "\n" + sub
}
