package model

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/miosa/modq/board"
	"github.com/miosa/modq/markdown"
	"github.com/miosa/modq/style"
)

// DetailModel shows one row's markdown and, once loaded, a thumbnail of its
// first attachment in a scrollable viewport.
type DetailModel struct {
	row    board.Row
	thumb  string
	note   string // media status line
	vp     viewport.Model
	active bool
	width  int
	height int
}

// NewDetail returns an inactive detail view.
func NewDetail() DetailModel {
	return DetailModel{vp: viewport.New(80, 20)}
}

// Open shows row.
func (m *DetailModel) Open(row board.Row) {
	m.row = row
	m.thumb = ""
	m.note = ""
	m.active = true
	m.render()
	m.vp.GotoTop()
}

// Close hides the view.
func (m *DetailModel) Close() {
	m.active = false
	m.row = board.Row{}
	m.thumb = ""
	m.note = ""
}

// IsActive reports whether the view is visible.
func (m DetailModel) IsActive() bool { return m.active }

// Row returns the displayed row.
func (m DetailModel) Row() board.Row { return m.row }

// SetThumbnail attaches a rendered thumbnail when it belongs to the open row.
func (m *DetailModel) SetThumbnail(id, thumb string) {
	if !m.active || id != m.row.ID {
		return
	}
	m.thumb = thumb
	m.note = ""
	m.render()
}

// SetMediaNote replaces the thumbnail with a one-line status.
func (m *DetailModel) SetMediaNote(id, note string) {
	if !m.active || id != m.row.ID {
		return
	}
	m.note = note
	m.render()
}

// SetSize resizes the viewport.
func (m *DetailModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.vp.Width = max(width-4, 10)
	m.vp.Height = max(height-2, 3)
	m.render()
}

// ThumbColumns is the width thumbnails should be rendered at.
func (m DetailModel) ThumbColumns() int {
	return min(max(m.vp.Width/2, 16), 64)
}

func (m *DetailModel) render() {
	if !m.active {
		return
	}
	var sb strings.Builder
	sb.WriteString(style.DetailTitle.Render(m.row.Title))
	if m.row.Subtitle != "" {
		sb.WriteString("\n" + style.RowSubtitle.Render(m.row.Subtitle))
	}
	if m.thumb != "" {
		sb.WriteString("\n\n" + m.thumb)
	} else if m.note != "" {
		sb.WriteString("\n\n" + style.Faint.Render(m.note))
	}
	if m.row.Detail != "" {
		sb.WriteString("\n\n" + markdown.RenderWidth(m.row.Detail, m.vp.Width))
	}
	m.vp.SetContent(sb.String())
}

// Init satisfies tea.Model.
func (m DetailModel) Init() tea.Cmd {
	return nil
}

// Update scrolls the viewport.
func (m DetailModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	if !m.active {
		return m, nil
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(message)
	return m, cmd
}

// View renders the bordered viewport.
func (m DetailModel) View() string {
	if !m.active {
		return ""
	}
	box := style.DetailBorder
	if m.width > 0 {
		box = box.Width(m.width - 2)
	}
	return box.Render(m.vp.View())
}
