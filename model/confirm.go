package model

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/miosa/modq/board"
	"github.com/miosa/modq/markdown"
	"github.com/miosa/modq/paging"
	"github.com/miosa/modq/style"
)

// Decision is emitted when the user confirms or cancels a moderation action.
type Decision struct {
	ID     string
	Action paging.Action // empty when cancelled
}

// Cancelled reports whether the panel was dismissed.
func (d Decision) Cancelled() bool { return d.Action == "" }

var confirmOptions = []string{"Approve", "Reject", "Cancel"}

// ConfirmModel renders an approve/reject/cancel selector over one row.
// It is inactive until Open is called.
type ConfirmModel struct {
	row      board.Row
	active   bool
	selected int // 0=Approve, 1=Reject, 2=Cancel
	width    int
}

// NewConfirm returns an inactive panel.
func NewConfirm() ConfirmModel {
	return ConfirmModel{}
}

// Open activates the panel for row with action preselected.
func (m *ConfirmModel) Open(row board.Row, action paging.Action) {
	m.row = row
	m.active = true
	m.selected = 0
	if action == paging.ActionReject {
		m.selected = 1
	}
}

// Clear deactivates the panel.
func (m *ConfirmModel) Clear() {
	m.active = false
	m.row = board.Row{}
	m.selected = 0
}

// IsActive reports whether the panel is visible.
func (m ConfirmModel) IsActive() bool {
	return m.active
}

// Selected returns the lowercase name of the highlighted option.
func (m ConfirmModel) Selected() string {
	return strings.ToLower(confirmOptions[m.selected])
}

// SetWidth constrains the panel to the terminal width.
func (m *ConfirmModel) SetWidth(w int) {
	m.width = w
}

// Init satisfies tea.Model.
func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

// Update handles keyboard input while active.
func (m ConfirmModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	if !m.active {
		return m, nil
	}
	keyMsg, ok := message.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "left", "shift+tab", "h":
		m.selected = (m.selected + len(confirmOptions) - 1) % len(confirmOptions)
	case "right", "tab", "l":
		m.selected = (m.selected + 1) % len(confirmOptions)
	case "a", "y":
		return m.decide(paging.ActionApprove)
	case "r":
		return m.decide(paging.ActionReject)
	case "enter":
		switch m.selected {
		case 0:
			return m.decide(paging.ActionApprove)
		case 1:
			return m.decide(paging.ActionReject)
		}
		return m.decide("")
	case "esc", "n", "q":
		return m.decide("")
	}
	return m, nil
}

func (m ConfirmModel) decide(action paging.Action) (tea.Model, tea.Cmd) {
	d := Decision{ID: m.row.ID, Action: action}
	m.Clear()
	return m, func() tea.Msg { return d }
}

// View renders the panel. Returns an empty string when inactive.
func (m ConfirmModel) View() string {
	if !m.active {
		return ""
	}
	innerWidth := m.width - 6
	if innerWidth < 20 {
		innerWidth = 80
	}

	var sb strings.Builder
	sb.WriteString(style.DetailTitle.Render(style.Truncate(m.row.Title, innerWidth)))
	if m.row.Subtitle != "" {
		sb.WriteString("\n" + style.RowSubtitle.Render(style.Truncate(m.row.Subtitle, innerWidth)))
	}
	if m.row.Detail != "" {
		sb.WriteString("\n\n" + markdown.RenderWidth(m.row.Detail, innerWidth))
	}
	sb.WriteString("\n\n" + buildConfirmSelector(m.selected))

	boxStyle := style.ConfirmBorder
	if m.width > 0 {
		boxStyle = boxStyle.Width(m.width - 2)
	}
	return boxStyle.Render(sb.String())
}

// buildConfirmSelector returns the option line, e.g.:
//
//	> Approve  ○ Reject  ○ Cancel
func buildConfirmSelector(selected int) string {
	var parts []string
	for i, opt := range confirmOptions {
		if i != selected {
			parts = append(parts, style.ConfirmUnselected.Render("○ "+opt))
			continue
		}
		switch i {
		case 0:
			parts = append(parts, style.ConfirmApprove.Render("> "+opt))
		case 1:
			parts = append(parts, style.ConfirmReject.Render("> "+opt))
		default:
			parts = append(parts, style.ConfirmSelected.Render("> "+opt))
		}
	}
	return strings.Join(parts, "  ")
}
