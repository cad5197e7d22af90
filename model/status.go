package model

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/miosa/modq/paging"
	"github.com/miosa/modq/style"
)

// StatusModel renders the bottom status line:
//
//	Posts · scroll · 40/130 · growing
//	Posts · page 3/9 · 100/130 · exhausted
type StatusModel struct {
	queue     string
	mode      paging.Mode
	nav       paging.Navigator
	fetched   int
	growth    paging.Growth
	exhausted bool
	loading   bool
	busy      string // pending mutation label
}

// NewStatus returns a zero-value StatusModel.
func NewStatus() StatusModel {
	return StatusModel{}
}

// SetQueue updates the queue label.
func (m *StatusModel) SetQueue(title string) {
	m.queue = title
}

// SetPaging copies the engine state shown in the line.
func (m *StatusModel) SetPaging(mode paging.Mode, nav paging.Navigator, fetched int, growth paging.Growth, exhausted bool) {
	m.mode = mode
	m.nav = nav
	m.fetched = fetched
	m.growth = growth
	m.exhausted = exhausted
}

// SetLoading marks a fetch in flight.
func (m *StatusModel) SetLoading(loading bool) {
	m.loading = loading
}

// SetBusy shows a pending mutation; empty clears it.
func (m *StatusModel) SetBusy(label string) {
	m.busy = label
}

// Init satisfies tea.Model.
func (m StatusModel) Init() tea.Cmd {
	return nil
}

// Update satisfies tea.Model. StatusModel is driven entirely by setter calls.
func (m StatusModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

// View renders the status line.
func (m StatusModel) View() string {
	sep := style.Faint.Render(" · ")
	parts := []string{style.Bold.Render(m.queue), style.StatusValue.Render(m.mode.String())}

	if m.mode == paging.ModePage {
		parts[1] = style.StatusValue.Render(fmt.Sprintf("page %d/%s", m.nav.Page, maxLabel(m.nav.MaxPage())))
	}
	total := m.nav.Total
	if total == "" {
		total = "?"
	}
	parts = append(parts, style.StatusValue.Render(fmt.Sprintf("%d/%s", m.fetched, total)))

	switch {
	case m.busy != "":
		parts = append(parts, style.StatusFlag.Render(m.busy))
	case m.loading:
		parts = append(parts, style.StatusFlag.Render("loading"))
	case m.exhausted:
		parts = append(parts, style.Faint.Render("exhausted"))
	case m.mode == paging.ModeScroll && m.growth != paging.GrowthIdle:
		parts = append(parts, style.Faint.Render(m.growth.String()))
	}
	return style.StatusBar.Render(strings.Join(parts, sep))
}
