package model

import (
	"fmt"
	"strings"

	"github.com/miosa/modq/paging"
	"github.com/miosa/modq/style"
)

// MobileWidth is the terminal width below which the page bar uses the
// three-button layout.
const MobileWidth = 80

// PageBarModel renders « ‹ [4] 5 6 … › » for page mode.
type PageBarModel struct {
	nav    paging.Navigator
	width  int
	forced bool
}

// NewPageBar returns an empty page bar.
func NewPageBar() PageBarModel {
	return PageBarModel{width: MobileWidth}
}

// SetNavigator replaces the page arithmetic.
func (m *PageBarModel) SetNavigator(n paging.Navigator) {
	m.nav = n
}

// SetWidth picks the layout.
func (m *PageBarModel) SetWidth(w int) {
	m.width = w
}

// ForceMobile keeps the compact layout regardless of width.
func (m *PageBarModel) ForceMobile(on bool) {
	m.forced = on
}

// Mobile reports whether the compact layout is active.
func (m PageBarModel) Mobile() bool {
	return m.forced || m.width < MobileWidth
}

// View renders the bar.
func (m PageBarModel) View() string {
	max := m.nav.MaxPage()
	page := m.nav.Clamp(m.nav.Page)
	atFirst := page <= 1
	atLast := page >= max

	var parts []string
	parts = append(parts, button("«", atFirst), button("‹", atFirst))

	buttons := m.nav.Buttons(m.Mobile())
	if len(buttons) > 0 && buttons[0] > 1 {
		parts = append(parts, style.PageDisabled.Render("…"))
	}
	for _, p := range buttons {
		if p == page {
			parts = append(parts, style.PageCurrent.Render(fmt.Sprintf("[%d]", p)))
			continue
		}
		parts = append(parts, style.PageButton.Render(fmt.Sprint(p)))
	}
	if len(buttons) > 0 && buttons[len(buttons)-1] < max {
		parts = append(parts, style.PageDisabled.Render("…"))
	}

	parts = append(parts, button("›", atLast), button("»", atLast))
	label := fmt.Sprintf("page %d/%s", page, maxLabel(max))
	return "  " + strings.Join(parts, " ") + "  " + style.Faint.Render(label)
}

func button(s string, disabled bool) string {
	if disabled {
		return style.PageDisabled.Render(s)
	}
	return style.PageButton.Render(s)
}

func maxLabel(max int) string {
	if max == paging.UnknownMaxPage {
		return "?"
	}
	return fmt.Sprint(max)
}
