// Package style holds the palette and lipgloss styles shared by the TUI.
package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Colors. SetTheme replaces them.
var (
	Primary   = darkTheme.Primary
	Secondary = darkTheme.Secondary
	Success   = darkTheme.Success
	Warning   = darkTheme.Warning
	Error     = darkTheme.Error
	Muted     = darkTheme.Muted
	Dim       = darkTheme.Dim
	Border    = darkTheme.Border
	Approve   = darkTheme.Approve
	Reject    = darkTheme.Reject
)

// Styles, rebuilt by SetTheme.
var (
	Bold      lipgloss.Style
	Faint     lipgloss.Style
	ErrorText lipgloss.Style
	Hint      lipgloss.Style

	// Header and queue tabs
	HeaderTitle lipgloss.Style
	TabActive   lipgloss.Style
	TabInactive lipgloss.Style
	TabCount    lipgloss.Style

	// Queue list
	RowCursor   lipgloss.Style
	RowTitle    lipgloss.Style
	RowSubtitle lipgloss.Style
	RowMore     lipgloss.Style
	EmptyRow    lipgloss.Style

	// Page bar
	PageButton   lipgloss.Style
	PageCurrent  lipgloss.Style
	PageDisabled lipgloss.Style

	// Status bar
	StatusBar   lipgloss.Style
	StatusValue lipgloss.Style
	StatusFlag  lipgloss.Style

	// Confirm panel
	ConfirmBorder     lipgloss.Style
	ConfirmApprove    lipgloss.Style
	ConfirmReject     lipgloss.Style
	ConfirmSelected   lipgloss.Style
	ConfirmUnselected lipgloss.Style

	// Detail view
	DetailBorder lipgloss.Style
	DetailTitle  lipgloss.Style

	// Moderation toasts
	BadgeApproved lipgloss.Style
	BadgeRejected lipgloss.Style
)

func init() {
	rebuildStyles()
}

// SetTheme applies a named theme, updating all color vars and rebuilding styles.
func SetTheme(name string) bool {
	t, ok := Themes[name]
	if !ok {
		return false
	}
	CurrentThemeName = name
	Primary = t.Primary
	Secondary = t.Secondary
	Success = t.Success
	Warning = t.Warning
	Error = t.Error
	Muted = t.Muted
	Dim = t.Dim
	Border = t.Border
	Approve = t.Approve
	Reject = t.Reject
	rebuildStyles()
	return true
}

// IsDark returns whether the current theme is dark.
func IsDark() bool {
	return CurrentThemeName != "light"
}

func rebuildStyles() {
	Bold = lipgloss.NewStyle().Bold(true)
	Faint = lipgloss.NewStyle().Foreground(Muted)
	ErrorText = lipgloss.NewStyle().Foreground(Error).Bold(true)
	Hint = lipgloss.NewStyle().Foreground(Dim)

	HeaderTitle = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	TabActive = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true).
		Underline(true).
		Padding(0, 1)
	TabInactive = lipgloss.NewStyle().
		Foreground(Muted).
		Padding(0, 1)
	TabCount = lipgloss.NewStyle().Foreground(Secondary)

	RowCursor = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	RowTitle = lipgloss.NewStyle()
	RowSubtitle = lipgloss.NewStyle().Foreground(Muted)
	RowMore = lipgloss.NewStyle().Foreground(Muted)
	EmptyRow = lipgloss.NewStyle().Foreground(Muted).Italic(true)

	PageButton = lipgloss.NewStyle().Foreground(Secondary)
	PageCurrent = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	PageDisabled = lipgloss.NewStyle().Foreground(Dim)

	StatusBar = lipgloss.NewStyle().
		Foreground(Muted).
		PaddingLeft(1)
	StatusValue = lipgloss.NewStyle().Foreground(Secondary)
	StatusFlag = lipgloss.NewStyle().Foreground(Warning)

	ConfirmBorder = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)
	ConfirmApprove = lipgloss.NewStyle().Foreground(Approve).Bold(true)
	ConfirmReject = lipgloss.NewStyle().Foreground(Reject).Bold(true)
	ConfirmSelected = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	ConfirmUnselected = lipgloss.NewStyle().Foreground(Muted)

	DetailBorder = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
	DetailTitle = lipgloss.NewStyle().Foreground(Primary).Bold(true)

	BadgeApproved = badge(Approve)
	BadgeRejected = badge(Reject)
}

func badge(bg lipgloss.Color) lipgloss.Style {
	fg := lipgloss.Color("#0B0B0B")
	if !IsDark() {
		fg = lipgloss.Color("#FFFFFF")
	}
	return lipgloss.NewStyle().Background(bg).Foreground(fg).Bold(true).Padding(0, 1)
}

// Truncate shortens s to width cells, ending with an ellipsis when cut.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

// Rule draws a horizontal separator.
func Rule(width int) string {
	if width <= 0 {
		return ""
	}
	return Hint.Render(strings.Repeat("─", width))
}
