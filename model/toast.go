package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/miosa/modq/style"
)

// ToastLevel classifies a toast. The moderation levels render as a colored
// verdict badge instead of an icon.
type ToastLevel int

const (
	ToastInfo ToastLevel = iota
	ToastWarning
	ToastError
	ToastApproved
	ToastRejected
)

const (
	maxToasts = 3
	toastTTL  = 4 * time.Second
	// failures stay up long enough to read the server message
	errorTTL = 2 * toastTTL
)

type toast struct {
	message string
	level   ToastLevel
	count   int
	expiry  time.Time
}

// ToastsModel is a short stack of auto-dismissing notifications. Repeating
// the newest toast bumps its counter instead of stacking a copy.
type ToastsModel struct {
	queue []toast
	now   func() time.Time
}

// NewToasts creates an empty ToastsModel. now defaults to time.Now.
func NewToasts(now func() time.Time) ToastsModel {
	if now == nil {
		now = time.Now
	}
	return ToastsModel{now: now}
}

// Add shows message. Beyond maxToasts the oldest is dropped.
func (m *ToastsModel) Add(message string, level ToastLevel) {
	expiry := m.now().Add(ttlFor(level))
	if n := len(m.queue); n > 0 {
		last := &m.queue[n-1]
		if last.message == message && last.level == level {
			last.count++
			last.expiry = expiry
			return
		}
	}
	m.queue = append(m.queue, toast{message: message, level: level, count: 1, expiry: expiry})
	if len(m.queue) > maxToasts {
		m.queue = m.queue[len(m.queue)-maxToasts:]
	}
}

// Verdict shows the outcome of a moderation action on id.
func (m *ToastsModel) Verdict(approved bool, queue, id string) {
	level := ToastRejected
	if approved {
		level = ToastApproved
	}
	m.Add(fmt.Sprintf("%s · %s", id, queue), level)
}

// Tick prunes expired toasts. Call on every msg.TickMsg.
func (m *ToastsModel) Tick() {
	now := m.now()
	alive := m.queue[:0]
	for _, t := range m.queue {
		if now.Before(t.expiry) {
			alive = append(alive, t)
		}
	}
	m.queue = alive
}

// HasToasts reports whether any toasts are visible.
func (m ToastsModel) HasToasts() bool {
	return len(m.queue) > 0
}

// View renders visible toasts right-aligned, newest last.
func (m ToastsModel) View(termWidth int) string {
	if len(m.queue) == 0 {
		return ""
	}
	var lines []string
	for _, t := range m.queue {
		rendered := renderToast(t)
		pad := max(termWidth-lipgloss.Width(rendered), 0)
		lines = append(lines, strings.Repeat(" ", pad)+rendered)
	}
	return strings.Join(lines, "\n")
}

func renderToast(t toast) string {
	text := t.message
	if t.count > 1 {
		text += fmt.Sprintf(" ×%d", t.count)
	}
	switch t.level {
	case ToastApproved:
		return style.BadgeApproved.Render("APPROVED") + text + " "
	case ToastRejected:
		return style.BadgeRejected.Render("REJECTED") + text + " "
	}
	icon, color := toastIconColor(t.level)
	return lipgloss.NewStyle().Foreground(color).Render(fmt.Sprintf(" %s %s ", icon, text))
}

func ttlFor(level ToastLevel) time.Duration {
	if level == ToastError {
		return errorTTL
	}
	return toastTTL
}

func toastIconColor(level ToastLevel) (string, lipgloss.TerminalColor) {
	switch level {
	case ToastWarning:
		return "⚠", style.Warning // ⚠
	case ToastError:
		return "✘", style.Error // ✘
	default:
		return "✓", style.Success // ✓
	}
}
