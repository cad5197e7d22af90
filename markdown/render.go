// Package markdown renders item detail markdown for the terminal.
package markdown

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/miosa/modq/style"
)

const defaultWidth = 100

var (
	mu        sync.Mutex
	renderers = map[rendererKey]*glamour.TermRenderer{}
)

type rendererKey struct {
	width int
	theme string
}

// Render converts markdown text to styled ANSI output.
// Falls back to raw text if the renderer is unavailable.
func Render(md string) string {
	return RenderWidth(md, defaultWidth)
}

// RenderWidth renders with word wrap at width. Renderers are cached per
// width and theme.
func RenderWidth(md string, width int) string {
	if strings.TrimSpace(md) == "" {
		return md
	}
	if width < 20 {
		width = defaultWidth
	}
	r, err := renderer(width)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	// glamour adds leading and trailing blank lines.
	return strings.Trim(out, "\n")
}

func renderer(width int) (*glamour.TermRenderer, error) {
	theme := "dark"
	if !style.IsDark() {
		theme = "light"
	}
	k := rendererKey{width, theme}

	mu.Lock()
	defer mu.Unlock()
	if r, ok := renderers[k]; ok {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	renderers[k] = r
	return r, nil
}
