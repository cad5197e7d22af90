package markdown

import (
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
)

func TestRenderKeepsText(t *testing.T) {
	out := ansi.Strip(Render("**Title:** cat ears\n\n- tag one\n- tag two"))
	assert.Contains(t, out, "Title:")
	assert.Contains(t, out, "cat ears")
	assert.Contains(t, out, "tag two")
}

func TestRenderBlankPassesThrough(t *testing.T) {
	assert.Equal(t, "  ", Render("  "))
}

func TestRenderWidthCachesRenderer(t *testing.T) {
	RenderWidth("x", 40)
	RenderWidth("y", 40)
	mu.Lock()
	n := 0
	for k := range renderers {
		if k.width == 40 {
			n++
		}
	}
	mu.Unlock()
	assert.Equal(t, 1, n)
}
