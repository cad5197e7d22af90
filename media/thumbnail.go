package media

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	// decoders for the formats the board serves
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/charmbracelet/lipgloss"
	"github.com/disintegration/imaging"
)

// Thumbnail decodes r and scales it to fit inside w x h, keeping the aspect
// ratio.
func Thumbnail(r io.Reader, w, h int) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if w <= 0 || h <= 0 {
		return img, nil
	}
	return imaging.Fit(img, w, h, imaging.Lanczos), nil
}

// Blocks renders img as rows of upper half blocks, two pixel rows per text
// line, scaled to cols columns.
func Blocks(img image.Image, cols int) string {
	if img == nil || cols <= 0 {
		return ""
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return ""
	}
	rows := b.Dy() * cols / b.Dx()
	if rows < 2 {
		rows = 2
	}
	scaled := imaging.Resize(img, cols, rows, imaging.Box)

	var sb strings.Builder
	sb.Grow(cols * rows * 8)
	for y := 0; y < rows; y += 2 {
		for x := 0; x < cols; x++ {
			top := scaled.At(x, y)
			bottom := top
			if y+1 < rows {
				bottom = scaled.At(x, y+1)
			}
			cell := lipgloss.NewStyle().
				Foreground(hex(top)).
				Background(hex(bottom))
			sb.WriteString(cell.Render("▀"))
		}
		if y+2 < rows {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func hex(c color.Color) lipgloss.Color {
	r, g, b, _ := c.RGBA()
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))
}
