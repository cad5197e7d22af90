package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		file string
		want Kind
	}{
		{"png", "1-0-cat.png", KindImage},
		{"upper case", "CAT.JPG", KindImage},
		{"query stripped", "/unverified/image/1-0-a.webp?hash=abc", KindImage},
		{"gif", "dance.gif", KindGIF},
		{"gif data uri", "data:image/gif;base64,R0lG", KindGIF},
		{"png data uri", "data:image/png;base64,iVBO", KindImage},
		{"blob", "blob:http://x/1234#.mp4", KindVideo},
		{"bare extension", ".flac", KindAudio},
		{"model", "robot.vrm", KindModel},
		{"live2d", "rig.zip", KindLive2D},
		{"unknown", "notes.txt", KindUnknown},
		{"empty", "", KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.file); got != tt.want {
				t.Errorf("KindOf(%q) = %q, want %q", tt.file, got, tt.want)
			}
		})
	}
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsVideo("a.webm"))
	assert.True(t, IsAudio("a.mp3"))
	assert.True(t, IsModel("a.glb"))
	assert.True(t, IsLive2D("a.zip"))
	assert.True(t, IsGIF("a.gif"))
	assert.False(t, IsImage("a.gif"))
	assert.True(t, Previewable("a.gif"))
	assert.False(t, Previewable("a.mp4"))
	assert.True(t, Previewable("/unverified/image/p1-0-a.PNG"))
	assert.False(t, Previewable("/image/p1-0-a.webp"))
	assert.True(t, IsExt("a.JPG?x=1", ".jpg"))
}

func encodePNG(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func TestThumbnailFits(t *testing.T) {
	img, err := Thumbnail(encodePNG(t, 200, 100), 40, 40)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())
}

func TestThumbnailRejectsGarbage(t *testing.T) {
	_, err := Thumbnail(strings.NewReader("not an image"), 10, 10)
	assert.Error(t, err)
}

func TestBlocksShape(t *testing.T) {
	img, err := Thumbnail(encodePNG(t, 64, 64), 64, 64)
	require.NoError(t, err)

	out := Blocks(img, 8)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 4)
	for _, l := range lines {
		assert.Equal(t, 8, strings.Count(l, "▀"))
	}
	assert.Empty(t, Blocks(nil, 8))
}
