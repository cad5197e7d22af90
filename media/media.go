// Package media classifies board attachments by file name and turns images
// into terminal previews.
package media

import (
	"net/url"
	"path"
	"strings"
)

// Kind is the broad category of an attachment.
type Kind string

const (
	KindImage   Kind = "image"
	KindGIF     Kind = "gif"
	KindVideo   Kind = "video"
	KindAudio   Kind = "audio"
	KindModel   Kind = "model"
	KindLive2D  Kind = "live2d"
	KindUnknown Kind = "unknown"
)

var extensions = map[string]Kind{
	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
	".webp": KindImage,
	".avif": KindImage,
	".gif":  KindGIF,
	".mp4":  KindVideo,
	".webm": KindVideo,
	".mov":  KindVideo,
	".mkv":  KindVideo,
	".mp3":  KindAudio,
	".wav":  KindAudio,
	".ogg":  KindAudio,
	".flac": KindAudio,
	".aac":  KindAudio,
	".glb":  KindModel,
	".gltf": KindModel,
	".fbx":  KindModel,
	".vrm":  KindModel,
	".obj":  KindModel,
	".zip":  KindLive2D,
}

// KindOf classifies a file name, a bare extension, a URL or a data URI.
func KindOf(file string) Kind {
	if file == "" {
		return KindUnknown
	}
	if i := strings.IndexByte(file, '?'); i >= 0 {
		file = file[:i]
	}
	switch {
	case strings.HasPrefix(file, "data:image/gif"):
		return KindGIF
	case strings.HasPrefix(file, "data:image"):
		return KindImage
	case strings.HasPrefix(file, "blob:"):
		// blob URLs carry the extension after '#'
		_, ext, _ := strings.Cut(file, "#")
		file = ext
	}
	ext := file
	if !strings.HasPrefix(file, ".") {
		if u, err := url.Parse(file); err == nil && u.Path != "" {
			file = u.Path
		}
		ext = path.Ext(file)
	}
	if k, ok := extensions[strings.ToLower(ext)]; ok {
		return k
	}
	return KindUnknown
}

func IsImage(file string) bool  { return KindOf(file) == KindImage }
func IsGIF(file string) bool    { return KindOf(file) == KindGIF }
func IsVideo(file string) bool  { return KindOf(file) == KindVideo }
func IsAudio(file string) bool  { return KindOf(file) == KindAudio }
func IsModel(file string) bool  { return KindOf(file) == KindModel }
func IsLive2D(file string) bool { return KindOf(file) == KindLive2D }

// Previewable reports whether Thumbnail can decode the file. webp and avif
// have no registered decoder.
func Previewable(file string) bool {
	switch KindOf(file) {
	case KindGIF:
		return true
	case KindImage:
		return !strings.HasPrefix(file, "data:image/webp") && !strings.HasPrefix(file, "data:image/avif") &&
			!IsExt(file, ".webp") && !IsExt(file, ".avif")
	}
	return false
}

// IsExt reports whether file ends in ext, ignoring case and any query string.
func IsExt(file, ext string) bool {
	if i := strings.IndexByte(file, '?'); i >= 0 {
		file = file[:i]
	}
	return strings.EqualFold(path.Ext(file), ext)
}
