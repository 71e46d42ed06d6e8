package db

import (
	"path/filepath"
	"strings"
)

// ClassifyMediaType picks the catalog media type for a downloaded file. The
// handler's is_video signal wins when present; otherwise the file extension
// decides. Everything unrecognized stays "video", the dominant case.
func ClassifyMediaType(path string, isVideo, hasIsVideo bool) string {
	if hasIsVideo && !isVideo {
		return "image"
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".m4a", ".aac", ".opus", ".ogg", ".flac", ".wav":
		return "audio"
	case ".jpg", ".jpeg", ".png", ".webp", ".gif", ".avif":
		return "image"
	case ".json":
		return "animation"
	}
	return "video"
}
