// Package mediatype maps file names to MIME types by extension.
package mediatype

import (
	"mime"
	"path/filepath"
	"strings"
)

// Untyped is the content type served for blobs without a resolved type.
const Untyped = "application/octet-stream"

// known covers the media formats a video upload can carry. Go's builtin mime table does not
// list most of them and the host table varies between systems.
var known = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".ogv":  "video/ogg",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".ts":   "video/mp2t",
	".3gp":  "video/3gpp",
	".flv":  "video/x-flv",
	".m3u8": "application/vnd.apple.mpegurl",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/opus",
	".flac": "audio/flac",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Resolve returns the MIME type for fileName's extension. ok is false when the extension is
// missing or unknown.
func Resolve(fileName string) (mimeType string, ok bool) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		return "", false
	}
	if t, found := known[ext]; found {
		return t, true
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t, true
	}
	return "", false
}
