package impl

import (
	"net/http"
)

var allowedImageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
}

// detectImageType sniffs data and reports whether it is an accepted profile image.
func detectImageType(data []byte) (contentType, ext string, ok bool) {
	contentType = http.DetectContentType(data)
	ext, ok = allowedImageTypes[contentType]

	return contentType, ext, ok
}
