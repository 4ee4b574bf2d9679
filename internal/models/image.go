package models

import (
	"strings"
	"unicode"
)

// ImageFile is an uploaded image shown in the gallery.
type ImageFile struct {
	Name        string `json:"name"`
	Caption     string `json:"caption"`
	ContentType string `json:"contentType"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	SizeBytes   int64  `json:"sizeBytes"`
	BlobID      string `json:"-"`
}

// Caption derives the gallery caption from a file name: the part before the
// first dot, with the first letter upper-cased and the rest lower-cased.
func Caption(name string) string {
	base, _, _ := strings.Cut(name, ".")
	if base == "" {
		return ""
	}
	r := []rune(strings.ToLower(base))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
