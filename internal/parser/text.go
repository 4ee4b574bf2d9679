package parser

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned for text files that are not valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid UTF-8 text")

// ExtractPlainText decodes the whole stream as UTF-8.
func ExtractPlainText(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading text: %w", err)
	}
	if !utf8.Valid(data) {
		return "", ErrInvalidUTF8
	}
	return string(data), nil
}
