package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"code.sajari.com/docconv"
)

// ExtractDocx returns all text of a Word (.docx) document.
func ExtractDocx(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading docx: %w", err)
	}
	text, _, err := docconv.ConvertDocx(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("converting docx: %w", err)
	}
	return strings.TrimSpace(text), nil
}
