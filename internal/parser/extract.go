// Package parser turns uploaded files into displayable content: document
// text for the viewer and row/column tables for datasets.
package parser

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/file-upload-app/backend/internal/models"
)

// DocumentExtractor dispatches text extraction on the document kind.
type DocumentExtractor struct {
	logger *slog.Logger
}

// NewDocumentExtractor creates an extractor. A nil logger discards output.
func NewDocumentExtractor(logger *slog.Logger) *DocumentExtractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DocumentExtractor{logger: logger}
}

// Extract reads r to the end and returns its text. Parser errors and panics
// are folded into a failed Content; nothing escapes to the caller.
func (e *DocumentExtractor) Extract(kind models.DocumentKind, r io.Reader) (content models.Content) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("extraction panicked", "kind", kind.String(), "panic", rec)
			content = models.Failed(fmt.Sprintf("parser panicked: %v", rec))
		}
	}()

	var (
		text string
		err  error
	)
	switch kind {
	case models.KindPlainText:
		text, err = ExtractPlainText(r)
	case models.KindPDF:
		text, err = ExtractPDF(r)
	case models.KindWordDocument:
		text, err = ExtractDocx(r)
	case models.KindOther:
		return models.Unsupported()
	default:
		return models.Unsupported()
	}

	if err != nil {
		e.logger.Warn("extraction failed", "kind", kind.String(), "error", err)
		return models.Failed(err.Error())
	}
	return models.Extracted(text)
}
