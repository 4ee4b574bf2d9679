package models

import (
	"fmt"
	"math"
	"mime"
	"strings"
)

// Declared types of the supported document formats.
const (
	TypePlainText = "text/plain"
	TypePDF       = "application/pdf"
	TypeDocx      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// DocumentKind selects the extraction strategy for a document.
type DocumentKind int

const (
	KindOther DocumentKind = iota
	KindPlainText
	KindPDF
	KindWordDocument
)

func (k DocumentKind) String() string {
	switch k {
	case KindPlainText:
		return "plain-text"
	case KindPDF:
		return "pdf"
	case KindWordDocument:
		return "word-document"
	default:
		return "other"
	}
}

// KindFromDeclaredType maps a MIME-like declared type to a DocumentKind.
// Media type parameters such as charset are ignored.
func KindFromDeclaredType(declared string) DocumentKind {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(declared))
	}
	switch mediaType {
	case TypePlainText:
		return KindPlainText
	case TypePDF:
		return KindPDF
	case TypeDocx:
		return KindWordDocument
	default:
		return KindOther
	}
}

// FileMetadata is the details panel of a document. It is computed once, on
// first ingest, and never changes afterwards.
type FileMetadata struct {
	FileName string  `json:"FileName" msgpack:"FileName"`
	FileType string  `json:"FileType" msgpack:"FileType"`
	SizeKB   float64 `json:"-" msgpack:"-"`
}

// NewFileMetadata builds the metadata of an uploaded file.
func NewFileMetadata(f UploadedFile) FileMetadata {
	return FileMetadata{
		FileName: f.Name,
		FileType: f.DeclaredType,
		SizeKB:   math.Round(float64(f.SizeBytes)/1024*100) / 100,
	}
}

// FileSize renders the size the way the details panel shows it.
func (m FileMetadata) FileSize() string {
	return fmt.Sprintf("%.2f KB", m.SizeKB)
}

// Details returns the panel fields in display order.
func (m FileMetadata) Details() []DetailField {
	return []DetailField{
		{Key: "FileName", Value: m.FileName},
		{Key: "FileType", Value: m.FileType},
		{Key: "FileSize", Value: m.FileSize()},
	}
}

// DetailField is one key/value line of the details panel.
type DetailField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ContentStatus is the state of a memoized extraction.
type ContentStatus string

const (
	ContentExtracted   ContentStatus = "extracted"
	ContentUnsupported ContentStatus = "unsupported"
	ContentFailed      ContentStatus = "failed"
)

// ReasonUnsupported is the failure reason recorded for undeclared formats.
const ReasonUnsupported = "unsupported type"

// Content is the result of extracting text from a document: either the text
// or the reason extraction failed.
type Content struct {
	Status ContentStatus `json:"status"`
	Text   string        `json:"text,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

// Extracted wraps successfully extracted text.
func Extracted(text string) Content {
	return Content{Status: ContentExtracted, Text: text}
}

// Failed records an extraction failure.
func Failed(reason string) Content {
	return Content{Status: ContentFailed, Reason: reason}
}

// Unsupported records that no extraction strategy exists for the file.
func Unsupported() Content {
	return Content{Status: ContentUnsupported, Reason: ReasonUnsupported}
}

// OK reports whether the content holds extracted text.
func (c Content) OK() bool {
	return c.Status == ContentExtracted
}
