// Package ingestion turns uploaded resume files into clean text.
package ingestion

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"

	"github.com/jonathan/interview-assistant/internal/fallback"
	"github.com/jonathan/interview-assistant/internal/types"
)

// ErrUnsupportedFormat is returned for files that are not PDF or DOCX.
var ErrUnsupportedFormat = errors.New("unsupported file format, expected PDF or DOCX")

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// convert extracts plain text from a document. Replaced in tests.
var convert = func(r io.Reader, mimeType string) (string, error) {
	res, err := docconv.Convert(r, mimeType, false)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}

// Resume is the result of ingesting one resume file.
type Resume struct {
	FileName string
	Text     string
	// Contact is only set when Placeholder is true; real resumes go through
	// contact extraction afterwards.
	Contact     types.ContactInfo
	Placeholder bool
	Metadata    *Metadata
}

// MimeType returns the MIME type for a supported resume file name.
func MimeType(fileName string) (string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return mimePDF, nil
	case ".docx":
		return mimeDOCX, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// ExtractResume extracts and cleans the text of a PDF or DOCX resume. When
// the document cannot be parsed a placeholder resume is returned instead of
// an error, so the interview can still go ahead.
func ExtractResume(fileName string, data []byte) (*Resume, error) {
	mimeType, err := MimeType(fileName)
	if err != nil {
		return nil, err
	}

	text, err := safeConvert(data, mimeType)
	if err != nil {
		contact := fallback.PlaceholderContact(fileName)
		return &Resume{
			FileName:    fileName,
			Text:        contact.ResumeText,
			Contact:     contact,
			Placeholder: true,
			Metadata:    NewMetadata(fileName, mimeType, int64(len(data)), contact.ResumeText, true),
		}, nil
	}

	cleaned := CleanText(text)
	return &Resume{
		FileName: fileName,
		Text:     cleaned,
		Metadata: NewMetadata(fileName, mimeType, int64(len(data)), cleaned, false),
	}, nil
}

// ParseError reports why a document could not be converted. It is only
// surfaced in logs; ExtractResume falls back to a placeholder.
type ParseError struct {
	MimeType string
	Cause    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s document: %v", e.MimeType, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

func safeConvert(data []byte, mimeType string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ParseError{MimeType: mimeType, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	text, err = convert(bytes.NewReader(data), mimeType)
	if err != nil {
		return "", &ParseError{MimeType: mimeType, Cause: err}
	}
	return text, nil
}
