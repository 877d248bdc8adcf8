package ingestion

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubConvert replaces the document converter for the duration of the test.
func stubConvert(t *testing.T, text string, err error) *[]string {
	t.Helper()
	var seen []string
	orig := convert
	convert = func(r io.Reader, mimeType string) (string, error) {
		seen = append(seen, mimeType)
		if _, rerr := io.ReadAll(r); rerr != nil {
			return "", rerr
		}
		return text, err
	}
	t.Cleanup(func() { convert = orig })
	return &seen
}

func TestMimeType(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		want     string
		wantErr  bool
	}{
		{"pdf", "resume.pdf", mimePDF, false},
		{"upper case pdf", "RESUME.PDF", mimePDF, false},
		{"docx", "cv.docx", mimeDOCX, false},
		{"legacy doc", "cv.doc", "", true},
		{"text", "notes.txt", "", true},
		{"no extension", "resume", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MimeType(tt.fileName)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractResume_UnsupportedFormat(t *testing.T) {
	seen := stubConvert(t, "ignored", nil)

	_, err := ExtractResume("photo.png", []byte("data"))

	require.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, "unsupported file format, expected PDF or DOCX", err.Error())
	assert.Empty(t, *seen)
}

func TestExtractResume_CleansConvertedText(t *testing.T) {
	seen := stubConvert(t, "  Alice   Johnson  \r\nalice@tech.com\r\n\r\n\r\n\r\nGo developer", nil)

	resume, err := ExtractResume("alice.docx", []byte("PK"))
	require.NoError(t, err)

	assert.Equal(t, []string{mimeDOCX}, *seen)
	assert.Equal(t, "Alice Johnson\nalice@tech.com\n\nGo developer", resume.Text)
	assert.False(t, resume.Placeholder)
	assert.Empty(t, resume.Contact.Name)
	assert.Equal(t, computeHash(resume.Text), resume.Metadata.Hash)
}

func TestExtractResume_PlaceholderOnConvertError(t *testing.T) {
	stubConvert(t, "", errors.New("pdftotext: not found"))

	resume, err := ExtractResume("jane_smith.pdf", []byte("%PDF"))
	require.NoError(t, err)

	assert.True(t, resume.Placeholder)
	assert.True(t, resume.Metadata.Placeholder)
	assert.Equal(t, "Jane Smith", resume.Contact.Name)
	assert.Equal(t, resume.Contact.ResumeText, resume.Text)
}

func TestExtractResume_PlaceholderOnPanic(t *testing.T) {
	orig := convert
	convert = func(io.Reader, string) (string, error) { panic("corrupt xref table") }
	t.Cleanup(func() { convert = orig })

	resume, err := ExtractResume("resume.pdf", []byte("%PDF"))
	require.NoError(t, err)

	assert.True(t, resume.Placeholder)
	assert.Equal(t, "Demo Candidate", resume.Contact.Name)
}

func TestSafeConvert_WrapsParseError(t *testing.T) {
	cause := errors.New("bad zip")
	stubConvert(t, "", cause)

	_, err := safeConvert([]byte("x"), mimeDOCX)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, mimeDOCX, perr.MimeType)
	assert.ErrorIs(t, err, cause)
}
