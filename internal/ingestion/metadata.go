package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Metadata describes an ingested resume file.
type Metadata struct {
	FileName    string `json:"file_name"`
	MimeType    string `json:"mime_type"`
	Size        int64  `json:"size"`
	Timestamp   string `json:"timestamp"` // RFC3339 format
	Hash        string `json:"hash"`      // SHA256 hex digest of the extracted text
	Placeholder bool   `json:"placeholder,omitempty"`
}

// NewMetadata creates a new Metadata instance with current timestamp
func NewMetadata(fileName, mimeType string, size int64, content string, placeholder bool) *Metadata {
	return &Metadata{
		FileName:    fileName,
		MimeType:    mimeType,
		Size:        size,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Hash:        computeHash(content),
		Placeholder: placeholder,
	}
}

// computeHash computes SHA256 hash of content and returns hex string
func computeHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// ToJSON marshals Metadata to pretty-printed JSON
func (m *Metadata) ToJSON() ([]byte, error) {
	jsonBytes, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata to JSON: %w", err)
	}
	return jsonBytes, nil
}
