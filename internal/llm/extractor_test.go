package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildExtractionPrompt_ContactInfo(t *testing.T) {
	prompt := BuildExtractionPrompt(ContactInfoSchema(), "Alice Johnson\nalice@tech.com")

	assert.True(t, strings.HasPrefix(prompt, "You are an expert resume parser."))
	assert.Contains(t, prompt, `"name": "string" // Candidate's full name`)
	assert.Contains(t, prompt, `"email": "string"`)
	assert.Contains(t, prompt, `"phone": "string"`)
	assert.Contains(t, prompt, "Input text:\n\"\"\"\nAlice Johnson\nalice@tech.com\n\"\"\"")
}

func TestBuildExtractionPrompt_RequiredAndDefaultType(t *testing.T) {
	schema := ExtractionSchema{
		Description: "Extract.",
		Fields: []SchemaField{
			{Name: "a", Required: true},
			{Name: "b", Type: "[\"string\"]"},
		},
	}

	prompt := BuildExtractionPrompt(schema, "text")

	assert.Contains(t, prompt, `"a": string (required),`)
	assert.Contains(t, prompt, `"b": ["string"]`)
	assert.NotContains(t, prompt, `"b": ["string"],`)
}
