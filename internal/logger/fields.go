package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Structured field keys used across the interview flow.
const (
	FieldCandidateID = "candidate_id"
	FieldQuestionID  = "question_id"
	FieldOperation   = "operation"
	FieldModel       = "ai_model"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields, trimming whitespace
// and omitting entries with an empty key or value.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithCandidate attaches the candidate id, and the question id when known.
func WithCandidate(l *zap.Logger, candidateID, questionID string) *zap.Logger {
	l = OrNop(l)
	fields := StringFields(
		StringField{Key: FieldCandidateID, Value: candidateID},
		StringField{Key: FieldQuestionID, Value: questionID},
	)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}
