package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/interview-assistant/internal/fallback"
	"github.com/jonathan/interview-assistant/internal/llm"
	"github.com/jonathan/interview-assistant/internal/prompts"
	"github.com/jonathan/interview-assistant/internal/schemas"
	"github.com/jonathan/interview-assistant/internal/types"
)

const (
	missingQuestionText = "Question text missing"
	defaultCategory     = "General"
)

// RawQuestion is a question as returned by the external service, before normalization.
type RawQuestion struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Difficulty string   `json:"difficulty"`
	TimeLimit  *float64 `json:"timeLimit"`
	Category   string   `json:"category"`
}

type questionsResponse struct {
	Questions []RawQuestion `json:"questions"`
}

// GenerateQuestions returns exactly six questions tailored to the resume,
// or the fixed bank when the service cannot provide them.
func (g *Gateway) GenerateQuestions(ctx context.Context, resumeText string) []types.Question {
	if !g.Available() {
		g.skip(OpGenerateQuestions)
		return fallback.Questions()
	}

	prompt, err := prompts.Render(prompts.KeyGenerateQuestions, map[string]string{
		"ResumeText": resumeText,
	})
	if err != nil {
		g.log.Error("failed to build question prompt", zap.Error(err))
		return fallback.Questions()
	}

	var raw []RawQuestion
	err = g.attempt(ctx, OpGenerateQuestions, func(ctx context.Context) error {
		resp, err := g.client.GenerateJSON(ctx, prompt, llm.TierStandard)
		if err != nil {
			return fmt.Errorf("LLM generation failed: %w", err)
		}
		raw, err = ParseQuestions(resp)
		return err
	})
	if err != nil {
		return fallback.Questions()
	}

	questions, issues := NormalizeQuestions(raw)
	if len(issues) > 0 {
		g.log.Warn("generated questions did not match the interview format",
			zap.Int("received", len(raw)),
			zap.Strings("issues", issues))
	}
	return questions
}

// ParseQuestions decodes and validates a question-generation response.
func ParseQuestions(resp string) ([]RawQuestion, error) {
	cleaned := llm.CleanJSONBlock(resp)
	if err := schemas.Validate(schemas.Questions, cleaned); err != nil {
		return nil, fmt.Errorf("invalid questions response: %w", err)
	}

	var out questionsResponse
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, fmt.Errorf("failed to parse questions response: %w", err)
	}
	return out.Questions, nil
}

// NormalizeQuestions coerces raw questions into exactly six interview
// questions following the easy, medium, hard schedule. Missing or invalid
// fields are defaulted by position, a short list is padded from the fixed
// bank and duplicate ids are re-keyed. Each adjustment is described in issues.
func NormalizeQuestions(raw []RawQuestion) (questions []types.Question, issues []string) {
	n := types.QuestionsPerInterview
	if len(raw) != n {
		issues = append(issues, fmt.Sprintf("expected %d questions, got %d", n, len(raw)))
	}
	if len(raw) > n {
		raw = raw[:n]
	}

	questions = make([]types.Question, 0, n)
	for i, r := range raw {
		q := types.Question{
			ID:       strings.TrimSpace(r.ID),
			Text:     strings.TrimSpace(r.Text),
			Category: strings.TrimSpace(r.Category),
		}

		if q.Text == "" {
			q.Text = missingQuestionText
			issues = append(issues, fmt.Sprintf("question %d: missing text", i+1))
		}
		if q.Category == "" {
			q.Category = defaultCategory
		}

		want := types.DifficultyForIndex(i)
		q.Difficulty = types.Difficulty(strings.ToLower(strings.TrimSpace(r.Difficulty)))
		switch {
		case !q.Difficulty.Valid():
			issues = append(issues, fmt.Sprintf("question %d: invalid difficulty %q", i+1, r.Difficulty))
		case q.Difficulty != want:
			issues = append(issues, fmt.Sprintf("question %d: difficulty %s replaced by %s", i+1, q.Difficulty, want))
		}
		q.Difficulty = want

		q.TimeLimit = q.Difficulty.TimeLimit()
		if r.TimeLimit != nil && int(*r.TimeLimit) != q.TimeLimit {
			issues = append(issues, fmt.Sprintf("question %d: time limit %v replaced by %d", i+1, *r.TimeLimit, q.TimeLimit))
		}

		questions = append(questions, q)
	}

	if len(questions) < n {
		questions = append(questions, fallback.Questions()[len(questions):n]...)
	}

	seen := make(map[string]bool, n)
	for i := range questions {
		id := questions[i].ID
		if id == "" || seen[id] {
			id = uniqueID(i, seen)
			if questions[i].ID != "" {
				issues = append(issues, fmt.Sprintf("question %d: duplicate id %q", i+1, questions[i].ID))
			}
			questions[i].ID = id
		}
		seen[id] = true
	}

	return questions, issues
}

func uniqueID(i int, seen map[string]bool) string {
	id := fmt.Sprintf("q%d", i+1)
	for n := 2; seen[id]; n++ {
		id = fmt.Sprintf("q%d-%d", i+1, n)
	}
	return id
}
