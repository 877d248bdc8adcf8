package assessment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/interview-assistant/internal/fallback"
	"github.com/jonathan/interview-assistant/internal/llm"
	"github.com/jonathan/interview-assistant/internal/prompts"
	"github.com/jonathan/interview-assistant/internal/types"
)

// GenerateSummary writes the hiring summary for a finished interview. It never returns an empty string.
func (g *Gateway) GenerateSummary(ctx context.Context, candidate *types.Candidate, questions []types.Question, answers []types.Answer) string {
	return g.Snapshot().GenerateSummary(ctx, candidate, questions, answers)
}

func (g *Gateway) summarizeRemote(ctx context.Context, candidate *types.Candidate, questions []types.Question, answers []types.Answer) (string, error) {
	name := "(unnamed)"
	score := fallback.AverageScore(answers)
	if candidate != nil {
		if strings.TrimSpace(candidate.Name) != "" {
			name = candidate.Name
		}
		if candidate.FinalScore != nil {
			score = *candidate.FinalScore
		}
	}

	prompt, err := prompts.Render(prompts.KeySummarizeInterview, map[string]string{
		"Name":       name,
		"FinalScore": strconv.Itoa(score),
		"Transcript": BuildTranscript(questions, answers),
	})
	if err != nil {
		return "", err
	}

	var summary string
	err = g.attempt(ctx, OpGenerateSummary, func(ctx context.Context) error {
		resp, err := g.client.GenerateContent(ctx, prompt, llm.TierAdvanced)
		if err != nil {
			return fmt.Errorf("LLM generation failed: %w", err)
		}
		summary = strings.TrimSpace(resp)
		if summary == "" {
			return errEmptyResponse
		}
		return nil
	})
	return summary, err
}

// BuildTranscript renders the question and answer pairs for the summary prompt.
// Answers are matched to questions by id, falling back to position.
func BuildTranscript(questions []types.Question, answers []types.Answer) string {
	var sb strings.Builder
	for i, a := range answers {
		q, ok := questionFor(a, i, questions)
		text := q.Text
		if !ok {
			text = "(question unavailable)"
		}
		answer := strings.TrimSpace(a.Text)
		if answer == "" {
			answer = noAnswerText
		}

		sb.WriteString(fmt.Sprintf("Q%d [%s, %s]: %s\n", i+1, q.Difficulty, q.Category, text))
		sb.WriteString(fmt.Sprintf("A%d: %s\n", i+1, answer))
		if a.Score != nil {
			sb.WriteString(fmt.Sprintf("Score: %d/100, time spent: %ds\n", *a.Score, a.TimeSpent))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func questionFor(a types.Answer, i int, questions []types.Question) (types.Question, bool) {
	for _, q := range questions {
		if q.ID == a.QuestionID {
			return q, true
		}
	}
	if i < len(questions) {
		return questions[i], true
	}
	return types.Question{Difficulty: types.DifficultyForIndex(i), Category: defaultCategory}, false
}
