package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/interview-assistant/internal/llm"
	"github.com/jonathan/interview-assistant/internal/logger"
	"github.com/jonathan/interview-assistant/internal/prompts"
	"github.com/jonathan/interview-assistant/internal/schemas"
	"github.com/jonathan/interview-assistant/internal/types"
)

const noAnswerText = "(no answer provided)"

// Evaluation is a decoded answer grade.
type Evaluation struct {
	Score    int
	Feedback string
}

type evaluationResponse struct {
	Score    *float64 `json:"score"`
	Feedback string   `json:"feedback"`
}

// EvaluateAnswer scores an answer in [0,100].
func (g *Gateway) EvaluateAnswer(ctx context.Context, question types.Question, answerText string) int {
	return g.Snapshot().EvaluateAnswer(ctx, question, answerText)
}

func (g *Gateway) evaluateRemote(ctx context.Context, question types.Question, answerText string) (int, error) {
	answer := strings.TrimSpace(answerText)
	if answer == "" {
		answer = noAnswerText
	}

	prompt, err := prompts.Render(prompts.KeyEvaluateAnswer, map[string]string{
		"Question":   question.Text,
		"Difficulty": string(question.Difficulty),
		"Category":   question.Category,
		"Answer":     answer,
	})
	if err != nil {
		return 0, err
	}

	var eval *Evaluation
	err = g.attempt(ctx, OpEvaluateAnswer, func(ctx context.Context) error {
		resp, err := g.client.GenerateJSON(ctx, prompt, llm.TierLite)
		if err != nil {
			return fmt.Errorf("LLM generation failed: %w", err)
		}
		eval, err = ParseEvaluation(resp)
		return err
	})
	if err != nil {
		return 0, err
	}

	g.log.Debug("answer evaluated",
		zap.String(logger.FieldQuestionID, question.ID),
		zap.Int("score", eval.Score),
		zap.String("feedback", logger.TruncateForLog(eval.Feedback, 200)))
	return eval.Score, nil
}

// ParseEvaluation decodes an evaluation response. The score must be a JSON
// number; it is rounded and clamped to [0,100].
func ParseEvaluation(resp string) (*Evaluation, error) {
	cleaned := llm.CleanJSONBlock(resp)
	if err := schemas.Validate(schemas.Evaluation, cleaned); err != nil {
		return nil, fmt.Errorf("invalid evaluation response: %w", err)
	}

	var out evaluationResponse
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, fmt.Errorf("failed to parse evaluation response: %w", err)
	}
	if out.Score == nil || math.IsNaN(*out.Score) {
		return nil, fmt.Errorf("evaluation response has no numeric score")
	}

	return &Evaluation{
		Score:    clampScore(*out.Score),
		Feedback: strings.TrimSpace(out.Feedback),
	}, nil
}

func clampScore(v float64) int {
	return int(math.Round(math.Max(0, math.Min(100, v))))
}
