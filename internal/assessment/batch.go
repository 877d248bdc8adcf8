package assessment

import (
	"context"
	"sync"

	"github.com/jonathan/interview-assistant/internal/fallback"
	"github.com/jonathan/interview-assistant/internal/llm"
	"github.com/jonathan/interview-assistant/internal/types"
)

// Batch freezes the availability decision for a group of related calls,
// such as grading every answer of one interview. Once any call in the batch
// hits a quota failure the rest of the batch is served locally.
type Batch struct {
	g         *Gateway
	available bool

	mu       sync.Mutex
	quotaHit bool
}

// Snapshot starts a batch using the gateway's current availability.
func (g *Gateway) Snapshot() *Batch {
	return &Batch{g: g, available: g.Available()}
}

func (b *Batch) allowed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available && !b.quotaHit
}

func (b *Batch) note(err error) {
	if llm.IsQuotaError(err) {
		b.mu.Lock()
		b.quotaHit = true
		b.mu.Unlock()
	}
}

// EvaluateAnswer scores an answer in [0,100]. Safe for concurrent use.
func (b *Batch) EvaluateAnswer(ctx context.Context, question types.Question, answerText string) int {
	if !b.allowed() {
		b.g.skip(OpEvaluateAnswer)
		return b.g.scorer.Score(question, answerText)
	}

	score, err := b.g.evaluateRemote(ctx, question, answerText)
	if err != nil {
		b.note(err)
		return b.g.scorer.Score(question, answerText)
	}
	return score
}

// GenerateSummary writes the interview summary. It never returns an empty string.
func (b *Batch) GenerateSummary(ctx context.Context, candidate *types.Candidate, questions []types.Question, answers []types.Answer) string {
	if len(answers) == 0 {
		return fallback.Summarize(candidate, questions, answers)
	}
	if !b.allowed() {
		b.g.skip(OpGenerateSummary)
		return fallback.Summarize(candidate, questions, answers)
	}

	summary, err := b.g.summarizeRemote(ctx, candidate, questions, answers)
	if err != nil {
		b.note(err)
		return fallback.Summarize(candidate, questions, answers)
	}
	return summary
}
