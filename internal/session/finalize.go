package session

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/interview-assistant/internal/fallback"
	"github.com/jonathan/interview-assistant/internal/logger"
	"github.com/jonathan/interview-assistant/internal/types"
)

// finalizeConcurrency caps in-flight answer evaluations.
const finalizeConcurrency = 3

// Assessor grades answers and writes the closing summary. Both methods are
// expected to be total, falling back locally instead of failing.
type Assessor interface {
	EvaluateAnswer(ctx context.Context, question types.Question, answerText string) int
	GenerateSummary(ctx context.Context, candidate *types.Candidate, questions []types.Question, answers []types.Answer) string
}

// Finalize scores every recorded answer, computes the final score and
// summary, and marks the candidate completed. Assessment problems never
// fail it; only store errors and ErrStale are returned.
func (m *Machine) Finalize(ctx context.Context, candidateID string, assessor Assessor) (*types.Candidate, error) {
	candidate, err := m.recorder.Get(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	answers := candidate.Answers
	scores := make([]int, len(answers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(finalizeConcurrency)
	for i := range answers {
		q := questionFor(answers[i], i, candidate.Questions)
		text := answers[i].Text
		g.Go(func() error {
			scores[i] = assessor.EvaluateAnswer(gctx, q, text)
			return nil
		})
	}
	_ = g.Wait()

	for i := range answers {
		answers[i].Score = types.IntPtr(scores[i])
	}
	final := fallback.AverageScore(answers)
	candidate.Answers = answers
	candidate.FinalScore = types.IntPtr(final)

	summary := assessor.GenerateSummary(ctx, candidate, candidate.Questions, answers)
	if blank(summary) {
		summary = fallback.Summarize(candidate, candidate.Questions, answers)
	}

	m.mu.Lock()
	stale := m.candidate.ID != candidateID
	m.mu.Unlock()
	if stale {
		m.log.Warn("discarding scores for candidate no longer in session",
			zap.String(logger.FieldCandidateID, candidateID))
		return nil, ErrStale
	}

	if err := m.recorder.SetFinalScore(ctx, candidateID, final, summary, scores); err != nil {
		return nil, err
	}

	m.log.Info("interview finalized",
		zap.String(logger.FieldCandidateID, candidateID),
		zap.Int("final_score", final),
		zap.Int("answers", len(answers)))

	return m.recorder.Get(ctx, candidateID)
}

// questionFor matches an answer to its question by id, then by position.
func questionFor(a types.Answer, i int, questions []types.Question) types.Question {
	for _, q := range questions {
		if q.ID == a.QuestionID {
			return q
		}
	}
	if i < len(questions) {
		return questions[i]
	}
	d := types.DifficultyForIndex(i)
	return types.Question{ID: a.QuestionID, Difficulty: d, TimeLimit: d.TimeLimit()}
}
