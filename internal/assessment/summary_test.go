package assessment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-assistant/internal/fallback"
	"github.com/jonathan/interview-assistant/internal/llm"
	"github.com/jonathan/interview-assistant/internal/llm/llmtest"
	"github.com/jonathan/interview-assistant/internal/types"
)

func scoredAnswers(scores ...int) []types.Answer {
	qs := fallback.Questions()
	out := make([]types.Answer, len(scores))
	for i, s := range scores {
		out[i] = types.Answer{QuestionID: qs[i].ID, Text: "answer " + qs[i].ID, TimeSpent: 30, Score: types.IntPtr(s)}
	}
	return out
}

func TestGenerateSummary_Remote(t *testing.T) {
	mock := &llmtest.MockClient{
		GenerateContentFunc: func(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
			assert.Equal(t, llm.TierAdvanced, tier)
			return "  Strong candidate.  ", nil
		},
	}
	g := newTestGateway(mock, nil)
	c := &types.Candidate{ID: "c1", Name: "Alice Johnson", FinalScore: types.IntPtr(63)}

	got := g.GenerateSummary(context.Background(), c, fallback.Questions(), scoredAnswers(90, 85, 70, 60, 40, 30))

	assert.Equal(t, "Strong candidate.", got)
	prompt := mock.Prompts()[0]
	assert.Contains(t, prompt, "Candidate: Alice Johnson")
	assert.Contains(t, prompt, "Final score: 63/100")
	assert.Contains(t, prompt, "A6: answer q6")
}

func TestGenerateSummary_Fallbacks(t *testing.T) {
	tests := []struct {
		name string
		resp string
		err  error
	}{
		{"empty response", "   ", nil},
		{"error", "", errors.New("backend unavailable")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &llmtest.MockClient{
				GenerateContentFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
					return tt.resp, tt.err
				},
			}
			g := newTestGateway(mock, nil)
			c := &types.Candidate{Name: "Carol King"}
			answers := scoredAnswers(90, 85, 70, 60, 40, 30)

			got := g.GenerateSummary(context.Background(), c, fallback.Questions(), answers)

			assert.Equal(t, fallback.Summarize(c, fallback.Questions(), answers), got)
			assert.Contains(t, got, "average score of 63/100")
		})
	}
}

func TestGenerateSummary_NoAnswersSkipsCall(t *testing.T) {
	mock := &llmtest.MockClient{}
	g := newTestGateway(mock, nil)

	got := g.GenerateSummary(context.Background(), &types.Candidate{Name: "A"}, fallback.Questions(), nil)

	assert.Equal(t, fallback.NoAnswersSummary, got)
	_, textCalls := mock.Calls()
	assert.Zero(t, textCalls)
}

func TestBuildTranscript(t *testing.T) {
	qs := fallback.Questions()
	answers := []types.Answer{
		{QuestionID: "q1", Text: "A library for UIs", TimeSpent: 20, Score: types.IntPtr(80)},
		{QuestionID: "missing", Text: ""},
	}

	got := BuildTranscript(qs, answers)

	require.Contains(t, got, "Q1 [easy, React Fundamentals]: "+qs[0].Text)
	assert.Contains(t, got, "A1: A library for UIs")
	assert.Contains(t, got, "Score: 80/100, time spent: 20s")
	assert.Contains(t, got, "Q2 [easy, JavaScript Fundamentals]: "+qs[1].Text)
	assert.Contains(t, got, "A2: (no answer provided)")
}
