package fallback

import (
	"fmt"
	"math"
	"strings"

	"github.com/jonathan/interview-assistant/internal/types"
)

// PassThreshold is the average score at which the candidate is recommended for the next round.
const PassThreshold = 70

// NoAnswersSummary is returned when there is nothing to summarize.
const NoAnswersSummary = "No answers were recorded for this interview, so no assessment could be made."

// Summarize builds a deterministic text summary of the interview.
// It is total over its inputs: nil candidates, empty answer lists and unscored
// answers all produce a message.
func Summarize(candidate *types.Candidate, questions []types.Question, answers []types.Answer) string {
	if len(answers) == 0 {
		return NoAnswersSummary
	}

	name := "(unnamed)"
	if candidate != nil && strings.TrimSpace(candidate.Name) != "" {
		name = candidate.Name
	}

	var total float64
	byBand := map[types.Difficulty][]float64{}
	for i, a := range answers {
		score := 0.0
		if a.Score != nil {
			score = float64(*a.Score)
		}
		total += score
		d := difficultyFor(a, i, questions)
		byBand[d] = append(byBand[d], score)
	}
	avg := total / float64(len(answers))

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Candidate %s completed %d/%d questions with an average score of %d/100. ",
		name, len(answers), len(questions), int(math.Round(avg))))

	switch {
	case avg >= 80:
		sb.WriteString("The candidate demonstrated strong technical knowledge and provided comprehensive answers. ")
	case avg >= 60:
		sb.WriteString("The candidate showed good understanding of the topics with room for improvement. ")
	default:
		sb.WriteString("The candidate may need additional training or experience in the technical areas covered. ")
	}

	if easy, ok := mean(byBand[types.DifficultyEasy]); ok && easy >= 80 {
		sb.WriteString("Strong performance on fundamental concepts. ")
	}
	if hard, ok := mean(byBand[types.DifficultyHard]); ok {
		if hard >= 70 {
			sb.WriteString("Excellent problem-solving skills demonstrated in complex scenarios. ")
		} else if hard < 40 {
			sb.WriteString("May need more experience with advanced technical challenges. ")
		}
	}

	recommendation := "Consider for junior role or additional training"
	if avg >= PassThreshold {
		recommendation = "Proceed to next round"
	}
	sb.WriteString(fmt.Sprintf("Overall recommendation: %s.", recommendation))

	return sb.String()
}

// difficultyFor resolves an answer's band by question id, then by position.
func difficultyFor(a types.Answer, i int, questions []types.Question) types.Difficulty {
	for _, q := range questions {
		if q.ID == a.QuestionID {
			return q.Difficulty
		}
	}
	if i < len(questions) {
		return questions[i].Difficulty
	}
	return types.DifficultyForIndex(i)
}

func mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// AverageScore is the rounded mean of the answer scores. Unscored answers
// count as zero and an empty list averages to zero.
func AverageScore(answers []types.Answer) int {
	if len(answers) == 0 {
		return 0
	}
	var total float64
	for _, a := range answers {
		if a.Score != nil {
			total += float64(*a.Score)
		}
	}
	return int(math.Round(total / float64(len(answers))))
}
