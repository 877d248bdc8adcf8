package fallback

import (
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/interview-assistant/internal/types"
)

const (
	shortAnswerChars = 10
	longAnswerChars  = 100
	shortPenalty     = 20
	longBonus        = 10
	jitterSpan       = 10.0 // perturbation is in [-span/2, span/2)
)

// RandSource yields floats in [0, 1).
type RandSource interface {
	Float64() float64
}

// Scorer is the heuristic answer scorer. It is safe for concurrent use.
type Scorer struct {
	mu  sync.Mutex
	rnd RandSource
}

// NewScorer creates a scorer drawing its perturbation from rnd.
// A nil rnd disables the perturbation.
func NewScorer(rnd RandSource) *Scorer {
	return &Scorer{rnd: rnd}
}

// DefaultScorer returns a scorer seeded from the current time.
func DefaultScorer() *Scorer {
	return NewScorer(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// baseScore is the starting score by difficulty band.
func baseScore(d types.Difficulty) float64 {
	switch d {
	case types.DifficultyEasy:
		return 70
	case types.DifficultyMedium:
		return 60
	default:
		return 50
	}
}

// Score rates answerText for question. The result is always an integer in [0,100].
func (s *Scorer) Score(question types.Question, answerText string) int {
	score := baseScore(question.Difficulty)

	n := len([]rune(strings.TrimSpace(answerText)))
	if n < shortAnswerChars {
		score = math.Max(0, score-shortPenalty)
	} else if n > longAnswerChars {
		score = math.Min(100, score+longBonus)
	}

	score += s.jitter()

	return clamp(int(math.Round(score)))
}

func (s *Scorer) jitter() float64 {
	if s == nil || s.rnd == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return (s.rnd.Float64() - 0.5) * jitterSpan
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
