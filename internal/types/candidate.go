// Package types provides type definitions for structured data used throughout the interview assistant.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// QuestionsPerInterview is the fixed size of a candidate's question battery.
const QuestionsPerInterview = 6

// Difficulty is the band a question belongs to.
type Difficulty string

const (
	// DifficultyEasy questions cover fundamentals
	DifficultyEasy Difficulty = "easy"
	// DifficultyMedium questions cover applied knowledge
	DifficultyMedium Difficulty = "medium"
	// DifficultyHard questions cover design and advanced integration
	DifficultyHard Difficulty = "hard"
)

// Valid reports whether d is one of the known bands.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// TimeLimit returns the answer time limit in seconds for the band.
// Unknown bands get the hard limit.
func (d Difficulty) TimeLimit() int {
	switch d {
	case DifficultyEasy:
		return 50
	case DifficultyMedium:
		return 90
	default:
		return 150
	}
}

// DifficultyForIndex returns the scheduled band for a position in the battery:
// two easy, two medium, then hard.
func DifficultyForIndex(i int) Difficulty {
	switch {
	case i < 2:
		return DifficultyEasy
	case i < 4:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}

// InterviewStatus is the lifecycle state of a candidate's interview.
type InterviewStatus string

const (
	// StatusNotStarted is the initial state
	StatusNotStarted InterviewStatus = "not_started"
	// StatusInProgress means questions are being answered
	StatusInProgress InterviewStatus = "in_progress"
	// StatusCompleted means the interview is finalized
	StatusCompleted InterviewStatus = "completed"
)

// Valid reports whether s is a known status.
func (s InterviewStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Rank orders statuses so transitions can be checked for regression.
func (s InterviewStatus) Rank() int {
	switch s {
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	default:
		return 0
	}
}

// Question is a single timed interview question.
type Question struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	Difficulty Difficulty `json:"difficulty"`
	TimeLimit  int        `json:"timeLimit"` // seconds
	Category   string     `json:"category"`
}

// Answer is a candidate's response to one question.
type Answer struct {
	QuestionID  string    `json:"questionId"`
	Text        string    `json:"text"`
	TimeSpent   int       `json:"timeSpent"` // seconds
	Score       *int      `json:"score,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// ContactInfo holds the contact fields extracted from a resume. Every field is optional.
type ContactInfo struct {
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	ResumeText string `json:"resumeText,omitempty"`
}

// Candidate is a person undergoing one interview session.
type Candidate struct {
	ID                   string          `json:"id" validate:"required"`
	Name                 string          `json:"name,omitempty"`
	Email                string          `json:"email,omitempty" validate:"omitempty,email"`
	Phone                string          `json:"phone,omitempty"`
	ResumeFileName       string          `json:"resumeFileName,omitempty"`
	ResumeText           string          `json:"resumeText,omitempty"`
	InterviewStatus      InterviewStatus `json:"interviewStatus" validate:"oneof=not_started in_progress completed"`
	CurrentQuestionIndex int             `json:"currentQuestionIndex" validate:"gte=0"`
	Questions            []Question      `json:"questions"`
	Answers              []Answer        `json:"answers"`
	FinalScore           *int            `json:"finalScore,omitempty" validate:"omitempty,gte=0,lte=100"`
	AISummary            string          `json:"aiSummary,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// Validate checks struct-level constraints on the candidate record.
func (c *Candidate) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// QuestionAt returns the question at index i, bounds-checked.
func (c *Candidate) QuestionAt(i int) (Question, bool) {
	if i < 0 || i >= len(c.Questions) {
		return Question{}, false
	}
	return c.Questions[i], true
}

// QuestionByID finds a question in the candidate's set.
func (c *Candidate) QuestionByID(id string) (Question, bool) {
	for _, q := range c.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Clone returns a deep copy of the candidate.
func (c *Candidate) Clone() *Candidate {
	if c == nil {
		return nil
	}
	out := *c
	if c.Questions != nil {
		out.Questions = append([]Question(nil), c.Questions...)
	}
	if c.Answers != nil {
		out.Answers = make([]Answer, len(c.Answers))
		for i, a := range c.Answers {
			out.Answers[i] = a
			if a.Score != nil {
				s := *a.Score
				out.Answers[i].Score = &s
			}
		}
	}
	if c.FinalScore != nil {
		s := *c.FinalScore
		out.FinalScore = &s
	}
	return &out
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
