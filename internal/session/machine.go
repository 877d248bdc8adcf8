// Package session runs a single interview: it walks the candidate through the
// six questions, enforces the per-question time limits, and finalizes scoring
// once the last answer is in.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/interview-assistant/internal/logger"
	"github.com/jonathan/interview-assistant/internal/timer"
	"github.com/jonathan/interview-assistant/internal/types"
)

var (
	// ErrInvalidQuestionCount is returned when an interview is started without exactly six questions.
	ErrInvalidQuestionCount = errors.New("an interview needs exactly 6 questions")
	// ErrNoActiveQuestion is returned when there is no question to answer, pause or resume.
	ErrNoActiveQuestion = errors.New("no active question")
	// ErrAlreadyCompleted is returned when starting or restoring a finished interview.
	ErrAlreadyCompleted = errors.New("interview already completed")
	// ErrAlreadyStarted is returned by Start when the candidate already has answers.
	ErrAlreadyStarted = errors.New("interview already started, restore it instead")
	// ErrQuestionClosed is returned when an answer targets a question that was already submitted.
	ErrQuestionClosed = errors.New("question already answered")
	// ErrStale is returned when the session moved to another candidate while work was in flight.
	ErrStale = errors.New("session no longer belongs to this candidate")
)

// Recorder persists the interview progress.
type Recorder interface {
	RecordAnswer(ctx context.Context, candidateID string, answer types.Answer) (*types.Candidate, error)
	UpdateStatus(ctx context.Context, id string, status types.InterviewStatus) error
	SetFinalScore(ctx context.Context, id string, score int, summary string, answerScores []int) error
	Get(ctx context.Context, id string) (*types.Candidate, error)
}

// Result describes the outcome of one submitted answer.
type Result struct {
	Answer    types.Answer     `json:"answer"`
	Candidate *types.Candidate `json:"candidate"`
	Next      *types.Question  `json:"nextQuestion,omitempty"`
	Completed bool             `json:"completed"`
	Automatic bool             `json:"automatic"`
}

// State is a read-only view of the session for display.
type State struct {
	CandidateID     string          `json:"candidateId,omitempty"`
	QuestionIndex   int             `json:"questionIndex"`
	TotalQuestions  int             `json:"totalQuestions"`
	CurrentQuestion *types.Question `json:"currentQuestion,omitempty"`
	TimeRemaining   int             `json:"timeRemaining"`
	Draft           string          `json:"draft,omitempty"`
	IsPaused        bool            `json:"isPaused"`
	IsActive        bool            `json:"isActive"`
	Completed       bool            `json:"completed"`
}

// Machine is the interview state machine. All methods are safe for
// concurrent use; the countdown's timeout path goes through the same lock
// as manual submission.
type Machine struct {
	recorder     Recorder
	log          *zap.Logger
	now          func() time.Time
	timerOpts    []timer.Option
	onAutoSubmit func(Result, error)
	countdown    *timer.Countdown

	mu          sync.Mutex
	candidate   types.Candidate
	bound       int
	index       int
	seq         uint64
	draft       string
	active      bool
	paused      bool
	completed   bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the time source used for answer timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) { m.log = logger.OrNop(l) }
}

// WithTickerFactory replaces the countdown's one-second ticker.
func WithTickerFactory(f func(time.Duration) timer.Ticker) Option {
	return func(m *Machine) { m.timerOpts = append(m.timerOpts, timer.WithTickerFactory(f)) }
}

// WithOnAutoSubmit registers a callback for answers submitted by a timeout.
func WithOnAutoSubmit(f func(Result, error)) Option {
	return func(m *Machine) { m.onAutoSubmit = f }
}

// New creates an idle machine.
func New(recorder Recorder, opts ...Option) *Machine {
	m := &Machine{
		recorder: recorder,
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.countdown = timer.New(m.HandleTimeout, m.timerOpts...)
	return m
}

// Start begins a fresh interview for candidate with the given questions.
func (m *Machine) Start(ctx context.Context, candidate *types.Candidate, questions []types.Question) error {
	if len(questions) != types.QuestionsPerInterview {
		return ErrInvalidQuestionCount
	}
	if candidate.InterviewStatus == types.StatusCompleted {
		return ErrAlreadyCompleted
	}
	if len(candidate.Answers) > 0 {
		return ErrAlreadyStarted
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.recorder.UpdateStatus(ctx, candidate.ID, types.StatusInProgress); err != nil {
		return err
	}

	m.bind(candidate.ID, questions, 0)
	m.log.Info("interview started", zap.String(logger.FieldCandidateID, candidate.ID))
	return nil
}

// Restore rebuilds the session for a persisted in-progress candidate. The
// current question restarts with its full time limit. When every answer is
// already recorded the machine is left completed, waiting for Finalize.
func (m *Machine) Restore(ctx context.Context, candidate *types.Candidate) error {
	if candidate.InterviewStatus == types.StatusCompleted {
		return ErrAlreadyCompleted
	}
	if len(candidate.Questions) == 0 {
		return ErrInvalidQuestionCount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if candidate.InterviewStatus == types.StatusNotStarted {
		if err := m.recorder.UpdateStatus(ctx, candidate.ID, types.StatusInProgress); err != nil {
			return err
		}
	}

	m.bind(candidate.ID, candidate.Questions, len(candidate.Answers))
	m.log.Info("interview restored",
		zap.String(logger.FieldCandidateID, candidate.ID),
		zap.Int("question_index", m.index),
		zap.Bool("completed", m.completed))
	return nil
}

// bind points the machine at a candidate and question index. Callers hold m.mu.
func (m *Machine) bind(candidateID string, questions []types.Question, index int) {
	m.bound = min(types.QuestionsPerInterview, len(questions))
	m.candidate = types.Candidate{
		ID:        candidateID,
		Questions: append([]types.Question(nil), questions[:m.bound]...),
	}
	m.index = index
	m.draft = ""
	m.paused = false
	if m.countdown.Paused() {
		m.countdown.Resume()
	}

	if index >= m.bound {
		m.active = false
		m.completed = true
		m.countdown.Stop()
		return
	}

	q, _ := m.candidate.QuestionAt(index)
	m.active = true
	m.completed = false
	m.seq = m.countdown.Reset(q.TimeLimit)
}

// SubmitAnswer records text as the answer to the current question and advances.
func (m *Machine) SubmitAnswer(ctx context.Context, text string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitLocked(ctx, text)
}

// SubmitAnswerFor is SubmitAnswer guarded by the question the caller was
// shown. If that question was already submitted, by a timeout for example,
// it returns ErrQuestionClosed and records nothing.
func (m *Machine) SubmitAnswerFor(ctx context.Context, questionID, text string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.currentLocked(); ok && q.ID != questionID {
		return Result{}, ErrQuestionClosed
	}
	return m.submitLocked(ctx, text)
}

func (m *Machine) submitLocked(ctx context.Context, text string) (Result, error) {
	q, ok := m.currentLocked()
	if !ok {
		return Result{}, ErrNoActiveQuestion
	}

	answer := types.Answer{
		QuestionID:  q.ID,
		Text:        text,
		TimeSpent:   max(0, q.TimeLimit-m.countdown.Remaining()),
		SubmittedAt: m.now(),
	}

	updated, err := m.recorder.RecordAnswer(ctx, m.candidate.ID, answer)
	if err != nil {
		return Result{}, err
	}

	m.index++
	m.draft = ""
	res := Result{Answer: answer, Candidate: updated}

	log := logger.WithCandidate(m.log, m.candidate.ID, q.ID)
	if next, ok := m.currentLocked(); ok {
		m.seq = m.countdown.Reset(next.TimeLimit)
		res.Next = &next
		log.Debug("answer recorded", zap.Int("time_spent", answer.TimeSpent))
		return res, nil
	}

	m.active = false
	m.paused = false
	m.completed = true
	m.countdown.Stop()
	res.Completed = true
	log.Info("last answer recorded, interview ready for scoring")
	return res, nil
}

// currentLocked looks up the question at the session index. Callers hold m.mu.
func (m *Machine) currentLocked() (types.Question, bool) {
	if !m.active {
		return types.Question{}, false
	}
	return m.candidate.QuestionAt(m.index)
}

// SetDraft buffers the answer being typed so a timeout can submit it.
func (m *Machine) SetDraft(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return ErrNoActiveQuestion
	}
	m.draft = text
	return nil
}

// HandleTimeout submits the buffered draft when question seq runs out of
// time. It does nothing if that question was already answered or the
// session is paused or idle.
func (m *Machine) HandleTimeout(seq uint64) {
	m.mu.Lock()
	if !m.active || m.paused || seq != m.seq {
		m.mu.Unlock()
		return
	}
	res, err := m.submitLocked(context.Background(), m.draft)
	res.Automatic = true
	cb := m.onAutoSubmit
	m.mu.Unlock()

	if err != nil {
		m.log.Error("failed to auto-submit answer", zap.Error(err))
	}
	if cb != nil {
		cb(res, err)
	}
}

// Pause freezes the countdown.
func (m *Machine) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return ErrNoActiveQuestion
	}
	m.paused = true
	m.countdown.Pause()
	return nil
}

// Resume continues the countdown from where it was paused.
func (m *Machine) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return ErrNoActiveQuestion
	}
	m.paused = false
	m.countdown.Resume()
	return nil
}

// Snapshot returns the current session state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := State{
		CandidateID:    m.candidate.ID,
		QuestionIndex:  m.index,
		TotalQuestions: m.bound,
		Draft:          m.draft,
		IsPaused:       m.paused,
		IsActive:       m.active,
		Completed:      m.completed,
	}
	if q, ok := m.currentLocked(); ok {
		st.CurrentQuestion = &q
		st.TimeRemaining = m.countdown.Remaining()
	}
	return st
}

// CandidateID returns the candidate the session is bound to, if any.
func (m *Machine) CandidateID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.candidate.ID
}

// Stop stops the countdown and unbinds the candidate.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countdown.Stop()
	m.candidate = types.Candidate{}
	m.bound = 0
	m.index = 0
	m.draft = ""
	m.active = false
	m.paused = false
	m.completed = false
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
