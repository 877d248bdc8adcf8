// Package interview wires the candidate store, the assessment gateway and the
// session state machine into the end-to-end interview workflow used by the
// CLI and the HTTP API.
package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/interview-assistant/internal/assessment"
	"github.com/jonathan/interview-assistant/internal/fallback"
	"github.com/jonathan/interview-assistant/internal/ingestion"
	"github.com/jonathan/interview-assistant/internal/logger"
	"github.com/jonathan/interview-assistant/internal/session"
	"github.com/jonathan/interview-assistant/internal/store"
	"github.com/jonathan/interview-assistant/internal/timer"
	"github.com/jonathan/interview-assistant/internal/types"
)

// ErrStale is returned when a result arrives for a candidate that is no
// longer the current one. The result is discarded.
var ErrStale = session.ErrStale

// EventType names a workflow event.
type EventType string

const (
	// EventCandidateAdded fires after a resume is ingested
	EventCandidateAdded EventType = "candidate_added"
	// EventInterviewStarted fires once questions are assigned and the timer runs
	EventInterviewStarted EventType = "interview_started"
	// EventAnswerRecorded fires for every answer, manual or automatic
	EventAnswerRecorded EventType = "answer_recorded"
	// EventInterviewCompleted fires after scores and summary are written
	EventInterviewCompleted EventType = "interview_completed"
	// EventResultDiscarded fires when a stale result is dropped
	EventResultDiscarded EventType = "result_discarded"
)

// Event reports workflow progress to the outer surfaces.
type Event struct {
	Type        EventType `json:"type"`
	CandidateID string    `json:"candidateId"`
	Message     string    `json:"message"`
	Content     any       `json:"content,omitempty"`
}

// EventHandler is called synchronously for each Event.
type EventHandler func(Event)

// AddResult is returned by AddCandidate.
type AddResult struct {
	Candidate     *types.Candidate `json:"candidate"`
	MissingFields []string         `json:"missingFields"`
	Placeholder   bool             `json:"placeholder"`
}

// SubmitResult is the outcome of a submitted answer. Candidate carries the
// final scores when the answer completed the interview.
type SubmitResult struct {
	Answer    types.Answer     `json:"answer"`
	Candidate *types.Candidate `json:"candidate"`
	Next      *types.Question  `json:"nextQuestion,omitempty"`
	Completed bool             `json:"completed"`
	Session   session.State    `json:"session"`
}

// Service runs interviews. It is safe for concurrent use.
type Service struct {
	store       *store.Store
	gateway     *assessment.Gateway
	machine     *session.Machine
	log         *zap.Logger
	newID       func() string
	onEvent     EventHandler
	machineOpts []session.Option
	validate    *validator.Validate

	// background finalizations started by timeouts
	wg sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = logger.OrNop(l) }
}

// WithIDGenerator overrides uuid-based candidate ids.
func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// WithEventHandler registers a workflow event callback.
func WithEventHandler(h EventHandler) Option {
	return func(s *Service) { s.onEvent = h }
}

// WithClock overrides the time source for answer timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.machineOpts = append(s.machineOpts, session.WithClock(now)) }
}

// WithTickerFactory replaces the countdown ticker.
func WithTickerFactory(f func(time.Duration) timer.Ticker) Option {
	return func(s *Service) { s.machineOpts = append(s.machineOpts, session.WithTickerFactory(f)) }
}

// NewService creates a Service over an opened store.
func NewService(st *store.Store, gw *assessment.Gateway, opts ...Option) *Service {
	s := &Service{
		store:    st,
		gateway:  gw,
		log:      zap.NewNop(),
		newID:    uuid.NewString,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	mopts := append([]session.Option{
		session.WithLogger(s.log),
		session.WithOnAutoSubmit(s.handleAutoSubmit),
	}, s.machineOpts...)
	s.machine = session.New(st, mopts...)
	return s
}

// Close stops the session timer and waits for background finalization.
func (s *Service) Close() {
	s.machine.Stop()
	s.wg.Wait()
}

// Wait blocks until background finalizations have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) emit(e Event) {
	if s.onEvent != nil {
		s.onEvent(e)
	}
}

// AddCandidate ingests an uploaded resume and makes the new candidate
// current. Non-empty fields of overrides replace the extracted contact data.
func (s *Service) AddCandidate(ctx context.Context, fileName string, data []byte, overrides types.ContactInfo) (*AddResult, error) {
	resume, err := ingestion.ExtractResume(fileName, data)
	if err != nil {
		return nil, err
	}
	return s.addResume(ctx, resume, overrides)
}

// AddCandidateFromFile is AddCandidate for a resume on disk.
func (s *Service) AddCandidateFromFile(ctx context.Context, path string, overrides types.ContactInfo) (*AddResult, error) {
	resume, err := ingestion.IngestFromFile(path)
	if err != nil {
		return nil, err
	}
	return s.addResume(ctx, resume, overrides)
}

func (s *Service) addResume(ctx context.Context, resume *ingestion.Resume, overrides types.ContactInfo) (*AddResult, error) {
	contact := resume.Contact
	if resume.Placeholder {
		s.log.Warn("resume could not be parsed, using placeholder contact",
			zap.String("file_name", resume.FileName))
	} else {
		contact = s.gateway.ExtractContactInfo(ctx, resume.Text)
	}
	contact = mergeContact(contact, overrides)
	if contact.Email != "" && s.validate.Var(contact.Email, "email") != nil {
		s.log.Warn("dropping malformed email", zap.String("email", contact.Email))
		contact.Email = ""
	}

	candidate := &types.Candidate{
		ID:              s.newID(),
		Name:            contact.Name,
		Email:           contact.Email,
		Phone:           contact.Phone,
		ResumeFileName:  resume.FileName,
		ResumeText:      resume.Text,
		InterviewStatus: types.StatusNotStarted,
	}
	if err := s.store.Add(ctx, candidate); err != nil {
		return nil, fmt.Errorf("failed to add candidate: %w", err)
	}
	if err := s.switchTo(ctx, candidate.ID); err != nil {
		return nil, err
	}

	stored, err := s.store.Get(ctx, candidate.ID)
	if err != nil {
		return nil, err
	}
	res := &AddResult{
		Candidate:     stored,
		MissingFields: fallback.MissingFields(contact),
		Placeholder:   resume.Placeholder,
	}
	if res.MissingFields == nil {
		res.MissingFields = []string{}
	}

	s.log.Info("candidate added",
		zap.String(logger.FieldCandidateID, stored.ID),
		zap.Strings("missing_fields", res.MissingFields),
		zap.Bool("placeholder", resume.Placeholder))
	s.emit(Event{Type: EventCandidateAdded, CandidateID: stored.ID, Message: "candidate added", Content: res})
	return res, nil
}

func mergeContact(base, overrides types.ContactInfo) types.ContactInfo {
	if v := strings.TrimSpace(overrides.Name); v != "" {
		base.Name = v
	}
	if v := strings.TrimSpace(overrides.Email); v != "" {
		base.Email = v
	}
	if v := strings.TrimSpace(overrides.Phone); v != "" {
		base.Phone = v
	}
	return base
}

// UpdateContact fills in contact details collected after ingestion.
func (s *Service) UpdateContact(ctx context.Context, id string, req *types.UpdateContactRequest) (*types.Candidate, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.store.UpdateContact(ctx, id, types.ContactInfo{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Phone: strings.TrimSpace(req.Phone),
	})
}

// switchTo makes id the current candidate, unbinding the session from any other.
func (s *Service) switchTo(ctx context.Context, id string) error {
	if bound := s.machine.CandidateID(); bound != "" && bound != id {
		s.machine.Stop()
	}
	if err := s.store.SetCurrent(ctx, id); err != nil {
		return fmt.Errorf("failed to set current candidate: %w", err)
	}
	return nil
}

// StartInterview generates the question battery for a candidate and starts
// the first question's countdown. Questions already assigned to a candidate
// without answers are reused.
func (s *Service) StartInterview(ctx context.Context, id string) (session.State, error) {
	candidate, err := s.store.Get(ctx, id)
	if err != nil {
		return session.State{}, err
	}
	if candidate.InterviewStatus == types.StatusCompleted {
		return session.State{}, session.ErrAlreadyCompleted
	}
	if len(candidate.Answers) > 0 {
		return session.State{}, session.ErrAlreadyStarted
	}
	if err := s.switchTo(ctx, id); err != nil {
		return session.State{}, err
	}

	if len(candidate.Questions) == 0 {
		questions := s.gateway.GenerateQuestions(ctx, candidate.ResumeText)

		// The candidate may have been switched or cleared while generating.
		fresh, err := s.store.Get(ctx, id)
		if err != nil {
			return session.State{}, err
		}
		if s.store.CurrentID() != id || len(fresh.Questions) > 0 {
			s.discard(id, "generated questions")
			return session.State{}, ErrStale
		}

		candidate, err = s.store.AssignQuestions(ctx, id, questions)
		if err != nil {
			return session.State{}, fmt.Errorf("failed to assign questions: %w", err)
		}
	}

	if err := s.machine.Start(ctx, candidate, candidate.Questions); err != nil {
		return session.State{}, err
	}

	st := s.machine.Snapshot()
	s.emit(Event{Type: EventInterviewStarted, CandidateID: id, Message: "interview started", Content: st})
	return st, nil
}

// Session returns the live session state.
func (s *Service) Session() session.State {
	return s.machine.Snapshot()
}

// SaveDraft buffers the answer being typed.
func (s *Service) SaveDraft(text string) error {
	return s.machine.SetDraft(text)
}

// Pause freezes the countdown.
func (s *Service) Pause() error {
	return s.machine.Pause()
}

// Resume restarts the countdown.
func (s *Service) Resume() error {
	return s.machine.Resume()
}

// Submit records an answer for the current question. A non-empty
// questionID must match the current question. The last answer finalizes
// the interview before Submit returns.
func (s *Service) Submit(ctx context.Context, questionID, text string) (*SubmitResult, error) {
	var (
		res session.Result
		err error
	)
	if questionID != "" {
		res, err = s.machine.SubmitAnswerFor(ctx, questionID, text)
	} else {
		res, err = s.machine.SubmitAnswer(ctx, text)
	}
	if err != nil {
		return nil, err
	}

	candidateID := res.Candidate.ID
	s.emit(Event{Type: EventAnswerRecorded, CandidateID: candidateID, Message: "answer recorded", Content: res.Answer})

	out := &SubmitResult{
		Answer:    res.Answer,
		Candidate: res.Candidate,
		Next:      res.Next,
		Completed: res.Completed,
	}
	if res.Completed {
		final, err := s.finalize(ctx, candidateID)
		if err != nil {
			return nil, err
		}
		out.Candidate = final
	}
	out.Session = s.machine.Snapshot()
	return out, nil
}

// handleAutoSubmit runs on the countdown goroutine after a timeout submit.
func (s *Service) handleAutoSubmit(res session.Result, err error) {
	if err != nil || res.Candidate == nil {
		return
	}
	id := res.Candidate.ID
	s.emit(Event{Type: EventAnswerRecorded, CandidateID: id, Message: "answer auto-submitted", Content: res.Answer})
	if !res.Completed {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.finalize(context.Background(), id); err != nil && !errors.Is(err, ErrStale) {
			s.log.Error("failed to finalize interview", zap.String(logger.FieldCandidateID, id), zap.Error(err))
		}
	}()
}

// finalize scores the candidate's answers using one availability snapshot.
func (s *Service) finalize(ctx context.Context, id string) (*types.Candidate, error) {
	if s.store.CurrentID() != id {
		s.discard(id, "final scores")
		return nil, ErrStale
	}
	final, err := s.machine.Finalize(ctx, id, s.gateway.Snapshot())
	if errors.Is(err, session.ErrStale) {
		s.discard(id, "final scores")
		return nil, ErrStale
	}
	if err != nil {
		return nil, fmt.Errorf("failed to finalize interview: %w", err)
	}
	s.emit(Event{Type: EventInterviewCompleted, CandidateID: id, Message: "interview completed", Content: final})
	return final, nil
}

func (s *Service) discard(id, what string) {
	s.log.Warn("discarding stale result",
		zap.String(logger.FieldCandidateID, id),
		zap.String("result", what))
	s.emit(Event{Type: EventResultDiscarded, CandidateID: id, Message: "discarded stale " + what})
}

// WelcomeBack returns the candidate with an unfinished interview, or nil.
func (s *Service) WelcomeBack(ctx context.Context) (*types.Candidate, error) {
	c, err := s.store.InProgress(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return c, err
}

// Restore resumes a persisted interview. The current question restarts with
// its full time limit. An interview whose answers are all recorded is
// finalized immediately.
func (s *Service) Restore(ctx context.Context, id string) (session.State, error) {
	candidate, err := s.store.Get(ctx, id)
	if err != nil {
		return session.State{}, err
	}
	if err := s.switchTo(ctx, id); err != nil {
		return session.State{}, err
	}
	if err := s.machine.Restore(ctx, candidate); err != nil {
		return session.State{}, err
	}

	st := s.machine.Snapshot()
	if st.Completed {
		if _, err := s.finalize(ctx, id); err != nil {
			return session.State{}, err
		}
		st = s.machine.Snapshot()
	}
	return st, nil
}

// Clear ends the current session without deleting any record.
func (s *Service) Clear(ctx context.Context) error {
	s.machine.Stop()
	if err := s.store.ClearCurrent(ctx); err != nil {
		return fmt.Errorf("failed to clear current candidate: %w", err)
	}
	return nil
}

// Candidate returns one candidate.
func (s *Service) Candidate(ctx context.Context, id string) (*types.Candidate, error) {
	return s.store.Get(ctx, id)
}

// AssessmentStatus reports the gateway's availability.
func (s *Service) AssessmentStatus() assessment.Status {
	return s.gateway.Status()
}

// ResetAssessment clears a quota lockout so the next call retries the service.
func (s *Service) ResetAssessment() assessment.Status {
	s.gateway.ResetStatus()
	return s.gateway.Status()
}
