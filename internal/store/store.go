// Package store keeps the candidate records and the "current candidate"
// pointer, persisting the whole collection as one JSON document through a
// pluggable Backend.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/interview-assistant/internal/logger"
	"github.com/jonathan/interview-assistant/internal/schemas"
	"github.com/jonathan/interview-assistant/internal/types"
)

var (
	// ErrNotFound is returned for unknown candidate ids, and by backends with nothing saved yet.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateID is returned when adding a candidate whose id already exists.
	ErrDuplicateID = errors.New("candidate id already exists")
	// ErrInvariant is returned when a mutation would break the candidate record's consistency.
	ErrInvariant = errors.New("candidate invariant violated")
	// ErrStatusRegression is returned when moving a candidate to an earlier status.
	ErrStatusRegression = errors.New("interview status cannot move backwards")
)

// Backend persists the serialized store.
type Backend interface {
	// Load returns the saved document or ErrNotFound.
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

type document struct {
	Candidates         []*types.Candidate `json:"candidates"`
	CurrentCandidateID string             `json:"currentCandidateId,omitempty"`
}

// Store is the candidate collection. Returned candidates are always copies.
type Store struct {
	backend Backend
	log     *zap.Logger
	now     func() time.Time

	mu         sync.RWMutex
	candidates []*types.Candidate
	index      map[string]int
	current    string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = logger.OrNop(l) }
}

// WithClock overrides the time source for CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store. Call Open to load persisted data.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		log:     zap.NewNop(),
		now:     time.Now,
		index:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads the persisted collection. Nothing saved yet is an empty store.
func (s *Store) Open(ctx context.Context) error {
	data, err := s.backend.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		s.log.Info("no saved candidates, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load candidates: %w", err)
	}

	if err := schemas.Validate(schemas.Store, string(data)); err != nil {
		return fmt.Errorf("saved candidates are corrupt: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse saved candidates: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.candidates = s.candidates[:0]
	s.index = make(map[string]int, len(doc.Candidates))
	for _, c := range doc.Candidates {
		if c == nil {
			continue
		}
		if _, dup := s.index[c.ID]; dup {
			s.log.Warn("skipping duplicate saved candidate", zap.String(logger.FieldCandidateID, c.ID))
			continue
		}
		s.index[c.ID] = len(s.candidates)
		s.candidates = append(s.candidates, c)
	}

	s.current = ""
	if _, ok := s.index[doc.CurrentCandidateID]; ok {
		s.current = doc.CurrentCandidateID
	}

	s.log.Info("loaded candidates", zap.Int("count", len(s.candidates)), zap.String("current", s.current))
	return nil
}

// Add inserts a new candidate. Missing status and timestamps are filled in.
func (s *Store) Add(ctx context.Context, candidate *types.Candidate) error {
	c := candidate.Clone()
	if c.InterviewStatus == "" {
		c.InterviewStatus = types.StatusNotStarted
	}
	now := s.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvariant, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[c.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, c.ID)
	}

	s.index[c.ID] = len(s.candidates)
	s.candidates = append(s.candidates, c)
	if err := s.persistLocked(ctx); err != nil {
		s.candidates = s.candidates[:len(s.candidates)-1]
		delete(s.index, c.ID)
		return err
	}
	return nil
}

// SetCurrent points the session at id. An unknown id clears the pointer.
func (s *Store) SetCurrent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := ""
	if _, ok := s.index[id]; ok {
		next = id
	}
	return s.setCurrentLocked(ctx, next)
}

// ClearCurrent unsets the current candidate. Records are kept.
func (s *Store) ClearCurrent(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setCurrentLocked(ctx, "")
}

func (s *Store) setCurrentLocked(ctx context.Context, id string) error {
	if s.current == id {
		return nil
	}
	prev := s.current
	s.current = id
	if err := s.persistLocked(ctx); err != nil {
		s.current = prev
		return err
	}
	return nil
}

// AssignQuestions stores the interview questions. They cannot be replaced
// once answers have been recorded.
func (s *Store) AssignQuestions(ctx context.Context, id string, questions []types.Question) (*types.Candidate, error) {
	return s.update(ctx, id, func(c *types.Candidate) error {
		if len(c.Answers) > 0 {
			return fmt.Errorf("%w: questions already answered", ErrInvariant)
		}
		c.Questions = append([]types.Question(nil), questions...)
		c.CurrentQuestionIndex = 0
		return nil
	})
}

// UpdateContact replaces the candidate's name, email and phone.
func (s *Store) UpdateContact(ctx context.Context, id string, info types.ContactInfo) (*types.Candidate, error) {
	return s.update(ctx, id, func(c *types.Candidate) error {
		c.Name = info.Name
		c.Email = info.Email
		c.Phone = info.Phone
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvariant, err)
		}
		return nil
	})
}

// RecordAnswer appends the answer to the current question and advances the index.
func (s *Store) RecordAnswer(ctx context.Context, candidateID string, answer types.Answer) (*types.Candidate, error) {
	return s.update(ctx, candidateID, func(c *types.Candidate) error {
		if c.InterviewStatus == types.StatusCompleted {
			return fmt.Errorf("%w: interview already completed", ErrInvariant)
		}
		if len(c.Answers) >= len(c.Questions) || c.CurrentQuestionIndex >= len(c.Questions) {
			return fmt.Errorf("%w: all %d questions already answered", ErrInvariant, len(c.Questions))
		}
		if want := c.Questions[c.CurrentQuestionIndex].ID; answer.QuestionID != want {
			return fmt.Errorf("%w: answer for %q, current question is %q", ErrInvariant, answer.QuestionID, want)
		}
		c.Answers = append(c.Answers, answer)
		c.CurrentQuestionIndex++
		return nil
	})
}

// UpdateStatus moves the candidate forward through the interview statuses.
func (s *Store) UpdateStatus(ctx context.Context, id string, status types.InterviewStatus) error {
	_, err := s.update(ctx, id, func(c *types.Candidate) error {
		if !status.Valid() {
			return fmt.Errorf("%w: unknown status %q", ErrInvariant, status)
		}
		if status.Rank() < c.InterviewStatus.Rank() {
			return fmt.Errorf("%w: %s to %s", ErrStatusRegression, c.InterviewStatus, status)
		}
		c.InterviewStatus = status
		return nil
	})
	return err
}

// SetFinalScore stores the final score, summary and per-answer scores and
// marks the candidate completed. A nil answerScores leaves answers untouched.
func (s *Store) SetFinalScore(ctx context.Context, id string, score int, summary string, answerScores []int) error {
	_, err := s.update(ctx, id, func(c *types.Candidate) error {
		if score < 0 || score > 100 {
			return fmt.Errorf("%w: final score %d out of range", ErrInvariant, score)
		}
		if answerScores != nil && len(answerScores) != len(c.Answers) {
			return fmt.Errorf("%w: %d scores for %d answers", ErrInvariant, len(answerScores), len(c.Answers))
		}
		for i, sc := range answerScores {
			c.Answers[i].Score = types.IntPtr(sc)
		}
		c.FinalScore = types.IntPtr(score)
		c.AISummary = summary
		c.InterviewStatus = types.StatusCompleted
		return nil
	})
	return err
}

// Get returns the candidate with id.
func (s *Store) Get(_ context.Context, id string) (*types.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: candidate %s", ErrNotFound, id)
	}
	return s.candidates[i].Clone(), nil
}

// Current returns the candidate the session points at, or ErrNotFound.
func (s *Store) Current(ctx context.Context) (*types.Candidate, error) {
	s.mu.RLock()
	id := s.current
	s.mu.RUnlock()

	if id == "" {
		return nil, fmt.Errorf("%w: no current candidate", ErrNotFound)
	}
	return s.Get(ctx, id)
}

// CurrentID returns the id of the current candidate, or "".
func (s *Store) CurrentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// List returns every candidate in insertion order.
func (s *Store) List(_ context.Context) []*types.Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Candidate, len(s.candidates))
	for i, c := range s.candidates {
		out[i] = c.Clone()
	}
	return out
}

// InProgress returns the first candidate with an unfinished interview, or ErrNotFound.
func (s *Store) InProgress(_ context.Context) (*types.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.candidates {
		if c.InterviewStatus == types.StatusInProgress {
			return c.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: no interview in progress", ErrNotFound)
}

// update applies fn to a copy of the candidate and commits it only once
// persisted, so a rejected or failed mutation leaves the store unchanged.
func (s *Store) update(ctx context.Context, id string, fn func(c *types.Candidate) error) (*types.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: candidate %s", ErrNotFound, id)
	}

	next := s.candidates[i].Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	prev := s.candidates[i]
	next.UpdatedAt = prev.UpdatedAt
	if now := s.now(); now.After(prev.UpdatedAt) {
		next.UpdatedAt = now
	}

	s.candidates[i] = next
	if err := s.persistLocked(ctx); err != nil {
		s.candidates[i] = prev
		return nil, err
	}
	return next.Clone(), nil
}

func (s *Store) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(document{
		Candidates:         s.candidates,
		CurrentCandidateID: s.current,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal candidates: %w", err)
	}
	if err := s.backend.Save(ctx, data); err != nil {
		return fmt.Errorf("failed to save candidates: %w", err)
	}
	return nil
}
