package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-assistant/internal/fallback"
	"github.com/jonathan/interview-assistant/internal/types"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, backend Backend) *Store {
	t.Helper()
	if backend == nil {
		backend = NewMemoryBackend()
	}
	s := New(backend, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, s.Open(context.Background()))
	return s
}

func addWithQuestions(t *testing.T, s *Store, id string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, &types.Candidate{ID: id, Name: "Alice Johnson", Email: "alice@tech.com"}))
	_, err := s.AssignQuestions(ctx, id, fallback.Questions())
	require.NoError(t, err)
}

func answerFor(id string) types.Answer {
	return types.Answer{QuestionID: id, Text: "answer", TimeSpent: 10, SubmittedAt: fixedNow}
}

func TestStore_AddAndGet(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, &types.Candidate{ID: "c1", Name: "Alice"}))

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusNotStarted, got.InterviewStatus)
	assert.Equal(t, fixedNow, got.CreatedAt)

	err = s.Add(ctx, &types.Candidate{ID: "c1"})
	assert.ErrorIs(t, err, ErrDuplicateID)

	err = s.Add(ctx, &types.Candidate{ID: "c2", Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrInvariant)

	_, err = s.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := newTestStore(t, nil)
	addWithQuestions(t, s, "c1")

	got, err := s.Get(context.Background(), "c1")
	require.NoError(t, err)
	got.Name = "Mallory"
	got.Questions[0].Text = "changed"

	again, err := s.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Alice Johnson", again.Name)
	assert.NotEqual(t, "changed", again.Questions[0].Text)
}

func TestStore_RecordAnswer(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	addWithQuestions(t, s, "c1")

	updated, err := s.RecordAnswer(ctx, "c1", answerFor("q1"))
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CurrentQuestionIndex)
	assert.Len(t, updated.Answers, 1)

	// Answer for the wrong question is rejected without mutation.
	_, err = s.RecordAnswer(ctx, "c1", answerFor("q5"))
	assert.ErrorIs(t, err, ErrInvariant)

	got, _ := s.Get(ctx, "c1")
	assert.Equal(t, 1, got.CurrentQuestionIndex)
	assert.Len(t, got.Answers, 1)

	for _, id := range []string{"q2", "q3", "q4", "q5", "q6"} {
		_, err = s.RecordAnswer(ctx, "c1", answerFor(id))
		require.NoError(t, err)
	}

	_, err = s.RecordAnswer(ctx, "c1", answerFor("q7"))
	assert.ErrorIs(t, err, ErrInvariant)

	_, err = s.RecordAnswer(ctx, "missing", answerFor("q1"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_AssignQuestionsAfterAnswers(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	addWithQuestions(t, s, "c1")

	_, err := s.RecordAnswer(ctx, "c1", answerFor("q1"))
	require.NoError(t, err)

	_, err = s.AssignQuestions(ctx, "c1", fallback.Questions())
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestStore_UpdateStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    types.InterviewStatus
		to      types.InterviewStatus
		wantErr error
	}{
		{"start", types.StatusNotStarted, types.StatusInProgress, nil},
		{"same", types.StatusInProgress, types.StatusInProgress, nil},
		{"skip ahead", types.StatusNotStarted, types.StatusCompleted, nil},
		{"regress", types.StatusCompleted, types.StatusInProgress, ErrStatusRegression},
		{"regress to start", types.StatusInProgress, types.StatusNotStarted, ErrStatusRegression},
		{"unknown", types.StatusNotStarted, "paused", ErrInvariant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, nil)
			ctx := context.Background()
			require.NoError(t, s.Add(ctx, &types.Candidate{ID: "c1", InterviewStatus: tt.from}))

			err := s.UpdateStatus(ctx, "c1", tt.to)

			got, _ := s.Get(ctx, "c1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, got.InterviewStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, got.InterviewStatus)
		})
	}
}

func TestStore_SetFinalScore(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	addWithQuestions(t, s, "c1")
	for _, id := range []string{"q1", "q2"} {
		_, err := s.RecordAnswer(ctx, "c1", answerFor(id))
		require.NoError(t, err)
	}

	assert.ErrorIs(t, s.SetFinalScore(ctx, "c1", 101, "x", nil), ErrInvariant)
	assert.ErrorIs(t, s.SetFinalScore(ctx, "c1", 50, "x", []int{1}), ErrInvariant)

	require.NoError(t, s.SetFinalScore(ctx, "c1", 75, "Solid fundamentals.", []int{70, 80}))

	got, _ := s.Get(ctx, "c1")
	assert.Equal(t, types.StatusCompleted, got.InterviewStatus)
	require.NotNil(t, got.FinalScore)
	assert.Equal(t, 75, *got.FinalScore)
	assert.Equal(t, "Solid fundamentals.", got.AISummary)
	assert.Equal(t, 70, *got.Answers[0].Score)
	assert.Equal(t, 80, *got.Answers[1].Score)

	_, err := s.RecordAnswer(ctx, "c1", answerFor("q3"))
	assert.ErrorIs(t, err, ErrInvariant, "completed interviews take no more answers")
}

func TestStore_CurrentPointer(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, &types.Candidate{ID: "c1"}))

	_, err := s.Current(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetCurrent(ctx, "c1"))
	cur, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c1", cur.ID)

	require.NoError(t, s.SetCurrent(ctx, "unknown"))
	assert.Equal(t, "", s.CurrentID())

	require.NoError(t, s.SetCurrent(ctx, "c1"))
	require.NoError(t, s.ClearCurrent(ctx))
	require.NoError(t, s.ClearCurrent(ctx))
	assert.Equal(t, "", s.CurrentID())

	_, err = s.Get(ctx, "c1")
	assert.NoError(t, err, "clearing the pointer keeps the record")
}

func TestStore_InProgressAndList(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, &types.Candidate{ID: "a", InterviewStatus: types.StatusCompleted}))
	require.NoError(t, s.Add(ctx, &types.Candidate{ID: "b", InterviewStatus: types.StatusInProgress}))
	require.NoError(t, s.Add(ctx, &types.Candidate{ID: "c", InterviewStatus: types.StatusInProgress}))

	got, err := s.InProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID)

	list := s.List(ctx)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{list[0].ID, list[1].ID, list[2].ID})

	empty := newTestStore(t, nil)
	_, err = empty.InProgress(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ReopenRestoresState(t *testing.T) {
	backend := NewMemoryBackend()
	s := newTestStore(t, backend)
	ctx := context.Background()
	addWithQuestions(t, s, "c1")
	_, err := s.RecordAnswer(ctx, "c1", answerFor("q1"))
	require.NoError(t, err)
	require.NoError(t, s.SetCurrent(ctx, "c1"))

	reopened := newTestStore(t, backend)

	cur, err := reopened.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cur.CurrentQuestionIndex)
	assert.Len(t, cur.Questions, 6)
	assert.Equal(t, "q1", cur.Answers[0].QuestionID)
}

func TestStore_OpenCorrupt(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, backend.Save(context.Background(), []byte(`{"candidates":[{"id":"c1","interviewStatus":"paused"}]}`)))

	err := New(backend).Open(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")
}

type failingBackend struct {
	*MemoryBackend
	fail bool
}

func (f *failingBackend) Save(ctx context.Context, data []byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.MemoryBackend.Save(ctx, data)
}

func TestStore_SaveFailureRollsBack(t *testing.T) {
	backend := &failingBackend{MemoryBackend: NewMemoryBackend()}
	s := newTestStore(t, backend)
	ctx := context.Background()
	addWithQuestions(t, s, "c1")

	backend.fail = true

	_, err := s.RecordAnswer(ctx, "c1", answerFor("q1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	err = s.Add(ctx, &types.Candidate{ID: "c2"})
	require.Error(t, err)
	assert.Error(t, s.SetCurrent(ctx, "c1"))

	got, _ := s.Get(ctx, "c1")
	assert.Empty(t, got.Answers)
	_, err = s.Get(ctx, "c2")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "", s.CurrentID())
}

func TestStore_PersistsEveryMutation(t *testing.T) {
	backend := NewMemoryBackend()
	s := newTestStore(t, backend)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, &types.Candidate{ID: "c1"}))
	require.NoError(t, s.SetCurrent(ctx, "c1"))
	require.NoError(t, s.UpdateStatus(ctx, "c1", types.StatusInProgress))

	assert.Equal(t, 3, backend.Saves())
}

func TestStore_UpdatedAtNeverRegresses(t *testing.T) {
	ctx := context.Background()
	now := fixedNow
	s := New(NewMemoryBackend(), WithClock(func() time.Time { return now }))
	require.NoError(t, s.Open(ctx))
	addWithQuestions(t, s, "c1")

	now = fixedNow.Add(-time.Hour)
	got, err := s.RecordAnswer(ctx, "c1", answerFor("q1"))
	require.NoError(t, err)
	assert.Equal(t, fixedNow, got.UpdatedAt)

	now = fixedNow.Add(time.Minute)
	got, err = s.UpdateContact(ctx, "c1", types.ContactInfo{Name: "Alice Johnson", Email: "alice@tech.com", Phone: "555-123-4567"})
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(time.Minute), got.UpdatedAt)
}
