package assessment

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/jonathan/interview-assistant/internal/fallback"
	"github.com/jonathan/interview-assistant/internal/llm"
	"github.com/jonathan/interview-assistant/internal/llm/llmtest"
	"github.com/jonathan/interview-assistant/internal/types"
)

const sixQuestions = `{"questions":[
	{"id":"g1","text":"What does useState return?","difficulty":"easy","timeLimit":50,"category":"React"},
	{"id":"g2","text":"What is the event loop?","difficulty":"easy","timeLimit":50,"category":"Node.js"},
	{"id":"g3","text":"How do you memoize a component?","difficulty":"medium","timeLimit":90,"category":"React"},
	{"id":"g4","text":"How do Express error handlers work?","difficulty":"medium","timeLimit":90,"category":"Node.js"},
	{"id":"g5","text":"Design a rate limiter for an API.","difficulty":"hard","timeLimit":150,"category":"Architecture"},
	{"id":"g6","text":"Shard a session store.","difficulty":"hard","timeLimit":150,"category":"Architecture"}
]}`

var errQuota = &googleapi.Error{Code: http.StatusTooManyRequests, Message: "quota exceeded"}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestGateway(client llm.Client, clock *fakeClock) *Gateway {
	opts := []Option{
		WithThrottle(NoThrottle()),
		WithScorer(fallback.NewScorer(nil)),
	}
	if clock != nil {
		opts = append(opts, WithClock(clock.Now))
	}
	return NewGateway(client, opts...)
}

func TestGateway_Offline(t *testing.T) {
	g := newTestGateway(nil, nil)

	assert.False(t, g.Available())
	st := g.Status()
	assert.True(t, st.Offline)
	assert.False(t, st.Available)
	assert.False(t, st.QuotaExceeded)

	assert.Equal(t, fallback.Questions(), g.GenerateQuestions(context.Background(), "resume"))

	q := fallback.Questions()[2]
	assert.Equal(t, 40, g.EvaluateAnswer(context.Background(), q, "short"))

	info := g.ExtractContactInfo(context.Background(), "Alice Johnson\nalice.johnson@tech.com\n(555) 456-7890")
	assert.Equal(t, "Alice Johnson", info.Name)
	assert.Equal(t, "alice.johnson@tech.com", info.Email)

	g.ResetStatus()
	assert.False(t, g.Available(), "reset does not bring an offline gateway online")
}

func TestGateway_QuotaFailureAndRecheck(t *testing.T) {
	clock := newFakeClock()
	fail := true
	mock := &llmtest.MockClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			if fail {
				return "", errQuota
			}
			return sixQuestions, nil
		},
	}
	g := newTestGateway(mock, clock)

	before := testutil.ToFloat64(callsTotal.WithLabelValues(string(OpGenerateQuestions), outcomeQuota))

	got := g.GenerateQuestions(context.Background(), "resume")
	assert.Equal(t, fallback.Questions(), got)
	assert.False(t, g.Available())
	assert.True(t, g.Status().QuotaExceeded)
	assert.Equal(t, clock.Now(), g.Status().LastCheck)
	assert.Equal(t, before+1, testutil.ToFloat64(callsTotal.WithLabelValues(string(OpGenerateQuestions), outcomeQuota)))

	// Within the cooldown nothing calls out.
	clock.Advance(4 * time.Minute)
	g.GenerateQuestions(context.Background(), "resume")
	jsonCalls, _ := mock.Calls()
	assert.Equal(t, 1, jsonCalls)

	// After the recheck interval one trial call goes out and clears the flag.
	clock.Advance(time.Minute)
	fail = false
	assert.True(t, g.Available())
	got = g.GenerateQuestions(context.Background(), "resume")
	assert.Equal(t, "g1", got[0].ID)
	jsonCalls, _ = mock.Calls()
	assert.Equal(t, 2, jsonCalls)
	assert.False(t, g.Status().QuotaExceeded)
}

func TestGateway_TrialFailureRearmsCooldown(t *testing.T) {
	clock := newFakeClock()
	mock := &llmtest.MockClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "", errors.New("You exceeded your current quota")
		},
	}
	g := newTestGateway(mock, clock)

	g.GenerateQuestions(context.Background(), "r")
	clock.Advance(DefaultRecheckInterval)
	g.GenerateQuestions(context.Background(), "r")

	assert.False(t, g.Available())
	assert.Equal(t, clock.Now(), g.Status().LastCheck)
}

func TestGateway_NonQuotaFailureKeepsAvailability(t *testing.T) {
	tests := []struct {
		name string
		resp string
		err  error
	}{
		{"malformed json", "Sure! Here are some questions.", nil},
		{"network error", "", errors.New("connection reset by peer")},
		{"timeout", "", context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &llmtest.MockClient{
				GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
					return tt.resp, tt.err
				},
			}
			g := newTestGateway(mock, nil)

			assert.Equal(t, fallback.Questions(), g.GenerateQuestions(context.Background(), "r"))
			assert.True(t, g.Available())
		})
	}
}

func TestGateway_InFlightSuccessKeepsQuotaFlag(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	mock := &llmtest.MockClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
			if strings.Contains(prompt, "slow answer") {
				close(entered)
				<-release
				return `{"score": 88}`, nil
			}
			return "", errQuota
		},
	}
	g := newTestGateway(mock, nil)
	b := g.Snapshot()
	q := fallback.Questions()[0]

	var wg sync.WaitGroup
	var slowScore int
	wg.Add(1)
	go func() {
		defer wg.Done()
		slowScore = b.EvaluateAnswer(context.Background(), q, "slow answer")
	}()
	<-entered

	b.EvaluateAnswer(context.Background(), q, "quota answer")
	require.False(t, g.Available())

	close(release)
	wg.Wait()

	assert.Equal(t, 88, slowScore)
	assert.False(t, g.Available(), "a call started before the quota failure must not clear it")
	assert.True(t, g.Status().QuotaExceeded)
}

func TestGateway_ResetStatus(t *testing.T) {
	mock := &llmtest.MockClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "", errQuota
		},
	}
	g := newTestGateway(mock, newFakeClock())

	g.GenerateQuestions(context.Background(), "r")
	require.False(t, g.Available())

	g.ResetStatus()
	st := g.Status()
	assert.True(t, st.Available)
	assert.False(t, st.QuotaExceeded)
	assert.True(t, st.LastCheck.IsZero())
}

func TestGateway_CallTimeout(t *testing.T) {
	mock := &llmtest.MockClient{
		GenerateJSONFunc: func(ctx context.Context, _ string, _ llm.ModelTier) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	g := NewGateway(mock, WithThrottle(NoThrottle()), WithCallTimeout(10*time.Millisecond))

	assert.Equal(t, fallback.Questions(), g.GenerateQuestions(context.Background(), "r"))
	assert.True(t, g.Available())
}

func TestGenerateQuestions_PromptCarriesResume(t *testing.T) {
	mock := &llmtest.MockClient{
		GenerateJSONFunc: func(_ context.Context, _ string, tier llm.ModelTier) (string, error) {
			assert.Equal(t, llm.TierStandard, tier)
			return "```json\n" + sixQuestions + "\n```", nil
		},
	}
	g := newTestGateway(mock, nil)

	got := g.GenerateQuestions(context.Background(), "Built React dashboards at Acme")

	require.Len(t, got, types.QuestionsPerInterview)
	assert.Equal(t, "What does useState return?", got[0].Text)
	assert.Equal(t, types.DifficultyHard, got[5].Difficulty)
	assert.Contains(t, mock.Prompts()[0], "Built React dashboards at Acme")
}

func TestWaitFor(t *testing.T) {
	orig := sleep
	t.Cleanup(func() { sleep = orig })

	var slept time.Duration
	sleep = func(d time.Duration) { slept = d }

	require.NoError(t, WaitFor(context.Background(), 1500*time.Millisecond))
	assert.Equal(t, 1500*time.Millisecond, slept)

	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	sleep = func(time.Duration) { <-block }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, WaitFor(ctx, time.Second), context.Canceled)
	assert.NoError(t, WaitFor(context.Background(), 0))
}

func TestThrottle_Delay(t *testing.T) {
	th := DefaultThrottle()
	assert.Equal(t, time.Second, th.delay(OpExtractContact))
	assert.Equal(t, 2*time.Second, th.delay(OpGenerateQuestions))
	assert.Equal(t, 1500*time.Millisecond, th.delay(OpEvaluateAnswer))
	assert.Equal(t, 2500*time.Millisecond, th.delay(OpGenerateSummary))
	assert.Zero(t, NoThrottle().delay(OpGenerateSummary))
}
