package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jonathan/interview-assistant/internal/assessment"
	"github.com/jonathan/interview-assistant/internal/config"
	"github.com/jonathan/interview-assistant/internal/interview"
	"github.com/jonathan/interview-assistant/internal/server/ratelimit"
	"github.com/jonathan/interview-assistant/internal/session"
	"github.com/jonathan/interview-assistant/internal/store"
	"github.com/jonathan/interview-assistant/internal/timer"
	"github.com/jonathan/interview-assistant/internal/types"
)

const testPassword = "correct horse battery"

// idleTicker never fires, so countdowns never expire during a test.
type idleTicker struct{ ch chan time.Time }

func (t idleTicker) C() <-chan time.Time { return t.ch }
func (t idleTicker) Stop()               {}

type testServer struct {
	srv     *Server
	handler http.Handler
	store   *store.Store
	broker  *Broker
}

type serverOption func(*Config)

func withoutDashboard() serverOption {
	return func(c *Config) { c.JWT = nil }
}

func withRateLimit(rl *ratelimit.Config) serverOption {
	return func(c *Config) { c.RateLimit = rl }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	ctx := context.Background()

	st := store.New(store.NewMemoryBackend())
	require.NoError(t, st.Open(ctx))
	gw := assessment.NewGateway(nil, assessment.WithThrottle(assessment.NoThrottle()))

	broker := NewBroker()
	n := 0
	svc := interview.NewService(st, gw,
		interview.WithEventHandler(broker.Publish),
		interview.WithTickerFactory(func(time.Duration) timer.Ticker { return idleTicker{ch: make(chan time.Time)} }),
		interview.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("cand-%d", n)
		}))
	t.Cleanup(svc.Close)

	jwtCfg, err := config.NewJWTConfig(testSecret, 1)
	require.NoError(t, err)
	pwCfg, err := config.NewPasswordConfig(bcrypt.MinCost, "")
	require.NoError(t, err)
	hash, err := pwCfg.HashPassword(testPassword)
	require.NoError(t, err)

	cfg := Config{
		Port:         0,
		RateLimit:    &ratelimit.Config{Enabled: false},
		JWT:          jwtCfg,
		Password:     pwCfg,
		PasswordHash: hash,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv, err := New(svc, cfg, WithBroker(broker))
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, handler: srv.Handler(), store: st, broker: broker}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) upload(t *testing.T, fileName string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileName != "" {
		fw, err := mw.CreateFormFile("resume", fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/candidates", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) token(t *testing.T) string {
	t.Helper()
	rr := ts.do(t, http.MethodPost, "/auth/token", types.TokenRequest{Password: testPassword}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp types.TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 3600, resp.ExpiresIn)
	return resp.Token
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = ts.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "# HELP")
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodOptions, "/session/answer", nil, "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestAddCandidate(t *testing.T) {
	tests := []struct {
		name       string
		fileName   string
		wantStatus int
		wantError  string
	}{
		{"unsupported format", "resume.txt", http.StatusBadRequest, "Unsupported file format"},
		{"missing file", "", http.StatusBadRequest, "resume"},
		{"unparseable pdf falls back", "jane_smith.pdf", http.StatusCreated, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)

			rr := ts.upload(t, tt.fileName, []byte("not really a document"), nil)

			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantError != "" {
				assert.Contains(t, decode[map[string]string](t, rr)["error"], tt.wantError)
				return
			}
			res := decode[interview.AddResult](t, rr)
			assert.Equal(t, "cand-1", res.Candidate.ID)
			assert.True(t, res.Placeholder)
			assert.NotNil(t, res.MissingFields)
			assert.Equal(t, "cand-1", ts.store.CurrentID())
		})
	}
}

func TestAddCandidate_Overrides(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.upload(t, "resume.docx", []byte("garbage"), map[string]string{
		"name":  "Alice Johnson",
		"email": "alice@tech.com",
		"phone": "555-456-7890",
	})

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	res := decode[interview.AddResult](t, rr)
	assert.Equal(t, "Alice Johnson", res.Candidate.Name)
	assert.Equal(t, "alice@tech.com", res.Candidate.Email)
	assert.Empty(t, res.MissingFields)
}

func TestUpdateContact(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.upload(t, "resume.pdf", []byte("x"), nil).Code)

	tests := []struct {
		name       string
		id         string
		body       any
		wantStatus int
	}{
		{"valid", "cand-1", types.UpdateContactRequest{Name: "Bob", Email: "bob@x.io", Phone: "555-0100"}, http.StatusOK},
		{"bad email", "cand-1", types.UpdateContactRequest{Name: "Bob", Email: "bob", Phone: "555-0100"}, http.StatusBadRequest},
		{"unknown candidate", "nope", types.UpdateContactRequest{Name: "Bob", Email: "bob@x.io", Phone: "555-0100"}, http.StatusNotFound},
		{"bad json", "cand-1", "{", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, http.MethodPut, "/candidates/"+tt.id+"/contact", tt.body, "")
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
		})
	}

	c, err := ts.store.Get(context.Background(), "cand-1")
	require.NoError(t, err)
	assert.Equal(t, "bob@x.io", c.Email)
}

func TestInterviewFlow(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.upload(t, "resume.pdf", []byte("x"), map[string]string{"name": "Alice"}).Code)

	rr := ts.do(t, http.MethodPost, "/candidates/cand-1/start", nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	st := decode[session.State](t, rr)
	require.NotNil(t, st.CurrentQuestion)
	assert.True(t, st.IsActive)
	assert.Equal(t, types.QuestionsPerInterview, st.TotalQuestions)
	assert.Equal(t, st.CurrentQuestion.TimeLimit, st.TimeRemaining)

	rr = ts.do(t, http.MethodPut, "/session/draft", types.AnswerRequest{Text: "half an answer"}, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "half an answer", decode[session.State](t, ts.do(t, http.MethodGet, "/session", nil, "")).Draft)

	rr = ts.do(t, http.MethodPost, "/session/pause", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[session.State](t, rr).IsPaused)
	rr = ts.do(t, http.MethodPost, "/session/resume", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[session.State](t, rr).IsPaused)

	welcome := decode[map[string]any](t, ts.do(t, http.MethodGet, "/session/welcome-back", nil, ""))
	assert.Equal(t, true, welcome["pending"])

	var last interview.SubmitResult
	for i := 0; i < types.QuestionsPerInterview; i++ {
		current := decode[session.State](t, ts.do(t, http.MethodGet, "/session", nil, "")).CurrentQuestion
		require.NotNil(t, current, "question %d", i)

		rr = ts.do(t, http.MethodPost, "/session/answer", types.AnswerRequest{
			QuestionID: current.ID,
			Text:       "I would use a hook with a dependency array and memoize the callback",
		}, "")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		last = decode[interview.SubmitResult](t, rr)
	}

	assert.True(t, last.Completed)
	require.NotNil(t, last.Candidate)
	assert.Equal(t, types.StatusCompleted, last.Candidate.InterviewStatus)
	require.NotNil(t, last.Candidate.FinalScore)
	assert.NotEmpty(t, last.Candidate.AISummary)
	assert.False(t, last.Session.IsActive)

	rr = ts.do(t, http.MethodPost, "/candidates/cand-1/start", nil, "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	welcome = decode[map[string]any](t, ts.do(t, http.MethodGet, "/session/welcome-back", nil, ""))
	assert.Equal(t, false, welcome["pending"])
}

func TestSubmitAnswer_Conflicts(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/session/answer", types.AnswerRequest{Text: "hello"}, "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	require.Equal(t, http.StatusCreated, ts.upload(t, "resume.pdf", []byte("x"), nil).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/candidates/cand-1/start", nil, "").Code)

	rr = ts.do(t, http.MethodPost, "/session/answer", types.AnswerRequest{QuestionID: "not-current", Text: "late"}, "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = ts.do(t, http.MethodPost, "/candidates/missing/start", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestClearAndRestore(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.upload(t, "resume.pdf", []byte("x"), nil).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/candidates/cand-1/start", nil, "").Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/session/answer", types.AnswerRequest{Text: "first"}, "").Code)

	rr := ts.do(t, http.MethodDelete, "/session", nil, "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, ts.store.CurrentID())
	assert.False(t, decode[session.State](t, ts.do(t, http.MethodGet, "/session", nil, "")).IsActive)

	rr = ts.do(t, http.MethodPost, "/candidates/cand-1/restore", nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	st := decode[session.State](t, rr)
	assert.Equal(t, 1, st.QuestionIndex)
	assert.True(t, st.IsActive)
}

func TestDashboard_RequiresToken(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/candidates", "/candidates/cand-1", "/assessment/status"} {
		t.Run(path, func(t *testing.T) {
			rr := ts.do(t, http.MethodGet, path, nil, "")
			assert.Equal(t, http.StatusUnauthorized, rr.Code)

			rr = ts.do(t, http.MethodGet, path, nil, "forged")
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func TestIssueToken(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{"wrong password", types.TokenRequest{Password: "guess"}, http.StatusUnauthorized},
		{"empty password", types.TokenRequest{}, http.StatusBadRequest},
		{"bad json", "{", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, http.MethodPost, "/auth/token", tt.body, "")
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}

	assert.NotEmpty(t, ts.token(t))
}

func TestDashboard(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.upload(t, "resume.pdf", []byte("x"), map[string]string{"name": "zed"}).Code)
	require.Equal(t, http.StatusCreated, ts.upload(t, "resume.pdf", []byte("x"), map[string]string{"name": "Amy"}).Code)
	token := ts.token(t)

	rr := ts.do(t, http.MethodGet, "/candidates?sort=name", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[struct {
		Candidates []types.Candidate `json:"candidates"`
		Sort       string            `json:"sort"`
	}](t, rr)
	require.Len(t, list.Candidates, 2)
	assert.Equal(t, "Amy", list.Candidates[0].Name)
	assert.Equal(t, "name", list.Sort)

	rr = ts.do(t, http.MethodGet, "/candidates?sort=height", nil, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(t, http.MethodGet, "/candidates/cand-2", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Amy", decode[types.Candidate](t, rr).Name)

	rr = ts.do(t, http.MethodGet, "/candidates/nope", nil, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do(t, http.MethodGet, "/assessment/status", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	status := decode[assessment.Status](t, rr)
	assert.True(t, status.Offline)

	rr = ts.do(t, http.MethodPost, "/assessment/reset", nil, token)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestDashboard_Disabled(t *testing.T) {
	ts := newTestServer(t, withoutDashboard())

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/auth/token", types.TokenRequest{Password: testPassword}, "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, ts.do(t, http.MethodGet, "/candidates", nil, "").Code)
}

func TestNew_DashboardNeedsPasswordHash(t *testing.T) {
	jwtCfg, err := config.NewJWTConfig(testSecret, 1)
	require.NoError(t, err)

	_, err = New(nil, Config{JWT: jwtCfg})

	assert.Error(t, err)
}

func TestRateLimit(t *testing.T) {
	rl := &ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/auth/token", Method: "POST", Limit: 2, Window: time.Minute},
		},
	}
	ts := newTestServer(t, withRateLimit(rl))

	for i := 0; i < 2; i++ {
		rr := ts.do(t, http.MethodPost, "/auth/token", types.TokenRequest{Password: "guess"}, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
	}

	rr := ts.do(t, http.MethodPost, "/auth/token", types.TokenRequest{Password: testPassword}, "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decode[map[string]any](t, rr)["error"])

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", nil, "").Code)
}

func TestEventsStream(t *testing.T) {
	ts := newTestServer(t)
	httpSrv := httptest.NewServer(ts.handler)
	defer httpSrv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpSrv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		_, err = reader.ReadString('\n') // data
		require.NoError(t, err)
		_, err = reader.ReadString('\n') // blank
		require.NoError(t, err)
		return strings.TrimSpace(strings.TrimPrefix(line, "event:"))
	}

	assert.Equal(t, "session", readEvent())
	require.Eventually(t, func() bool { return ts.broker.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	ts.broker.Publish(interview.Event{Type: interview.EventCandidateAdded, CandidateID: "cand-1"})
	assert.Equal(t, string(interview.EventCandidateAdded), readEvent())

	cancel()
	require.Eventually(t, func() bool { return ts.broker.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
}

func TestBroker(t *testing.T) {
	b := NewBroker()
	ch, unsubscribe := b.Subscribe()
	assert.Equal(t, 1, b.Subscribers())

	b.Publish(interview.Event{Type: interview.EventAnswerRecorded})
	assert.Equal(t, interview.EventAnswerRecorded, (<-ch).Type)

	// A full subscriber never blocks the publisher.
	for i := 0; i < subscriberBuffer+5; i++ {
		b.Publish(interview.Event{Type: interview.EventAnswerRecorded})
	}
	assert.Len(t, ch, subscriberBuffer)

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, b.Subscribers())
}
