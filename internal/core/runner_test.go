package core

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafabd1/Loginprobe/internal/config"
	"github.com/rafabd1/Loginprobe/internal/networking"
	"github.com/rafabd1/Loginprobe/internal/utils"
)

const testToken = "tok-123"

// loginServer is a minimal CSRF-protected login form.
type loginServer struct {
	mu            sync.Mutex
	validPassword string
	page          string
	pageStatus    int
	setCookie     string
	successStatus int
	breakOn       string // password whose POST gets its connection dropped

	gets      int
	passwords []string
	cookies   []string
	rawBodies []string
	forms     []url.Values
}

func newLoginServer(valid string) *loginServer {
	return &loginServer{
		validPassword: valid,
		page:          `<html><form method="post" action="/login"><input type="hidden" name="csrf_token" value="` + testToken + `"></form></html>`,
		pageStatus:    http.StatusOK,
		setCookie:     "SID=abc; Path=/",
		successStatus: http.StatusOK,
	}
}

func (s *loginServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/":
		s.mu.Lock()
		s.gets++
		s.mu.Unlock()
		if s.setCookie != "" {
			w.Header().Set("Set-Cookie", s.setCookie)
		}
		w.WriteHeader(s.pageStatus)
		_, _ = io.WriteString(w, s.page)
	case r.Method == http.MethodPost && r.URL.Path == "/login":
		raw, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(raw))
		s.mu.Lock()
		s.passwords = append(s.passwords, form.Get("password"))
		s.cookies = append(s.cookies, r.Header.Get("Cookie"))
		s.rawBodies = append(s.rawBodies, string(raw))
		s.forms = append(s.forms, form)
		s.mu.Unlock()

		if s.breakOn != "" && form.Get("password") == s.breakOn {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		if form.Get("password") == s.validPassword && form.Get("csrf_token") == testToken {
			w.WriteHeader(s.successStatus)
			_, _ = io.WriteString(w, "Login Successful\nWelcome back")
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "Login failed\nInvalid credentials")
	default:
		http.NotFound(w, r)
	}
}

type recordingObserver struct {
	completed []Attempt
	found     []Credential
	nothing   int
	onAttempt func(Attempt)
}

func (o *recordingObserver) AttemptCompleted(a Attempt) {
	o.completed = append(o.completed, a)
	if o.onAttempt != nil {
		o.onAttempt(a)
	}
}
func (o *recordingObserver) CredentialFound(c Credential) { o.found = append(o.found, c) }
func (o *recordingObserver) NothingFound()                { o.nothing++ }

func newTestRunner(t *testing.T, baseURL string, obs Observer) (*Runner, *[]time.Duration) {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Username = "testuser"
	cfg.Delay = 25 * time.Millisecond
	cfg.GetTimeout = 2 * time.Second
	cfg.PostTimeout = 3 * time.Second

	client, err := networking.NewClient(cfg, &utils.NoOpLogger{})
	require.NoError(t, err)
	runner, err := NewRunner(cfg, client, obs, &utils.NoOpLogger{})
	require.NoError(t, err)

	var sleeps []time.Duration
	runner.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return runner, &sleeps
}

func TestRunStopsAtFirstSuccess(t *testing.T) {
	positions := map[string][]string{
		"first":  {"P", "red", "green"},
		"middle": {"red", "green", "P", "blue", "P"},
		"last":   {"red", "green", "P"},
	}
	for name, list := range positions {
		t.Run(name, func(t *testing.T) {
			srv := newLoginServer("P")
			ts := httptest.NewServer(srv)
			defer ts.Close()
			obs := &recordingObserver{}
			runner, _ := newTestRunner(t, ts.URL, obs)

			summary, err := runner.Run(context.Background(), list)
			require.NoError(t, err)
			require.NotNil(t, summary.Found)
			assert.Equal(t, "P", summary.Found.Password)
			assert.Equal(t, "testuser", summary.Found.Username)

			require.Len(t, obs.found, 1)
			assert.Equal(t, 0, obs.nothing)
			assert.Equal(t, "P", srv.passwords[len(srv.passwords)-1])
			assert.Equal(t, srv.gets, len(srv.passwords))

			var expected []string
			for _, c := range list {
				expected = append(expected, c)
				if c == "P" {
					break
				}
			}
			assert.Equal(t, expected, srv.passwords)
			assert.Equal(t, OutcomeSuccess, summary.Attempts[len(summary.Attempts)-1].Outcome)
		})
	}
}

func TestRunSkipsBlankCandidates(t *testing.T) {
	srv := newLoginServer("never")
	ts := httptest.NewServer(srv)
	defer ts.Close()
	obs := &recordingObserver{}
	runner, _ := newTestRunner(t, ts.URL, obs)

	summary, err := runner.Run(context.Background(), []string{"", "alpha", "   ", "\t", " beta "})
	require.NoError(t, err)
	assert.Nil(t, summary.Found)
	assert.Equal(t, 2, srv.gets)
	assert.Equal(t, []string{"alpha", "beta"}, srv.passwords)
	assert.Equal(t, 1, obs.nothing)
	require.Len(t, obs.completed, 2)
	assert.Equal(t, http.StatusUnauthorized, obs.completed[0].StatusCode)
	assert.Equal(t, "Login failed\nInvalid credentials", obs.completed[0].Body)
}

func TestRunWithoutTokenSkipsEveryCandidate(t *testing.T) {
	srv := newLoginServer("P")
	srv.page = `<html><form><input name="username"></form></html>`
	ts := httptest.NewServer(srv)
	defer ts.Close()
	obs := &recordingObserver{}
	runner, sleeps := newTestRunner(t, ts.URL, obs)

	summary, err := runner.Run(context.Background(), []string{"a", "P", "c"})
	require.NoError(t, err)
	assert.Nil(t, summary.Found)
	assert.Equal(t, 3, srv.gets)
	assert.Empty(t, srv.passwords)
	assert.Empty(t, obs.completed)
	assert.Empty(t, *sleeps)
	assert.Equal(t, 1, obs.nothing)
	require.Len(t, summary.Attempts, 3)
	for _, a := range summary.Attempts {
		assert.Equal(t, OutcomeSkipped, a.Outcome)
		assert.ErrorIs(t, a.Err, ErrTokenNotFound)
	}
}

func TestRunDelayOnlyBetweenFailures(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		valid      string
		wantSleeps int
	}{
		{"exhausted", []string{"a", "b", "c"}, "none", 2},
		{"success last", []string{"a", "b", "c"}, "c", 2},
		{"success second", []string{"a", "b", "c"}, "b", 1},
		{"success first", []string{"a", "b", "c"}, "a", 0},
		{"single failure", []string{"a"}, "none", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(newLoginServer(tt.valid))
			defer ts.Close()
			runner, sleeps := newTestRunner(t, ts.URL, &recordingObserver{})

			_, err := runner.Run(context.Background(), tt.candidates)
			require.NoError(t, err)
			assert.Len(t, *sleeps, tt.wantSleeps)
			for _, d := range *sleeps {
				assert.Equal(t, 25*time.Millisecond, d)
			}
		})
	}
}

func TestRunForwardsSessionCookie(t *testing.T) {
	srv := newLoginServer("none")
	ts := httptest.NewServer(srv)
	defer ts.Close()
	runner, _ := newTestRunner(t, ts.URL, &recordingObserver{})

	_, err := runner.Run(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"SID=abc", "SID=abc"}, srv.cookies)
}

func TestRunWithoutCookieSendsNone(t *testing.T) {
	srv := newLoginServer("none")
	srv.setCookie = ""
	ts := httptest.NewServer(srv)
	defer ts.Close()
	runner, _ := newTestRunner(t, ts.URL, &recordingObserver{})

	_, err := runner.Run(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{""}, srv.cookies)
}

func TestRunEncodesFormFields(t *testing.T) {
	password := "p&ss=w rd"
	srv := newLoginServer(password)
	ts := httptest.NewServer(srv)
	defer ts.Close()
	runner, _ := newTestRunner(t, ts.URL, &recordingObserver{})

	summary, err := runner.Run(context.Background(), []string{password})
	require.NoError(t, err)
	require.NotNil(t, summary.Found)

	require.Len(t, srv.forms, 1)
	form := srv.forms[0]
	assert.Equal(t, "testuser", form.Get("username"))
	assert.Equal(t, password, form.Get("password"))
	assert.Equal(t, testToken, form.Get("csrf_token"))
	assert.Len(t, form, 3)
	assert.Contains(t, srv.rawBodies[0], "password=p%26ss%3Dw+rd")
}

func TestRunSuccessNeedsStatus200(t *testing.T) {
	srv := newLoginServer("P")
	srv.successStatus = http.StatusCreated
	ts := httptest.NewServer(srv)
	defer ts.Close()
	obs := &recordingObserver{}
	runner, _ := newTestRunner(t, ts.URL, obs)

	summary, err := runner.Run(context.Background(), []string{"P"})
	require.NoError(t, err)
	assert.Nil(t, summary.Found)
	assert.Equal(t, OutcomeFailure, summary.Attempts[0].Outcome)
	assert.Equal(t, 1, obs.nothing)
}

func TestRunToleratesNon200LoginPage(t *testing.T) {
	srv := newLoginServer("P")
	srv.pageStatus = http.StatusForbidden
	ts := httptest.NewServer(srv)
	defer ts.Close()
	runner, _ := newTestRunner(t, ts.URL, &recordingObserver{})

	summary, err := runner.Run(context.Background(), []string{"P"})
	require.NoError(t, err)
	require.NotNil(t, summary.Found)
}

func TestRunContinuesAfterNetworkError(t *testing.T) {
	srv := newLoginServer("P")
	srv.breakOn = "boom"
	ts := httptest.NewServer(srv)
	defer ts.Close()
	obs := &recordingObserver{}
	runner, sleeps := newTestRunner(t, ts.URL, obs)

	summary, err := runner.Run(context.Background(), []string{"boom", "P"})
	require.NoError(t, err)
	require.NotNil(t, summary.Found)
	require.Len(t, summary.Attempts, 2)
	assert.Equal(t, OutcomeError, summary.Attempts[0].Outcome)
	assert.Error(t, summary.Attempts[0].Err)
	assert.Empty(t, *sleeps)
	assert.Len(t, obs.completed, 1)
}

func TestRunUnreachableTarget(t *testing.T) {
	ts := httptest.NewServer(newLoginServer("P"))
	addr := ts.URL
	ts.Close()
	obs := &recordingObserver{}
	runner, _ := newTestRunner(t, addr, obs)

	summary, err := runner.Run(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, summary.Attempts, 2)
	for _, a := range summary.Attempts {
		assert.Equal(t, OutcomeError, a.Outcome)
	}
	assert.Equal(t, 1, obs.nothing)
}

func TestRunCancellationAbortsImmediately(t *testing.T) {
	srv := newLoginServer("never")
	ts := httptest.NewServer(srv)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	obs := &recordingObserver{onAttempt: func(Attempt) { cancel() }}
	runner, _ := newTestRunner(t, ts.URL, obs)
	runner.sleep = sleepContext

	summary, err := runner.Run(ctx, []string{"a", "b", "c"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, summary.Found)
	assert.Equal(t, []string{"a"}, srv.passwords)
	assert.Equal(t, 0, obs.nothing)
}

func TestRunHTMLParser(t *testing.T) {
	srv := newLoginServer("P")
	srv.page = `<form><input value="` + testToken + `" name="csrf_token" type="hidden"></form>`
	ts := httptest.NewServer(srv)
	defer ts.Close()

	cfg := config.GetDefaultConfig()
	cfg.BaseURL = ts.URL
	cfg.Username = "testuser"
	cfg.TokenParser = config.TokenParserHTML
	client, err := networking.NewClient(cfg, &utils.NoOpLogger{})
	require.NoError(t, err)
	runner, err := NewRunner(cfg, client, &recordingObserver{}, &utils.NoOpLogger{})
	require.NoError(t, err)

	summary, err := runner.Run(context.Background(), []string{"P"})
	require.NoError(t, err)
	require.NotNil(t, summary.Found)
}

func TestRunRecoversPanics(t *testing.T) {
	ts := httptest.NewServer(newLoginServer("P"))
	defer ts.Close()
	runner, _ := newTestRunner(t, ts.URL, &recordingObserver{})
	runner.extractor = panicExtractor{}

	summary, err := runner.Run(context.Background(), []string{"a"})
	require.NoError(t, err)
	require.Len(t, summary.Attempts, 1)
	assert.Equal(t, OutcomeError, summary.Attempts[0].Outcome)
	assert.Contains(t, summary.Attempts[0].Err.Error(), "unexpected failure")
}

type panicExtractor struct{}

func (panicExtractor) Extract(string) (string, bool) { panic("bad page") }

func TestSleepContext(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), 0))
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
