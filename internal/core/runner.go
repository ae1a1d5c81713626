package core

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rafabd1/Loginprobe/internal/config"
	"github.com/rafabd1/Loginprobe/internal/networking"
	"github.com/rafabd1/Loginprobe/internal/utils"
)

// Runner tries candidates one at a time against a single login form.
// It holds no state between attempts besides the shared HTTP client.
type Runner struct {
	config    *config.Config
	client    *networking.Client
	extractor TokenExtractor
	observer  Observer
	logger    utils.Logger
	rootURL   string
	loginURL  string
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewRunner validates the target URLs and builds the token extractor.
func NewRunner(cfg *config.Config, client *networking.Client, observer Observer, logger utils.Logger) (*Runner, error) {
	root, err := cfg.RootURL()
	if err != nil {
		return nil, err
	}
	login, err := cfg.LoginURL()
	if err != nil {
		return nil, err
	}
	extractor, err := NewTokenExtractor(cfg.TokenParser, cfg.TokenField)
	if err != nil {
		return nil, err
	}
	return &Runner{
		config:    cfg,
		client:    client,
		extractor: extractor,
		observer:  observer,
		logger:    logger,
		rootURL:   root.String(),
		loginURL:  login.String(),
		sleep:     sleepContext,
	}, nil
}

// Run attempts each non-blank candidate in order and stops at the first success.
// A nil error with Summary.Found == nil means the list was exhausted.
// Cancellation of ctx aborts the run and returns ctx.Err().
func (r *Runner) Run(ctx context.Context, candidates []string) (*Summary, error) {
	summary := &Summary{}
	pendingDelay := false

	for _, candidate := range candidates {
		password := strings.TrimSpace(candidate)
		if password == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if pendingDelay {
			if err := r.sleep(ctx, r.config.Delay); err != nil {
				return summary, err
			}
			pendingDelay = false
		}

		attempt := r.attempt(ctx, password)
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Attempts = append(summary.Attempts, attempt)

		switch attempt.Outcome {
		case OutcomeSuccess:
			r.observer.AttemptCompleted(attempt)
			cred := Credential{Username: attempt.Username, Password: attempt.Password, Timestamp: time.Now()}
			summary.Found = &cred
			r.observer.CredentialFound(cred)
			return summary, nil
		case OutcomeFailure:
			r.observer.AttemptCompleted(attempt)
			pendingDelay = true
		case OutcomeSkipped:
			r.logger.Errorf("%v; skipping attempt.", attempt.Err)
		case OutcomeError:
			r.logger.Errorf("Exception while trying password '%s': %v", candidate, attempt.Err)
		}
	}

	r.observer.NothingFound()
	return summary, nil
}

// attempt performs the GET/POST pair for one password.
func (r *Runner) attempt(ctx context.Context, password string) (result Attempt) {
	result = Attempt{Username: r.config.Username, Password: password}
	defer func() {
		if rec := recover(); rec != nil {
			result.Outcome = OutcomeError
			result.Err = fmt.Errorf("unexpected failure: %v", rec)
		}
	}()

	page := r.client.PerformRequest(networking.ClientRequestData{
		URL:            r.rootURL,
		Method:         http.MethodGet,
		RequestHeaders: http.Header{"Accept": []string{"text/html"}},
		Timeout:        r.config.GetTimeout,
		Ctx:            ctx,
	})
	if page.Error != nil {
		result.Outcome = OutcomeError
		result.Err = page.Error
		return result
	}
	if page.StatusCode != http.StatusOK {
		r.logger.Warnf("Fetch login page returned status %d", page.StatusCode)
	}

	token, ok := r.extractor.Extract(string(page.Body))
	if !ok {
		result.Outcome = OutcomeSkipped
		result.Err = ErrTokenNotFound
		return result
	}
	cookie := utils.SessionCookie(page.RespHeaders)

	form := url.Values{}
	form.Set("username", r.config.Username)
	form.Set("password", password)
	form.Set(r.config.TokenField, token)

	headers := http.Header{}
	headers.Set("Content-Type", "application/x-www-form-urlencoded")
	headers.Set("Accept", "text/plain")
	if cookie != "" {
		headers.Set("Cookie", cookie)
	}

	login := r.client.PerformRequest(networking.ClientRequestData{
		URL:            r.loginURL,
		Method:         http.MethodPost,
		Body:           form.Encode(),
		RequestHeaders: headers,
		Timeout:        r.config.PostTimeout,
		Ctx:            ctx,
	})
	if login.Error != nil {
		result.Outcome = OutcomeError
		result.Err = login.Error
		return result
	}

	result.StatusCode = login.StatusCode
	result.Body = string(login.Body)
	if login.StatusCode == http.StatusOK && utils.ContainsFold(result.Body, r.config.SuccessMarker) {
		result.Outcome = OutcomeSuccess
	} else {
		result.Outcome = OutcomeFailure
	}
	return result
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
