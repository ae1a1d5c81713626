package core

import (
	"errors"
	"time"
)

// ErrTokenNotFound marks an attempt skipped because the login page had no CSRF token.
var ErrTokenNotFound = errors.New("could not find CSRF token in login page")

// Outcome classifies a single candidate attempt.
type Outcome int

const (
	OutcomeFailure Outcome = iota
	OutcomeSuccess
	OutcomeSkipped
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText lets reports carry the outcome name instead of its number.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Attempt is the result of trying one candidate.
// StatusCode and Body are those of the login POST; zero when it was never sent.
type Attempt struct {
	Username   string
	Password   string
	StatusCode int
	Body       string
	Outcome    Outcome
	Err        error
}

// Credential is a username/password pair the server accepted.
type Credential struct {
	Username  string
	Password  string
	Timestamp time.Time
}

// Summary is everything a run produced.
type Summary struct {
	Attempts []Attempt
	Found    *Credential
}

// Observer receives the run's progress. The report package provides the console implementation.
type Observer interface {
	AttemptCompleted(a Attempt)
	CredentialFound(c Credential)
	NothingFound()
}
