// Package failure classifies terminal job errors and maps them to process exit codes.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a terminal failure of a run
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfig is a missing or invalid setting, reported before any network call
	KindConfig
	// KindAuth is a refresh token the authorization server rejected
	KindAuth
	// KindUpstream is a failed invoice fetch or submit
	KindUpstream
	// KindPersistence is a rotated token that could not be written to the local env file
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindAuth:
		return "auth"
	case KindUpstream:
		return "upstream"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is a failure tagged with its kind and the step that produced it
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError tags err with a kind and operation name
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ExitCode maps a run result to the process exit status
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch KindOf(err) {
	case KindConfig:
		return 2
	case KindAuth:
		return 3
	case KindUpstream:
		return 4
	case KindPersistence:
		return 5
	default:
		return 1
	}
}
