package services

import (
	"errors"
	"fmt"

	domainagg "github.com/yungbote/maturity-assessment-backend/internal/domain/aggregates"
)

var (
	// ErrNotFound is the recoverable "check your info or start new" outcome.
	ErrNotFound = errors.New("not found")
	// ErrInvalidAnswer marks a single rejected answer; callers skip it and continue.
	ErrInvalidAnswer   = errors.New("invalid answer")
	ErrInvalidIdentity = errors.New("invalid identity")
	// ErrInvalidTransition is returned when a controller action does not apply to the attempt state.
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrAttemptNotFound   = errors.New("attempt not found")
)

type InvalidAnswerError struct {
	Stage      string
	Capability string
	Reason     string
}

func (e *InvalidAnswerError) Error() string {
	if e.Capability == "" {
		return fmt.Sprintf("invalid answer: %s", e.Reason)
	}
	return fmt.Sprintf("invalid answer for %q: %s", e.Capability, e.Reason)
}

func (e *InvalidAnswerError) Unwrap() error { return ErrInvalidAnswer }

func invalidAnswer(stage, capability, reason string) error {
	return &InvalidAnswerError{Stage: stage, Capability: capability, Reason: reason}
}

// notFoundAware folds aggregate not_found codes into ErrNotFound.
func notFoundAware(err error) error {
	if err == nil {
		return nil
	}
	if domainagg.IsCode(err, domainagg.CodeNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
