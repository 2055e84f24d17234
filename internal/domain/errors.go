package domain

import (
	"errors"
	"strings"
)

var (
	// ErrNotConfigured is returned when no default-scope location exists to
	// fall back to.
	ErrNotConfigured = errors.New("default location scope not configured")
	// ErrNoQuestionsAvailable indicates a content gap that survived the
	// default-scope retry; a configuration problem, not a user error.
	ErrNoQuestionsAvailable = errors.New("no questions available")
	// ErrAttemptLimitExceeded is returned when the daily attempt cap is
	// reached; nothing is recorded and the client may retry tomorrow.
	ErrAttemptLimitExceeded = errors.New("daily attempt limit exceeded")
	// ErrAlreadyPassed rejects quiz fetches for an assessment the user has
	// already passed.
	ErrAlreadyPassed = errors.New("assessment already passed")
	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrLocationNotFound indicates the referenced location does not exist.
	ErrLocationNotFound = errors.New("location not found")
	// ErrVideoNotFound indicates the content catalog has no such video.
	ErrVideoNotFound = errors.New("video not found")
	// ErrCertificateNotFound indicates no certificate exists for the query.
	ErrCertificateNotFound = errors.New("certificate not found")
	// ErrNotEligible rejects enrollment before all completion conditions are
	// met for the location.
	ErrNotEligible = errors.New("completion requirements not met")
	// ErrCertificateRenderFailed wraps renderer/upload failures; no partial
	// certificate is persisted when it occurs.
	ErrCertificateRenderFailed = errors.New("certificate render failed")
	// ErrConcurrencyConflict is surfaced when an optimistic write lost its
	// race and retries were exhausted; callers may retry.
	ErrConcurrencyConflict = errors.New("concurrent modification conflict")
)

// ValidationError rejects a request before any persistence. Messages are the
// human-readable list that crosses the module boundary.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// NewValidationError builds a ValidationError from field messages.
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
