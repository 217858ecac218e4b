package domain

import (
	"errors"
	"fmt"
	"time"
)

// Authentication and credential lifecycle errors
var (
	// Login errors
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrSecondFactorRejected = errors.New("second factor code rejected")
	ErrChallengeExpired     = errors.New("challenge expired")
	ErrChallengeExhausted   = errors.New("challenge exhausted after repeated rejected codes")
	ErrNoPendingChallenge   = errors.New("no pending challenge for owner")

	// Transient errors
	ErrRateLimited      = errors.New("rate limited by provider")
	ErrTransportFailure = errors.New("provider transport failure")

	// Credential errors
	ErrNoCredential       = errors.New("no credential for owner")
	ErrCredentialExpired  = errors.New("credential expired")
	ErrCredentialRevoked  = errors.New("credential revoked")
	ErrCredentialNotFound = errors.New("credential not found")

	// Validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidCodeForm = errors.New("second factor code must be a fixed-length numeric string")
)

// Error codes surfaced to callers. Secrets never appear next to these;
// only owner identifiers and classification codes are safe to log.
const (
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeSecondFactorRejected = "SECOND_FACTOR_REJECTED"
	ErrCodeChallengeExpired     = "CHALLENGE_EXPIRED"
	ErrCodeRateLimited          = "RATE_LIMITED"
	ErrCodeTransportFailure     = "TRANSPORT_FAILURE"
	ErrCodeNoCredential         = "NO_CREDENTIAL"
	ErrCodeCredentialExpired    = "CREDENTIAL_EXPIRED"
	ErrCodeValidation           = "VALIDATION_FAILED"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// RateLimitedError signals provider throttling together with the back-off
// hint. It unwraps to ErrRateLimited.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited by provider, retry after %s", e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

// AuthError carries a classification code alongside the underlying cause.
type AuthError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

// NewAuthError creates a new classified authentication error.
func NewAuthError(code, message string, cause error) *AuthError {
	return &AuthError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf extracts the classification code from an error chain, falling back
// to INTERNAL_ERROR for unclassified failures.
func CodeOf(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Code
	}
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return ErrCodeInvalidCredentials
	case errors.Is(err, ErrSecondFactorRejected):
		return ErrCodeSecondFactorRejected
	case errors.Is(err, ErrChallengeExpired), errors.Is(err, ErrChallengeExhausted), errors.Is(err, ErrNoPendingChallenge):
		return ErrCodeChallengeExpired
	case errors.Is(err, ErrRateLimited):
		return ErrCodeRateLimited
	case errors.Is(err, ErrTransportFailure):
		return ErrCodeTransportFailure
	case errors.Is(err, ErrNoCredential), errors.Is(err, ErrCredentialNotFound), errors.Is(err, ErrCredentialRevoked):
		return ErrCodeNoCredential
	case errors.Is(err, ErrCredentialExpired):
		return ErrCodeCredentialExpired
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidCodeForm):
		return ErrCodeValidation
	default:
		return ErrCodeInternal
	}
}
