package domain

import "time"

// LoginStatus is the caller-visible state of a login attempt.
type LoginStatus string

const (
	LoginStatusComplete       LoginStatus = "complete"
	LoginStatusAwaitingFactor LoginStatus = "awaiting_factor"
	LoginStatusFailed         LoginStatus = "failed"
)

// LoginResult is returned by BeginLogin and SubmitFactor. A Failed result
// carries the classification code from the error taxonomy; Retryable marks
// transient failures the caller may retry after RetryAfter elapses.
type LoginResult struct {
	Status      LoginStatus   `json:"status"`
	FailureCode string        `json:"failure_code,omitempty"`
	Retryable   bool          `json:"retryable,omitempty"`
	RetryAfter  time.Duration `json:"retry_after,omitempty"`

	// Populated on Complete. The session token itself is never returned.
	DisplayName    string `json:"display_name,omitempty"`
	ExternalUserID string `json:"external_user_id,omitempty"`

	// Populated on AwaitingFactor.
	FactorMethods      []string  `json:"factor_methods,omitempty"`
	TriesLeft          int       `json:"tries_left,omitempty"`
	ChallengeExpiresAt time.Time `json:"challenge_expires_at,omitempty"`
}

// ProviderRequest describes an authenticated call against the provider API
// made on behalf of an owner.
type ProviderRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Body   []byte
}

// ProviderResponse is the raw result of an authenticated provider call.
// RetryAfter is populated when the provider throttled the request.
type ProviderResponse struct {
	StatusCode int
	Body       []byte
	RetryAfter time.Duration
}
