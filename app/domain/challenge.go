package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultFactorAttempts is the local cap on wrong second-factor codes per
// challenge. The provider invalidates a challenge after repeated failures,
// so the orchestrator abandons the attempt before burning the cookie.
const DefaultFactorAttempts = 5

// ChallengeMarker is the provider-issued pending-challenge state returned
// when a login requires a second factor. The pending token is not a usable
// session credential until the factor is verified.
type ChallengeMarker struct {
	// PendingToken is the provider cookie bound to the unfinished login.
	// Secret; never logged.
	PendingToken string
	// Methods lists the factor methods the provider offers (e.g. "totp",
	// "emailOtp").
	Methods []string
}

// PreferredMethod picks the factor method to verify against. TOTP wins when
// offered since it needs no out-of-band delivery.
func (m *ChallengeMarker) PreferredMethod() string {
	for _, method := range m.Methods {
		if method == "totp" {
			return method
		}
	}
	if len(m.Methods) > 0 {
		return m.Methods[0]
	}
	return "totp"
}

// ChallengeAttempt holds the in-flight login state between the first
// authentication request and the second-factor submission. It lives only in
// process memory and is discarded after success, failure, or timeout. The
// secret is not retained past the first request.
type ChallengeAttempt struct {
	// AttemptID correlates log lines for one attempt; safe to log, unlike
	// the marker.
	AttemptID  string
	OwnerID    string
	Identifier string
	Marker     ChallengeMarker
	CreatedAt  time.Time
	ExpiresAt  time.Time
	// TriesLeft counts remaining factor submissions before the attempt is
	// abandoned.
	TriesLeft int
}

// NewChallengeAttempt creates an attempt bound to the provider's challenge
// window.
func NewChallengeAttempt(ownerID, identifier string, marker ChallengeMarker, window time.Duration) (*ChallengeAttempt, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner ID is required")
	}
	if marker.PendingToken == "" {
		return nil, fmt.Errorf("challenge marker carries no pending token")
	}
	if window <= 0 {
		return nil, fmt.Errorf("challenge window must be positive")
	}

	now := time.Now()
	return &ChallengeAttempt{
		AttemptID:  uuid.NewString(),
		OwnerID:    ownerID,
		Identifier: identifier,
		Marker:     marker,
		CreatedAt:  now,
		ExpiresAt:  now.Add(window),
		TriesLeft:  DefaultFactorAttempts,
	}, nil
}

// IsExpired returns true once the provider's challenge window has elapsed.
func (a *ChallengeAttempt) IsExpired() bool {
	return time.Now().After(a.ExpiresAt)
}

// ConsumeTry records one rejected factor submission and reports whether the
// attempt is exhausted.
func (a *ChallengeAttempt) ConsumeTry() (exhausted bool) {
	if a.TriesLeft > 0 {
		a.TriesLeft--
	}
	return a.TriesLeft == 0
}
