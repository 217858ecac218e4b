package domain

import "time"

// OutcomeKind classifies a provider authentication response.
type OutcomeKind string

const (
	OutcomeAuthenticated        OutcomeKind = "authenticated"
	OutcomeSecondFactorRequired OutcomeKind = "second_factor_required"
	OutcomeRejected             OutcomeKind = "rejected"
	OutcomeRateLimited          OutcomeKind = "rate_limited"
	OutcomeTransportFailure     OutcomeKind = "transport_failure"
)

// Outcome is the classified result of a negotiate or second-factor request
// against the identity provider. Exactly one kind applies per response.
type Outcome struct {
	Kind OutcomeKind

	// Authenticated fields. SessionToken is secret; never logged.
	SessionToken   string
	DisplayName    string
	ExternalUserID string

	// SecondFactorRequired field.
	Marker *ChallengeMarker

	// RateLimited field: how long the caller should back off before
	// retrying the same identifier.
	RetryAfter time.Duration

	// TransportFailure field: sanitized description, no secrets.
	Detail string
}

func AuthenticatedOutcome(sessionToken, displayName, externalUserID string) Outcome {
	return Outcome{
		Kind:           OutcomeAuthenticated,
		SessionToken:   sessionToken,
		DisplayName:    displayName,
		ExternalUserID: externalUserID,
	}
}

func SecondFactorRequiredOutcome(marker ChallengeMarker) Outcome {
	return Outcome{Kind: OutcomeSecondFactorRequired, Marker: &marker}
}

func RejectedOutcome() Outcome {
	return Outcome{Kind: OutcomeRejected}
}

func RateLimitedOutcome(retryAfter time.Duration) Outcome {
	return Outcome{Kind: OutcomeRateLimited, RetryAfter: retryAfter}
}

func TransportFailureOutcome(detail string) Outcome {
	return Outcome{Kind: OutcomeTransportFailure, Detail: detail}
}
