package port

//go:generate mockgen -source=provider_port.go -destination=../mocks/mock_provider_port.go

import (
	"context"

	"vrc-auth-service/app/domain"
)

// ProviderClient is the wire-level seam over the identity provider's HTTP
// API, implemented by driver/vrchat. The gateway adds logging and keeps the
// rest of the application ignorant of the wire format.
type ProviderClient interface {
	// Login sends the Basic-auth probe to the identity endpoint.
	Login(ctx context.Context, identifier, secret string) (domain.Outcome, error)
	// VerifySecondFactor submits a code against a pending challenge.
	VerifySecondFactor(ctx context.Context, marker domain.ChallengeMarker, code string) (domain.Outcome, error)
	// Do performs an authenticated call with an established session token.
	// A 401 means the session is no longer valid; 429 means throttled.
	Do(ctx context.Context, sessionToken string, req domain.ProviderRequest) (*domain.ProviderResponse, error)
}
