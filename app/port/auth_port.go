package port

//go:generate mockgen -source=auth_port.go -destination=../mocks/mock_auth_port.go

import (
	"context"
	"time"

	"vrc-auth-service/app/domain"
)

// LoginUsecase is the only entry point route handlers may use to establish
// a provider session. One logical attempt per owner is in flight at a time.
type LoginUsecase interface {
	BeginLogin(ctx context.Context, ownerID, identifier, secret string) (*domain.LoginResult, error)
	SubmitFactor(ctx context.Context, ownerID, code string) (*domain.LoginResult, error)
	Revoke(ctx context.Context, ownerID string) error
}

// SessionUsecase wraps authenticated calls against the provider with the
// owner's persisted credential.
type SessionUsecase interface {
	Call(ctx context.Context, ownerID string, req domain.ProviderRequest) (*domain.ProviderResponse, error)
}

// AuthGateway performs the authentication handshake against the identity
// provider and classifies every response into a domain outcome. The error
// return is reserved for programming errors; provider judgments (rejection,
// throttling, transport trouble) arrive as outcome kinds.
type AuthGateway interface {
	Negotiate(ctx context.Context, identifier, secret string) (domain.Outcome, error)
	SubmitSecondFactor(ctx context.Context, marker domain.ChallengeMarker, code string) (domain.Outcome, error)
}

// CredentialStore owns the durable credential record, one per owner.
type CredentialStore interface {
	// Save upserts atomically; a concurrent reader never observes a
	// partially written credential.
	Save(ctx context.Context, cred *domain.Credential) error
	// Load returns domain.ErrCredentialNotFound when the owner has no
	// record.
	Load(ctx context.Context, ownerID string) (*domain.Credential, error)
	// MarkExpired transitions Active -> Expired in place, keeping the
	// descriptive fields.
	MarkExpired(ctx context.Context, ownerID string) error
	// Revoke hard-transitions to Revoked; the record stays loadable for
	// audit.
	Revoke(ctx context.Context, ownerID string) error
	// TouchVerified records a successful authenticated provider call.
	TouchVerified(ctx context.Context, ownerID string, at time.Time) error
}

// TokenIssuer mints application session tokens handed to the caller after a
// completed login.
type TokenIssuer interface {
	IssueAppToken(ownerID, displayName, externalUserID string) (string, error)
}
