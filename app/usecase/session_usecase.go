package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"vrc-auth-service/app/domain"
	"vrc-auth-service/app/metrics"
	"vrc-auth-service/app/port"
)

// SessionUseCase wraps authenticated provider calls with the owner's
// persisted credential. It holds a read-only view of the credential; state
// changes flow through the store's transition operations. It never
// re-authenticates on its own — the secret is not available at this layer.
type SessionUseCase struct {
	store  port.CredentialStore
	client port.ProviderClient
	logger *slog.Logger
}

// NewSessionUseCase creates a new SessionUseCase instance.
func NewSessionUseCase(store port.CredentialStore, client port.ProviderClient, logger *slog.Logger) *SessionUseCase {
	return &SessionUseCase{
		store:  store,
		client: client,
		logger: logger.With("component", "session_usecase"),
	}
}

// Call performs one authenticated provider request on behalf of an owner.
// It fails fast, with no network request, when the owner has no active
// credential.
func (uc *SessionUseCase) Call(ctx context.Context, ownerID string, req domain.ProviderRequest) (*domain.ProviderResponse, error) {
	cred, err := uc.store.Load(ctx, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialNotFound) {
			return nil, domain.NewAuthError(domain.ErrCodeNoCredential, "no credential for owner", domain.ErrNoCredential)
		}
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	switch cred.State {
	case domain.CredentialStateActive:
		// usable
	case domain.CredentialStateExpired:
		return nil, domain.NewAuthError(domain.ErrCodeCredentialExpired, "credential expired, re-authentication required", domain.ErrCredentialExpired)
	default:
		// Pending2FA and Revoked credentials must never reach the provider.
		return nil, domain.NewAuthError(domain.ErrCodeNoCredential, "credential not usable", domain.ErrNoCredential)
	}

	resp, err := uc.client.Do(ctx, cred.SessionToken, req)
	if err != nil {
		metrics.ObserveSessionCall("transport_failure")
		return nil, fmt.Errorf("%w: %s %s", domain.ErrTransportFailure, req.Method, req.Path)
	}

	log := uc.logger.With("owner_id", ownerID, "path", req.Path)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// The provider no longer honors the session. Distinct from
		// throttling: the credential itself is dead.
		metrics.ObserveSessionCall("credential_expired")
		if err := uc.store.MarkExpired(ctx, ownerID); err != nil {
			log.Error("failed to mark credential expired", "error", err)
		}
		log.Info("provider session expired")
		return nil, domain.NewAuthError(domain.ErrCodeCredentialExpired, "provider session expired", domain.ErrCredentialExpired)

	case resp.StatusCode == http.StatusTooManyRequests:
		// Transient. Credential state is untouched.
		metrics.ObserveSessionCall("rate_limited")
		log.Warn("provider throttled authenticated call", "retry_after", resp.RetryAfter)
		return nil, &domain.RateLimitedError{RetryAfter: resp.RetryAfter}

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		metrics.ObserveSessionCall("ok")
		if err := uc.store.TouchVerified(ctx, ownerID, time.Now()); err != nil {
			log.Warn("failed to record credential verification", "error", err)
		}
		return resp, nil

	default:
		// Other statuses are the caller's business, not a credential
		// judgment.
		metrics.ObserveSessionCall("ok")
		return resp, nil
	}
}
