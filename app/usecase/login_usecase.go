package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vrc-auth-service/app/domain"
	"vrc-auth-service/app/metrics"
	"vrc-auth-service/app/port"
	"vrc-auth-service/app/utils/validator"
)

// DefaultChallengeWindow bounds how long a login attempt may sit in
// AwaitingFactor before it is discarded. Provider challenge cookies expire
// on roughly this horizon.
const DefaultChallengeWindow = 5 * time.Minute

// LoginUseCase is the orchestrator for the login state machine:
// Idle -> AwaitingFactor -> Complete, or a terminal failure. One logical
// attempt exists per owner; starting a new login discards the previous
// attempt. Secrets live only for the duration of the first request and are
// never persisted.
type LoginUseCase struct {
	gateway  port.AuthGateway
	store    port.CredentialStore
	validate *validator.Validator
	attempts *attemptRegistry
	locks    *ownerLocks

	challengeWindow time.Duration
	logger          *slog.Logger
}

// NewLoginUseCase creates a new LoginUseCase instance.
func NewLoginUseCase(gateway port.AuthGateway, store port.CredentialStore, challengeWindow time.Duration, logger *slog.Logger) *LoginUseCase {
	if challengeWindow <= 0 {
		challengeWindow = DefaultChallengeWindow
	}
	return &LoginUseCase{
		gateway:         gateway,
		store:           store,
		validate:        validator.New(),
		attempts:        newAttemptRegistry(),
		locks:           newOwnerLocks(),
		challengeWindow: challengeWindow,
		logger:          logger.With("component", "login_usecase"),
	}
}

// BeginLogin performs the first authentication request for an owner and
// either completes the login, parks it awaiting a second factor, or fails
// it. Any prior pending attempt for the owner is discarded first.
func (uc *LoginUseCase) BeginLogin(ctx context.Context, ownerID, identifier, secret string) (*domain.LoginResult, error) {
	if err := uc.validate.ValidateVar(ownerID, "required,owner_id"); err != nil {
		return nil, fmt.Errorf("%w: owner ID", domain.ErrInvalidInput)
	}
	if identifier == "" || secret == "" {
		return nil, fmt.Errorf("%w: identifier and secret are required", domain.ErrInvalidInput)
	}

	unlock := uc.locks.Lock(ownerID)
	defer unlock()

	// A fresh login supersedes whatever was pending.
	uc.attempts.Delete(ownerID)

	outcome, err := uc.gateway.Negotiate(ctx, identifier, secret)
	if err != nil {
		return nil, err
	}
	metrics.ObserveLoginOutcome("begin", string(outcome.Kind))

	log := uc.logger.With("owner_id", ownerID)

	switch outcome.Kind {
	case domain.OutcomeAuthenticated:
		result, err := uc.completeLogin(ctx, ownerID, outcome)
		if err != nil {
			return nil, err
		}
		log.Info("login complete without second factor")
		return result, nil

	case domain.OutcomeSecondFactorRequired:
		attempt, err := domain.NewChallengeAttempt(ownerID, identifier, *outcome.Marker, uc.challengeWindow)
		if err != nil {
			return nil, fmt.Errorf("failed to create challenge attempt: %w", err)
		}
		uc.attempts.Put(attempt)
		log.Info("login awaiting second factor",
			"attempt_id", attempt.AttemptID,
			"methods", attempt.Marker.Methods,
			"expires_at", attempt.ExpiresAt)
		return &domain.LoginResult{
			Status:             domain.LoginStatusAwaitingFactor,
			FactorMethods:      attempt.Marker.Methods,
			TriesLeft:          attempt.TriesLeft,
			ChallengeExpiresAt: attempt.ExpiresAt,
		}, nil

	case domain.OutcomeRejected:
		log.Info("login rejected by provider")
		return &domain.LoginResult{
			Status:      domain.LoginStatusFailed,
			FailureCode: domain.ErrCodeInvalidCredentials,
		}, nil

	case domain.OutcomeRateLimited:
		log.Warn("login throttled by provider", "retry_after", outcome.RetryAfter)
		return &domain.LoginResult{
			Status:      domain.LoginStatusFailed,
			FailureCode: domain.ErrCodeRateLimited,
			Retryable:   true,
			RetryAfter:  outcome.RetryAfter,
		}, nil

	case domain.OutcomeTransportFailure:
		log.Warn("login failed on transport", "detail", outcome.Detail)
		return &domain.LoginResult{
			Status:      domain.LoginStatusFailed,
			FailureCode: domain.ErrCodeTransportFailure,
			Retryable:   true,
		}, nil

	default:
		return nil, fmt.Errorf("unhandled outcome kind %q", outcome.Kind)
	}
}

// SubmitFactor submits a second-factor code against the owner's pending
// attempt. A rejected code keeps the attempt alive until the provider's
// exhaustion bound; timeout and exhaustion both discard it.
func (uc *LoginUseCase) SubmitFactor(ctx context.Context, ownerID, code string) (*domain.LoginResult, error) {
	if err := uc.validate.ValidateVar(ownerID, "required,owner_id"); err != nil {
		return nil, fmt.Errorf("%w: owner ID", domain.ErrInvalidInput)
	}
	// The provider is the source of truth for correctness; only the shape
	// is checked before anything goes on the wire.
	if err := uc.validate.ValidateVar(code, "required,factor_code"); err != nil {
		return nil, domain.ErrInvalidCodeForm
	}

	unlock := uc.locks.Lock(ownerID)
	defer unlock()

	log := uc.logger.With("owner_id", ownerID)

	attempt := uc.attempts.Get(ownerID)
	if attempt == nil {
		log.Info("second factor submitted with no live challenge")
		return &domain.LoginResult{
			Status:      domain.LoginStatusFailed,
			FailureCode: domain.ErrCodeChallengeExpired,
		}, nil
	}

	outcome, err := uc.gateway.SubmitSecondFactor(ctx, attempt.Marker, code)
	if err != nil {
		return nil, err
	}
	metrics.ObserveLoginOutcome("factor", string(outcome.Kind))

	switch outcome.Kind {
	case domain.OutcomeAuthenticated:
		uc.attempts.Delete(ownerID)
		result, err := uc.completeLogin(ctx, ownerID, outcome)
		if err != nil {
			return nil, err
		}
		log.Info("login complete after second factor")
		return result, nil

	case domain.OutcomeRejected:
		if attempt.ConsumeTry() {
			uc.attempts.Delete(ownerID)
			log.Info("challenge abandoned after repeated rejected codes")
			return &domain.LoginResult{
				Status:      domain.LoginStatusFailed,
				FailureCode: domain.ErrCodeSecondFactorRejected,
			}, nil
		}
		log.Info("second factor rejected", "attempt_id", attempt.AttemptID, "tries_left", attempt.TriesLeft)
		return &domain.LoginResult{
			Status:             domain.LoginStatusAwaitingFactor,
			FailureCode:        domain.ErrCodeSecondFactorRejected,
			TriesLeft:          attempt.TriesLeft,
			ChallengeExpiresAt: attempt.ExpiresAt,
		}, nil

	case domain.OutcomeRateLimited:
		// Transient; the attempt stays live and no try is consumed.
		log.Warn("second factor throttled by provider", "retry_after", outcome.RetryAfter)
		return &domain.LoginResult{
			Status:      domain.LoginStatusFailed,
			FailureCode: domain.ErrCodeRateLimited,
			Retryable:   true,
			RetryAfter:  outcome.RetryAfter,
		}, nil

	case domain.OutcomeTransportFailure:
		log.Warn("second factor failed on transport", "detail", outcome.Detail)
		return &domain.LoginResult{
			Status:      domain.LoginStatusFailed,
			FailureCode: domain.ErrCodeTransportFailure,
			Retryable:   true,
		}, nil

	default:
		return nil, fmt.Errorf("unhandled outcome kind %q", outcome.Kind)
	}
}

// Revoke hard-revokes the owner's credential and discards any pending
// attempt. Recovery requires a full re-authentication.
func (uc *LoginUseCase) Revoke(ctx context.Context, ownerID string) error {
	if err := uc.validate.ValidateVar(ownerID, "required,owner_id"); err != nil {
		return fmt.Errorf("%w: owner ID", domain.ErrInvalidInput)
	}

	unlock := uc.locks.Lock(ownerID)
	defer unlock()

	uc.attempts.Delete(ownerID)
	if err := uc.store.Revoke(ctx, ownerID); err != nil {
		return err
	}
	uc.logger.Info("credential revoked", "owner_id", ownerID)
	return nil
}

// PendingAttempts reports how many logins are awaiting a second factor.
func (uc *LoginUseCase) PendingAttempts() int {
	return uc.attempts.Len()
}

// SweepExpiredAttempts reconciles the attempt registry; see the janitor in
// cmd/server.
func (uc *LoginUseCase) SweepExpiredAttempts() {
	uc.attempts.Sweep()
}

// completeLogin persists the finalized session as the owner's active
// credential.
func (uc *LoginUseCase) completeLogin(ctx context.Context, ownerID string, outcome domain.Outcome) (*domain.LoginResult, error) {
	cred, err := domain.NewActiveCredential(ownerID, outcome.SessionToken, outcome.DisplayName, outcome.ExternalUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to build credential: %w", err)
	}

	if err := uc.store.Save(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to persist credential: %w", err)
	}

	return &domain.LoginResult{
		Status:         domain.LoginStatusComplete,
		DisplayName:    cred.DisplayName,
		ExternalUserID: cred.ExternalUserID,
	}, nil
}
