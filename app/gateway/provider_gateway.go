package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"vrc-auth-service/app/domain"
	"vrc-auth-service/app/port"
)

// ProviderGateway implements port.AuthGateway. It sits between the
// orchestrator and the wire-level provider client, adding structured
// logging of outcome kinds. Identifiers, secrets, and session tokens never
// reach the log stream.
type ProviderGateway struct {
	client port.ProviderClient
	logger *slog.Logger
}

// NewProviderGateway creates a new ProviderGateway instance.
func NewProviderGateway(client port.ProviderClient, logger *slog.Logger) *ProviderGateway {
	return &ProviderGateway{
		client: client,
		logger: logger.With("component", "provider_gateway"),
	}
}

// Negotiate performs the first authentication request and classifies the
// provider's response.
func (g *ProviderGateway) Negotiate(ctx context.Context, identifier, secret string) (domain.Outcome, error) {
	if identifier == "" || secret == "" {
		return domain.Outcome{}, fmt.Errorf("%w: identifier and secret are required", domain.ErrInvalidInput)
	}

	g.logger.Info("negotiating provider session")

	outcome, err := g.client.Login(ctx, identifier, secret)
	if err != nil {
		g.logger.Error("negotiate failed", "error", err)
		return domain.Outcome{}, fmt.Errorf("negotiate: %w", err)
	}

	g.logger.Info("negotiate classified", "outcome", outcome.Kind)
	return outcome, nil
}

// SubmitSecondFactor submits a code against a pending challenge and
// finalizes the session on success.
func (g *ProviderGateway) SubmitSecondFactor(ctx context.Context, marker domain.ChallengeMarker, code string) (domain.Outcome, error) {
	if marker.PendingToken == "" {
		return domain.Outcome{}, fmt.Errorf("%w: challenge marker carries no pending token", domain.ErrInvalidInput)
	}
	if code == "" {
		return domain.Outcome{}, fmt.Errorf("%w: code is required", domain.ErrInvalidInput)
	}

	g.logger.Info("submitting second factor", "method", marker.PreferredMethod())

	outcome, err := g.client.VerifySecondFactor(ctx, marker, code)
	if err != nil {
		g.logger.Error("second factor submission failed", "error", err)
		return domain.Outcome{}, fmt.Errorf("submit second factor: %w", err)
	}

	g.logger.Info("second factor classified", "outcome", outcome.Kind)
	return outcome, nil
}
