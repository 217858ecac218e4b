package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"vrc-auth-service/app/domain"
	"vrc-auth-service/app/port"
)

// CredentialRepository implements port.CredentialStore for PostgreSQL. One
// row per owner; the upsert keeps writes atomic so a concurrent Load never
// sees a half-written credential.
type CredentialRepository struct {
	db     DatabaseIface
	logger *slog.Logger
}

// NewCredentialRepository creates a new PostgreSQL credential repository
func NewCredentialRepository(db DatabaseIface, logger *slog.Logger) port.CredentialStore {
	return &CredentialRepository{
		db:     db,
		logger: logger.With("component", "credential_repository"),
	}
}

// Save upserts the owner's credential row. The session token column holds
// the secret; it is never logged.
func (r *CredentialRepository) Save(ctx context.Context, cred *domain.Credential) error {
	query := `
		INSERT INTO vrchat_credentials (
			owner_id, session_token, display_name, external_user_id,
			state, acquired_at, last_verified_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		ON CONFLICT (owner_id) DO UPDATE SET
			session_token    = EXCLUDED.session_token,
			display_name     = EXCLUDED.display_name,
			external_user_id = EXCLUDED.external_user_id,
			state            = EXCLUDED.state,
			acquired_at      = EXCLUDED.acquired_at,
			last_verified_at = EXCLUDED.last_verified_at`

	_, err := r.db.Exec(ctx, query,
		cred.OwnerID,
		cred.SessionToken,
		cred.DisplayName,
		cred.ExternalUserID,
		string(cred.State),
		cred.AcquiredAt,
		cred.LastVerifiedAt,
	)
	if err != nil {
		r.logger.Error("failed to save credential", "owner_id", cred.OwnerID, "error", err)
		return fmt.Errorf("failed to save credential: %w", err)
	}

	r.logger.Info("credential saved", "owner_id", cred.OwnerID, "state", cred.State)
	return nil
}

// Load returns the owner's credential, or domain.ErrCredentialNotFound.
func (r *CredentialRepository) Load(ctx context.Context, ownerID string) (*domain.Credential, error) {
	query := `
		SELECT
			owner_id, session_token, display_name, external_user_id,
			state, acquired_at, last_verified_at
		FROM vrchat_credentials
		WHERE owner_id = $1`

	cred := &domain.Credential{}
	var state string

	err := r.db.QueryRow(ctx, query, ownerID).Scan(
		&cred.OwnerID,
		&cred.SessionToken,
		&cred.DisplayName,
		&cred.ExternalUserID,
		&state,
		&cred.AcquiredAt,
		&cred.LastVerifiedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCredentialNotFound
		}
		r.logger.Error("failed to load credential", "owner_id", ownerID, "error", err)
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	cred.State = domain.CredentialState(state)
	return cred, nil
}

// MarkExpired transitions the owner's Active credential to Expired. The
// state predicate in the query keeps the transition race-free; expiring a
// credential that is not Active is a silent no-op, matching the case where
// another caller already observed the 401.
func (r *CredentialRepository) MarkExpired(ctx context.Context, ownerID string) error {
	query := `
		UPDATE vrchat_credentials
		SET state = $1
		WHERE owner_id = $2 AND state = $3`

	_, err := r.db.Exec(ctx, query,
		string(domain.CredentialStateExpired),
		ownerID,
		string(domain.CredentialStateActive),
	)
	if err != nil {
		r.logger.Error("failed to mark credential expired", "owner_id", ownerID, "error", err)
		return fmt.Errorf("failed to mark credential expired: %w", err)
	}

	r.logger.Info("credential marked expired", "owner_id", ownerID)
	return nil
}

// Revoke hard-transitions the owner's credential to Revoked and blanks the
// stored session token. The row stays for audit.
func (r *CredentialRepository) Revoke(ctx context.Context, ownerID string) error {
	query := `
		UPDATE vrchat_credentials
		SET state = $1, session_token = ''
		WHERE owner_id = $2`

	result, err := r.db.Exec(ctx, query, string(domain.CredentialStateRevoked), ownerID)
	if err != nil {
		r.logger.Error("failed to revoke credential", "owner_id", ownerID, "error", err)
		return fmt.Errorf("failed to revoke credential: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrCredentialNotFound
	}

	r.logger.Info("credential revoked", "owner_id", ownerID)
	return nil
}

// TouchVerified records a successful authenticated provider call.
func (r *CredentialRepository) TouchVerified(ctx context.Context, ownerID string, at time.Time) error {
	query := `
		UPDATE vrchat_credentials
		SET last_verified_at = $1
		WHERE owner_id = $2`

	_, err := r.db.Exec(ctx, query, at, ownerID)
	if err != nil {
		r.logger.Error("failed to record credential verification", "owner_id", ownerID, "error", err)
		return fmt.Errorf("failed to record credential verification: %w", err)
	}
	return nil
}
