package domain

import (
	"fmt"
	"time"
)

// CredentialState represents the lifecycle state of a provider credential.
type CredentialState string

const (
	CredentialStatePending2FA CredentialState = "pending_2fa"
	CredentialStateActive     CredentialState = "active"
	CredentialStateExpired    CredentialState = "expired"
	CredentialStateRevoked    CredentialState = "revoked"
)

// Credential represents one authenticated session with the external
// identity provider, owned by exactly one local account. The session token
// is an opaque secret and must never be logged or echoed.
type Credential struct {
	OwnerID        string          `json:"owner_id"`
	SessionToken   string          `json:"-"`
	DisplayName    string          `json:"display_name"`
	ExternalUserID string          `json:"external_user_id"`
	State          CredentialState `json:"state"`
	AcquiredAt     time.Time       `json:"acquired_at"`
	LastVerifiedAt time.Time       `json:"last_verified_at"`
}

// NewActiveCredential creates an Active credential from a finalized
// provider session.
func NewActiveCredential(ownerID, sessionToken, displayName, externalUserID string) (*Credential, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner ID is required")
	}
	if sessionToken == "" {
		return nil, fmt.Errorf("session token is required")
	}

	now := time.Now()
	return &Credential{
		OwnerID:        ownerID,
		SessionToken:   sessionToken,
		DisplayName:    displayName,
		ExternalUserID: externalUserID,
		State:          CredentialStateActive,
		AcquiredAt:     now,
		LastVerifiedAt: now,
	}, nil
}

// IsUsable returns true if the credential may be attached to outbound
// provider calls. A Pending2FA credential carries no usable token.
func (c *Credential) IsUsable() bool {
	return c.State == CredentialStateActive && c.SessionToken != ""
}

// CanTransition reports whether the state machine permits moving to the
// target state. Allowed: Pending2FA -> Active, Active -> Expired,
// any -> Revoked. Revoked is terminal.
func (c *Credential) CanTransition(target CredentialState) bool {
	if c.State == CredentialStateRevoked {
		return false
	}
	switch target {
	case CredentialStateActive:
		return c.State == CredentialStatePending2FA
	case CredentialStateExpired:
		return c.State == CredentialStateActive
	case CredentialStateRevoked:
		return true
	default:
		return false
	}
}

// MarkExpired transitions Active -> Expired. Descriptive fields are kept so
// the application can still show "last connected as X".
func (c *Credential) MarkExpired() error {
	if !c.CanTransition(CredentialStateExpired) {
		return fmt.Errorf("cannot expire credential in state %s", c.State)
	}
	c.State = CredentialStateExpired
	return nil
}

// Revoke transitions the credential to its terminal state. A revoked
// credential remains loadable for audit but must never be used again.
func (c *Credential) Revoke() error {
	if !c.CanTransition(CredentialStateRevoked) {
		return fmt.Errorf("credential already revoked")
	}
	c.State = CredentialStateRevoked
	return nil
}

// TouchVerified records a successful authenticated call against the
// provider.
func (c *Credential) TouchVerified(at time.Time) {
	c.LastVerifiedAt = at
}
