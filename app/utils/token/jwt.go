package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig holds application token generation configuration.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// appClaims represents the JWT claims handed to the rest of the
// application after a completed provider login. The provider session token
// never leaves the credential store; this token only proves that a login
// completed.
type appClaims struct {
	DisplayName    string `json:"display_name,omitempty"`
	ExternalUserID string `json:"ext_uid,omitempty"`
	jwt.RegisteredClaims
}

// JWTIssuer generates application session tokens.
// Implements port.TokenIssuer.
type JWTIssuer struct {
	cfg JWTConfig
}

// NewJWTIssuer creates a new JWT issuer.
func NewJWTIssuer(cfg JWTConfig) (*JWTIssuer, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("JWT TTL must be positive")
	}
	return &JWTIssuer{cfg: cfg}, nil
}

// IssueAppToken generates a signed application token for an owner.
func (j *JWTIssuer) IssueAppToken(ownerID, displayName, externalUserID string) (string, error) {
	now := time.Now()
	claims := appClaims{
		DisplayName:    displayName,
		ExternalUserID: externalUserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.cfg.Issuer,
			Audience:  jwt.ClaimStrings{j.cfg.Audience},
			Subject:   ownerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.cfg.TTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.cfg.Secret))
}

// Parse validates a signed application token and returns the owner it was
// issued to.
func (j *JWTIssuer) Parse(signed string) (string, error) {
	claims := &appClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(j.cfg.Secret), nil
	}, jwt.WithIssuer(j.cfg.Issuer), jwt.WithAudience(j.cfg.Audience))
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	return claims.Subject, nil
}
