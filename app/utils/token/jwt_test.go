package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() JWTConfig {
	return JWTConfig{
		Secret:   "test-secret-at-least-32-characters",
		Issuer:   "vrc-auth-service",
		Audience: "archive-app",
		TTL:      time.Hour,
	}
}

func TestNewJWTIssuer(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		issuer, err := NewJWTIssuer(testConfig())
		require.NoError(t, err)
		assert.NotNil(t, issuer)
	})

	t.Run("missing secret", func(t *testing.T) {
		cfg := testConfig()
		cfg.Secret = ""
		_, err := NewJWTIssuer(cfg)
		assert.Error(t, err)
	})

	t.Run("non-positive TTL", func(t *testing.T) {
		cfg := testConfig()
		cfg.TTL = 0
		_, err := NewJWTIssuer(cfg)
		assert.Error(t, err)
	})
}

func TestJWTIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewJWTIssuer(testConfig())
	require.NoError(t, err)

	signed, err := issuer.IssueAppToken("alice", "Alice", "usr_123")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	ownerID, err := issuer.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "alice", ownerID)
}

func TestJWTIssuer_Parse_RejectsForeignToken(t *testing.T) {
	issuer, err := NewJWTIssuer(testConfig())
	require.NoError(t, err)

	otherCfg := testConfig()
	otherCfg.Secret = "a-different-secret-entirely-here!"
	other, err := NewJWTIssuer(otherCfg)
	require.NoError(t, err)

	signed, err := other.IssueAppToken("alice", "Alice", "usr_123")
	require.NoError(t, err)

	_, err = issuer.Parse(signed)
	assert.Error(t, err)
}

func TestJWTIssuer_Parse_RejectsExpired(t *testing.T) {
	cfg := testConfig()
	cfg.TTL = time.Nanosecond
	issuer, err := NewJWTIssuer(cfg)
	require.NoError(t, err)

	signed, err := issuer.IssueAppToken("alice", "Alice", "usr_123")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = issuer.Parse(signed)
	assert.Error(t, err)
}
