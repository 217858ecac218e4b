package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator_FactorCode(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{"valid six digit code", "123456", false},
		{"all zeros", "000000", false},
		{"too short", "12345", true},
		{"too long", "1234567", true},
		{"non numeric", "12a456", true},
		{"empty", "", true},
		{"whitespace", "123 56", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateVar(tt.code, "factor_code")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_OwnerID(t *testing.T) {
	v := New()

	assert.NoError(t, v.ValidateVar("alice", "owner_id"))
	assert.NoError(t, v.ValidateVar("user_42.archive-bot", "owner_id"))
	assert.Error(t, v.ValidateVar("alice smith", "owner_id"))
	assert.Error(t, v.ValidateVar("", "owner_id"))
}

func TestValidator_Struct(t *testing.T) {
	v := New()

	type loginRequest struct {
		OwnerID    string `json:"owner_id" validate:"required,owner_id"`
		Identifier string `json:"identifier" validate:"required"`
		Secret     string `json:"secret" validate:"required"`
	}

	t.Run("valid request", func(t *testing.T) {
		err := v.Validate(loginRequest{OwnerID: "alice", Identifier: "alice@example.com", Secret: "s3cret"})
		assert.NoError(t, err)
	})

	t.Run("missing fields use json names", func(t *testing.T) {
		err := v.Validate(loginRequest{OwnerID: "alice"})
		assert.Error(t, err)

		verr, ok := err.(*ValidationError)
		assert.True(t, ok)
		assert.Contains(t, verr.Errors, "identifier")
		assert.Contains(t, verr.Errors, "secret")
	})

	t.Run("secret values never echoed in messages", func(t *testing.T) {
		err := v.Validate(loginRequest{OwnerID: "bad owner", Identifier: "x", Secret: "hunter2"})
		assert.Error(t, err)
		assert.NotContains(t, err.Error(), "hunter2")
	})
}
