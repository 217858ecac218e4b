package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"vrc-auth-service/app/domain"
	"vrc-auth-service/app/port"
	"vrc-auth-service/app/utils/validator"
)

// AuthHandler handles login, second-factor and revocation requests.
type AuthHandler struct {
	loginUsecase port.LoginUsecase
	store        port.CredentialStore
	issuer       port.TokenIssuer
	validate     *validator.Validator
	logger       *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(loginUsecase port.LoginUsecase, store port.CredentialStore, issuer port.TokenIssuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		loginUsecase: loginUsecase,
		store:        store,
		issuer:       issuer,
		validate:     validator.New(),
		logger:       logger.With("component", "auth_handler"),
	}
}

// LoginRequest is the begin-login payload. The secret is used for exactly
// one provider request and is never logged or persisted.
type LoginRequest struct {
	OwnerID    string `json:"owner_id" validate:"required,owner_id"`
	Identifier string `json:"identifier" validate:"required,max=320"`
	Secret     string `json:"secret" validate:"required,max=256"`
}

// FactorRequest is the second-factor submission payload.
type FactorRequest struct {
	OwnerID string `json:"owner_id" validate:"required,owner_id"`
	Code    string `json:"code" validate:"required,factor_code"`
}

// RevokeRequest identifies the owner whose credential to revoke.
type RevokeRequest struct {
	OwnerID string `json:"owner_id" validate:"required,owner_id"`
}

// LoginResponse mirrors domain.LoginResult with the minted application
// token attached on completion. The provider session token never appears.
type LoginResponse struct {
	Status             string    `json:"status"`
	FailureCode        string    `json:"failure_code,omitempty"`
	Retryable          bool      `json:"retryable,omitempty"`
	RetryAfter         int       `json:"retry_after,omitempty"`
	DisplayName        string    `json:"display_name,omitempty"`
	ExternalUserID     string    `json:"external_user_id,omitempty"`
	FactorMethods      []string  `json:"factor_methods,omitempty"`
	TriesLeft          int       `json:"tries_left,omitempty"`
	ChallengeExpiresAt time.Time `json:"challenge_expires_at,omitempty"`
	AppToken           string    `json:"app_token,omitempty"`
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  domain.ErrCodeValidation,
		})
	}
	if err := h.validate.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  domain.ErrCodeValidation,
		})
	}

	result, err := h.loginUsecase.BeginLogin(c.Request().Context(), req.OwnerID, req.Identifier, req.Secret)
	if err != nil {
		return writeError(c, err)
	}

	return h.respondLogin(c, req.OwnerID, result)
}

// SubmitFactor handles POST /v1/auth/login/factor
func (h *AuthHandler) SubmitFactor(c echo.Context) error {
	var req FactorRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  domain.ErrCodeValidation,
		})
	}
	if err := h.validate.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  domain.ErrCodeValidation,
		})
	}

	result, err := h.loginUsecase.SubmitFactor(c.Request().Context(), req.OwnerID, req.Code)
	if err != nil {
		return writeError(c, err)
	}

	return h.respondLogin(c, req.OwnerID, result)
}

// Revoke handles POST /v1/auth/revoke
func (h *AuthHandler) Revoke(c echo.Context) error {
	var req RevokeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  domain.ErrCodeValidation,
		})
	}
	if err := h.validate.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  domain.ErrCodeValidation,
		})
	}

	if err := h.loginUsecase.Revoke(c.Request().Context(), req.OwnerID); err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// GetCredential handles GET /v1/auth/credential/:ownerId. Only descriptive
// fields leave this endpoint; the session token is excluded by the domain
// type's JSON shape.
func (h *AuthHandler) GetCredential(c echo.Context) error {
	ownerID := c.Param("ownerId")
	if err := h.validate.ValidateVar(ownerID, "required,owner_id"); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid owner ID",
			Code:  domain.ErrCodeValidation,
		})
	}

	cred, err := h.store.Load(c.Request().Context(), ownerID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, cred)
}

// respondLogin converts the usecase result into the HTTP shape. Failed
// results take their status from the failure code; awaiting-factor results
// stay 200 because the attempt remains actionable.
func (h *AuthHandler) respondLogin(c echo.Context, ownerID string, result *domain.LoginResult) error {
	resp := LoginResponse{
		Status:             string(result.Status),
		FailureCode:        result.FailureCode,
		Retryable:          result.Retryable,
		RetryAfter:         int(result.RetryAfter.Seconds()),
		DisplayName:        result.DisplayName,
		ExternalUserID:     result.ExternalUserID,
		FactorMethods:      result.FactorMethods,
		TriesLeft:          result.TriesLeft,
		ChallengeExpiresAt: result.ChallengeExpiresAt,
	}

	if result.Status == domain.LoginStatusComplete {
		appToken, err := h.issuer.IssueAppToken(ownerID, result.DisplayName, result.ExternalUserID)
		if err != nil {
			h.logger.Error("failed to issue application token", "owner_id", ownerID, "error", err)
			return c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error: "internal error",
				Code:  domain.ErrCodeInternal,
			})
		}
		resp.AppToken = appToken
	}

	status := http.StatusOK
	if result.Status == domain.LoginStatusFailed {
		status = statusForCode(result.FailureCode)
	}

	return c.JSON(status, resp)
}
