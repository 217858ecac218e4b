package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"vrc-auth-service/app/domain"
)

// ErrorResponse is the uniform error body. Message text is sanitized at the
// domain layer; no secret material ever reaches it.
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// statusForCode maps the domain error taxonomy onto HTTP statuses.
func statusForCode(code string) int {
	switch code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeInvalidCredentials, domain.ErrCodeSecondFactorRejected, domain.ErrCodeCredentialExpired:
		return http.StatusUnauthorized
	case domain.ErrCodeNoCredential:
		return http.StatusNotFound
	case domain.ErrCodeChallengeExpired:
		return http.StatusGone
	case domain.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case domain.ErrCodeTransportFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError converts a domain error into its HTTP shape.
func writeError(c echo.Context, err error) error {
	code := domain.CodeOf(err)
	resp := ErrorResponse{Code: code}

	switch code {
	case domain.ErrCodeInternal:
		// Internal detail stays in the logs.
		resp.Error = "internal error"
	default:
		resp.Error = err.Error()
	}

	var rle *domain.RateLimitedError
	if errors.As(err, &rle) {
		resp.RetryAfter = int(rle.RetryAfter.Seconds())
	}

	return c.JSON(statusForCode(code), resp)
}
