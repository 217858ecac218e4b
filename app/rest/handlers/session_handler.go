package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"vrc-auth-service/app/domain"
	"vrc-auth-service/app/port"
	"vrc-auth-service/app/utils/validator"
)

// SessionHandler exposes authenticated provider calls made with an owner's
// stored credential.
type SessionHandler struct {
	sessionUsecase port.SessionUsecase
	validate       *validator.Validator
	logger         *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionUsecase port.SessionUsecase, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessionUsecase: sessionUsecase,
		validate:       validator.New(),
		logger:         logger.With("component", "session_handler"),
	}
}

// GetProviderUser handles GET /v1/auth/user/:ownerId. It fetches the
// provider's identity record with the owner's stored session, which doubles
// as a liveness probe for the credential.
func (h *SessionHandler) GetProviderUser(c echo.Context) error {
	ownerID := c.Param("ownerId")
	if err := h.validate.ValidateVar(ownerID, "required,owner_id"); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid owner ID",
			Code:  domain.ErrCodeValidation,
		})
	}

	resp, err := h.sessionUsecase.Call(c.Request().Context(), ownerID, domain.ProviderRequest{
		Method: http.MethodGet,
		Path:   "/auth/user",
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.Blob(resp.StatusCode, echo.MIMEApplicationJSON, resp.Body)
}
