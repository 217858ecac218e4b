package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"vrc-auth-service/app/domain"
	mock_port "vrc-auth-service/app/mocks"
	"vrc-auth-service/app/utils/logger"
)

func newAuthTestContext(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func newTestAuthHandler(t *testing.T, ctrl *gomock.Controller) (*AuthHandler, *mock_port.MockLoginUsecase, *mock_port.MockCredentialStore, *mock_port.MockTokenIssuer) {
	t.Helper()

	testLogger, err := logger.New("debug")
	require.NoError(t, err)

	mockLogin := mock_port.NewMockLoginUsecase(ctrl)
	mockStore := mock_port.NewMockCredentialStore(ctrl)
	mockIssuer := mock_port.NewMockTokenIssuer(ctrl)
	return NewAuthHandler(mockLogin, mockStore, mockIssuer, testLogger), mockLogin, mockStore, mockIssuer
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMocks func(*mock_port.MockLoginUsecase, *mock_port.MockTokenIssuer)
		wantStatus int
		validate   func(*testing.T, LoginResponse)
	}{
		{
			name: "completed login returns an application token",
			body: `{"owner_id":"owner-1","identifier":"alice@example.com","secret":"s3cret"}`,
			setupMocks: func(login *mock_port.MockLoginUsecase, issuer *mock_port.MockTokenIssuer) {
				login.EXPECT().
					BeginLogin(gomock.Any(), "owner-1", "alice@example.com", "s3cret").
					Return(&domain.LoginResult{
						Status:         domain.LoginStatusComplete,
						DisplayName:    "Alice",
						ExternalUserID: "usr_123",
					}, nil)
				issuer.EXPECT().
					IssueAppToken("owner-1", "Alice", "usr_123").
					Return("signed.app.token", nil)
			},
			wantStatus: http.StatusOK,
			validate: func(t *testing.T, resp LoginResponse) {
				assert.Equal(t, "complete", resp.Status)
				assert.Equal(t, "signed.app.token", resp.AppToken)
				assert.Equal(t, "Alice", resp.DisplayName)
			},
		},
		{
			name: "awaiting factor returns the challenge shape without a token",
			body: `{"owner_id":"owner-1","identifier":"alice@example.com","secret":"s3cret"}`,
			setupMocks: func(login *mock_port.MockLoginUsecase, issuer *mock_port.MockTokenIssuer) {
				login.EXPECT().
					BeginLogin(gomock.Any(), "owner-1", "alice@example.com", "s3cret").
					Return(&domain.LoginResult{
						Status:             domain.LoginStatusAwaitingFactor,
						FactorMethods:      []string{"totp"},
						TriesLeft:          5,
						ChallengeExpiresAt: time.Now().Add(5 * time.Minute),
					}, nil)
			},
			wantStatus: http.StatusOK,
			validate: func(t *testing.T, resp LoginResponse) {
				assert.Equal(t, "awaiting_factor", resp.Status)
				assert.Equal(t, []string{"totp"}, resp.FactorMethods)
				assert.Equal(t, 5, resp.TriesLeft)
				assert.Empty(t, resp.AppToken)
			},
		},
		{
			name: "rejected credentials map to 401",
			body: `{"owner_id":"owner-1","identifier":"alice@example.com","secret":"wrong"}`,
			setupMocks: func(login *mock_port.MockLoginUsecase, issuer *mock_port.MockTokenIssuer) {
				login.EXPECT().
					BeginLogin(gomock.Any(), "owner-1", "alice@example.com", "wrong").
					Return(&domain.LoginResult{
						Status:      domain.LoginStatusFailed,
						FailureCode: domain.ErrCodeInvalidCredentials,
					}, nil)
			},
			wantStatus: http.StatusUnauthorized,
			validate: func(t *testing.T, resp LoginResponse) {
				assert.Equal(t, "failed", resp.Status)
				assert.Equal(t, domain.ErrCodeInvalidCredentials, resp.FailureCode)
			},
		},
		{
			name: "throttled login maps to 429 with the hint",
			body: `{"owner_id":"owner-1","identifier":"alice@example.com","secret":"s3cret"}`,
			setupMocks: func(login *mock_port.MockLoginUsecase, issuer *mock_port.MockTokenIssuer) {
				login.EXPECT().
					BeginLogin(gomock.Any(), "owner-1", "alice@example.com", "s3cret").
					Return(&domain.LoginResult{
						Status:      domain.LoginStatusFailed,
						FailureCode: domain.ErrCodeRateLimited,
						Retryable:   true,
						RetryAfter:  30 * time.Second,
					}, nil)
			},
			wantStatus: http.StatusTooManyRequests,
			validate: func(t *testing.T, resp LoginResponse) {
				assert.True(t, resp.Retryable)
				assert.Equal(t, 30, resp.RetryAfter)
			},
		},
		{
			name:       "missing fields are rejected before the usecase",
			body:       `{"owner_id":"owner-1"}`,
			setupMocks: func(login *mock_port.MockLoginUsecase, issuer *mock_port.MockTokenIssuer) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body is rejected",
			body:       `{not json`,
			setupMocks: func(login *mock_port.MockLoginUsecase, issuer *mock_port.MockTokenIssuer) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			handler, mockLogin, _, mockIssuer := newTestAuthHandler(t, ctrl)
			tt.setupMocks(mockLogin, mockIssuer)

			c, rec := newAuthTestContext(t, http.MethodPost, "/v1/auth/login", tt.body)

			require.NoError(t, handler.Login(c))
			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.validate != nil {
				var resp LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				tt.validate(t, resp)
			}

			// Secrets never leak into the response.
			assert.NotContains(t, rec.Body.String(), "s3cret")
		})
	}
}

func TestAuthHandler_SubmitFactor(t *testing.T) {
	t.Run("verified code completes the login", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		handler, mockLogin, _, mockIssuer := newTestAuthHandler(t, ctrl)

		mockLogin.EXPECT().
			SubmitFactor(gomock.Any(), "owner-1", "123456").
			Return(&domain.LoginResult{
				Status:         domain.LoginStatusComplete,
				DisplayName:    "Alice",
				ExternalUserID: "usr_123",
			}, nil)
		mockIssuer.EXPECT().
			IssueAppToken("owner-1", "Alice", "usr_123").
			Return("signed.app.token", nil)

		c, rec := newAuthTestContext(t, http.MethodPost, "/v1/auth/login/factor",
			`{"owner_id":"owner-1","code":"123456"}`)

		require.NoError(t, handler.SubmitFactor(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "complete", resp.Status)
		assert.Equal(t, "signed.app.token", resp.AppToken)
	})

	t.Run("rejected code keeps 200 with tries left", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		handler, mockLogin, _, _ := newTestAuthHandler(t, ctrl)

		mockLogin.EXPECT().
			SubmitFactor(gomock.Any(), "owner-1", "000000").
			Return(&domain.LoginResult{
				Status:      domain.LoginStatusAwaitingFactor,
				FailureCode: domain.ErrCodeSecondFactorRejected,
				TriesLeft:   4,
			}, nil)

		c, rec := newAuthTestContext(t, http.MethodPost, "/v1/auth/login/factor",
			`{"owner_id":"owner-1","code":"000000"}`)

		require.NoError(t, handler.SubmitFactor(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "awaiting_factor", resp.Status)
		assert.Equal(t, 4, resp.TriesLeft)
	})

	t.Run("expired challenge maps to 410", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		handler, mockLogin, _, _ := newTestAuthHandler(t, ctrl)

		mockLogin.EXPECT().
			SubmitFactor(gomock.Any(), "owner-1", "123456").
			Return(&domain.LoginResult{
				Status:      domain.LoginStatusFailed,
				FailureCode: domain.ErrCodeChallengeExpired,
			}, nil)

		c, rec := newAuthTestContext(t, http.MethodPost, "/v1/auth/login/factor",
			`{"owner_id":"owner-1","code":"123456"}`)

		require.NoError(t, handler.SubmitFactor(c))
		assert.Equal(t, http.StatusGone, rec.Code)
	})

	t.Run("malformed code shape never reaches the usecase", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		handler, _, _, _ := newTestAuthHandler(t, ctrl)

		for _, code := range []string{"12345", "abcdef", ""} {
			c, rec := newAuthTestContext(t, http.MethodPost, "/v1/auth/login/factor",
				`{"owner_id":"owner-1","code":"`+code+`"}`)
			require.NoError(t, handler.SubmitFactor(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		}
	})
}

func TestAuthHandler_Revoke(t *testing.T) {
	t.Run("successful revocation", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		handler, mockLogin, _, _ := newTestAuthHandler(t, ctrl)

		mockLogin.EXPECT().Revoke(gomock.Any(), "owner-1").Return(nil)

		c, rec := newAuthTestContext(t, http.MethodPost, "/v1/auth/revoke",
			`{"owner_id":"owner-1"}`)

		require.NoError(t, handler.Revoke(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("unknown owner maps to 404", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		handler, mockLogin, _, _ := newTestAuthHandler(t, ctrl)

		mockLogin.EXPECT().Revoke(gomock.Any(), "owner-1").Return(domain.ErrCredentialNotFound)

		c, rec := newAuthTestContext(t, http.MethodPost, "/v1/auth/revoke",
			`{"owner_id":"owner-1"}`)

		require.NoError(t, handler.Revoke(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAuthHandler_GetCredential(t *testing.T) {
	t.Run("descriptive fields only, never the token", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		handler, _, mockStore, _ := newTestAuthHandler(t, ctrl)

		cred, err := domain.NewActiveCredential("owner-1", "auth-token-xyz", "Alice", "usr_123")
		require.NoError(t, err)
		mockStore.EXPECT().Load(gomock.Any(), "owner-1").Return(cred, nil)

		c, rec := newAuthTestContext(t, http.MethodGet, "/v1/auth/credential/owner-1", "")
		c.SetParamNames("ownerId")
		c.SetParamValues("owner-1")

		require.NoError(t, handler.GetCredential(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Alice")
		assert.Contains(t, rec.Body.String(), `"state":"active"`)
		assert.NotContains(t, rec.Body.String(), "auth-token-xyz")
	})

	t.Run("missing credential maps to 404", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		handler, _, mockStore, _ := newTestAuthHandler(t, ctrl)

		mockStore.EXPECT().Load(gomock.Any(), "owner-1").Return(nil, domain.ErrCredentialNotFound)

		c, rec := newAuthTestContext(t, http.MethodGet, "/v1/auth/credential/owner-1", "")
		c.SetParamNames("ownerId")
		c.SetParamValues("owner-1")

		require.NoError(t, handler.GetCredential(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
