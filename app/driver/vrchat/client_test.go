package vrchat

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vrc-auth-service/app/domain"
	"vrc-auth-service/app/utils/logger"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()

	testLogger, err := logger.NewWithWriter("error", testWriter{})
	require.NoError(t, err)

	client, err := NewClient(Config{
		BaseURL:          serverURL,
		UserAgent:        "archive-test/1.0 admin@example.com",
		Timeout:          2 * time.Second,
		TransportRetries: 1,
	}, testLogger)
	require.NoError(t, err)

	return client
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestNewClient_Validation(t *testing.T) {
	testLogger, err := logger.NewWithWriter("error", testWriter{})
	require.NoError(t, err)

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{BaseURL: "https://api.example.com/api/1", UserAgent: "ua"}, false},
		{"empty base URL", Config{UserAgent: "ua"}, true},
		{"relative base URL", Config{BaseURL: "/api/1", UserAgent: "ua"}, true},
		{"missing user agent", Config{BaseURL: "https://api.example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg, testLogger)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClient_Login_Authenticated(t *testing.T) {
	var gotAuth, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")

		http.SetCookie(w, &http.Cookie{Name: "auth", Value: "abc123"})
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"usr_42","displayName":"Alice"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	outcome, err := client.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeAuthenticated, outcome.Kind)
	assert.Equal(t, "abc123", outcome.SessionToken)
	assert.Equal(t, "Alice", outcome.DisplayName)
	assert.Equal(t, "usr_42", outcome.ExternalUserID)

	assert.Equal(t, "archive-test/1.0 admin@example.com", gotUA)
	require.True(t, strings.HasPrefix(gotAuth, "Basic "))
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(gotAuth, "Basic "))
	require.NoError(t, err)
	assert.Equal(t, "alice:s3cret", string(decoded))
}

func TestClient_Login_BasicAuthEscapesCredentials(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		http.SetCookie(w, &http.Cookie{Name: "auth", Value: "abc123"})
		w.Write([]byte(`{"id":"usr_42","displayName":"Alice"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Login(context.Background(), "alice@example.com", "p@ss:word")
	require.NoError(t, err)

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(gotAuth, "Basic "))
	require.NoError(t, err)
	assert.Equal(t, "alice%40example.com:p%40ss%3Aword", string(decoded))
}

func TestClient_Login_SecondFactorRequired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "auth", Value: "pending_cookie"})
		w.Write([]byte(`{"requiresTwoFactorAuth":["totp","otp"]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	outcome, err := client.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeSecondFactorRequired, outcome.Kind)
	require.NotNil(t, outcome.Marker)
	assert.Equal(t, "pending_cookie", outcome.Marker.PendingToken)
	assert.Equal(t, []string{"totp", "otp"}, outcome.Marker.Methods)
	assert.Empty(t, outcome.SessionToken)
}

func TestClient_Login_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Invalid Username/Email or Password","status_code":401}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	outcome, err := client.Login(context.Background(), "alice", "wrong")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRejected, outcome.Kind)
}

func TestClient_Login_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	outcome, err := client.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRateLimited, outcome.Kind)
	assert.Equal(t, 30*time.Second, outcome.RetryAfter)
}

func TestClient_Login_RetriesTransportFailures(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "auth", Value: "abc123"})
		w.Write([]byte(`{"id":"usr_42","displayName":"Alice"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	outcome, err := client.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAuthenticated, outcome.Kind)
	assert.Equal(t, 2, calls)
}

func TestClient_Login_TransportFailureAfterExhaustedRetries(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	outcome, err := client.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeTransportFailure, outcome.Kind)
	assert.Equal(t, 2, calls)
	// The detail is transport-level only; it must never leak credentials.
	assert.NotContains(t, outcome.Detail, "s3cret")
}

func TestClient_Login_MissingSessionCookie(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"usr_42","displayName":"Alice"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	outcome, err := client.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeTransportFailure, outcome.Kind)
}

func TestClient_VerifySecondFactor(t *testing.T) {
	marker := domain.ChallengeMarker{PendingToken: "pending_cookie", Methods: []string{"totp"}}

	t.Run("correct code finalizes the session", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/auth/twofactorauth/totp/verify":
				cookie, err := r.Cookie("auth")
				require.NoError(t, err)
				assert.Equal(t, "pending_cookie", cookie.Value)
				w.Write([]byte(`{"verified":true}`))
			case "/auth/user":
				w.Write([]byte(`{"id":"usr_42","displayName":"Alice"}`))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		outcome, err := client.VerifySecondFactor(context.Background(), marker, "123456")
		require.NoError(t, err)

		assert.Equal(t, domain.OutcomeAuthenticated, outcome.Kind)
		assert.Equal(t, "pending_cookie", outcome.SessionToken)
		assert.Equal(t, "Alice", outcome.DisplayName)
		assert.Equal(t, "usr_42", outcome.ExternalUserID)
	})

	t.Run("wrong code is rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"verified":false}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		outcome, err := client.VerifySecondFactor(context.Background(), marker, "000000")
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeRejected, outcome.Kind)
	})

	t.Run("expired challenge is rejected by provider", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		outcome, err := client.VerifySecondFactor(context.Background(), marker, "123456")
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeRejected, outcome.Kind)
	})

	t.Run("profile fetch failure degrades to empty attributes", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/auth/user" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"verified":true}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		outcome, err := client.VerifySecondFactor(context.Background(), marker, "123456")
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeAuthenticated, outcome.Kind)
		assert.Equal(t, "pending_cookie", outcome.SessionToken)
		assert.Empty(t, outcome.DisplayName)
	})
}

func TestClient_Do(t *testing.T) {
	t.Run("attaches session cookie and returns body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie("auth")
			require.NoError(t, err)
			assert.Equal(t, "abc123", cookie.Value)
			assert.Equal(t, "/auth/user", r.URL.Path)
			assert.Equal(t, "1", r.URL.Query().Get("n"))
			w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		resp, err := client.Do(context.Background(), "abc123", domain.ProviderRequest{
			Method: http.MethodGet,
			Path:   "/auth/user",
			Query:  map[string]string{"n": "1"},
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
	})

	t.Run("401 is a provider judgment, not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		resp, err := client.Do(context.Background(), "stale", domain.ProviderRequest{Method: http.MethodGet, Path: "/auth/user"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("429 carries the retry hint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "15")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		resp, err := client.Do(context.Background(), "abc123", domain.ProviderRequest{Method: http.MethodGet, Path: "/auth/user"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, 15*time.Second, resp.RetryAfter)
	})

	t.Run("unreachable provider surfaces a transport error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.Do(context.Background(), "abc123", domain.ProviderRequest{Method: http.MethodGet, Path: "/auth/user"})
		assert.Error(t, err)
	})
}

func TestRetryAfterHint(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"delta seconds", "30", 30 * time.Second},
		{"missing header", "", defaultRetryAfter},
		{"garbage", "soon", defaultRetryAfter},
		{"negative", "-5", defaultRetryAfter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.header != "" {
				resp.Header.Set("Retry-After", tt.header)
			}
			assert.Equal(t, tt.want, retryAfterHint(resp))
		})
	}
}
