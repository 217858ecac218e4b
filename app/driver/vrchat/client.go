package vrchat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"vrc-auth-service/app/domain"
)

const (
	// authCookieName is the session cookie the provider issues on login.
	authCookieName = "auth"

	// maxResponseBytes bounds provider response bodies.
	maxResponseBytes = 1 << 20
)

// Config holds provider client configuration.
type Config struct {
	BaseURL   string
	UserAgent string
	// Timeout bounds each outbound request.
	Timeout time.Duration
	// TransportRetries caps retries of network errors and 5xx responses.
	TransportRetries uint64
}

// Client speaks the identity provider's HTTP API: Basic-auth login probe,
// second-factor verification, and authenticated calls with the session
// cookie. Implements port.ProviderClient.
type Client struct {
	http             *http.Client
	baseURL          *url.URL
	userAgent        string
	transportRetries uint64
	logger           *slog.Logger
}

// NewClient creates a new provider client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid provider base URL: %s", cfg.BaseURL)
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("provider user agent is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	logger.Info("provider client initialized",
		"base_url", cfg.BaseURL,
		"timeout", timeout)

	return &Client{
		http: &http.Client{
			Timeout: timeout,
			// Redirects would drop the Authorization header; the auth
			// endpoints never legitimately redirect.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL:          base,
		userAgent:        cfg.UserAgent,
		transportRetries: cfg.TransportRetries,
		logger:           logger.With("component", "vrchat_client"),
	}, nil
}

// loginResponse is the identity endpoint's 200 body: either a user object
// or a pending second-factor marker.
type loginResponse struct {
	RequiresTwoFactorAuth []string `json:"requiresTwoFactorAuth"`
	ID                    string   `json:"id"`
	DisplayName           string   `json:"displayName"`
}

// verifyResponse is the second-factor verification body.
type verifyResponse struct {
	Verified bool `json:"verified"`
}

// Login sends the Basic-auth probe to the identity endpoint and classifies
// the response. Network errors and 5xx responses are retried with
// exponential backoff up to the configured cap; everything else is a
// provider judgment and classified exactly once.
func (c *Client) Login(ctx context.Context, identifier, secret string) (domain.Outcome, error) {
	return c.withTransportRetry(ctx, "login", func() (domain.Outcome, error) {
		req, err := c.newRequest(ctx, http.MethodGet, "/auth/user", nil)
		if err != nil {
			return domain.Outcome{}, backoff.Permanent(err)
		}
		// The provider requires URL-escaped values inside the Basic pair.
		req.SetBasicAuth(url.QueryEscape(identifier), url.QueryEscape(secret))

		resp, body, err := c.do(req)
		if err != nil {
			return domain.Outcome{}, err
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return c.classifyLoginOK(resp, body)
		case resp.StatusCode == http.StatusUnauthorized:
			return domain.RejectedOutcome(), nil
		case resp.StatusCode == http.StatusTooManyRequests:
			return domain.RateLimitedOutcome(retryAfterHint(resp)), nil
		case resp.StatusCode >= 500:
			return domain.Outcome{}, fmt.Errorf("provider returned status %d", resp.StatusCode)
		default:
			return domain.Outcome{}, backoff.Permanent(fmt.Errorf("unexpected provider status %d", resp.StatusCode))
		}
	})
}

// classifyLoginOK splits a 200 into authenticated vs second-factor-required.
func (c *Client) classifyLoginOK(resp *http.Response, body []byte) (domain.Outcome, error) {
	var parsed loginResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.Outcome{}, backoff.Permanent(fmt.Errorf("malformed provider response: %w", err))
	}

	cookie := sessionCookie(resp)
	if cookie == "" {
		return domain.Outcome{}, backoff.Permanent(fmt.Errorf("provider response carried no session cookie"))
	}

	if len(parsed.RequiresTwoFactorAuth) > 0 {
		return domain.SecondFactorRequiredOutcome(domain.ChallengeMarker{
			PendingToken: cookie,
			Methods:      parsed.RequiresTwoFactorAuth,
		}), nil
	}

	return domain.AuthenticatedOutcome(cookie, parsed.DisplayName, parsed.ID), nil
}

// VerifySecondFactor submits a code against a pending challenge. On
// success the pending cookie becomes the session token; the current-user
// endpoint is then read once to capture the descriptive attributes.
func (c *Client) VerifySecondFactor(ctx context.Context, marker domain.ChallengeMarker, code string) (domain.Outcome, error) {
	return c.withTransportRetry(ctx, "verify_second_factor", func() (domain.Outcome, error) {
		payload, err := json.Marshal(map[string]string{"code": code})
		if err != nil {
			return domain.Outcome{}, backoff.Permanent(err)
		}

		path := fmt.Sprintf("/auth/twofactorauth/%s/verify", marker.PreferredMethod())
		req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
		if err != nil {
			return domain.Outcome{}, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(&http.Cookie{Name: authCookieName, Value: marker.PendingToken})

		resp, body, err := c.do(req)
		if err != nil {
			return domain.Outcome{}, err
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			var parsed verifyResponse
			if err := json.Unmarshal(body, &parsed); err != nil {
				return domain.Outcome{}, backoff.Permanent(fmt.Errorf("malformed provider response: %w", err))
			}
			if !parsed.Verified {
				return domain.RejectedOutcome(), nil
			}
			displayName, externalUserID := c.fetchProfile(ctx, marker.PendingToken)
			return domain.AuthenticatedOutcome(marker.PendingToken, displayName, externalUserID), nil
		case resp.StatusCode == http.StatusUnauthorized:
			return domain.RejectedOutcome(), nil
		case resp.StatusCode == http.StatusTooManyRequests:
			return domain.RateLimitedOutcome(retryAfterHint(resp)), nil
		case resp.StatusCode >= 500:
			return domain.Outcome{}, fmt.Errorf("provider returned status %d", resp.StatusCode)
		default:
			return domain.Outcome{}, backoff.Permanent(fmt.Errorf("unexpected provider status %d", resp.StatusCode))
		}
	})
}

// fetchProfile reads the current-user endpoint with a finalized session
// cookie. The attributes are informational only, so failures degrade to
// empty fields instead of failing the login.
func (c *Client) fetchProfile(ctx context.Context, sessionToken string) (displayName, externalUserID string) {
	req, err := c.newRequest(ctx, http.MethodGet, "/auth/user", nil)
	if err != nil {
		return "", ""
	}
	req.AddCookie(&http.Cookie{Name: authCookieName, Value: sessionToken})

	resp, body, err := c.do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		c.logger.Warn("could not fetch profile after second factor", "status", statusOrZero(resp))
		return "", ""
	}

	var parsed loginResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", ""
	}
	return parsed.DisplayName, parsed.ID
}

// Do performs an authenticated call with an established session token. The
// response is returned for every provider judgment, including 401 and 429;
// only transport-level trouble (after retries) surfaces as an error.
func (c *Client) Do(ctx context.Context, sessionToken string, pr domain.ProviderRequest) (*domain.ProviderResponse, error) {
	var result *domain.ProviderResponse

	_, err := c.withTransportRetry(ctx, "call", func() (domain.Outcome, error) {
		var reader io.Reader
		if len(pr.Body) > 0 {
			reader = bytes.NewReader(pr.Body)
		}

		req, err := c.newRequest(ctx, pr.Method, pr.Path, reader)
		if err != nil {
			return domain.Outcome{}, backoff.Permanent(err)
		}
		if len(pr.Body) > 0 {
			req.Header.Set("Content-Type", "application/json")
		}
		if len(pr.Query) > 0 {
			q := req.URL.Query()
			for k, v := range pr.Query {
				q.Set(k, v)
			}
			req.URL.RawQuery = q.Encode()
		}
		req.AddCookie(&http.Cookie{Name: authCookieName, Value: sessionToken})

		resp, body, err := c.do(req)
		if err != nil {
			return domain.Outcome{}, err
		}
		if resp.StatusCode >= 500 {
			return domain.Outcome{}, fmt.Errorf("provider returned status %d", resp.StatusCode)
		}

		result = &domain.ProviderResponse{
			StatusCode: resp.StatusCode,
			Body:       body,
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			result.RetryAfter = retryAfterHint(resp)
		}
		return domain.Outcome{}, nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: provider unreachable", domain.ErrTransportFailure)
	}
	return result, nil
}

// withTransportRetry runs op with exponential backoff over transport-level
// errors. Exhausted retries classify as TransportFailure; the sanitized
// detail carries no credentials.
func (c *Client) withTransportRetry(ctx context.Context, operation string, op func() (domain.Outcome, error)) (domain.Outcome, error) {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.transportRetries),
		ctx,
	)

	outcome, err := backoff.RetryWithData(op, b)
	if err != nil {
		c.logger.Warn("provider transport failure", "operation", operation, "error", err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Outcome{}, ctxErr
		}
		return domain.TransportFailureOutcome(err.Error()), nil
	}
	return outcome, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do executes the request and drains a bounded body.
func (c *Client) do(req *http.Request) (*http.Response, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read provider response: %w", err)
	}
	return resp, body, nil
}

// sessionCookie extracts the provider session cookie from a response.
func sessionCookie(resp *http.Response) string {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == authCookieName && cookie.Value != "" {
			return cookie.Value
		}
	}
	return ""
}

func statusOrZero(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
