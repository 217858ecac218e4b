package vrchat

import (
	"net/http"
	"strconv"
	"time"
)

// defaultRetryAfter is used when the provider throttles without a usable
// Retry-After header.
const defaultRetryAfter = 60 * time.Second

// retryAfterHint parses the Retry-After header of a throttling response.
// Both the delta-seconds and HTTP-date forms are accepted.
func retryAfterHint(resp *http.Response) time.Duration {
	value := resp.Header.Get("Retry-After")
	if value == "" {
		return defaultRetryAfter
	}

	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}

	return defaultRetryAfter
}
