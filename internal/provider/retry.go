package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

// retryPolicy is the single retry discipline for every outbound API call.
// Chat and image requests back off quadratically with jitter because their
// endpoints rate-limit; speech synthesis waits a short fixed interval
// because a late audio clip is worthless once the turn has moved on.
type retryPolicy struct {
	attempts int
	wait     func(failed int) time.Duration
}

var (
	quadraticBackoff = retryPolicy{
		attempts: 4,
		wait: func(failed int) time.Duration {
			base := time.Duration(failed*failed) * time.Second
			return base + time.Duration(rand.Int64N(int64(base/2+1)))
		},
	}
	fixedBackoff = retryPolicy{
		attempts: ttsAttempts,
		wait:     func(int) time.Duration { return ttsBackoff },
	}
)

// transientStatus reports whether a status code is worth another attempt.
// Client errors are not: a 400 will be a 400 on every retry.
func transientStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}

// doWithRetry runs the request until a usable response arrives or the
// policy is spent. Failed attempts have their bodies drained and closed;
// the caller owns the body of the returned response. Non-transient error
// statuses are returned as-is for the caller to map.
func doWithRetry(ctx context.Context, client *http.Client, policy retryPolicy, buildReq func() (*http.Request, error), logger *slog.Logger) (*http.Response, error) {
	var lastErr error

	for failed := 0; failed < policy.attempts; failed++ {
		if failed > 0 {
			wait := policy.wait(failed)
			logger.Warn("retrying request", "attempt", failed+1, "wait", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		req, err := buildReq()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if transientStatus(resp.StatusCode) {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
			continue
		}
		return resp, nil
	}

	return nil, fmt.Errorf("gave up after %d attempts: %w", policy.attempts, lastErr)
}

// sharedClient builds the pooled HTTP client the chat, speech, and image
// clients default to. Streaming completions hold one connection for the
// whole answer, so the idle pool stays small.
func sharedClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:          16,
			MaxIdleConnsPerHost:   8,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: timeout,
			ForceAttemptHTTP2:     true,
		},
	}
}
