package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const defaultMaxAttempts = 3

// RetryPolicy bounds how a failing request is retried. Backoff receives the
// 1-based attempt number and returns how long to wait before the next try.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// DefaultRetryPolicy retries up to three times with a linearly increasing
// delay (2s, 4s, 6s).
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: defaultMaxAttempts,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * 2 * time.Second
		},
	}
}

// RetryTransport wraps an http.RoundTripper with the retry behavior every
// outbound GitHub call needs:
//
//   - 403 with an exhausted quota header: sleep until the reset timestamp,
//     then retry. This is a deterministic wait, not a failure, so it does
//     not consume the attempt budget.
//   - 404 and all success statuses (including 202) pass through untouched.
//   - transport errors and any other non-success status retry with the
//     policy's backoff; once MaxAttempts is spent the request fails with
//     an ExhaustedRetriesError carrying the last failure.
//
// A request may therefore block for multi-second periods; callers must treat
// it as suspending, never instantaneous. Sleep and Now are injectable so
// tests run against a fake clock.
type RetryTransport struct {
	Policy RetryPolicy
	Base   http.RoundTripper

	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

func (t *RetryTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *RetryTransport) sleep(ctx context.Context, d time.Duration) error {
	if t.Sleep != nil {
		return t.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *RetryTransport) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	policy := t.Policy
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}

	ctx := req.Context()
	var lastErr error

	for attempt := 1; ; {
		resp, err := t.base().RoundTrip(req)
		if err != nil {
			lastErr = err
			if attempt >= policy.MaxAttempts {
				return nil, &ExhaustedRetriesError{Attempts: attempt, Err: lastErr}
			}
			if serr := t.sleep(ctx, policy.Backoff(attempt)); serr != nil {
				return nil, serr
			}
			attempt++
			continue
		}

		if resp.StatusCode == http.StatusForbidden && quotaExhausted(resp) {
			wait := t.untilReset(resp)
			drain(resp)
			if wait > 0 {
				if serr := t.sleep(ctx, wait); serr != nil {
					return nil, serr
				}
			}
			// Deterministic wait; the attempt budget is untouched.
			continue
		}

		if resp.StatusCode == http.StatusNotFound || resp.StatusCode < 400 {
			return resp, nil
		}

		if attempt >= policy.MaxAttempts {
			drain(resp)
			return nil, &ExhaustedRetriesError{Attempts: attempt, Err: fmt.Errorf("http status %d", resp.StatusCode)}
		}
		drain(resp)
		if serr := t.sleep(ctx, policy.Backoff(attempt)); serr != nil {
			return nil, serr
		}
		attempt++
	}
}

// quotaExhausted reports whether a 403 carries a zero-remaining-quota header.
func quotaExhausted(resp *http.Response) bool {
	return resp.Header.Get("X-RateLimit-Remaining") == "0"
}

// untilReset computes the wait from the reset-timestamp header. Zero when
// the header is missing, unparseable, or in the past.
func (t *RetryTransport) untilReset(resp *http.Response) time.Duration {
	reset, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return 0
	}
	wait := time.Unix(reset, 0).Sub(t.now())
	if wait < 0 {
		return 0
	}
	return wait
}

func drain(resp *http.Response) {
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}
}
