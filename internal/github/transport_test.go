package github

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func response(status int, headers map[string]string) *http.Response {
	resp := &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("{}")),
	}
	for k, v := range headers {
		resp.Header.Set(k, v)
	}
	return resp
}

// fakeClock records sleeps instead of performing them.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "https://api.github.com/users/octocat", nil)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestRetryTransportRateLimitWaitDoesNotConsumeBudget(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_000_000, 0)}
	reset := clock.now.Add(120 * time.Second)

	calls := 0
	transport := &RetryTransport{
		// A budget of one attempt: any failure-driven retry would exhaust it.
		Policy: RetryPolicy{MaxAttempts: 1, Backoff: func(int) time.Duration { return time.Second }},
		Base: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return response(http.StatusForbidden, map[string]string{
					"X-RateLimit-Remaining": "0",
					"X-RateLimit-Reset":     strconv.FormatInt(reset.Unix(), 10),
				}), nil
			}
			return response(http.StatusOK, nil), nil
		}),
		Sleep: clock.Sleep,
		Now:   clock.Now,
	}

	resp, err := transport.RoundTrip(newRequest(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(clock.sleeps) != 1 || clock.sleeps[0] != 120*time.Second {
		t.Errorf("sleeps = %v, want one 120s wait computed from the reset header", clock.sleeps)
	}
}

func TestRetryTransportForbiddenWithoutQuotaHeaderRetriesNormally(t *testing.T) {
	clock := &fakeClock{}
	calls := 0
	transport := &RetryTransport{
		Policy: RetryPolicy{MaxAttempts: 2, Backoff: func(attempt int) time.Duration { return time.Duration(attempt) * time.Second }},
		Base: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			calls++
			return response(http.StatusForbidden, nil), nil
		}),
		Sleep: clock.Sleep,
		Now:   clock.Now,
	}

	_, err := transport.RoundTrip(newRequest(t))
	// A plain 403 is not a rate limit: it consumes the budget like any other
	// failure status.
	var exhausted *ExhaustedRetriesError
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %v, want ExhaustedRetriesError", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryTransportNotFoundFailsImmediately(t *testing.T) {
	clock := &fakeClock{}
	calls := 0
	transport := &RetryTransport{
		Policy: RetryPolicy{MaxAttempts: 3, Backoff: func(int) time.Duration { return time.Second }},
		Base: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			calls++
			return response(http.StatusNotFound, nil), nil
		}),
		Sleep: clock.Sleep,
		Now:   clock.Now,
	}

	resp, err := transport.RoundTrip(newRequest(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries for 404)", calls)
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("sleeps = %v, want none", clock.sleeps)
	}
}

func TestRetryTransportServerErrorsExhaustBudget(t *testing.T) {
	clock := &fakeClock{}
	calls := 0
	transport := &RetryTransport{
		Policy: RetryPolicy{MaxAttempts: 3, Backoff: func(attempt int) time.Duration { return time.Duration(attempt) * time.Second }},
		Base: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			calls++
			return response(http.StatusInternalServerError, nil), nil
		}),
		Sleep: clock.Sleep,
		Now:   clock.Now,
	}

	_, err := transport.RoundTrip(newRequest(t))
	var exhausted *ExhaustedRetriesError
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %v, want ExhaustedRetriesError", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", exhausted.Attempts)
	}
	if !strings.Contains(exhausted.Error(), "500") {
		t.Errorf("error should carry the final status: %v", exhausted)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	// Linearly increasing backoff between attempts.
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(clock.sleeps) != len(want) || clock.sleeps[0] != want[0] || clock.sleeps[1] != want[1] {
		t.Errorf("sleeps = %v, want %v", clock.sleeps, want)
	}
}

func TestRetryTransportNetworkErrorExhaustsBudget(t *testing.T) {
	clock := &fakeClock{}
	netErr := errors.New("connection reset")
	transport := &RetryTransport{
		Policy: RetryPolicy{MaxAttempts: 3, Backoff: func(int) time.Duration { return time.Second }},
		Base: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return nil, netErr
		}),
		Sleep: clock.Sleep,
		Now:   clock.Now,
	}

	_, err := transport.RoundTrip(newRequest(t))
	var exhausted *ExhaustedRetriesError
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %v, want ExhaustedRetriesError", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", exhausted.Attempts)
	}
	if !errors.Is(err, netErr) {
		t.Errorf("wrapped error lost: %v", err)
	}
}

func TestRetryTransportSleepCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	transport := &RetryTransport{
		Policy: RetryPolicy{MaxAttempts: 3, Backoff: func(int) time.Duration { return time.Minute }},
		Base: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return response(http.StatusInternalServerError, nil), nil
		}),
	}

	req := newRequest(t).WithContext(ctx)
	_, err := transport.RoundTrip(req)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled from the backoff sleep", err)
	}
}
