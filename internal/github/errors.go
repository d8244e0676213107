package github

import (
	"errors"
	"fmt"

	gh "github.com/google/go-github/v60/github"
)

// ErrNotFound marks a remote resource that does not exist. Surfaced
// immediately, without consuming retries.
var ErrNotFound = errors.New("resource not found")

// ErrPending marks a 202 response from the statistics endpoints: GitHub is
// still computing the data. Callers treat this as "no data yet", not a
// failure.
var ErrPending = errors.New("statistics not ready yet")

// ExhaustedRetriesError is returned once the bounded attempt budget is spent
// on a persistently failing request.
type ExhaustedRetriesError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedRetriesError) Unwrap() error {
	return e.Err
}

// classify maps a go-github error into the pipeline's error taxonomy.
// Rate-limit waits are absorbed inside the transport, so a RateLimitError
// escaping this far means the wait budget was blown through.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var accepted *gh.AcceptedError
	if errors.As(err, &accepted) {
		return ErrPending
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == 404 {
		return fmt.Errorf("%w: %s", ErrNotFound, ghErr.Message)
	}

	var exhausted *ExhaustedRetriesError
	if errors.As(err, &exhausted) {
		return err
	}

	return err
}
