package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
)

var (
	// ErrConnection indicates the backend could not be reached or refused the
	// request for transient reasons (network failure, HTTP 429/5xx).
	ErrConnection = errors.New("backend connection failed")

	// ErrTimeout indicates the backend did not respond within the deadline.
	ErrTimeout = errors.New("backend request timed out")

	// ErrBadResponse indicates the backend answered but the response was
	// malformed or rejected the request (HTTP 4xx other than 429).
	ErrBadResponse = errors.New("backend returned bad response")
)

// IsTransient reports whether the error is worth retrying.
// Connection failures and timeouts are transient; malformed
// requests and responses are not.
func IsTransient(err error) bool {
	return errors.Is(err, ErrConnection) || errors.Is(err, ErrTimeout)
}

// classify maps a raw provider error onto the backend error taxonomy.
// Callers downstream branch on the sentinel, never on provider types.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
			return fmt.Errorf("%w: %v", ErrConnection, err)
		}
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	// Anything else (DNS, refused connection, EOF) is a network problem.
	return fmt.Errorf("%w: %v", ErrConnection, err)
}
