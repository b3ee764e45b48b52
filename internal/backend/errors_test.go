package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/openai/openai-go"
)

// apiError builds a provider error with enough request context that its
// Error() method is printable.
func apiError(status int) *openai.Error {
	req, _ := http.NewRequest(http.MethodPost, "https://api.openai.com/v1/test", nil)
	return &openai.Error{
		StatusCode: status,
		Request:    req,
		Response:   &http.Response{StatusCode: status},
	}
}

// TestIsTransient verifies the retry taxonomy: connection and timeout
// errors retry, bad responses do not.
func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{ErrConnection, true},
		{ErrTimeout, true},
		{ErrBadResponse, false},
		{fmt.Errorf("wrapped: %w", ErrConnection), true},
		{fmt.Errorf("wrapped: %w", ErrBadResponse), false},
		{errors.New("unclassified"), false},
		{nil, false},
	}

	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Errorf("IsTransient(%v): expected %v, got %v", tc.err, tc.want, got)
		}
	}
}

// TestClassify maps provider errors onto the sentinel taxonomy.
func TestClassify(t *testing.T) {
	if classify(nil) != nil {
		t.Errorf("nil should classify to nil")
	}

	if err := classify(context.DeadlineExceeded); !errors.Is(err, ErrTimeout) {
		t.Errorf("DeadlineExceeded: expected ErrTimeout, got %v", err)
	}

	if err := classify(apiError(429)); !errors.Is(err, ErrConnection) {
		t.Errorf("429: expected ErrConnection, got %v", err)
	}
	if err := classify(apiError(503)); !errors.Is(err, ErrConnection) {
		t.Errorf("503: expected ErrConnection, got %v", err)
	}
	if err := classify(apiError(400)); !errors.Is(err, ErrBadResponse) {
		t.Errorf("400: expected ErrBadResponse, got %v", err)
	}

	if err := classify(errors.New("dial tcp: connection refused")); !errors.Is(err, ErrConnection) {
		t.Errorf("network error: expected ErrConnection, got %v", err)
	}
}
