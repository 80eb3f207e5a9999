package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrRateLimited is returned when the API rejects a call for exceeding its rate limit
	ErrRateLimited = errors.New("start.gg rate limit exceeded")

	// ErrMalformedResponse is returned when a response body cannot be decoded
	ErrMalformedResponse = errors.New("malformed start.gg response")
)

// StatusError is a non-2xx HTTP response
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("start.gg returned status %d: %s", e.StatusCode, e.Body)
}

// GraphQLError carries the errors array of a response without usable data
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "start.gg query failed: " + strings.Join(e.Messages, "; ")
}

// IsRetryable classifies an error from a single API call
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrMalformedResponse) {
		return true
	}

	// every non-2xx status is retried; MaxAttempts bounds persistent ones
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return true
	}

	var gqlErr *GraphQLError
	if errors.As(err, &gqlErr) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// TransportError wraps a failure to send the request or read the response
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("start.gg request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// retryReason returns a short metric label for a retried error
func retryReason(err error) string {
	var statusErr *StatusError
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.As(err, &statusErr):
		return "http_status"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "timeout"
		}
		return "transport"
	}
}
