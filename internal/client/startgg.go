package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"smashrank/internal/metrics"
	"smashrank/internal/ratelimit"
	"smashrank/internal/retry"

	"github.com/rs/zerolog/log"
)

// maxErrorBody bounds how much of an error response is kept in a StatusError
const maxErrorBody = 512

// Client is the start.gg GraphQL API client. Every call takes one slot from
// the limiter, including calls that fail and are retried.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	limiter    ratelimit.Limiter
	retry      retry.Policy
}

// NewClient creates a new start.gg API client
func NewClient(endpoint, apiKey string, timeout time.Duration, limiter ratelimit.Limiter, policy retry.Policy) *Client {
	if policy.Retryable == nil {
		policy.Retryable = IsRetryable
	}

	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		limiter:  limiter,
		retry:    policy,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Call executes one query and returns its data object. Transient failures are
// retried per the client's policy; exhausting the attempts returns a
// *retry.ExhaustedError.
func (c *Client) Call(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var data json.RawMessage
	err = c.retry.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}

		var callErr error
		data, callErr = c.post(ctx, body)
		return callErr
	}, func(e retry.Event) {
		metrics.RecordRetry(retryReason(e.Err))
		log.Warn().
			Err(e.Err).
			Str("operation", operationName(query)).
			Int("attempt", e.Attempt).
			Dur("delay", e.Delay).
			Dur("elapsed", e.Elapsed).
			Msg("Backing off before retrying API call")
	})
	if err != nil {
		metrics.RecordError("client", "call_failed")
		return nil, fmt.Errorf("start.gg call %s failed: %w", operationName(query), err)
	}

	return data, nil
}

// post performs a single HTTP round trip
func (c *Client) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "smashrank/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPICall("transport_error", time.Since(start).Seconds())
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordAPICall("transport_error", time.Since(start).Seconds())
		return nil, &TransportError{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	metrics.RecordAPICall(fmt.Sprintf("%d", resp.StatusCode), time.Since(start).Seconds())

	log.Debug().
		Int("status", resp.StatusCode).
		Int("size", len(raw)).
		Dur("duration", time.Since(start)).
		Msg("API request completed")

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w (status %d)", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(raw), maxErrorBody)}
	}

	var decoded response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if len(decoded.Errors) > 0 {
		messages := make([]string, 0, len(decoded.Errors))
		for _, e := range decoded.Errors {
			if isRateLimitMessage(e.Message) {
				return nil, fmt.Errorf("%w: %s", ErrRateLimited, e.Message)
			}
			messages = append(messages, e.Message)
		}
		if isNull(decoded.Data) {
			return nil, &GraphQLError{Messages: messages}
		}
		log.Warn().Strs("errors", messages).Msg("API returned partial data with errors")
	}

	if isNull(decoded.Data) {
		return nil, fmt.Errorf("%w: no data in response", ErrMalformedResponse)
	}

	return decoded.Data, nil
}

func isRateLimitMessage(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "rate limit")
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// operationName extracts the operation name from a query document for logs
func operationName(query string) string {
	fields := strings.Fields(query)
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "query" {
			name := fields[i+1]
			if idx := strings.IndexAny(name, "({"); idx >= 0 {
				name = name[:idx]
			}
			if name != "" {
				return name
			}
		}
	}
	return "anonymous"
}

// IsExhausted reports whether err came from running out of retry attempts
func IsExhausted(err error) bool {
	var exhausted *retry.ExhaustedError
	return errors.As(err, &exhausted)
}
