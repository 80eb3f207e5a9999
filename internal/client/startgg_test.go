package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"smashrank/internal/ratelimit"
	"smashrank/internal/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingLimiter never blocks and counts acquired slots
type countingLimiter struct {
	acquired atomic.Int32
}

func (l *countingLimiter) Acquire(ctx context.Context) error {
	l.acquired.Add(1)
	return ctx.Err()
}

var _ ratelimit.Limiter = (*countingLimiter)(nil)

func testPolicy(slept *[]time.Duration) retry.Policy {
	return retry.Policy{
		MaxAttempts: 4,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			*slept = append(*slept, d)
			return nil
		},
	}
}

func TestClient_CallSendsQueryAndToken(t *testing.T) {
	var got request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))

		_, _ = w.Write([]byte(`{"data": {"event": {"id": 812103, "name": "Melee Singles"}}}`))
	}))
	defer server.Close()

	var slept []time.Duration
	limiter := &countingLimiter{}
	c := NewClient(server.URL, "secret", 5*time.Second, limiter, testPolicy(&slept))

	data, err := c.Call(context.Background(), QueryEventBySlug, map[string]any{"slug": "tournament/x/event/melee-singles"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"event": {"id": 812103, "name": "Melee Singles"}}`, string(data))
	assert.Equal(t, QueryEventBySlug, got.Query)
	assert.Equal(t, "tournament/x/event/melee-singles", got.Variables["slug"])
	assert.Equal(t, int32(1), limiter.acquired.Load())
	assert.Empty(t, slept)
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		case 3:
			_, _ = w.Write([]byte(`{"data": {"ev`))
		default:
			_, _ = w.Write([]byte(`{"data": {"ok": true}}`))
		}
	}))
	defer server.Close()

	var slept []time.Duration
	limiter := &countingLimiter{}
	c := NewClient(server.URL, "secret", 5*time.Second, limiter, testPolicy(&slept))

	data, err := c.Call(context.Background(), QueryEventSets, nil)
	require.NoError(t, err)

	assert.JSONEq(t, `{"ok": true}`, string(data))
	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, int32(4), limiter.acquired.Load(), "every attempt consumes a rate slot")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, slept)
}

func TestClient_GraphQLRateLimitIsRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"success": false, "errors": [{"message": "Rate limit exceeded - api-token"}], "data": null}`))
			return
		}
		_, _ = w.Write([]byte(`{"data": {"ok": 1}}`))
	}))
	defer server.Close()

	var slept []time.Duration
	c := NewClient(server.URL, "secret", 5*time.Second, &countingLimiter{}, testPolicy(&slept))

	_, err := c.Call(context.Background(), QueryEventSets, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ExhaustedRetriesAreFatal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	var slept []time.Duration
	c := NewClient(server.URL, "secret", 5*time.Second, &countingLimiter{}, testPolicy(&slept))

	_, err := c.Call(context.Background(), QueryEventSets, nil)
	require.Error(t, err)

	assert.True(t, IsExhausted(err))
	assert.Contains(t, err.Error(), "EventSets")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, int32(4), calls.Load())
}

func TestClient_ClientErrorStatusIsRetriedUntilExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "Invalid authentication token"}`))
	}))
	defer server.Close()

	var slept []time.Duration
	c := NewClient(server.URL, "bad", 5*time.Second, &countingLimiter{}, testPolicy(&slept))

	_, err := c.Call(context.Background(), QueryEventSets, nil)
	require.Error(t, err)
	assert.True(t, IsExhausted(err))
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, int32(4), calls.Load())
	assert.Len(t, slept, 3)
}

func TestClient_GraphQLErrorIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors": [{"message": "Variable \"$eventId\" of required type \"ID!\" was not provided."}], "data": null}`))
	}))
	defer server.Close()

	var slept []time.Duration
	c := NewClient(server.URL, "secret", 5*time.Second, &countingLimiter{}, testPolicy(&slept))

	_, err := c.Call(context.Background(), QueryEventSets, nil)
	var gqlErr *GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Len(t, gqlErr.Messages, 1)
	assert.Empty(t, slept)
}

func TestClient_TimeoutIsRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			time.Sleep(200 * time.Millisecond)
		}
		_, _ = w.Write([]byte(`{"data": {}}`))
	}))
	defer server.Close()

	var slept []time.Duration
	c := NewClient(server.URL, "secret", 50*time.Millisecond, &countingLimiter{}, testPolicy(&slept))

	_, err := c.Call(context.Background(), QueryEventSets, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, slept, 1)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(ErrRateLimited))
	assert.True(t, IsRetryable(ErrMalformedResponse))
	for _, code := range []int{400, 401, 403, 404, 408, 500, 503} {
		assert.True(t, IsRetryable(&StatusError{StatusCode: code}), "status %d", code)
	}
	assert.False(t, IsRetryable(&GraphQLError{Messages: []string{"bad"}}))
	assert.True(t, IsRetryable(&TransportError{Err: io.ErrUnexpectedEOF}))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.False(t, IsRetryable(context.Canceled))
}

func TestOperationName(t *testing.T) {
	assert.Equal(t, "EventSets", operationName(QueryEventSets))
	assert.Equal(t, "TournamentsSearch", operationName(QueryTournamentsByLocation))
	assert.Equal(t, "TournamentsByOwner", operationName(QueryTournamentsByOwner))
	assert.Equal(t, "anonymous", operationName("{ currentUser { id } }"))
}
