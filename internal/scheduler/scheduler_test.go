package scheduler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"smashrank/internal/leaderboard"
	"smashrank/internal/pipeline"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	rows    []leaderboard.Row
	err     error
	calls   int
	block   chan struct{}
	started chan struct{}
}

func (f *fakeRefresher) Refresh(ctx context.Context) (*pipeline.Result, error) {
	f.calls++
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Result{Rows: f.rows}, nil
}

// captureLogs redirects the global logger for the duration of the test
func captureLogs(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestRunOnce_LogsTopRowsBestFirst(t *testing.T) {
	buf := captureLogs(t)
	rows := []leaderboard.Row{
		{ID: "7", Tag: "low", Exposure: 1},
		{ID: "8", Tag: "mid", Exposure: 5},
		{ID: "9", Tag: "top", Exposure: 9},
	}
	f := &fakeRefresher{rows: rows}

	require.NoError(t, NewScheduler(f, "@every 1h").RunOnce(context.Background()))
	assert.Equal(t, 1, f.calls)

	var tags []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Contains(line, `"message":"Leaderboard"`) {
			for _, tag := range []string{"top", "mid", "low"} {
				if strings.Contains(line, `"tag":"`+tag+`"`) {
					tags = append(tags, tag)
				}
			}
		}
	}
	assert.Equal(t, []string{"top", "mid", "low"}, tags)
}

func TestLogTop_Limit(t *testing.T) {
	buf := captureLogs(t)
	rows := make([]leaderboard.Row, 15)

	logTop(rows, topRows)
	assert.Equal(t, topRows, strings.Count(buf.String(), `"message":"Leaderboard"`))
}

func TestRunOnce_ReturnsRefreshError(t *testing.T) {
	f := &fakeRefresher{err: errors.New("api down")}
	s := NewScheduler(f, "@every 1h")

	err := s.RunOnce(context.Background())
	assert.EqualError(t, err, "api down")
}

func TestRunOnce_SkipsOverlap(t *testing.T) {
	f := &fakeRefresher{block: make(chan struct{}), started: make(chan struct{})}
	s := NewScheduler(f, "@every 1h")

	done := make(chan error, 1)
	go func() { done <- s.RunOnce(context.Background()) }()
	<-f.started

	assert.NoError(t, s.RunOnce(context.Background()))
	close(f.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.calls)
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	s := NewScheduler(&fakeRefresher{}, "not a cron line")
	assert.Error(t, s.Start(context.Background()))
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(&fakeRefresher{}, "0 6 * * *")
	require.NoError(t, s.Start(context.Background()))

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
