package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"smashrank/internal/leaderboard"
	"smashrank/internal/metrics"
	"smashrank/internal/pipeline"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Refresher is the work run on every tick, normally a *pipeline.Pipeline
type Refresher interface {
	Refresh(ctx context.Context) (*pipeline.Result, error)
}

// Scheduler runs periodic snapshot refreshes
type Scheduler struct {
	refresher Refresher
	schedule  string
	cron      *cron.Cron

	// running guards against overlapping refreshes when one outlasts the interval
	mu      sync.Mutex
	running bool
}

// topRows is how many leaderboard rows are logged after a refresh
const topRows = 10

// NewScheduler creates a new scheduler instance
func NewScheduler(refresher Refresher, schedule string) *Scheduler {
	return &Scheduler{
		refresher: refresher,
		schedule:  schedule,
		cron:      cron.New(),
	}
}

// Start registers the refresh job and starts the cron runner
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.schedule, func() {
		log.Info().Msg("Running scheduled refresh...")
		if err := s.RunOnce(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduled refresh failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.schedule).
		Msg("Refresh scheduled")

	return nil
}

// Stop stops the cron runner and waits for a running refresh to finish
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	<-s.cron.Stop().Done()

	log.Info().Msg("Scheduler stopped")
}

// RunOnce performs one refresh. A refresh that starts while another is still
// running is skipped.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Warn().Msg("Previous refresh still running, skipping")
		return nil
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	result, err := s.refresher.Refresh(ctx)
	if err != nil {
		metrics.RecordError("scheduler", "refresh")
		return err
	}

	logTop(result.Rows, topRows)

	log.Info().
		Int("rows", len(result.Rows)).
		Int("rated", result.Summary.Rated).
		Dur("duration", time.Since(start)).
		Msg("Refresh complete")
	return nil
}

// logTop logs the n best rows by exposure, best first
func logTop(rows []leaderboard.Row, n int) {
	for i := 0; i < n && i < len(rows); i++ {
		r := rows[len(rows)-1-i]
		log.Info().
			Int("position", i+1).
			Str("player_id", r.ID.String()).
			Str("tag", r.Tag).
			Float64("exposure", r.Exposure).
			Int("wins", r.Wins).
			Int("sets", r.Sets).
			Msg("Leaderboard")
	}
}
