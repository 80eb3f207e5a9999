// Package pipeline ties ingestion, the snapshot store and the rating run
// together.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smashrank/internal/leaderboard"
	"smashrank/internal/metrics"
	"smashrank/internal/models"
	"smashrank/internal/ranking"
	"smashrank/internal/snapshot"
	"smashrank/internal/trueskill"

	"github.com/rs/zerolog/log"
)

// Source produces a fresh snapshot, normally an *ingest.Ingestor
type Source interface {
	Run(ctx context.Context) (*models.Snapshot, error)
}

// Result is the outcome of a rating run
type Result struct {
	Rows    []leaderboard.Row
	Summary ranking.Summary
	Players int
}

// Pipeline runs ingestion and rating against one snapshot store
type Pipeline struct {
	source     Source
	store      snapshot.Store
	env        trueskill.Env
	engineOpts []ranking.Option
}

// New creates a pipeline. source may be nil for rating-only use.
func New(source Source, store snapshot.Store, env trueskill.Env, opts ...ranking.Option) *Pipeline {
	return &Pipeline{
		source:     source,
		store:      store,
		env:        env,
		engineOpts: opts,
	}
}

// Ingest fetches a new snapshot and saves it. Nothing is written when the
// fetch fails.
func (p *Pipeline) Ingest(ctx context.Context) (*models.Snapshot, error) {
	if p.source == nil {
		return nil, errors.New("pipeline has no ingestion source")
	}
	start := time.Now()

	snap, err := p.source.Run(ctx)
	if err != nil {
		metrics.RecordSync("ingest", "error", time.Since(start).Seconds())
		metrics.RecordError("ingest", "fetch")
		return nil, fmt.Errorf("ingestion failed: %w", err)
	}

	if err := p.store.Save(ctx, snap); err != nil {
		metrics.RecordSync("ingest", "error", time.Since(start).Seconds())
		metrics.RecordError("snapshot", "save")
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}

	metrics.RecordSync("ingest", "success", time.Since(start).Seconds())
	return snap, nil
}

// Rate loads the stored snapshot, replays it and builds the leaderboard
func (p *Pipeline) Rate(ctx context.Context) (*Result, error) {
	start := time.Now()

	snap, err := p.store.Load(ctx)
	if err != nil {
		metrics.RecordSync("rate", "error", time.Since(start).Seconds())
		metrics.RecordError("snapshot", "load")
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	result, err := p.rate(snap)
	if err != nil {
		metrics.RecordSync("rate", "error", time.Since(start).Seconds())
		metrics.RecordError("ranking", "replay")
		return nil, err
	}

	metrics.RecordSync("rate", "success", time.Since(start).Seconds())
	return result, nil
}

// Refresh ingests a new snapshot and rates it
func (p *Pipeline) Refresh(ctx context.Context) (*Result, error) {
	if _, err := p.Ingest(ctx); err != nil {
		return nil, err
	}
	return p.Rate(ctx)
}

func (p *Pipeline) rate(snap *models.Snapshot) (*Result, error) {
	engine := ranking.NewEngine(p.env, p.engineOpts...)

	summary, err := engine.Replay(snap.SetList())
	if err != nil {
		return nil, fmt.Errorf("rating replay failed: %w", err)
	}

	rows := leaderboard.Build(engine.Registry().Players(), p.env)
	metrics.PlayersRated.Set(float64(len(rows)))

	log.Info().
		Int("rows", len(rows)).
		Int("rated", summary.Rated).
		Msg("Leaderboard built")

	return &Result{
		Rows:    rows,
		Summary: summary,
		Players: engine.Registry().Len(),
	}, nil
}
