// Package ranking replays completed sets in chronological order and folds
// each one into per-player TrueSkill ratings.
package ranking

import (
	"fmt"
	"sort"
	"time"

	"smashrank/internal/metrics"
	"smashrank/internal/models"
	"smashrank/internal/trueskill"

	"github.com/rs/zerolog/log"
)

// SkipReason says why a set did not change any rating
type SkipReason string

const (
	NotSkipped       SkipReason = ""
	SkipNotCompleted SkipReason = "not_completed"
	SkipOtherYear    SkipReason = "other_year"
	SkipBye          SkipReason = "bye"
	SkipMissingScore SkipReason = "missing_score"
	SkipInvalidScore SkipReason = "invalid_score"
	SkipNoTeams      SkipReason = "no_teams"
	SkipEmptyTeam    SkipReason = "empty_team"
	SkipSharedPlayer SkipReason = "shared_player"
)

// Summary counts the outcome of a replay
type Summary struct {
	Rated   int
	Skipped map[SkipReason]int
}

// Engine owns one registry for the duration of a rating run
type Engine struct {
	env      trueskill.Env
	registry *Registry
	now      func() time.Time
	loc      *time.Location
}

// Option customises an Engine
type Option func(*Engine)

// WithClock sets the clock that decides the current year
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the time zone completion timestamps are read in
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// NewEngine creates an engine with an empty registry
func NewEngine(env trueskill.Env, opts ...Option) *Engine {
	e := &Engine{
		env:      env,
		registry: NewRegistry(env),
		now:      time.Now,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the engine's player registry
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Replay sorts sets oldest first and processes each in turn. Sets completed
// at the same second are ordered by id so replays are reproducible.
func (e *Engine) Replay(sets []models.Set) (Summary, error) {
	summary := Summary{Skipped: make(map[SkipReason]int)}

	completed := make([]models.Set, 0, len(sets))
	for _, set := range sets {
		if !set.Completed() {
			summary.Skipped[SkipNotCompleted]++
			metrics.RecordSetSkipped(string(SkipNotCompleted))
			continue
		}
		completed = append(completed, set)
	}
	sort.SliceStable(completed, func(i, j int) bool {
		a, b := *completed[i].CompletedAt, *completed[j].CompletedAt
		if a != b {
			return a < b
		}
		return completed[i].ID.Less(completed[j].ID)
	})

	for _, set := range completed {
		reason, err := e.Process(set)
		if err != nil {
			return summary, err
		}
		if reason != NotSkipped {
			summary.Skipped[reason]++
			continue
		}
		summary.Rated++
	}

	log.Info().
		Int("sets", len(sets)).
		Int("rated", summary.Rated).
		Interface("skipped", summary.Skipped).
		Int("players", e.registry.Len()).
		Msg("Replay complete")

	return summary, nil
}

// team is one side of a set while it is being validated
type team struct {
	entrant models.Entrant
	ids     []models.ID
	ratings []trueskill.Rating
	score   float64
	winner  bool
}

// Process folds one set into the registry. Callers must feed sets in
// completion order. A set that cannot be rated is skipped without touching
// any player; the reason is returned.
func (e *Engine) Process(set models.Set) (SkipReason, error) {
	reason, teams := e.collect(set)
	if reason != NotSkipped {
		metrics.RecordSetSkipped(string(reason))
		log.Debug().
			Str("set_id", set.ID.String()).
			Str("reason", string(reason)).
			Msg("Skipping set")
		return reason, nil
	}

	groups := make([][]trueskill.Rating, len(teams))
	ranks := make([]float64, len(teams))
	for i, t := range teams {
		groups[i] = t.ratings
		ranks[i] = -t.score
	}

	rated, err := e.env.Rate(groups, ranks)
	if err != nil {
		return NotSkipped, fmt.Errorf("failed to rate set %s: %w", set.ID, err)
	}

	for i, t := range teams {
		solo := len(t.ids) == 1
		for j, id := range t.ids {
			p := e.registry.GetOrCreate(id)
			participant := t.entrant.Participants[j].Player
			p.Prefix = participant.Prefix
			p.Tag = participant.GamerTag
			if solo {
				p.Name = t.entrant.Name
			}

			p.Rating = rated[i][j]
			p.Sets++
			if t.winner {
				p.Wins++
			}
		}
	}

	metrics.RecordSetRated()
	return NotSkipped, nil
}

// collect validates a set and gathers its teams with their current ratings,
// without modifying the registry
func (e *Engine) collect(set models.Set) (SkipReason, []team) {
	if !set.Completed() {
		return SkipNotCompleted, nil
	}
	if set.CompletedTime(e.loc).Year() != e.now().In(e.loc).Year() {
		return SkipOtherYear, nil
	}

	for _, slot := range set.Slots {
		if slot.Standing == nil {
			return SkipBye, nil
		}
	}

	teams := make([]team, 0, len(set.Slots))
	seen := make(map[models.ID]bool)
	for _, slot := range set.Slots {
		entrant := slot.Standing.Entrant
		t := team{
			entrant: entrant,
			ids:     make([]models.ID, 0, len(entrant.Participants)),
			ratings: make([]trueskill.Rating, 0, len(entrant.Participants)),
			winner:  set.IsWinner(entrant.ID),
		}
		for _, participant := range entrant.Participants {
			id := participant.Player.ID
			if seen[id] {
				return SkipSharedPlayer, nil
			}
			seen[id] = true
			t.ids = append(t.ids, id)
			t.ratings = append(t.ratings, e.registry.Rating(id))
		}

		score := slot.Standing.Score()
		if score == nil {
			return SkipMissingScore, nil
		}
		if *score == models.InvalidScore {
			return SkipInvalidScore, nil
		}
		t.score = *score

		if len(t.ids) == 0 {
			return SkipEmptyTeam, nil
		}
		teams = append(teams, t)
	}

	if len(teams) < 2 {
		return SkipNoTeams, nil
	}
	return NotSkipped, teams
}
