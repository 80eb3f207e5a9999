// Package ingest walks the configured tournament searches and pulls every
// set of the whitelisted events into a snapshot.
package ingest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"smashrank/internal/client"
	"smashrank/internal/config"
	"smashrank/internal/metrics"
	"smashrank/internal/models"
	"smashrank/internal/pagination"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Ingestor builds snapshots from the start.gg API
type Ingestor struct {
	caller             pagination.Caller
	sources            *config.Sources
	setsPerPage        int
	tournamentsPerPage int
	now                func() time.Time
}

// NewIngestor creates an ingestor. caller is normally a *client.Client.
func NewIngestor(caller pagination.Caller, sources *config.Sources, setsPerPage, tournamentsPerPage int) *Ingestor {
	return &Ingestor{
		caller:             caller,
		sources:            sources,
		setsPerPage:        setsPerPage,
		tournamentsPerPage: tournamentsPerPage,
		now:                time.Now,
	}
}

// run holds the state of one ingestion run
type run struct {
	snap       *models.Snapshot
	whitelist  map[string]struct{}
	eventNames map[string]struct{}
	fetched    map[models.ID]bool
}

// Run executes every search in order and returns the merged snapshot. Any
// fatal client error aborts the run and no snapshot is returned.
func (i *Ingestor) Run(ctx context.Context) (*models.Snapshot, error) {
	start := i.now()
	r := &run{
		snap:       models.NewSnapshot(),
		whitelist:  i.sources.Whitelist(),
		eventNames: make(map[string]struct{}),
		fetched:    make(map[models.ID]bool),
	}

	for _, search := range i.sources.Searches {
		if err := i.runSearch(ctx, r, search); err != nil {
			return nil, fmt.Errorf("search %s: %w", search.Name, err)
		}
	}

	names := make([]string, 0, len(r.eventNames))
	for name := range r.eventNames {
		names = append(names, name)
	}
	sort.Strings(names)

	r.snap.Meta = &models.SnapshotMeta{
		RunID:      uuid.NewString(),
		FetchedAt:  start.UTC(),
		EventNames: names,
	}
	metrics.RecordSnapshot(len(r.snap.Tournaments), len(r.snap.Sets))

	log.Info().
		Strs("event_names", names).
		Int("tournaments", len(r.snap.Tournaments)).
		Int("sets", len(r.snap.Sets)).
		Dur("duration", i.now().Sub(start)).
		Msg("Ingestion complete")

	return r.snap, nil
}

func (i *Ingestor) runSearch(ctx context.Context, r *run, search config.Search) error {
	q := i.searchQuery(search)
	found := 0

	for tournament, err := range pagination.Nodes[models.Tournament](ctx, i.caller, q) {
		if err != nil {
			return err
		}
		found++

		for idx := range tournament.Events {
			tournament.Events[idx].TournamentID = tournament.ID
		}
		r.snap.Tournaments[tournament.ID] = tournament

		for _, event := range tournament.Events {
			r.eventNames[event.Name] = struct{}{}
			if _, ok := r.whitelist[event.Name]; !ok {
				continue
			}
			if r.fetched[event.ID] {
				continue
			}
			if err := i.pullEvent(ctx, r, tournament, event); err != nil {
				return err
			}
			r.fetched[event.ID] = true
		}
	}

	log.Info().
		Str("search", search.Name).
		Int("tournaments", found).
		Msg("Search complete")
	return nil
}

func (i *Ingestor) pullEvent(ctx context.Context, r *run, tournament models.Tournament, event models.Event) error {
	log.Info().
		Str("tournament", tournament.Name).
		Str("event_id", event.ID.String()).
		Str("event", event.Name).
		Int("declared_sets", event.SetCount()).
		Msg("Pulling event sets")

	q := pagination.Query{
		Text:      client.QueryEventSets,
		Variables: map[string]any{"eventId": event.ID.String()},
		Path:      []string{"event", "sets"},
		PerPage:   i.setsPerPage,
	}

	pulled := 0
	for set, err := range pagination.Nodes[models.Set](ctx, i.caller, q) {
		if err != nil {
			return fmt.Errorf("event %s: %w", event.ID, err)
		}
		r.snap.Sets[set.ID] = set
		pulled++
	}

	log.Debug().
		Str("event_id", event.ID.String()).
		Int("sets", pulled).
		Msg("Event sets pulled")
	return nil
}

func (i *Ingestor) searchQuery(search config.Search) pagination.Query {
	q := pagination.Query{
		Path:    []string{"tournaments"},
		PerPage: i.tournamentsPerPage,
	}

	if search.IsOwnerSearch() {
		q.Text = client.QueryTournamentsByOwner
		q.Variables = map[string]any{
			"game":    i.sources.GameID,
			"ownerId": search.OwnerID,
		}
		return q
	}

	q.Text = client.QueryTournamentsByLocation
	q.Variables = map[string]any{
		"game":        i.sources.GameID,
		"coordinates": search.Coordinates,
		"radius":      search.Radius,
		"name":        search.TournamentName,
	}
	return q
}
