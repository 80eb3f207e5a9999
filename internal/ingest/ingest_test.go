package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"smashrank/internal/client"
	"smashrank/internal/config"
	"smashrank/internal/models"
	"smashrank/internal/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	query string
	vars  map[string]any
}

// fakeAPI answers tournament searches from tournaments and event set queries
// from sets, paging both by the page/perPage variables. shortEvent declares
// more sets than it serves.
type fakeAPI struct {
	tournaments []map[string]any
	sets        map[string][]map[string]any
	failEvent   string
	shortEvent  string
	calls       []call
}

func (f *fakeAPI) Call(_ context.Context, query string, vars map[string]any) (json.RawMessage, error) {
	f.calls = append(f.calls, call{query: query, vars: vars})
	page, perPage := vars["page"].(int), vars["perPage"].(int)

	var data map[string]any
	switch query {
	case client.QueryTournamentsByLocation, client.QueryTournamentsByOwner:
		data = map[string]any{"tournaments": connection(f.tournaments, page, perPage)}
	case client.QueryEventSets:
		id := vars["eventId"].(string)
		if id == f.failEvent {
			return nil, errors.New("start.gg call EventSets failed: retries exhausted")
		}
		conn := connection(f.sets[id], page, perPage)
		if id == f.shortEvent {
			conn["pageInfo"] = map[string]any{"total": len(f.sets[id]) + 5}
		}
		data = map[string]any{"event": map[string]any{"id": id, "sets": conn}}
	default:
		return nil, fmt.Errorf("unexpected query")
	}
	return json.Marshal(data)
}

func connection(nodes []map[string]any, page, perPage int) map[string]any {
	start := (page - 1) * perPage
	end := start + perPage
	if start > len(nodes) {
		start = len(nodes)
	}
	if end > len(nodes) {
		end = len(nodes)
	}
	return map[string]any{
		"pageInfo": map[string]any{"total": len(nodes)},
		"nodes":    nodes[start:end],
	}
}

func tournament(id int, name string, events ...map[string]any) map[string]any {
	return map[string]any{"id": id, "name": name, "city": "New York", "endAt": 1673600000, "events": events}
}

func event(id int, name string) map[string]any {
	return map[string]any{"id": id, "name": name}
}

func sets(prefix string, n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, map[string]any{"id": fmt.Sprintf("%s-%d", prefix, i), "completedAt": 1673577845, "state": 3})
	}
	return out
}

func TestIngestor_Run(t *testing.T) {
	api := &fakeAPI{
		tournaments: []map[string]any{
			tournament(1, "The Nightclub S9E1", event(10, "Melee Singles"), event(11, "Spectator Pass")),
			tournament(2, "The Nightclub S9E2", event(20, "Melee Singles"), event(21, "Redemption Bracket")),
			tournament(3, "The Nightclub S9E3", event(30, "Low Tier Singles")),
		},
		sets: map[string][]map[string]any{
			"10": sets("a", 5),
			"20": sets("b", 3),
			"21": sets("c", 0),
		},
	}

	ing := NewIngestor(api, config.DefaultSources(), 2, 2)
	snap, err := ing.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, snap.Tournaments, 3)
	assert.Len(t, snap.Sets, 8)
	assert.Equal(t, models.ID("1"), snap.Tournaments["1"].Events[0].TournamentID)

	require.NotNil(t, snap.Meta)
	assert.NotEmpty(t, snap.Meta.RunID)
	assert.Equal(t, []string{"Low Tier Singles", "Melee Singles", "Redemption Bracket", "Spectator Pass"}, snap.Meta.EventNames)

	fetched := map[string]bool{}
	for _, c := range api.calls {
		if c.query == client.QueryEventSets {
			fetched[c.vars["eventId"].(string)] = true
		}
	}
	assert.Equal(t, map[string]bool{"10": true, "20": true, "21": true}, fetched, "only whitelisted events are pulled")
}

func TestIngestor_SearchVariables(t *testing.T) {
	api := &fakeAPI{}
	sources := &config.Sources{
		GameID: 1,
		Searches: []config.Search{
			{Name: "nightclub", Coordinates: "40.7159481,-73.9994085", Radius: "1mi", TournamentName: "nightclub"},
			{Name: "onlynoobs", OwnerID: 507353},
		},
	}

	_, err := NewIngestor(api, sources, 32, 200).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, api.calls, 2)

	assert.Equal(t, client.QueryTournamentsByLocation, api.calls[0].query)
	assert.Equal(t, map[string]any{
		"game": 1, "coordinates": "40.7159481,-73.9994085", "radius": "1mi", "name": "nightclub",
		"page": 1, "perPage": 200,
	}, api.calls[0].vars)

	assert.Equal(t, client.QueryTournamentsByOwner, api.calls[1].query)
	assert.Equal(t, map[string]any{"game": 1, "ownerId": 507353, "page": 1, "perPage": 200}, api.calls[1].vars)
}

func TestIngestor_MergesByReplacement(t *testing.T) {
	api := &fakeAPI{
		tournaments: []map[string]any{tournament(1, "Nightclub", event(10, "Melee Singles"))},
		sets:        map[string][]map[string]any{"10": sets("a", 3)},
	}
	sources := &config.Sources{
		GameID: 1,
		Searches: []config.Search{
			{Name: "first", Coordinates: "0,0", Radius: "1mi"},
			{Name: "second", OwnerID: 1},
		},
		EventWhitelist: []string{"Melee Singles"},
	}

	snap, err := NewIngestor(api, sources, 32, 200).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, snap.Tournaments, 1)
	assert.Len(t, snap.Sets, 3)

	eventCalls := 0
	for _, c := range api.calls {
		if c.query == client.QueryEventSets {
			eventCalls++
		}
	}
	assert.Equal(t, 1, eventCalls, "an event seen by two searches is pulled once")
}

func TestIngestor_FatalErrorAborts(t *testing.T) {
	api := &fakeAPI{
		tournaments: []map[string]any{tournament(1, "Nightclub", event(10, "Melee Singles"))},
		failEvent:   "10",
	}

	snap, err := NewIngestor(api, config.DefaultSources(), 32, 200).Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.Contains(t, err.Error(), "search nightclub")
	assert.Contains(t, err.Error(), "event 10")
}

func TestIngestor_ShortEventAborts(t *testing.T) {
	api := &fakeAPI{
		tournaments: []map[string]any{tournament(1, "Nightclub", event(10, "Melee Singles"))},
		sets:        map[string][]map[string]any{"10": sets("a", 3)},
		shortEvent:  "10",
	}

	snap, err := NewIngestor(api, config.DefaultSources(), 32, 200).Run(context.Background())
	require.ErrorIs(t, err, pagination.ErrShortConnection)
	assert.Nil(t, snap)
}
