package ranking

import (
	"sort"

	"smashrank/internal/models"
	"smashrank/internal/trueskill"
)

// PlayerState is a player's rating and record for one rating run
type PlayerState struct {
	ID     models.ID
	Prefix string
	Tag    string
	// Name is the entrant name the player last competed under alone
	Name string

	Rating trueskill.Rating
	Sets   int
	Wins   int
}

// WinRate returns wins / sets, or 0 before the first set
func (p *PlayerState) WinRate() float64 {
	if p.Sets == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.Sets)
}

// Registry holds player states keyed by id. Every state it creates starts
// from its own copy of the environment's prior rating.
type Registry struct {
	env     trueskill.Env
	players map[models.ID]*PlayerState
}

// NewRegistry creates an empty registry
func NewRegistry(env trueskill.Env) *Registry {
	return &Registry{
		env:     env,
		players: make(map[models.ID]*PlayerState),
	}
}

// GetOrCreate returns the player's state, creating it at the prior if needed
func (r *Registry) GetOrCreate(id models.ID) *PlayerState {
	if p, ok := r.players[id]; ok {
		return p
	}
	p := &PlayerState{ID: id, Rating: r.env.NewRating()}
	r.players[id] = p
	return p
}

// Lookup returns the player's state without creating it
func (r *Registry) Lookup(id models.ID) (*PlayerState, bool) {
	p, ok := r.players[id]
	return p, ok
}

// Rating returns the player's current rating, or the prior for unknown players
func (r *Registry) Rating(id models.ID) trueskill.Rating {
	if p, ok := r.players[id]; ok {
		return p.Rating
	}
	return r.env.NewRating()
}

// Len returns the number of known players
func (r *Registry) Len() int {
	return len(r.players)
}

// Players returns every player ordered by id
func (r *Registry) Players() []*PlayerState {
	out := make([]*PlayerState, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Less(out[j].ID) })
	return out
}
