package models

// Tournament is a start.gg tournament as returned by the tournament search queries
type Tournament struct {
	ID        ID      `json:"id"`
	Name      string  `json:"name"`
	City      string  `json:"city,omitempty"`
	Slug      string  `json:"slug,omitempty"`
	AddrState string  `json:"addrState,omitempty"`
	EndAt     *int64  `json:"endAt"`
	Events    []Event `json:"events"`
}

// EventIDs returns the ids of the tournament's events in API order
func (t Tournament) EventIDs() []ID {
	ids := make([]ID, 0, len(t.Events))
	for _, e := range t.Events {
		ids = append(ids, e.ID)
	}
	return ids
}

// Event is a single bracket/competition inside a tournament
type Event struct {
	ID        ID          `json:"id"`
	Name      string      `json:"name"`
	Slug      string      `json:"slug,omitempty"`
	Videogame *Ref        `json:"videogame,omitempty"`
	Sets      *Connection `json:"sets,omitempty"`

	// TournamentID points back at the owning tournament. It is filled in
	// during ingestion, the API nests events instead.
	TournamentID ID `json:"tournamentId,omitempty"`
}

// SetCount returns the server-declared number of sets in the event, or -1
// when the count was not selected
func (e Event) SetCount() int {
	if e.Sets == nil {
		return -1
	}
	return e.Sets.PageInfo.Total
}

// Ref is a bare `{ id }` selection
type Ref struct {
	ID ID `json:"id"`
}

// PageInfo carries the server-declared total of a paginated field
type PageInfo struct {
	Total int `json:"total"`
}

// Connection is a paginated field selected only for its page info
type Connection struct {
	PageInfo PageInfo `json:"pageInfo"`
}
