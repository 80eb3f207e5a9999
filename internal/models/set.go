package models

import "time"

// InvalidScore is the value start.gg reports for a disqualified side
const InvalidScore = -1

// Set is a single match between two or more entrants
type Set struct {
	ID          ID     `json:"id"`
	CompletedAt *int64 `json:"completedAt"`
	WinnerID    *ID    `json:"winnerId"`
	State       int    `json:"state"`
	Event       *Ref   `json:"event,omitempty"`
	Slots       []Slot `json:"slots"`
}

// Completed reports whether the set has a completion timestamp
func (s Set) Completed() bool {
	return s.CompletedAt != nil
}

// CompletedTime returns the completion timestamp in the given location.
// It returns the zero time for sets that are not completed.
func (s Set) CompletedTime(loc *time.Location) time.Time {
	if s.CompletedAt == nil {
		return time.Time{}
	}
	return time.Unix(*s.CompletedAt, 0).In(loc)
}

// IsWinner reports whether the entrant is the set's declared winner
func (s Set) IsWinner(entrantID ID) bool {
	return s.WinnerID != nil && *s.WinnerID == entrantID
}

// Slot is one side of a set. A nil standing is a bye or an unfilled slot.
type Slot struct {
	ID       ID        `json:"id,omitempty"`
	Standing *Standing `json:"standing"`
}

// Standing is an entrant's placement in a set
type Standing struct {
	Entrant Entrant        `json:"entrant"`
	Stats   *StandingStats `json:"stats"`
}

// Score returns the standing's score, or nil when none was reported
func (s Standing) Score() *float64 {
	if s.Stats == nil || s.Stats.Score == nil {
		return nil
	}
	return s.Stats.Score.Value
}

// StandingStats wraps the score selection
type StandingStats struct {
	Score *Score `json:"score"`
}

// Score is a reported game count
type Score struct {
	Value *float64 `json:"value"`
}

// Entrant is a team of one or more participants
type Entrant struct {
	ID           ID            `json:"id"`
	Name         string        `json:"name"`
	Participants []Participant `json:"participants"`
}

// Participant links an entrant to a global player
type Participant struct {
	Player Player `json:"player"`
}

// Player is a global start.gg player identity
type Player struct {
	ID       ID     `json:"id"`
	Prefix   string `json:"prefix"`
	GamerTag string `json:"gamerTag"`
}
