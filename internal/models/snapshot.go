package models

import "time"

// Snapshot is the flat document written by ingestion and read by rating runs
type Snapshot struct {
	Tournaments map[ID]Tournament `json:"tournaments"`
	Sets        map[ID]Set        `json:"sets"`
	Meta        *SnapshotMeta     `json:"meta,omitempty"`
}

// SnapshotMeta describes the ingestion run that produced a snapshot
type SnapshotMeta struct {
	RunID      string    `json:"run_id"`
	FetchedAt  time.Time `json:"fetched_at"`
	EventNames []string  `json:"event_names,omitempty"`
}

// NewSnapshot returns an empty snapshot with initialised maps
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Tournaments: make(map[ID]Tournament),
		Sets:        make(map[ID]Set),
	}
}

// SetList returns the snapshot's sets in no particular order
func (s *Snapshot) SetList() []Set {
	sets := make([]Set, 0, len(s.Sets))
	for _, set := range s.Sets {
		sets = append(sets, set)
	}
	return sets
}
