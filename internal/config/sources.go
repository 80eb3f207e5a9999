package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Sources lists the tournament searches an ingestion run walks and the event
// names whose sets are pulled in full
type Sources struct {
	GameID         int      `yaml:"game_id"`
	Searches       []Search `yaml:"searches"`
	EventWhitelist []string `yaml:"event_whitelist"`
}

// Search is either a location search (coordinates + radius, optionally
// narrowed by tournament name) or an owner search
type Search struct {
	Name           string `yaml:"name"`
	Coordinates    string `yaml:"coordinates,omitempty"`
	Radius         string `yaml:"radius,omitempty"`
	TournamentName string `yaml:"tournament_name,omitempty"`
	OwnerID        int    `yaml:"owner_id,omitempty"`
}

// IsOwnerSearch reports whether the search filters by tournament owner
func (s Search) IsOwnerSearch() bool {
	return s.OwnerID != 0
}

// DefaultSources returns the NYC Nightclub weekly search
func DefaultSources() *Sources {
	return &Sources{
		GameID: 1,
		Searches: []Search{
			{
				Name:           "nightclub",
				Coordinates:    "40.7159481,-73.9994085",
				Radius:         "1mi",
				TournamentName: "nightclub",
			},
		},
		EventWhitelist: []string{
			"Melee Ladder",
			"Melee Singles",
			"Redemption Bracket",
			"Redemption Bracket (0-2/1-2/2-2ers)",
			"Redemption Bracket (Only happens if less than 64 entrants)",
		},
	}
}

// LoadSources reads a sources file, or returns the defaults when path is empty
func LoadSources(path string) (*Sources, error) {
	if path == "" {
		return DefaultSources(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var sources Sources
	if err := yaml.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	if err := sources.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sources file %s: %w", path, err)
	}

	return &sources, nil
}

// Validate validates the sources
func (s *Sources) Validate() error {
	if s.GameID <= 0 {
		return fmt.Errorf("game_id must be positive")
	}
	if len(s.Searches) == 0 {
		return fmt.Errorf("at least one search is required")
	}

	seen := make(map[string]bool, len(s.Searches))
	for i, search := range s.Searches {
		if search.Name == "" {
			return fmt.Errorf("search %d has no name", i)
		}
		if seen[search.Name] {
			return fmt.Errorf("duplicate search name %q", search.Name)
		}
		seen[search.Name] = true

		location := search.Coordinates != "" || search.Radius != ""
		switch {
		case search.IsOwnerSearch() && location:
			return fmt.Errorf("search %q mixes owner and location filters", search.Name)
		case !search.IsOwnerSearch() && (search.Coordinates == "" || search.Radius == ""):
			return fmt.Errorf("search %q needs owner_id or both coordinates and radius", search.Name)
		}
	}

	return nil
}

// Whitelist returns the event whitelist as a set
func (s *Sources) Whitelist() map[string]struct{} {
	set := make(map[string]struct{}, len(s.EventWhitelist))
	for _, name := range s.EventWhitelist {
		set[name] = struct{}{}
	}
	return set
}

// SortedWhitelist returns the whitelist in lexical order
func (s *Sources) SortedWhitelist() []string {
	names := append([]string(nil), s.EventWhitelist...)
	sort.Strings(names)
	return names
}
