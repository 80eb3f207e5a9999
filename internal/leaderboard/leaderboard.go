// Package leaderboard turns rated players into a ranked table.
package leaderboard

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"smashrank/internal/models"
	"smashrank/internal/ranking"
	"smashrank/internal/trueskill"
)

// Row is one leaderboard line
type Row struct {
	ID       models.ID `json:"id"`
	Prefix   string    `json:"prefix"`
	Tag      string    `json:"tag"`
	Mu       float64   `json:"mu"`
	Sigma    float64   `json:"sigma"`
	Exposure float64   `json:"exposure"`
	Wins     int       `json:"wins"`
	Sets     int       `json:"sets"`
	WinRate  float64   `json:"win_rate"`
}

// Build keeps players with at least one rated set and orders them by
// ascending exposure, then id.
func Build(players []*ranking.PlayerState, env trueskill.Env) []Row {
	rows := make([]Row, 0, len(players))
	for _, p := range players {
		if p.Sets < 1 {
			continue
		}
		rows = append(rows, Row{
			ID:       p.ID,
			Prefix:   p.Prefix,
			Tag:      p.Tag,
			Mu:       p.Rating.Mu,
			Sigma:    p.Rating.Sigma,
			Exposure: env.Expose(p.Rating),
			Wins:     p.Wins,
			Sets:     p.Sets,
			WinRate:  p.WinRate(),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Exposure != rows[j].Exposure {
			return rows[i].Exposure < rows[j].Exposure
		}
		return rows[i].ID.Less(rows[j].ID)
	})
	return rows
}

// Render writes rows as an aligned text table
func Render(w io.Writer, rows []Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "id\tprefix\ttag\tmu\tsigma\texpose\twins\tsets\twin rate")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.3f\t%.3f\t%.3f\t%d\t%d\t%.3f\n",
			r.ID, r.Prefix, r.Tag, r.Mu, r.Sigma, r.Exposure, r.Wins, r.Sets, r.WinRate)
	}
	return tw.Flush()
}
