// Package trueskill implements the TrueSkill Bayesian rating system for
// matches between any number of teams of any size.
//
// A match is modelled as a factor graph: each player's skill is a Gaussian
// prior, each performance a noisy observation of skill, each team's
// performance the sum of its players', and the observed ranking a chain of
// truncated differences between adjacent teams. Messages are passed over the
// chain until it converges, then back up to the skills.
package trueskill

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// Defaults of the reference TrueSkill environment
const (
	DefaultMu              = 25.0
	DefaultSigma           = DefaultMu / 3
	DefaultBeta            = DefaultSigma / 2
	DefaultTau             = DefaultSigma / 100
	DefaultDrawProbability = 0.10

	// minDelta stops the message schedule once updates are this small
	minDelta = 0.0001
	// maxIterations bounds the schedule for more than two teams
	maxIterations = 10
)

// ErrInvalidMatch is returned for rating groups that cannot form a match
var ErrInvalidMatch = errors.New("trueskill: invalid match")

// Rating is a player's skill belief
type Rating struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
}

func (r Rating) String() string {
	return fmt.Sprintf("Rating(mu=%.3f, sigma=%.3f)", r.Mu, r.Sigma)
}

// Env holds the system parameters
type Env struct {
	Mu              float64
	Sigma           float64
	Beta            float64
	Tau             float64
	DrawProbability float64
}

// DefaultEnv returns the reference environment
func DefaultEnv() Env {
	return Env{
		Mu:              DefaultMu,
		Sigma:           DefaultSigma,
		Beta:            DefaultBeta,
		Tau:             DefaultTau,
		DrawProbability: DefaultDrawProbability,
	}
}

// NewRating returns a fresh rating at the environment's prior
func (e Env) NewRating() Rating {
	return Rating{Mu: e.Mu, Sigma: e.Sigma}
}

// Expose returns a conservative skill estimate, mu - k*sigma with k = Mu/Sigma
// of the environment (3 for the defaults). A new player exposes 0.
func (e Env) Expose(r Rating) float64 {
	k := e.Mu / e.Sigma
	return r.Mu - k*r.Sigma
}

// Rate returns new ratings for a match. groups[i] holds team i's players;
// ranks[i] is team i's placement where lower is better and equal ranks are
// draws. The result has the same shape and order as groups.
func (e Env) Rate(groups [][]Rating, ranks []float64) ([][]Rating, error) {
	if len(groups) < 2 {
		return nil, fmt.Errorf("%w: need at least two teams, got %d", ErrInvalidMatch, len(groups))
	}
	if len(ranks) != len(groups) {
		return nil, fmt.Errorf("%w: %d ranks for %d teams", ErrInvalidMatch, len(ranks), len(groups))
	}
	for i, g := range groups {
		if len(g) == 0 {
			return nil, fmt.Errorf("%w: team %d is empty", ErrInvalidMatch, i)
		}
	}

	order := make([]int, len(groups))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return ranks[order[a]] < ranks[order[b]] })

	sortedGroups := make([][]Rating, len(groups))
	sortedRanks := make([]float64, len(groups))
	for i, idx := range order {
		sortedGroups[i] = groups[idx]
		sortedRanks[i] = ranks[idx]
	}

	g := e.buildGraph(sortedGroups, sortedRanks)
	if err := g.run(); err != nil {
		return nil, err
	}

	result := make([][]Rating, len(groups))
	offset := 0
	for i, idx := range order {
		team := make([]Rating, len(sortedGroups[i]))
		for j := range team {
			v := g.ratingLayer[offset+j].variable()
			team[j] = Rating{Mu: v.mu(), Sigma: v.sigma()}
		}
		offset += len(team)
		result[idx] = team
	}
	return result, nil
}

// Rate1v1 is a convenience for a two-player match. drawn reports a tie.
func (e Env) Rate1v1(winner, loser Rating, drawn bool) (Rating, Rating, error) {
	ranks := []float64{0, 1}
	if drawn {
		ranks[1] = 0
	}
	rated, err := e.Rate([][]Rating{{winner}, {loser}}, ranks)
	if err != nil {
		return Rating{}, Rating{}, err
	}
	return rated[0][0], rated[1][0], nil
}

type graph struct {
	ratingLayer   []*priorFactor
	perfLayer     []*likelihoodFactor
	teamPerfLayer []*sumFactor
	teamDiffLayer []*sumFactor
	truncLayer    []*truncateFactor
}

func (e Env) buildGraph(groups [][]Rating, ranks []float64) *graph {
	g := &graph{}

	var teamPerfVars []*variable
	for _, team := range groups {
		perfVars := make([]*variable, len(team))
		coeffs := make([]float64, len(team))
		for i, r := range team {
			ratingVar := newVariable()
			perfVar := newVariable()
			g.ratingLayer = append(g.ratingLayer, newPriorFactor(ratingVar, r, e.Tau))
			g.perfLayer = append(g.perfLayer, newLikelihoodFactor(ratingVar, perfVar, e.Beta*e.Beta))
			perfVars[i] = perfVar
			coeffs[i] = 1
		}

		teamPerfVar := newVariable()
		g.teamPerfLayer = append(g.teamPerfLayer, newSumFactor(teamPerfVar, perfVars, coeffs))
		teamPerfVars = append(teamPerfVars, teamPerfVar)
	}

	for i := 0; i+1 < len(groups); i++ {
		diffVar := newVariable()
		g.teamDiffLayer = append(g.teamDiffLayer, newSumFactor(diffVar, teamPerfVars[i:i+2], []float64{1, -1}))

		size := len(groups[i]) + len(groups[i+1])
		margin := e.drawMargin(size)
		if ranks[i] == ranks[i+1] {
			g.truncLayer = append(g.truncLayer, newTruncateFactor(diffVar, vDraw, wDraw, margin))
		} else {
			g.truncLayer = append(g.truncLayer, newTruncateFactor(diffVar, vWin, wWin, margin))
		}
	}

	return g
}

// run passes messages down from the priors, iterates over the difference
// chain until it converges, then passes messages back up to the skills
func (g *graph) run() error {
	for _, f := range g.ratingLayer {
		f.down()
	}
	for _, f := range g.perfLayer {
		f.down()
	}
	for _, f := range g.teamPerfLayer {
		f.down()
	}

	n := len(g.teamDiffLayer)
	for iter := 0; iter < maxIterations; iter++ {
		var delta float64
		if n == 1 {
			g.teamDiffLayer[0].down()
			d, err := g.truncLayer[0].up()
			if err != nil {
				return err
			}
			delta = d
		} else {
			for x := 0; x < n-1; x++ {
				g.teamDiffLayer[x].down()
				d, err := g.truncLayer[x].up()
				if err != nil {
					return err
				}
				delta = math.Max(delta, d)
				g.teamDiffLayer[x].up(1)
			}
			for x := n - 1; x > 0; x-- {
				g.teamDiffLayer[x].down()
				d, err := g.truncLayer[x].up()
				if err != nil {
					return err
				}
				delta = math.Max(delta, d)
				g.teamDiffLayer[x].up(0)
			}
		}
		if delta <= minDelta {
			break
		}
	}

	g.teamDiffLayer[0].up(0)
	g.teamDiffLayer[n-1].up(1)
	for _, f := range g.teamPerfLayer {
		for x := range f.terms() {
			f.up(x)
		}
	}
	for _, f := range g.perfLayer {
		f.up()
	}
	return nil
}

// drawMargin converts the draw probability into a performance margin for a
// match between size players
func (e Env) drawMargin(size int) float64 {
	return distuv.UnitNormal.Quantile((e.DrawProbability+1)/2) * math.Sqrt(float64(size)) * e.Beta
}

func cdf(x float64) float64 { return distuv.UnitNormal.CDF(x) }
func pdf(x float64) float64 { return distuv.UnitNormal.Prob(x) }

// vWin is the additive mean correction for a win with the given margin
func vWin(diff, drawMargin float64) float64 {
	x := diff - drawMargin
	denom := cdf(x)
	if denom == 0 {
		return -x
	}
	return pdf(x) / denom
}

// vDraw is the additive mean correction for a draw
func vDraw(diff, drawMargin float64) float64 {
	absDiff := math.Abs(diff)
	a := drawMargin - absDiff
	b := -drawMargin - absDiff
	denom := cdf(a) - cdf(b)
	numer := pdf(b) - pdf(a)

	v := a
	if denom != 0 {
		v = numer / denom
	}
	if diff < 0 {
		return -v
	}
	return v
}

// wWin is the multiplicative variance correction for a win
func wWin(diff, drawMargin float64) (float64, error) {
	x := diff - drawMargin
	v := vWin(diff, drawMargin)
	w := v * (v + x)
	if 0 < w && w < 1 {
		return w, nil
	}
	return 0, errFloatingPoint
}

// wDraw is the multiplicative variance correction for a draw
func wDraw(diff, drawMargin float64) (float64, error) {
	absDiff := math.Abs(diff)
	a := drawMargin - absDiff
	b := -drawMargin - absDiff
	denom := cdf(a) - cdf(b)
	if denom == 0 {
		return 0, errFloatingPoint
	}
	v := vDraw(absDiff, drawMargin)
	return v*v + (a*pdf(a)-b*pdf(b))/denom, nil
}
