package trueskill

import (
	"errors"
	"math"
)

// factor is an edge set of the graph; the map key identity is the pointer
type factor interface {
	attach()
}

type baseFactor struct {
	vars []*variable
}

func (b *baseFactor) init(self factor, vars ...*variable) {
	b.vars = vars
	for _, v := range vars {
		v.messages[self] = gaussian{}
	}
}

func (b *baseFactor) attach() {}

// priorFactor sets a skill variable to the player's current rating, widened by
// the dynamics factor tau
type priorFactor struct {
	baseFactor
	rating  Rating
	dynamic float64
}

func newPriorFactor(v *variable, r Rating, dynamic float64) *priorFactor {
	f := &priorFactor{rating: r, dynamic: dynamic}
	f.init(f, v)
	return f
}

func (f *priorFactor) variable() *variable { return f.vars[0] }

func (f *priorFactor) down() float64 {
	sigma := math.Sqrt(f.rating.Sigma*f.rating.Sigma + f.dynamic*f.dynamic)
	return f.variable().updateValue(f, newGaussian(f.rating.Mu, sigma))
}

// likelihoodFactor links a skill to a noisy performance of variance beta^2
type likelihoodFactor struct {
	baseFactor
	variance float64
}

func newLikelihoodFactor(mean, value *variable, variance float64) *likelihoodFactor {
	f := &likelihoodFactor{variance: variance}
	f.init(f, mean, value)
	return f
}

func (f *likelihoodFactor) mean() *variable  { return f.vars[0] }
func (f *likelihoodFactor) value() *variable { return f.vars[1] }

func (f *likelihoodFactor) calcA(g gaussian) float64 {
	return 1 / (1 + f.variance*g.pi)
}

func (f *likelihoodFactor) down() float64 {
	msg := f.mean().gaussian.div(f.mean().messages[f])
	a := f.calcA(msg)
	return f.value().updateMessage(f, gaussian{pi: a * msg.pi, tau: a * msg.tau})
}

func (f *likelihoodFactor) up() float64 {
	msg := f.value().gaussian.div(f.value().messages[f])
	a := f.calcA(msg)
	return f.mean().updateMessage(f, gaussian{pi: a * msg.pi, tau: a * msg.tau})
}

// sumFactor constrains sum = Σ coeff_i · term_i
type sumFactor struct {
	baseFactor
	coeffs []float64
}

func newSumFactor(sum *variable, terms []*variable, coeffs []float64) *sumFactor {
	f := &sumFactor{coeffs: coeffs}
	f.init(f, append([]*variable{sum}, terms...)...)
	return f
}

func (f *sumFactor) sum() *variable     { return f.vars[0] }
func (f *sumFactor) terms() []*variable { return f.vars[1:] }

func (f *sumFactor) down() float64 {
	terms := f.terms()
	msgs := make([]gaussian, len(terms))
	for i, v := range terms {
		msgs[i] = v.messages[f]
	}
	return f.update(f.sum(), terms, msgs, f.coeffs)
}

// up sends a message to the term at index, solving the sum for it
func (f *sumFactor) up(index int) float64 {
	coeff := f.coeffs[index]
	coeffs := make([]float64, len(f.coeffs))
	for i, c := range f.coeffs {
		switch {
		case coeff == 0:
			coeffs[i] = 0
		case i == index:
			coeffs[i] = 1 / coeff
		default:
			coeffs[i] = -c / coeff
		}
	}

	vals := append([]*variable(nil), f.terms()...)
	vals[index] = f.sum()
	msgs := make([]gaussian, len(vals))
	for i, v := range vals {
		msgs[i] = v.messages[f]
	}
	return f.update(f.terms()[index], vals, msgs, coeffs)
}

func (f *sumFactor) update(v *variable, vals []*variable, msgs []gaussian, coeffs []float64) float64 {
	piInv := 0.0
	mu := 0.0
	for i, val := range vals {
		div := val.gaussian.div(msgs[i])
		mu += coeffs[i] * div.mu()
		if math.IsInf(piInv, 1) {
			continue
		}
		if div.pi == 0 {
			piInv = math.Inf(1)
			continue
		}
		piInv += coeffs[i] * coeffs[i] / div.pi
	}
	pi := 1 / piInv
	return v.updateMessage(f, gaussian{pi: pi, tau: pi * mu})
}

// truncateFactor applies the observed outcome (win or draw) to a team
// performance difference
type truncateFactor struct {
	baseFactor
	vFunc      func(diff, drawMargin float64) float64
	wFunc      func(diff, drawMargin float64) (float64, error)
	drawMargin float64
}

func newTruncateFactor(v *variable, vFunc func(float64, float64) float64, wFunc func(float64, float64) (float64, error), drawMargin float64) *truncateFactor {
	f := &truncateFactor{vFunc: vFunc, wFunc: wFunc, drawMargin: drawMargin}
	f.init(f, v)
	return f
}

func (f *truncateFactor) up() (float64, error) {
	v := f.vars[0]
	div := v.gaussian.div(v.messages[f])
	sqrtPi := math.Sqrt(div.pi)
	diff := div.tau / sqrtPi
	margin := f.drawMargin * sqrtPi

	vv := f.vFunc(diff, margin)
	w, err := f.wFunc(diff, margin)
	if err != nil {
		return 0, err
	}

	denom := 1 - w
	return v.updateValue(f, gaussian{pi: div.pi / denom, tau: (div.tau + sqrtPi*vv) / denom}), nil
}

// errFloatingPoint is returned when the truncated Gaussian moments leave their
// valid range, which happens for extremely lopsided matches
var errFloatingPoint = errors.New("trueskill: cannot compute truncated gaussian moments accurately")
