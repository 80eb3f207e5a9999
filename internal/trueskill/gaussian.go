package trueskill

import "math"

// gaussian is a normal distribution in natural parameters: precision pi and
// precision-adjusted mean tau. The zero value is the uniform "no information"
// message.
type gaussian struct {
	pi  float64
	tau float64
}

func newGaussian(mu, sigma float64) gaussian {
	pi := 1 / (sigma * sigma)
	return gaussian{pi: pi, tau: pi * mu}
}

func (g gaussian) mu() float64 {
	if g.pi == 0 {
		return 0
	}
	return g.tau / g.pi
}

func (g gaussian) sigma() float64 {
	if g.pi == 0 {
		return math.Inf(1)
	}
	return math.Sqrt(1 / g.pi)
}

func (g gaussian) mul(o gaussian) gaussian {
	return gaussian{pi: g.pi + o.pi, tau: g.tau + o.tau}
}

func (g gaussian) div(o gaussian) gaussian {
	return gaussian{pi: g.pi - o.pi, tau: g.tau - o.tau}
}

// variable is a node of the factor graph. Its value is the product of the
// messages it has received, one per attached factor.
type variable struct {
	gaussian
	messages map[factor]gaussian
}

func newVariable() *variable {
	return &variable{messages: make(map[factor]gaussian)}
}

// set replaces the value and returns how much it moved
func (v *variable) set(val gaussian) float64 {
	delta := v.delta(val)
	v.gaussian = val
	return delta
}

func (v *variable) delta(o gaussian) float64 {
	piDelta := math.Abs(v.pi - o.pi)
	if math.IsInf(piDelta, 1) {
		return 0
	}
	return math.Max(math.Abs(v.tau-o.tau), math.Sqrt(piDelta))
}

// updateMessage replaces the message from f and adjusts the value accordingly
func (v *variable) updateMessage(f factor, msg gaussian) float64 {
	old := v.messages[f]
	v.messages[f] = msg
	return v.set(v.gaussian.div(old).mul(msg))
}

// updateValue sets the value directly and back-computes the message from f
func (v *variable) updateValue(f factor, val gaussian) float64 {
	old := v.messages[f]
	v.messages[f] = val.mul(old).div(v.gaussian)
	return v.set(val)
}
