package pricing

import (
	"math"
	"sync"
)

const alphaWindow = 20

// AlphaSignal is a directional adjustment input: Value in [-1,1]
// (positive bullish), Confidence in [0,1].
type AlphaSignal struct {
	Value      float64
	Confidence float64
}

// SignalGenerator derives a short-horizon momentum signal from recent
// ticks. It holds exactly the latest-tick state it needs and nothing
// else.
type SignalGenerator struct {
	mu        sync.Mutex
	lastPrice float64
	returns   []float64
}

// NewSignalGenerator creates an empty signal generator.
func NewSignalGenerator() *SignalGenerator {
	return &SignalGenerator{returns: make([]float64, 0, alphaWindow)}
}

// UpdateTick records a trade price. Volume is accepted for interface
// symmetry with the feed but does not weight the current signal.
func (g *SignalGenerator) UpdateTick(price, volume float64) {
	if price <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lastPrice > 0 {
		g.returns = append(g.returns, math.Log(price/g.lastPrice))
		if len(g.returns) > alphaWindow {
			g.returns = g.returns[1:]
		}
	}
	g.lastPrice = price
}

// Primary returns the current signal, or ok=false when there is not
// enough data to form one.
func (g *SignalGenerator) Primary() (AlphaSignal, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.returns) < 5 {
		return AlphaSignal{}, false
	}

	var mean float64
	for _, r := range g.returns {
		mean += r
	}
	mean /= float64(len(g.returns))

	var variance float64
	for _, r := range g.returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(g.returns))
	sd := math.Sqrt(variance)

	value := 0.0
	if sd > 0 {
		value = math.Tanh(mean / sd)
	}

	confidence := float64(len(g.returns)) / alphaWindow
	if confidence > 1 {
		confidence = 1
	}

	return AlphaSignal{Value: value, Confidence: confidence}, true
}
