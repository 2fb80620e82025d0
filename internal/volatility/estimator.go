// Package volatility estimates annualized volatility from price ticks.
package volatility

import (
	"math"
	"sync"

	"atticus-desk/internal/config"
	"atticus-desk/internal/models"
)

const (
	minSamplesForVol    = 20
	minSamplesForEWMA   = 10
	minSamplesForRegime = 50
	shortWindow         = 20
	longWindow          = 100
	secondsPerYear      = 365 * 24 * 60 * 60
)

// Estimator derives annualized volatility from a bounded history of
// log-returns. Estimates are deterministic given identical history.
type Estimator struct {
	cfg config.VolatilityConfig

	mu            sync.RWMutex
	lastPrice     float64
	returns       []float64
	regimeHistory []models.VolRegime
	lastRegime    models.VolRegime
}

// NewEstimator creates an estimator with the given parameters.
func NewEstimator(cfg config.VolatilityConfig) *Estimator {
	return &Estimator{
		cfg:        cfg,
		returns:    make([]float64, 0, cfg.HistoryCapacity),
		lastRegime: models.RegimeMedium,
	}
}

// Update records a new price, appending its log-return versus the prior
// price. Non-positive prices are ignored. History is bounded: the
// oldest return is dropped once capacity is reached.
func (e *Estimator) Update(price float64) {
	if price <= 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lastPrice > 0 {
		e.returns = append(e.returns, math.Log(price/e.lastPrice))
		if len(e.returns) > e.cfg.HistoryCapacity {
			e.returns = e.returns[len(e.returns)-e.cfg.HistoryCapacity:]
		}
	}
	e.lastPrice = price
}

// Samples returns the number of recorded log-returns.
func (e *Estimator) Samples() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.returns)
}

// annualization converts per-tick standard deviation to annual terms
// based on the configured tick frequency.
func (e *Estimator) annualization() float64 {
	return math.Sqrt(secondsPerYear / e.cfg.TickIntervalSeconds)
}

// RealizedVol computes simple historical volatility over the last
// periods returns (0 means up to the long window). With fewer than 20
// samples, the configured default volatility is returned.
func (e *Estimator) RealizedVol(periods int) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.realizedVolLocked(periods)
}

func (e *Estimator) realizedVolLocked(periods int) float64 {
	if len(e.returns) < minSamplesForVol {
		return e.cfg.DefaultVol
	}
	if periods <= 0 || periods > len(e.returns) {
		periods = len(e.returns)
		if periods > longWindow {
			periods = longWindow
		}
	}

	window := e.returns[len(e.returns)-periods:]
	vol := stddev(window) * e.annualization()
	if vol < e.cfg.MinVol {
		vol = e.cfg.MinVol
	}
	return vol
}

// EWMAVol computes exponentially weighted volatility with the newest
// returns carrying the greatest weight. With fewer than 10 samples it
// falls back to the simple historical estimate.
func (e *Estimator) EWMAVol() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ewmaVolLocked()
}

func (e *Estimator) ewmaVolLocked() float64 {
	if len(e.returns) < minSamplesForEWMA {
		return e.realizedVolLocked(0)
	}

	n := len(e.returns)
	weights := make([]float64, n)
	var weightSum float64
	for i := 0; i < n; i++ {
		// Oldest return gets (1-alpha)^(n-1), newest gets (1-alpha)^0.
		weights[i] = math.Pow(1-e.cfg.EWMAAlpha, float64(n-1-i))
		weightSum += weights[i]
	}

	var mean float64
	for i, r := range e.returns {
		mean += r * weights[i] / weightSum
	}
	var variance float64
	for i, r := range e.returns {
		d := r - mean
		variance += d * d * weights[i] / weightSum
	}

	vol := math.Sqrt(variance * secondsPerYear / e.cfg.TickIntervalSeconds)
	if vol < e.cfg.MinVol {
		vol = e.cfg.MinVol
	}
	return vol
}

// Regime classifies the current volatility regime by comparing the
// short-window realized vol to the long-window realized vol. With fewer
// than 50 samples the regime is medium.
func (e *Estimator) Regime() models.VolRegime {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.regimeLocked()
}

func (e *Estimator) regimeLocked() models.VolRegime {
	if len(e.returns) < minSamplesForRegime {
		return models.RegimeMedium
	}

	shortVol := e.realizedVolLocked(shortWindow)
	longVol := e.realizedVolLocked(longWindow)
	if longVol == 0 {
		return models.RegimeMedium
	}

	ratio := shortVol / longVol
	regime := models.RegimeMedium
	switch {
	case ratio > 1.3:
		regime = models.RegimeHigh
	case ratio < 0.7:
		regime = models.RegimeLow
	}

	e.lastRegime = regime
	e.regimeHistory = append(e.regimeHistory, regime)
	if len(e.regimeHistory) > longWindow {
		e.regimeHistory = e.regimeHistory[len(e.regimeHistory)-longWindow:]
	}
	return regime
}

func regimeMultiplier(r models.VolRegime) float64 {
	switch r {
	case models.RegimeHigh:
		return 1.3
	case models.RegimeLow:
		return 0.8
	default:
		return 1.0
	}
}

// ForExpiry returns the annualized volatility to use when pricing the
// given expiry: EWMA vol scaled by the regime multiplier and a premium
// for very short expiries, clamped to the configured bounds.
func (e *Estimator) ForExpiry(expiryMinutes int) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	vol := e.ewmaVolLocked() * regimeMultiplier(e.regimeLocked())

	switch {
	case expiryMinutes <= 15:
		vol *= 1.2
	case expiryMinutes <= 60:
		vol *= 1.1
	}

	if vol > e.cfg.MaxVol {
		vol = e.cfg.MaxVol
	}
	if vol < e.cfg.MinVol {
		vol = e.cfg.MinVol
	}
	return vol
}

// Metrics returns a full snapshot of the estimator's current view.
func (e *Estimator) Metrics() models.VolatilityMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()

	confidence := float64(len(e.returns)) / float64(longWindow)
	if confidence > 1 {
		confidence = 1
	}

	regime := e.regimeLocked()
	regimeVol := e.ewmaVolLocked() * regimeMultiplier(regime) * 1.1 // 1h baseline
	if regimeVol > e.cfg.MaxVol {
		regimeVol = e.cfg.MaxVol
	}
	if regimeVol < e.cfg.MinVol {
		regimeVol = e.cfg.MinVol
	}

	return models.VolatilityMetrics{
		CurrentVol: e.realizedVolLocked(0),
		EWMAVol:    e.ewmaVolLocked(),
		RegimeVol:  regimeVol,
		Regime:     regime,
		Confidence: confidence,
		Samples:    len(e.returns),
	}
}

func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var variance float64
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return math.Sqrt(variance)
}
