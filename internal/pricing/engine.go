package pricing

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"atticus-desk/internal/config"
	derrors "atticus-desk/internal/errors"
	"atticus-desk/internal/models"
	"atticus-desk/internal/volatility"
)

// Engine generates option chains from the current reference price and
// the volatility estimator. Chains are fresh immutable snapshots; the
// engine never mutates a quote after handing it out.
type Engine struct {
	cfg   *config.Config
	vol   *volatility.Estimator
	alpha *SignalGenerator
	log   zerolog.Logger

	mu   sync.RWMutex
	spot float64
}

// NewEngine creates a pricing engine bound to an estimator.
func NewEngine(cfg *config.Config, vol *volatility.Estimator, alpha *SignalGenerator, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:   cfg,
		vol:   vol,
		alpha: alpha,
		log:   log.With().Str("component", "pricing").Logger(),
	}
}

// UpdateMarketData feeds a new reference price into the engine, the
// estimator, and the alpha signal. Non-positive prices are ignored.
func (e *Engine) UpdateMarketData(price, volume float64) {
	if price <= 0 {
		return
	}
	e.mu.Lock()
	e.spot = price
	e.mu.Unlock()

	e.vol.Update(price)
	if e.alpha != nil {
		e.alpha.UpdateTick(price, volume)
	}
}

// Spot returns the last reference price, zero if none has arrived.
func (e *Engine) Spot() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.spot
}

func roundTo(v, nearest float64) float64 {
	return math.Round(v/nearest) * nearest
}

// Strikes generates the strike ladder for an expiry: an ATM strike at
// spot rounded to the configured increment, then ITM/OTM strikes at the
// expiry's percentage step, each rounded individually. Duplicates and
// non-positive strikes are dropped; the result is strictly increasing.
func (e *Engine) Strikes(expiryMinutes int) ([]float64, error) {
	spot := e.Spot()
	if spot <= 0 {
		return nil, derrors.ErrNotReady
	}

	exp, ok := e.cfg.Expiry(expiryMinutes)
	if !ok {
		return nil, fmt.Errorf("%w: %d minutes", derrors.ErrUnknownExpiry, expiryMinutes)
	}

	rounding := e.cfg.Market.StrikeRounding
	atm := roundTo(spot, rounding)
	if atm <= 0 {
		atm = rounding
	}
	step := atm * exp.StepPct

	seen := map[float64]struct{}{atm: {}}
	for i := 1; i <= exp.NumITM; i++ {
		k := roundTo(atm-float64(i)*step, rounding)
		if k > 0 {
			seen[k] = struct{}{}
		}
	}
	for i := 1; i <= exp.NumOTM; i++ {
		k := roundTo(atm+float64(i)*step, rounding)
		if k > 0 {
			seen[k] = struct{}{}
		}
	}

	strikes := make([]float64, 0, len(seen))
	for k := range seen {
		strikes = append(strikes, k)
	}
	sort.Float64s(strikes)
	return strikes, nil
}

// ClassifyMoneyness places a strike relative to spot using a symmetric
// band: within ±atm_band_pct of spot is ATM; below the band is ITM for
// calls and OTM for puts, above is the mirror.
func (e *Engine) ClassifyMoneyness(strike float64, typ models.OptionType) models.Moneyness {
	spot := e.Spot()
	lower := spot * (1 - e.cfg.Pricing.ATMBandPct)
	upper := spot * (1 + e.cfg.Pricing.ATMBandPct)

	switch {
	case strike < lower:
		if typ == models.Call {
			return models.ITM
		}
		return models.OTM
	case strike > upper:
		if typ == models.Call {
			return models.OTM
		}
		return models.ITM
	default:
		return models.ATM
	}
}

// applyAlphaAdjustment skews a contract premium by the momentum signal:
// up to ±5% base, amplified for OTM and ATM contracts, sign flipped for
// puts, floored at half the unadjusted premium.
func (e *Engine) applyAlphaAdjustment(premium float64, typ models.OptionType, m models.Moneyness) float64 {
	if !e.cfg.Pricing.AlphaEnabled || e.alpha == nil {
		return premium
	}
	sig, ok := e.alpha.Primary()
	if !ok {
		return premium
	}

	effect := sig.Value
	if typ == models.Put {
		effect = -effect
	}
	factor := effect * sig.Confidence * e.cfg.Pricing.AlphaBaseAdjustment
	switch m {
	case models.OTM:
		factor *= 1.5
	case models.ATM:
		factor *= 1.2
	}

	adjusted := premium * (1 + factor)
	floor := premium * 0.5
	if adjusted < floor {
		adjusted = floor
	}
	return adjusted
}

// ExpiryVol exposes the expiry-adjusted volatility the engine would
// use when pricing the given expiry.
func (e *Engine) ExpiryVol(expiryMinutes int) float64 {
	return e.vol.ForExpiry(expiryMinutes)
}

// Chain builds the option chain for one expiry. It returns ErrNotReady
// when no valid price has been seen yet; callers should retry rather
// than treat that as a failure.
func (e *Engine) Chain(expiryMinutes int) (*models.OptionChain, error) {
	spot := e.Spot()
	if spot <= 0 {
		return nil, derrors.ErrNotReady
	}

	strikes, err := e.Strikes(expiryMinutes)
	if err != nil {
		return nil, err
	}

	sigma := e.vol.ForExpiry(expiryMinutes)
	if sigma < e.cfg.Volatility.MinVol {
		sigma = e.cfg.Volatility.MinVol
	}
	if sigma > e.cfg.Volatility.MaxVol {
		sigma = e.cfg.Volatility.MaxVol
	}

	T := float64(expiryMinutes) / (60 * 24 * 365.25)
	contractSize := e.cfg.Pricing.ContractSizeBTC
	label := e.cfg.ExpiryLabel(expiryMinutes)

	calls := make([]models.OptionQuote, 0, len(strikes))
	puts := make([]models.OptionQuote, 0, len(strikes))

	for _, strike := range strikes {
		for _, typ := range []models.OptionType{models.Call, models.Put} {
			premium, greeks := BlackScholes(spot, strike, T, e.cfg.Pricing.RiskFreeRate, sigma, typ)

			// Never quote below intrinsic.
			if iv := models.Intrinsic(typ, spot, strike); premium < iv {
				premium = iv
			}

			moneyness := e.ClassifyMoneyness(strike, typ)
			contractPremium := e.applyAlphaAdjustment(premium*contractSize, typ, moneyness)

			scaled := models.Greeks{
				Delta: greeks.Delta * contractSize,
				Gamma: greeks.Gamma * contractSize,
				Theta: greeks.Theta * contractSize,
				Vega:  greeks.Vega * contractSize,
			}
			if moneyness == models.ITM {
				floor := e.cfg.Pricing.ITMDeltaFloor * contractSize
				if typ == models.Call && scaled.Delta < floor {
					scaled.Delta = floor
				} else if typ == models.Put && scaled.Delta > -floor {
					scaled.Delta = -floor
				}
			}

			letter := "C"
			if typ == models.Put {
				letter = "P"
			}
			quote := models.OptionQuote{
				Symbol:        fmt.Sprintf("BTC-%s-%d-%s", label, int(strike), letter),
				Type:          typ,
				Strike:        strike,
				ExpiryMinutes: expiryMinutes,
				ExpiryLabel:   label,
				PremiumUSD:    contractPremium,
				PremiumBTC:    contractPremium / spot,
				Greeks:        scaled,
				ImpliedVol:    sigma,
				Moneyness:     moneyness,
			}

			if typ == models.Call {
				calls = append(calls, quote)
			} else {
				puts = append(puts, quote)
			}
		}
	}

	sort.Slice(calls, func(i, j int) bool { return calls[i].Strike < calls[j].Strike })
	sort.Slice(puts, func(i, j int) bool { return puts[i].Strike < puts[j].Strike })

	return &models.OptionChain{
		UnderlyingPrice: spot,
		GeneratedAt:     time.Now().UTC(),
		ExpiryMinutes:   expiryMinutes,
		ExpiryLabel:     label,
		Calls:           calls,
		Puts:            puts,
		VolatilityUsed:  sigma,
		AlphaAdjusted:   e.cfg.Pricing.AlphaEnabled,
	}, nil
}

// Quote prices a single hypothetical contract at an arbitrary strike
// and expiry, outside the listed ladder. Hedge leg sizing uses this;
// listed quotes come from Chain. No alpha skew is applied.
func (e *Engine) Quote(typ models.OptionType, strike float64, expiryMinutes int) (*models.OptionQuote, error) {
	spot := e.Spot()
	if spot <= 0 {
		return nil, derrors.ErrNotReady
	}
	if strike <= 0 {
		return nil, derrors.NewValidationError("strike", strike, "must be positive")
	}
	if expiryMinutes <= 0 {
		return nil, derrors.NewValidationError("expiry_minutes", expiryMinutes, "must be positive")
	}

	sigma := e.vol.ForExpiry(expiryMinutes)
	T := float64(expiryMinutes) / (60 * 24 * 365.25)
	contractSize := e.cfg.Pricing.ContractSizeBTC

	premium, greeks := BlackScholes(spot, strike, T, e.cfg.Pricing.RiskFreeRate, sigma, typ)
	if iv := models.Intrinsic(typ, spot, strike); premium < iv {
		premium = iv
	}

	return &models.OptionQuote{
		Type:          typ,
		Strike:        strike,
		ExpiryMinutes: expiryMinutes,
		PremiumUSD:    premium * contractSize,
		PremiumBTC:    premium * contractSize / spot,
		Greeks: models.Greeks{
			Delta: greeks.Delta * contractSize,
			Gamma: greeks.Gamma * contractSize,
			Theta: greeks.Theta * contractSize,
			Vega:  greeks.Vega * contractSize,
		},
		ImpliedVol: sigma,
		Moneyness:  e.ClassifyMoneyness(strike, typ),
	}, nil
}

// Chains builds chains for every configured expiry. Expiries that fail
// are logged and omitted.
func (e *Engine) Chains() map[int]*models.OptionChain {
	out := make(map[int]*models.OptionChain, len(e.cfg.Market.Expiries))
	for _, minutes := range e.cfg.ExpiryMinutes() {
		chain, err := e.Chain(minutes)
		if err != nil {
			e.log.Warn().Err(err).Int("expiry_minutes", minutes).Msg("Chain generation skipped")
			continue
		}
		out[minutes] = chain
	}
	return out
}
