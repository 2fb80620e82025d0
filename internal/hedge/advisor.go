// Package hedge ranks hedging strategies against the current market
// and portfolio state. Strategies are pure analyzers: they propose
// option legs but never place orders.
package hedge

import (
	"sort"

	"github.com/rs/zerolog"

	"atticus-desk/internal/config"
	"atticus-desk/internal/logging"
	"atticus-desk/internal/models"
)

// Quoter prices hypothetical option legs for strategies.
type Quoter interface {
	Quote(typ models.OptionType, strike float64, expiryMinutes int) (*models.OptionQuote, error)
	ExpiryVol(expiryMinutes int) float64
}

// Strategy analyzes one hedging angle. A nil recommendation with a nil
// error means the strategy declines: its preconditions do not hold.
type Strategy interface {
	Name() string
	Analyze(md models.MarketData, pf *models.PortfolioSummary) (*models.HedgeRecommendation, error)
}

// Advisor runs every registered strategy and ranks the results.
type Advisor struct {
	cfg        *config.Config
	quoter     Quoter
	log        zerolog.Logger
	strategies []Strategy
}

// NewAdvisor creates an advisor with the default strategy set.
func NewAdvisor(cfg *config.Config, quoter Quoter, log zerolog.Logger) *Advisor {
	a := &Advisor{
		cfg:    cfg,
		quoter: quoter,
		log:    log.With().Str("component", "hedge").Logger(),
	}
	a.Register(
		&ProtectivePut{quoter: quoter},
		&ProtectiveCall{quoter: quoter},
		&DeltaNeutral{quoter: quoter},
		&GammaScalp{quoter: quoter},
		&ThetaFarm{quoter: quoter},
		&VolArbitrage{quoter: quoter},
		&CalendarArbitrage{quoter: quoter},
		&FundingArbitrage{},
	)
	return a
}

// Register appends strategies. Registration order is preserved and is
// the tiebreaker when confidences are equal.
func (a *Advisor) Register(strategies ...Strategy) {
	a.strategies = append(a.strategies, strategies...)
}

// RunAll analyzes every strategy and returns applicable recommendations
// sorted by confidence, highest first. A strategy error is logged and
// skipped; one bad strategy never hides the others.
func (a *Advisor) RunAll(md models.MarketData, pf *models.PortfolioSummary) []models.HedgeRecommendation {
	out := make([]models.HedgeRecommendation, 0, len(a.strategies))
	for _, s := range a.strategies {
		rec, err := s.Analyze(md, pf)
		if err != nil {
			a.log.Warn().Err(err).Str("strategy", s.Name()).Msg("Strategy analysis failed")
			continue
		}
		if rec == nil {
			continue
		}
		rec.Confidence = models.Clamp01(rec.Confidence)
		out = append(out, *rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

// DevisePlan returns the top-ranked recommendation, or nil when no
// strategy applies.
func (a *Advisor) DevisePlan(md models.MarketData, pf *models.PortfolioSummary) *models.HedgeRecommendation {
	recs := a.RunAll(md, pf)
	if len(recs) == 0 {
		return nil
	}
	top := recs[0]
	logging.LogRecommendation(a.log, top.Strategy, top.Confidence, top.Reasoning)
	return &top
}
