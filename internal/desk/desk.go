// Package desk wires the feed, pricing engine, ledger, risk engine and
// hedge advisor into one service with a single write path.
package desk

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"atticus-desk/internal/config"
	derrors "atticus-desk/internal/errors"
	"atticus-desk/internal/feed"
	"atticus-desk/internal/hedge"
	"atticus-desk/internal/ledger"
	"atticus-desk/internal/logging"
	"atticus-desk/internal/models"
	"atticus-desk/internal/pricing"
	"atticus-desk/internal/risk"
	"atticus-desk/internal/volatility"
)

// Desk is the orchestrator. All market state flows in through OnPrice;
// every other method is a read or an explicit trading action.
type Desk struct {
	cfg     *config.Config
	log     zerolog.Logger
	source  feed.Source
	latest  feed.LatestPrice
	vol     *volatility.Estimator
	pricer  *pricing.Engine
	ledger  *ledger.Ledger
	risk    *risk.Engine
	advisor *hedge.Advisor

	priceOnce  sync.Once
	firstPrice chan struct{}

	mu         sync.RWMutex
	lastReport models.RiskReport
}

// New assembles a desk. source and journal may be nil: a nil source
// means prices arrive only through OnPrice, a nil journal disables the
// audit trail.
func New(cfg *config.Config, source feed.Source, journal ledger.Journal, log zerolog.Logger) *Desk {
	vol := volatility.NewEstimator(cfg.Volatility)
	alpha := pricing.NewSignalGenerator()
	pricer := pricing.NewEngine(cfg, vol, alpha, log)
	book := ledger.NewLedger(cfg, pricer, log)
	if journal != nil {
		book.SetJournal(journal)
	}

	return &Desk{
		cfg:        cfg,
		log:        log.With().Str("component", "desk").Logger(),
		source:     source,
		vol:        vol,
		pricer:     pricer,
		ledger:     book,
		risk:       risk.NewEngine(cfg, book, log),
		advisor:    hedge.NewAdvisor(cfg, pricer, log),
		firstPrice: make(chan struct{}),
	}
}

// OnPrice is the sole write path for market data. It updates the
// latest-tick cache, the volatility estimator and the pricing engine.
// Non-positive prices are dropped.
func (d *Desk) OnPrice(symbol string, price, volume float64, ts time.Time) {
	if price <= 0 {
		return
	}
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	d.latest.Set(models.PriceTick{
		Symbol: symbol,
		Price:  price,
		Volume: volume,
		Time:   ts,
		Source: d.sourceName(),
	})
	d.pricer.UpdateMarketData(price, volume)
	d.priceOnce.Do(func() { close(d.firstPrice) })
	logging.LogTick(d.log, symbol, d.sourceName(), price, volume)
}

func (d *Desk) sourceName() string {
	if d.source == nil {
		return "external"
	}
	return d.source.Name()
}

// WaitForPrice blocks until the first tick arrives, the configured
// wait elapses, or ctx is done. It returns ErrNotReady on timeout so
// callers can distinguish an idle feed from cancellation.
func (d *Desk) WaitForPrice(ctx context.Context) error {
	timer := time.NewTimer(d.cfg.FirstPriceWait())
	defer timer.Stop()

	select {
	case <-d.firstPrice:
		return nil
	case <-timer.C:
		return derrors.ErrNotReady
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run polls the source and drives valuation cycles until ctx is done.
// Tick intake and cycle work run on separate tickers so a slow cycle
// never delays price updates.
func (d *Desk) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	if d.source != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.pollSource(ctx)
		}()
	}

	cycle := time.NewTicker(d.cfg.CycleInterval())
	defer cycle.Stop()

	d.log.Info().
		Str("symbol", d.cfg.Market.Symbol).
		Dur("cycle_interval", d.cfg.CycleInterval()).
		Msg("Desk running")

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case <-cycle.C:
			d.RunCycle()
		}
	}
}

func (d *Desk) pollSource(ctx context.Context) {
	interval := time.Duration(d.cfg.Volatility.TickIntervalSeconds * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			price, volume, err := d.source.Price(ctx)
			if err != nil {
				d.log.Warn().Err(err).Str("source", d.source.Name()).Msg("Price fetch failed")
				continue
			}
			d.OnPrice(d.cfg.Market.Symbol, price, volume, time.Now().UTC())
		}
	}
}

// RunCycle runs one valuation pass: mark the book, settle expiries,
// refresh the risk report. It is a no-op until the first price.
func (d *Desk) RunCycle() {
	spot := d.pricer.Spot()
	if spot <= 0 {
		return
	}

	d.ledger.MarkToMarket(spot)
	if settled := d.ledger.SettleExpired(spot); len(settled) > 0 {
		d.log.Info().Int("count", len(settled)).Msg("Positions settled")
	}

	report := d.risk.Analyze(spot)
	d.mu.Lock()
	d.lastReport = report
	d.mu.Unlock()
}

// MarketData snapshots the market state consumed by hedge strategies.
func (d *Desk) MarketData() models.MarketData {
	metrics := d.vol.Metrics()
	return models.MarketData{
		Spot:        d.pricer.Spot(),
		RealizedVol: metrics.CurrentVol,
		ImpliedVol:  metrics.RegimeVol,
		Regime:      metrics.Regime,
		Confidence:  metrics.Confidence,
	}
}

// GetChain returns the option chain for one expiry.
func (d *Desk) GetChain(expiryMinutes int) (*models.OptionChain, error) {
	return d.pricer.Chain(expiryMinutes)
}

// GetChains returns chains for every configured expiry.
func (d *Desk) GetChains() map[int]*models.OptionChain {
	return d.pricer.Chains()
}

// GetPortfolio returns the account's portfolio at the current spot.
func (d *Desk) GetPortfolio(accountID string) (*models.PortfolioSummary, error) {
	return d.ledger.Portfolio(accountID, d.pricer.Spot())
}

// GetRisk returns the latest risk report, computing one on demand if
// no cycle has run yet.
func (d *Desk) GetRisk() models.RiskReport {
	d.mu.RLock()
	report := d.lastReport
	d.mu.RUnlock()
	if report.GeneratedAt.IsZero() {
		return d.risk.Analyze(d.pricer.Spot())
	}
	return report
}

// GetHedgeRecommendation runs the advisor for one account and returns
// the top-ranked plan, or nil when nothing applies.
func (d *Desk) GetHedgeRecommendation(accountID string) (*models.HedgeRecommendation, error) {
	pf, err := d.GetPortfolio(accountID)
	if err != nil {
		return nil, err
	}
	return d.advisor.DevisePlan(d.MarketData(), pf), nil
}

// GetHedgeRecommendations runs every strategy and returns the full
// ranked list.
func (d *Desk) GetHedgeRecommendations(accountID string) ([]models.HedgeRecommendation, error) {
	pf, err := d.GetPortfolio(accountID)
	if err != nil {
		return nil, err
	}
	return d.advisor.RunAll(d.MarketData(), pf), nil
}

// PlaceOrder fills an order against the current chain. The returned
// order carries the final status and rejection reason if any.
func (d *Desk) PlaceOrder(order models.Order) (models.Order, *models.Position, error) {
	pos, err := d.ledger.Execute(&order)
	return order, pos, err
}

// ClosePosition unwinds a position, fully or partially.
func (d *Desk) ClosePosition(accountID, positionID string, partialQty float64) (string, error) {
	return d.ledger.Close(accountID, positionID, partialQty)
}

// CreateAccount creates a trading account. A zero balance uses the
// configured default.
func (d *Desk) CreateAccount(id string, initialBTC float64) models.Account {
	return d.ledger.CreateAccount(id, initialBTC)
}

// PlatformRisk aggregates exposure across all accounts.
func (d *Desk) PlatformRisk() models.PlatformRisk {
	return d.ledger.PlatformRisk()
}

// LatestTick returns the last tick seen, if any.
func (d *Desk) LatestTick() (models.PriceTick, bool) {
	return d.latest.Get()
}
