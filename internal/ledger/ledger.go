// Package ledger owns accounts and option positions: order execution,
// mark-to-market, expiry settlement and early close.
package ledger

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"atticus-desk/internal/config"
	derrors "atticus-desk/internal/errors"
	"atticus-desk/internal/logging"
	"atticus-desk/internal/models"
	"atticus-desk/internal/pricing"
)

// Journal receives fills and settlements for audit logging. Recording
// is best effort; journal errors never fail the trade.
type Journal interface {
	RecordFill(order models.Order, position models.Position) error
	RecordSettlement(position models.Position, settlementUSD float64) error
}

// account is the single-writer unit: all mutation of one account's
// balance and positions happens under its mutex.
type account struct {
	mu         sync.Mutex
	id         string
	balanceBTC float64
	positions  map[string]*models.Position
	history    []models.Order
	createdAt  time.Time
}

// Ledger holds every account and a global index of open positions.
// Lock order is always account.mu before Ledger.mu; the registry lock
// is never held while acquiring an account lock.
type Ledger struct {
	cfg     *config.Config
	pricer  *pricing.Engine
	log     zerolog.Logger
	journal Journal

	mu       sync.RWMutex
	accounts map[string]*account
	open     map[string]*account // positionID -> owning account

	greeksMu   sync.Mutex
	lastGreeks time.Time

	orderSeq uint64
	posSeq   uint64
}

// NewLedger creates an empty ledger bound to a pricing engine.
func NewLedger(cfg *config.Config, pricer *pricing.Engine, log zerolog.Logger) *Ledger {
	return &Ledger{
		cfg:      cfg,
		pricer:   pricer,
		log:      log.With().Str("component", "ledger").Logger(),
		accounts: make(map[string]*account),
		open:     make(map[string]*account),
	}
}

// SetJournal attaches an optional trade journal.
func (l *Ledger) SetJournal(j Journal) {
	l.journal = j
}

// CreateAccount creates an account with the given starting BTC balance.
// Creating an existing account returns its current state unchanged.
func (l *Ledger) CreateAccount(id string, initialBTC float64) models.Account {
	acct := l.getOrCreate(id, initialBTC)
	acct.mu.Lock()
	defer acct.mu.Unlock()
	return acct.snapshotLocked()
}

func (l *Ledger) getOrCreate(id string, initialBTC float64) *account {
	l.mu.Lock()
	defer l.mu.Unlock()

	if acct, ok := l.accounts[id]; ok {
		return acct
	}
	if initialBTC <= 0 {
		initialBTC = l.cfg.Ledger.InitialBalanceBTC
	}
	acct := &account{
		id:         id,
		balanceBTC: initialBTC,
		positions:  make(map[string]*models.Position),
		createdAt:  time.Now().UTC(),
	}
	l.accounts[id] = acct
	l.log.Info().Str("account_id", id).Float64("balance_btc", initialBTC).Msg("Account created")
	return acct
}

func (acct *account) snapshotLocked() models.Account {
	out := models.Account{
		ID:         acct.id,
		BalanceBTC: acct.balanceBTC,
		Positions:  make([]models.Position, 0, len(acct.positions)),
		History:    append([]models.Order(nil), acct.history...),
		CreatedAt:  acct.createdAt,
	}
	for _, p := range acct.positions {
		out.Positions = append(out.Positions, *p)
	}
	return out
}

// Execute validates and fills an order against the current chain.
// On success the premium moves, the position is created and registered
// in both the account and the global open index; on failure the order
// is rejected with a reason and nothing is mutated. Order status is
// monotone: pending moves to filled or rejected exactly once.
func (l *Ledger) Execute(order *models.Order) (*models.Position, error) {
	order.Status = models.OrderPending
	if order.ID == "" {
		order.ID = fmt.Sprintf("ord_%d_%d", time.Now().Unix(), atomic.AddUint64(&l.orderSeq, 1))
	}
	if order.PlacedAt.IsZero() {
		order.PlacedAt = time.Now().UTC()
	}

	pos, err := l.execute(order)
	if err != nil {
		order.Status = models.OrderRejected
		order.Reason = err.Error()
		return nil, err
	}
	order.Status = models.OrderFilled
	return pos, nil
}

func (l *Ledger) execute(order *models.Order) (*models.Position, error) {
	if order.Side != models.OrderSideBuy && order.Side != models.OrderSideSell {
		return nil, derrors.NewValidationError("side", order.Side, "must be buy or sell")
	}
	if order.Type != models.Call && order.Type != models.Put {
		return nil, derrors.NewValidationError("type", order.Type, "must be call or put")
	}
	if order.Quantity <= 0 {
		return nil, derrors.NewValidationError("quantity", order.Quantity, "must be positive")
	}
	if order.Strike <= 0 {
		return nil, derrors.NewValidationError("strike", order.Strike, "must be positive")
	}
	if _, ok := l.cfg.Expiry(order.ExpiryMinutes); !ok {
		return nil, derrors.NewValidationError("expiry_minutes", order.ExpiryMinutes,
			fmt.Sprintf("not tradeable, available: %v", l.cfg.ExpiryMinutes()))
	}

	spot := l.pricer.Spot()
	if spot <= 0 {
		return nil, derrors.ErrNotReady
	}

	chain, err := l.pricer.Chain(order.ExpiryMinutes)
	if err != nil {
		return nil, err
	}
	quote := chain.NearestQuote(order.Type, order.Strike, 1.0)
	if quote == nil {
		return nil, derrors.NewValidationError("strike", order.Strike, "no quote for strike")
	}

	order.Symbol = quote.Symbol
	order.PremiumPer = quote.PremiumUSD
	order.TotalPremium = quote.PremiumUSD * order.Quantity
	order.Greeks = quote.Greeks

	acct := l.getOrCreate(order.AccountID, 0)
	acct.mu.Lock()
	defer acct.mu.Unlock()

	premiumBTC := order.TotalPremium / spot

	if order.Side == models.OrderSideBuy {
		if acct.balanceBTC < premiumBTC {
			return nil, derrors.NewInsufficientBalanceError(acct.id, premiumBTC, acct.balanceBTC, "premium")
		}
	} else {
		notional := order.Strike * order.Quantity * l.cfg.Pricing.ContractSizeBTC
		marginBTC := notional * l.cfg.Ledger.NakedSellMarginRate / spot
		if acct.balanceBTC < marginBTC {
			return nil, derrors.NewInsufficientBalanceError(acct.id, marginBTC, acct.balanceBTC, "margin")
		}
	}

	now := time.Now().UTC()
	side := models.Long
	entryPremium := order.TotalPremium
	if order.Side == models.OrderSideSell {
		side = models.Short
		entryPremium = -order.TotalPremium // credit received
	}

	pos := &models.Position{
		ID:            fmt.Sprintf("pos_%d_%d", now.Unix(), atomic.AddUint64(&l.posSeq, 1)),
		AccountID:     acct.id,
		Symbol:        order.Symbol,
		Side:          side,
		Type:          order.Type,
		Strike:        order.Strike,
		ExpiryMinutes: order.ExpiryMinutes,
		ExpiryTime:    now.Add(time.Duration(order.ExpiryMinutes) * time.Minute),
		Quantity:      order.Quantity,
		EntryPremium:  entryPremium,
		EntrySpot:     spot,
		Leverage:      1,
		Greeks:        quote.Greeks,
		Status:        models.PositionOpen,
		OpenedAt:      now,
	}
	l.markPosition(pos, spot, now)

	// Point of no return: apply every effect together.
	if order.Side == models.OrderSideBuy {
		acct.balanceBTC -= premiumBTC
	} else {
		acct.balanceBTC += premiumBTC
	}
	acct.positions[pos.ID] = pos
	acct.history = append(acct.history, *order)

	l.mu.Lock()
	l.open[pos.ID] = acct
	l.mu.Unlock()

	logging.LogFill(l.log, acct.id, pos.ID, string(order.Side), order.Quantity, order.Strike, order.TotalPremium)
	if l.journal != nil {
		filled := *order
		filled.Status = models.OrderFilled
		if err := l.journal.RecordFill(filled, *pos); err != nil {
			l.log.Warn().Err(err).Str("order_id", order.ID).Msg("Journal write failed")
		}
	}

	out := *pos
	return &out, nil
}

// markPosition revalues one open position: per-contract intrinsic plus
// a linear time-value term proportional to the remaining hours. The
// formula is intentionally simpler than the quote-time Black-Scholes
// premium and drifts against it as expiry approaches.
func (l *Ledger) markPosition(p *models.Position, spot float64, now time.Time) {
	intrinsic := l.contractIntrinsic(p.Type, spot, p.Strike)
	hoursLeft := models.TimeRemaining(p.ExpiryTime, now).Hours()
	value := (intrinsic + intrinsic*l.cfg.Ledger.TimeValueRate*hoursLeft) * p.Quantity

	p.MarkValue = value
	p.PnL = signedPnL(p.Side, p.EntryPremium, value)
}

// contractIntrinsic is the intrinsic value of one contract in USD,
// scaled by the contract size the way quoted premiums are.
func (l *Ledger) contractIntrinsic(typ models.OptionType, spot, strike float64) float64 {
	return models.Intrinsic(typ, spot, strike) * l.cfg.Pricing.ContractSizeBTC
}

func signedPnL(side models.PositionSide, entryPremium, value float64) float64 {
	if side == models.Long {
		return value - math.Abs(entryPremium)
	}
	return math.Abs(entryPremium) - value
}

// MarkToMarket revalues every open, unexpired position at the given
// spot and refreshes greeks from the nearest chain strike, throttled to
// the configured interval. Per-position failures are logged and the
// pass continues.
func (l *Ledger) MarkToMarket(spot float64) {
	if spot <= 0 {
		l.log.Warn().Float64("spot", spot).Msg("Skipping mark-to-market, invalid spot")
		return
	}
	now := time.Now().UTC()

	refreshGreeks := false
	l.greeksMu.Lock()
	if now.Sub(l.lastGreeks) >= l.cfg.GreeksRefreshInterval() {
		refreshGreeks = true
		l.lastGreeks = now
	}
	l.greeksMu.Unlock()

	var chains map[int]*models.OptionChain
	if refreshGreeks {
		chains = make(map[int]*models.OptionChain)
	}

	for _, acct := range l.accountList() {
		acct.mu.Lock()
		for _, pos := range acct.positions {
			if pos.Status != models.PositionOpen || pos.Expired(now) {
				continue
			}
			l.markPosition(pos, spot, now)

			if !refreshGreeks {
				continue
			}
			chain, ok := chains[pos.ExpiryMinutes]
			if !ok {
				c, err := l.pricer.Chain(pos.ExpiryMinutes)
				if err != nil {
					l.log.Debug().Err(err).Str("position_id", pos.ID).Msg("Greeks refresh skipped")
					chains[pos.ExpiryMinutes] = nil
					continue
				}
				chain = c
				chains[pos.ExpiryMinutes] = c
			}
			if chain == nil {
				continue
			}
			if quote := chain.NearestQuote(pos.Type, pos.Strike, 1.0); quote != nil {
				pos.Greeks = quote.Greeks
			}
		}
		acct.mu.Unlock()
	}
}

// SettleExpired settles every position whose expiry has passed at its
// intrinsic value: longs are credited, shorts debited, both in BTC at
// the given spot. Settled positions leave the account and the open
// index, so a second call in the same cycle settles nothing further.
func (l *Ledger) SettleExpired(spot float64) []models.Position {
	if spot <= 0 {
		return nil
	}
	now := time.Now().UTC()
	var settled []models.Position

	for _, acct := range l.accountList() {
		acct.mu.Lock()
		for id, pos := range acct.positions {
			if pos.Status != models.PositionOpen || !pos.Expired(now) {
				continue
			}

			settlementUSD := l.contractIntrinsic(pos.Type, spot, pos.Strike) * pos.Quantity
			settlementBTC := settlementUSD / spot
			if pos.Side == models.Long {
				acct.balanceBTC += settlementBTC
			} else {
				acct.balanceBTC -= settlementBTC
			}

			pos.Status = models.PositionSettled
			pos.MarkValue = settlementUSD
			pos.PnL = signedPnL(pos.Side, pos.EntryPremium, settlementUSD)

			delete(acct.positions, id)
			l.mu.Lock()
			delete(l.open, id)
			l.mu.Unlock()

			settled = append(settled, *pos)
			logging.LogSettlement(l.log, pos.ID, settlementUSD, pos.PnL)
			if l.journal != nil {
				if err := l.journal.RecordSettlement(*pos, settlementUSD); err != nil {
					l.log.Warn().Err(err).Str("position_id", pos.ID).Msg("Journal write failed")
				}
			}
		}
		acct.mu.Unlock()
	}
	return settled
}

// Close unwinds a position early at its current intrinsic value. A
// zero partialQty closes the full size; a partial close reduces the
// quantity and rescales the recorded entry premium proportionally.
func (l *Ledger) Close(accountID, positionID string, partialQty float64) (string, error) {
	spot := l.pricer.Spot()
	if spot <= 0 {
		return "", derrors.ErrNotReady
	}

	l.mu.RLock()
	acct, ok := l.accounts[accountID]
	l.mu.RUnlock()
	if !ok {
		return "", derrors.ErrAccountNotFound
	}

	acct.mu.Lock()
	defer acct.mu.Unlock()

	pos, ok := acct.positions[positionID]
	if !ok {
		return "", derrors.ErrPositionNotFound
	}

	closeQty := partialQty
	if closeQty == 0 {
		closeQty = pos.Quantity
	}
	if closeQty < 0 {
		return "", derrors.NewValidationError("partial_quantity", partialQty, "must be positive")
	}
	if closeQty > pos.Quantity {
		return "", derrors.NewValidationError("partial_quantity", partialQty, "exceeds position size")
	}

	valueUSD := l.contractIntrinsic(pos.Type, spot, pos.Strike) * closeQty
	valueBTC := valueUSD / spot
	if pos.Side == models.Long {
		acct.balanceBTC += valueBTC
	} else {
		acct.balanceBTC -= valueBTC
	}

	var msg string
	if closeQty == pos.Quantity {
		pos.Status = models.PositionClosed
		delete(acct.positions, positionID)
		l.mu.Lock()
		delete(l.open, positionID)
		l.mu.Unlock()
		msg = fmt.Sprintf("position fully closed for $%.2f", valueUSD)
	} else {
		original := pos.Quantity
		pos.Quantity -= closeQty
		pos.EntryPremium *= pos.Quantity / original
		msg = fmt.Sprintf("position partially closed (%.4f of %.4f) for $%.2f", closeQty, original, valueUSD)
	}

	l.log.Info().
		Str("account_id", accountID).
		Str("position_id", positionID).
		Float64("quantity", closeQty).
		Float64("value_usd", valueUSD).
		Msg("Position closed")
	return msg, nil
}

// accountList snapshots the account set without holding the registry
// lock during per-account work.
func (l *Ledger) accountList() []*account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*account, 0, len(l.accounts))
	for _, acct := range l.accounts {
		out = append(out, acct)
	}
	return out
}

// OpenPositions returns copies of every open position across accounts.
func (l *Ledger) OpenPositions() []models.Position {
	var out []models.Position
	for _, acct := range l.accountList() {
		acct.mu.Lock()
		for _, pos := range acct.positions {
			if pos.Status == models.PositionOpen {
				out = append(out, *pos)
			}
		}
		acct.mu.Unlock()
	}
	return out
}

// NetDelta sums signed delta exposure across the book: long positions
// add delta times quantity, shorts subtract it.
func (l *Ledger) NetDelta() float64 {
	var net float64
	for _, pos := range l.OpenPositions() {
		if pos.Side == models.Long {
			net += pos.Greeks.Delta * pos.Quantity
		} else {
			net -= pos.Greeks.Delta * pos.Quantity
		}
	}
	return net
}

// PlatformRisk aggregates exposure across every account.
func (l *Ledger) PlatformRisk() models.PlatformRisk {
	var risk models.PlatformRisk
	for _, pos := range l.OpenPositions() {
		risk.OpenPositions++
		risk.TotalExposure += math.Abs(pos.MarkValue)
		if pos.Side == models.Long {
			risk.NetDelta += pos.Greeks.Delta * pos.Quantity
		} else {
			risk.NetDelta -= pos.Greeks.Delta * pos.Quantity
		}
	}
	return risk
}
