package ledger

import (
	"math"
	"time"

	derrors "atticus-desk/internal/errors"
	"atticus-desk/internal/models"
)

// Portfolio builds a copy-on-read summary of one account at the given
// spot. Positions are revalued in place before the snapshot so the
// summary always reflects the spot it was asked for.
func (l *Ledger) Portfolio(accountID string, spot float64) (*models.PortfolioSummary, error) {
	if spot <= 0 {
		return nil, derrors.ErrNotReady
	}

	l.mu.RLock()
	acct, ok := l.accounts[accountID]
	l.mu.RUnlock()
	if !ok {
		return nil, derrors.ErrAccountNotFound
	}

	now := time.Now().UTC()

	acct.mu.Lock()
	defer acct.mu.Unlock()

	summary := &models.PortfolioSummary{
		AccountID:  accountID,
		BalanceBTC: acct.balanceBTC,
		BalanceUSD: acct.balanceBTC * spot,
		Positions:  make([]models.PositionDetail, 0, len(acct.positions)),
		UpdatedAt:  now,
	}

	for _, pos := range acct.positions {
		if pos.Status != models.PositionOpen {
			continue
		}
		l.markPosition(pos, spot, now)
		detail := positionDetail(pos, now, l.cfg.Pricing.ContractSizeBTC)

		summary.TotalPnL += detail.PnL
		if pos.Side == models.Long {
			summary.NetDelta += pos.Greeks.Delta * pos.Quantity
		} else {
			summary.NetDelta -= pos.Greeks.Delta * pos.Quantity
		}
		summary.Positions = append(summary.Positions, detail)
	}

	summary.PortfolioValue = summary.BalanceUSD + summary.TotalPnL
	return summary, nil
}

// positionDetail computes the static payoff bounds of one position.
// Profit on a long call and loss on a short call are unbounded above;
// the corresponding Open flag is set and the value left at zero.
// contractSize converts between strike space (USD per BTC) and
// per-contract payoff.
func positionDetail(pos *models.Position, now time.Time, contractSize float64) models.PositionDetail {
	absPremium := pos.AbsPremium()

	detail := models.PositionDetail{
		PositionID:    pos.ID,
		Side:          pos.Side,
		Type:          pos.Type,
		Strike:        pos.Strike,
		Quantity:      pos.Quantity,
		EntryPremium:  pos.EntryPremium,
		EntrySpot:     pos.EntrySpot,
		CurrentValue:  pos.MarkValue,
		PnL:           pos.PnL,
		TimeRemaining: models.TimeRemaining(pos.ExpiryTime, now),
		ExpiryTime:    pos.ExpiryTime,
		Greeks:        pos.Greeks,
	}

	if absPremium > 0 {
		detail.PnLPercent = pos.PnL / absPremium * 100
	}

	// Premium per contract expressed in strike space: how far spot must
	// travel past the strike before the premium is recovered.
	perUnit := 0.0
	if pos.Quantity > 0 && contractSize > 0 {
		perUnit = absPremium / (pos.Quantity * contractSize)
	}
	if pos.Type == models.Call {
		detail.Breakeven = pos.Strike + perUnit
	} else {
		detail.Breakeven = math.Max(pos.Strike-perUnit, 0)
	}

	notional := pos.Strike * pos.Quantity * contractSize

	switch {
	case pos.Side == models.Long && pos.Type == models.Call:
		detail.MaxProfitOpen = true
		detail.MaxLoss = absPremium
	case pos.Side == models.Long && pos.Type == models.Put:
		detail.MaxProfit = notional - absPremium
		detail.MaxLoss = absPremium
	case pos.Side == models.Short && pos.Type == models.Call:
		detail.MaxProfit = absPremium
		detail.MaxLossOpen = true
	default: // short put
		detail.MaxProfit = absPremium
		detail.MaxLoss = notional - absPremium
	}
	return detail
}
