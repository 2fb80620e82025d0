// Package risk watches the open book for delta concentration and
// leveraged positions drifting toward their liquidation price.
package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"atticus-desk/internal/config"
	"atticus-desk/internal/logging"
	"atticus-desk/internal/models"
)

// Book is the slice of the ledger the risk engine reads.
type Book interface {
	OpenPositions() []models.Position
}

// Engine runs read-only risk passes over the open book.
type Engine struct {
	cfg  *config.Config
	book Book
	log  zerolog.Logger
}

// NewEngine creates a risk engine over the given book.
func NewEngine(cfg *config.Config, book Book, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:  cfg,
		book: book,
		log:  log.With().Str("component", "risk").Logger(),
	}
}

// Analyze computes net delta exposure and scans leveraged positions
// for liquidation proximity. It never mutates the book.
func (e *Engine) Analyze(spot float64) models.RiskReport {
	report := models.RiskReport{GeneratedAt: time.Now().UTC()}
	positions := e.book.OpenPositions()

	for _, pos := range positions {
		if pos.Side == models.Long {
			report.DeltaExposure += pos.Greeks.Delta * pos.Quantity
		} else {
			report.DeltaExposure -= pos.Greeks.Delta * pos.Quantity
		}
	}

	if math.Abs(report.DeltaExposure) > e.cfg.Risk.MaxPortfolioDelta {
		alert := models.RiskAlert{
			Severity: "high",
			Type:     "delta_limit",
			Message: fmt.Sprintf("net delta %.4f exceeds limit %.4f",
				report.DeltaExposure, e.cfg.Risk.MaxPortfolioDelta),
		}
		report.Alerts = append(report.Alerts, alert)
		logging.LogAlert(e.log, alert.Severity, alert.Type, alert.Message)
	}

	if spot > 0 {
		for _, pos := range positions {
			if pos.Leverage <= 1 {
				continue
			}
			liq := e.LiquidationPrice(&pos)
			crossed := (pos.Side == models.Long && spot <= liq) ||
				(pos.Side == models.Short && spot >= liq)
			if !crossed {
				continue
			}
			alert := models.RiskAlert{
				Severity: "critical",
				Type:     "liquidation_risk",
				Message: fmt.Sprintf("position %s past liquidation price %.2f (spot %.2f, %.0fx)",
					pos.ID, liq, spot, pos.Leverage),
			}
			report.Alerts = append(report.Alerts, alert)
			logging.LogAlert(e.log, alert.Severity, alert.Type, alert.Message)
		}
	}

	return report
}

// LiquidationPrice is the spot level at which a leveraged position
// exhausts its margin, padded by the maintenance margin rate. Longs
// liquidate below entry, shorts above; unleveraged positions cannot
// liquidate and report zero.
func (e *Engine) LiquidationPrice(pos *models.Position) float64 {
	if pos.Leverage <= 1 {
		return 0
	}
	lev := pos.Leverage
	if pos.Side == models.Long {
		return pos.EntrySpot * (1 - 1/lev + e.cfg.Risk.MaintenanceMarginRate)
	}
	return pos.EntrySpot * (1 + 1/lev - e.cfg.Risk.MaintenanceMarginRate)
}
