// Package store persists the trade journal to SQLite.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"atticus-desk/internal/models"
)

// SQLiteJournal records fills and settlements for audit. Writes are
// append-only; the journal is never read back on the hot path.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens (or creates) the journal database.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	j := &SQLiteJournal{db: db}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return j, nil
}

func (j *SQLiteJournal) initSchema() error {
	schema := `
	-- Fills: one row per executed order
	CREATE TABLE IF NOT EXISTS fills (
		order_id TEXT PRIMARY KEY,
		position_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		option_type TEXT NOT NULL,
		strike REAL NOT NULL,
		expiry_minutes INTEGER NOT NULL,
		quantity REAL NOT NULL,
		premium_per REAL NOT NULL,
		total_premium REAL NOT NULL,
		entry_spot REAL NOT NULL,
		filled_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Settlements: one row per expired or closed position
	CREATE TABLE IF NOT EXISTS settlements (
		position_id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		option_type TEXT NOT NULL,
		strike REAL NOT NULL,
		quantity REAL NOT NULL,
		entry_premium REAL NOT NULL,
		settlement_usd REAL NOT NULL,
		pnl REAL NOT NULL,
		settled_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_fills_account ON fills(account_id, filled_at);
	CREATE INDEX IF NOT EXISTS idx_settlements_account ON settlements(account_id, settled_at);
	`

	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// RecordFill appends one executed order to the journal.
func (j *SQLiteJournal) RecordFill(order models.Order, position models.Position) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO fills
		(order_id, position_id, account_id, symbol, side, option_type, strike,
		 expiry_minutes, quantity, premium_per, total_premium, entry_spot, filled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, position.ID, order.AccountID, order.Symbol, string(order.Side),
		string(order.Type), order.Strike, order.ExpiryMinutes, order.Quantity,
		order.PremiumPer, order.TotalPremium, position.EntrySpot, order.PlacedAt)
	if err != nil {
		return fmt.Errorf("failed to record fill: %w", err)
	}
	return nil
}

// RecordSettlement appends one settled position to the journal.
func (j *SQLiteJournal) RecordSettlement(position models.Position, settlementUSD float64) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO settlements
		(position_id, account_id, symbol, side, option_type, strike, quantity,
		 entry_premium, settlement_usd, pnl, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		position.ID, position.AccountID, position.Symbol, string(position.Side),
		string(position.Type), position.Strike, position.Quantity,
		position.EntryPremium, settlementUSD, position.PnL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record settlement: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
