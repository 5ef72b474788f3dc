// Package audit persists a best-effort fill ledger. Grounded on
// internal/database/database.go's postgres-or-sqlite gorm.Open dispatch
// and AutoMigrate-on-start idiom; narrowed to the fill/position record
// shape the discretionary engine needs instead of a full trade-journal
// schema.
package audit

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PositionRecord is one row per Position lifecycle.
type PositionRecord struct {
	ID        string `gorm:"primaryKey"`
	Asset     string
	Side      string
	SizeUSDT  float64
	State     string
	OpenedAt  time.Time
	ClosedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FillRecord is one row per reconciled exchange fill.
type FillRecord struct {
	ID         uint `gorm:"primaryKey;autoIncrement"`
	PositionID string `gorm:"index"`
	Symbol     string
	Side       string
	Qty        float64
	Notional   float64
	Venue      string
	Key        string
	CreatedAt  time.Time
}

// Ledger is the audit store. Failures here are logged, never fatal: the
// trading loop does not depend on persistence succeeding.
type Ledger struct {
	db *gorm.DB
}

func New(dbPath string) (*Ledger, error) {
	var db *gorm.DB
	var err error

	if strings.HasPrefix(dbPath, "postgres://") || strings.HasPrefix(dbPath, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dbPath), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("💾 audit ledger connected (PostgreSQL)")
	} else {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", dbPath).Msg("💾 audit ledger initialized (SQLite)")
	}

	if err := db.AutoMigrate(&PositionRecord{}, &FillRecord{}); err != nil {
		return nil, err
	}

	return &Ledger{db: db}, nil
}

func (l *Ledger) RecordPositionOpened(id, asset, side string, sizeUSDT float64) {
	rec := PositionRecord{ID: id, Asset: asset, Side: side, SizeUSDT: sizeUSDT, State: "Running", OpenedAt: time.Now()}
	if err := l.db.Create(&rec).Error; err != nil {
		log.Warn().Err(err).Str("position_id", id).Msg("⚠️ audit: failed to record position open")
	}
}

func (l *Ledger) RecordPositionClosed(id string) {
	now := time.Now()
	if err := l.db.Model(&PositionRecord{}).Where("id = ?", id).
		Updates(map[string]interface{}{"state": "Terminated", "closed_at": &now}).Error; err != nil {
		log.Warn().Err(err).Str("position_id", id).Msg("⚠️ audit: failed to record position close")
	}
}

func (l *Ledger) RecordFill(positionID, symbol, side string, qty, notional float64, venue, key string) {
	rec := FillRecord{PositionID: positionID, Symbol: symbol, Side: side, Qty: qty, Notional: notional, Venue: venue, Key: key}
	if err := l.db.Create(&rec).Error; err != nil {
		log.Warn().Err(err).Str("position_id", positionID).Msg("⚠️ audit: failed to record fill")
	}
}
