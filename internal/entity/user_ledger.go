package entity

import (
	"database/sql"
	"time"
)

// UserLedger is the denormalized snapshot of the wallet transaction log. It is
// only written by the ledger engine, guarded by Version.
type UserLedger struct {
	UserID    string `gorm:"primaryKey"`
	UpdatedAt time.Time

	Points        int64
	MonthlyPoints int64
	// MonthlyPeriod is the month MonthlyPoints belongs to, e.g. 2026-10.
	MonthlyPeriod string

	Streak          int
	LastActivity    sql.NullTime
	QuestsCompleted int64

	Impact ImpactStats `gorm:"embedded;embeddedPrefix:impact_"`

	Version int64
}

// ImpactStats sums the impact of the accepted submissions of a user.
type ImpactStats struct {
	TreesPlanted   float64
	WasteCollected float64
	CarbonSaved    float64
	WaterSaved     float64
	EnergySaved    float64
}

func (s *ImpactStats) Add(metric ImpactMetric, amount float64) {
	if amount <= 0 {
		return
	}

	switch metric {
	case ImpactTreesPlanted:
		s.TreesPlanted += amount
	case ImpactWasteCollected:
		s.WasteCollected += amount
	case ImpactCarbonSaved:
		s.CarbonSaved += amount
	case ImpactWaterSaved:
		s.WaterSaved += amount
	case ImpactEnergySaved:
		s.EnergySaved += amount
	}
}
