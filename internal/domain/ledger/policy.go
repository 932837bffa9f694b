package ledger

import (
	"math"
	"time"

	"github.com/terraed/backend/config"
	"github.com/terraed/backend/internal/entity"
	"github.com/terraed/backend/pkg/dateutil"
)

// NextStreak returns the streak of a user having an activity at t. A second
// activity on the same calendar day keeps the streak, an activity on the next
// day extends it and any longer gap restarts it.
func NextStreak(ledger *entity.UserLedger, t time.Time, loc *time.Location) int {
	if !ledger.LastActivity.Valid || ledger.Streak <= 0 {
		return 1
	}

	switch days := dateutil.DaysBetween(ledger.LastActivity.Time, t, loc); {
	case days <= 0:
		// Same day, or the clock went backwards.
		return ledger.Streak
	case days == 1:
		return ledger.Streak + 1
	default:
		return 1
	}
}

// Multiplier combines the difficulty multiplier and the highest streak
// multiplier reached. Both default to 1.
func Multiplier(cfg config.LedgerConfigs, difficulty entity.Difficulty, streak int) float64 {
	multiplier := 1.0
	if m, ok := cfg.DifficultyMultipliers[string(difficulty)]; ok && m > 0 {
		multiplier = m
	}

	bestStreak := -1
	streakMultiplier := 1.0
	for _, s := range cfg.StreakMultipliers {
		if streak >= s.MinStreak && s.MinStreak > bestStreak && s.Multiplier > 0 {
			bestStreak = s.MinStreak
			streakMultiplier = s.Multiplier
		}
	}

	return multiplier * streakMultiplier
}

func Points(cfg config.LedgerConfigs, base uint64, difficulty entity.Difficulty, streak int) uint64 {
	return uint64(math.Round(float64(base) * Multiplier(cfg, difficulty, streak)))
}

// addMonthly adds amount to the monthly points of ledger, starting a new month
// if the ledger still holds the points of a previous one.
func addMonthly(ledger *entity.UserLedger, amount int64, period string) {
	if ledger.MonthlyPeriod != period {
		ledger.MonthlyPeriod = period
		ledger.MonthlyPoints = 0
	}

	ledger.MonthlyPoints += amount
}
