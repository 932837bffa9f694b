package leaderboard

import (
	"sort"
	"time"

	"github.com/terraed/backend/internal/entity"
	"github.com/terraed/backend/pkg/enum"
)

type Period string

var (
	AllTime = enum.New(Period("all_time"))
	Monthly = enum.New(Period("monthly"))
)

type Entry struct {
	Rank            int
	UserID          string
	Points          int64
	Streak          int
	QuestsCompleted int64
	LastActivity    time.Time
}

// Rank orders ledgers by points descending, then by earlier last activity,
// then by user id, and assigns contiguous ranks starting at 1. A user who never
// had any activity comes after every user with the same points.
func Rank(ledgers []entity.UserLedger, period Period) []Entry {
	entries := make([]Entry, 0, len(ledgers))
	for _, l := range ledgers {
		points := l.Points
		if period == Monthly {
			points = l.MonthlyPoints
		}

		entry := Entry{
			UserID:          l.UserID,
			Points:          points,
			Streak:          l.Streak,
			QuestsCompleted: l.QuestsCompleted,
		}
		if l.LastActivity.Valid {
			entry.LastActivity = l.LastActivity.Time
		}

		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}

		if !a.LastActivity.Equal(b.LastActivity) {
			if a.LastActivity.IsZero() {
				return false
			}
			if b.LastActivity.IsZero() {
				return true
			}
			return a.LastActivity.Before(b.LastActivity)
		}

		return a.UserID < b.UserID
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}

	return entries
}

// Find returns the entry of userID, or nil if the user is not ranked.
func Find(entries []Entry, userID string) *Entry {
	for i := range entries {
		if entries[i].UserID == userID {
			return &entries[i]
		}
	}

	return nil
}
