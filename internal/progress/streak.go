package progress

import (
	"time"

	"visualroutine/internal/models"
)

// PointsPerCompletion is the fixed reward for completing an activity
const PointsPerCompletion = 10

// OnActivityCompleted applies one completion on the calendar day today (yyyy-MM-dd)
// and returns the new stats. The input is not modified.
func OnActivityCompleted(stats models.UserStats, today string) models.UserStats {
	next := stats
	next.TotalActivitiesCompleted++
	next.TotalPoints += PointsPerCompletion

	if today == stats.LastActivityDate {
		next.ActivitiesCompletedToday++
		return next
	}

	switch {
	case isNextDay(stats.LastActivityDate, today):
		next.CurrentStreak++
	default:
		// first completion ever, or the streak was broken
		next.CurrentStreak = 1
	}
	if next.CurrentStreak > next.MaxStreak {
		next.MaxStreak = next.CurrentStreak
	}

	next.ActivitiesCompletedToday = 1
	next.LastActivityDate = today
	next.DaysActive++
	return next
}

// isNextDay reports whether today is exactly one calendar day after last
func isNextDay(last, today string) bool {
	if last == "" {
		return false
	}
	lastDay, err := time.Parse(models.DateLayout, last)
	if err != nil {
		return false
	}
	currentDay, err := time.Parse(models.DateLayout, today)
	if err != nil {
		return false
	}
	return lastDay.AddDate(0, 0, 1).Equal(currentDay)
}
