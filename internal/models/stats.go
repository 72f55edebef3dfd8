package models

// DateLayout is the calendar-day format stored in UserStats.LastActivityDate
const DateLayout = "2006-01-02"

// UserStats holds completion counters for one user
type UserStats struct {
	UserID                   string `json:"userId"`
	TotalActivitiesCompleted int    `json:"totalActivitiesCompleted"`
	ActivitiesCompletedToday int    `json:"activitiesCompletedToday"`
	CurrentStreak            int    `json:"currentStreak"`
	MaxStreak                int    `json:"maxStreak"`
	LastActivityDate         string `json:"lastActivityDate"`
	TotalPoints              int    `json:"totalPoints"`
	UnlockedAchievements     int    `json:"unlockedAchievements"`
	DaysActive               int    `json:"daysActive"`

	// Version is the optimistic concurrency token; 0 means never persisted
	Version int64 `json:"-"`
}

// NewUserStats returns the zero record created on a user's first completion
func NewUserStats(userID string) UserStats {
	return UserStats{UserID: userID}
}

// ActivitiesToday returns the daily counter as seen on the given day. A counter left over
// from an earlier day reads as zero.
func (s UserStats) ActivitiesToday(today string) int {
	if s.LastActivityDate != today {
		return 0
	}
	return s.ActivitiesCompletedToday
}
