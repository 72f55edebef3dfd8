package models

import "time"

// AchievementCategory groups unlock rules
type AchievementCategory string

const (
	CategoryDaily   AchievementCategory = "daily"
	CategoryStreak  AchievementCategory = "streak"
	CategorySpecial AchievementCategory = "special"
)

// Achievement is an immutable catalog entry
type Achievement struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Category    AchievementCategory `json:"category"`
	Threshold   int                 `json:"threshold"`
	PictogramID string              `json:"pictogramId"`
}

// UnlockRecord is the per-user, write-once unlock state of an achievement
type UnlockRecord struct {
	UserID        string    `json:"userId"`
	AchievementID string    `json:"achievementId"`
	Unlocked      bool      `json:"unlocked"`
	UnlockedAt    time.Time `json:"unlockedAt"`
}

// UnlockedDateMillis returns the unlock instant as epoch milliseconds
func (r UnlockRecord) UnlockedDateMillis() int64 {
	return r.UnlockedAt.UnixMilli()
}

// AchievementStatus is a catalog entry merged with a user's unlock state
type AchievementStatus struct {
	Achievement
	Unlocked     bool  `json:"unlocked"`
	UnlockedDate int64 `json:"unlockedDate,omitempty"`
}
