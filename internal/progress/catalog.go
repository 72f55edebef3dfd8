package progress

import (
	"slices"

	"visualroutine/internal/models"
)

var catalog = []models.Achievement{
	{ID: "daily_bronze", Name: "Daily Bronze", Description: "Complete 1 activity in a day", Category: models.CategoryDaily, Threshold: 1, PictogramID: "2557"},
	{ID: "daily_silver", Name: "Daily Silver", Description: "Complete 3 activities in a day", Category: models.CategoryDaily, Threshold: 3, PictogramID: "2558"},
	{ID: "daily_gold", Name: "Daily Gold", Description: "Complete 5 activities in a day", Category: models.CategoryDaily, Threshold: 5, PictogramID: "2559"},
	{ID: "streak_fire", Name: "Fire Streak", Description: "Complete activities 3 days in a row", Category: models.CategoryStreak, Threshold: 3, PictogramID: "8566"},
	{ID: "streak_diamond", Name: "Diamond Week", Description: "Complete activities 7 days in a row", Category: models.CategoryStreak, Threshold: 7, PictogramID: "2595"},
	{ID: "streak_crown", Name: "Champion Crown", Description: "Complete activities 30 days in a row", Category: models.CategoryStreak, Threshold: 30, PictogramID: "2560"},
	{ID: "explorer", Name: "Explorer", Description: "Complete your first activity", Category: models.CategorySpecial, Threshold: 1, PictogramID: "2561"},
	{ID: "veteran", Name: "Veteran", Description: "Use the app on 10 different days", Category: models.CategorySpecial, Threshold: 10, PictogramID: "2562"},
	{ID: "perfectionist", Name: "Perfectionist", Description: "Complete 50 activities in total", Category: models.CategorySpecial, Threshold: 50, PictogramID: "2563"},
}

// Catalog returns a copy of the built-in achievement definitions in display order
func Catalog() []models.Achievement {
	return slices.Clone(catalog)
}

// Lookup finds a catalog entry by id
func Lookup(id string) (models.Achievement, bool) {
	for _, a := range catalog {
		if a.ID == id {
			return a, true
		}
	}
	return models.Achievement{}, false
}

// Qualifies evaluates an achievement's unlock rule against a stats snapshot
func Qualifies(a models.Achievement, stats models.UserStats) bool {
	switch a.Category {
	case models.CategoryDaily:
		return stats.ActivitiesCompletedToday >= a.Threshold
	case models.CategoryStreak:
		return stats.CurrentStreak >= a.Threshold
	case models.CategorySpecial:
		switch a.ID {
		case "explorer":
			return stats.TotalActivitiesCompleted >= 1
		case "perfectionist":
			return stats.TotalActivitiesCompleted >= 50
		case "veteran":
			// counted in distinct days with at least one completion, not in completions
			return stats.DaysActive >= a.Threshold
		}
	}
	return false
}
