package service

import (
	"context"
	"fmt"

	"visualroutine/internal/models"
	"visualroutine/internal/progress"
	"visualroutine/internal/repository"
)

// ProgressService exposes a user's stats and achievement board
type ProgressService struct {
	pipeline     *progress.Pipeline
	achievements *repository.AchievementRepository
}

// NewProgressService creates a new progress service
func NewProgressService(pipeline *progress.Pipeline, achievements *repository.AchievementRepository) *ProgressService {
	return &ProgressService{pipeline: pipeline, achievements: achievements}
}

// Stats returns the user's stats as of today
func (s *ProgressService) Stats(ctx context.Context, userID string) (models.UserStats, error) {
	return s.pipeline.CurrentStats(ctx, userID)
}

// ListAchievements merges the catalog with the user's unlock records, in catalog order
func (s *ProgressService) ListAchievements(ctx context.Context, userID string) ([]models.AchievementStatus, error) {
	records, err := s.achievements.ListUnlocked(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocked achievements: %w", err)
	}

	unlocked := make(map[string]models.UnlockRecord, len(records))
	for _, record := range records {
		unlocked[record.AchievementID] = record
	}

	catalog := progress.Catalog()
	statuses := make([]models.AchievementStatus, 0, len(catalog))
	for _, achievement := range catalog {
		status := models.AchievementStatus{Achievement: achievement}
		if record, ok := unlocked[achievement.ID]; ok {
			status.Unlocked = true
			status.UnlockedDate = record.UnlockedDateMillis()
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
