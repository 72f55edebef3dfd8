package repository

import (
	"context"
	"fmt"
	"time"

	"visualroutine/internal/database"
	"visualroutine/internal/models"
)

// AchievementRepository stores write-once unlock records keyed by (user, achievement)
type AchievementRepository struct {
	db database.DBTX
}

// NewAchievementRepository creates a new achievement repository
func NewAchievementRepository(db database.DBTX) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// IsUnlocked reports whether the user already holds the achievement
func (r *AchievementRepository) IsUnlocked(ctx context.Context, userID, achievementID string) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM user_achievements WHERE user_id = ? AND achievement_id = ?"
	if err := r.db.QueryRowContext(ctx, query, userID, achievementID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check achievement %s: %w", achievementID, err)
	}
	return count > 0, nil
}

// MarkUnlocked inserts the unlock record unless it already exists. The primary key makes
// a second insert a no-op, reported as created == false.
func (r *AchievementRepository) MarkUnlocked(ctx context.Context, userID, achievementID string, at time.Time) (bool, error) {
	query := r.db.GetDialect().InsertIgnore("user_achievements", []string{"user_id", "achievement_id", "unlocked_at"})
	result, err := r.db.ExecContext(ctx, query, userID, achievementID, at.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to unlock achievement %s: %w", achievementID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read unlock result: %w", err)
	}
	return rows > 0, nil
}

// CountUnlocked returns how many achievements the user holds
func (r *AchievementRepository) CountUnlocked(ctx context.Context, userID string) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM user_achievements WHERE user_id = ?"
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count achievements: %w", err)
	}
	return count, nil
}

// ListUnlocked returns a user's unlock records, oldest first
func (r *AchievementRepository) ListUnlocked(ctx context.Context, userID string) ([]models.UnlockRecord, error) {
	return r.list(ctx, "WHERE user_id = ?", userID)
}

// ListAll returns every unlock record, used by backups
func (r *AchievementRepository) ListAll(ctx context.Context) ([]models.UnlockRecord, error) {
	return r.list(ctx, "")
}

func (r *AchievementRepository) list(ctx context.Context, where string, args ...any) ([]models.UnlockRecord, error) {
	query := "SELECT user_id, achievement_id, unlocked_at FROM user_achievements " + where + " ORDER BY unlocked_at, achievement_id"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievements: %w", err)
	}
	defer rows.Close()

	var records []models.UnlockRecord
	for rows.Next() {
		var rec models.UnlockRecord
		var millis int64
		if err := rows.Scan(&rec.UserID, &rec.AchievementID, &millis); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		rec.Unlocked = true
		rec.UnlockedAt = time.UnixMilli(millis).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}
