package repository

import (
	"context"
	"database/sql"
	"fmt"

	"visualroutine/internal/database"
	"visualroutine/internal/models"
	"visualroutine/internal/progress"
)

const statsColumns = `user_id, total_activities_completed, activities_completed_today, current_streak, max_streak,
	last_activity_date, total_points, unlocked_achievements, days_active, version`

var statsColumnList = []string{
	"user_id", "total_activities_completed", "activities_completed_today", "current_streak", "max_streak",
	"last_activity_date", "total_points", "unlocked_achievements", "days_active", "version",
}

// StatsRepository persists one UserStats row per user with versioned, conditional writes
type StatsRepository struct {
	db database.DBTX
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db database.DBTX) *StatsRepository {
	return &StatsRepository{db: db}
}

// Load returns a user's stats, or progress.ErrStatsNotFound
func (r *StatsRepository) Load(ctx context.Context, userID string) (models.UserStats, error) {
	query := "SELECT " + statsColumns + " FROM user_stats WHERE user_id = ?"
	stats, err := scanStats(r.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return models.UserStats{}, progress.ErrStatsNotFound
	}
	if err != nil {
		return models.UserStats{}, fmt.Errorf("failed to load stats for %s: %w", userID, err)
	}
	return stats, nil
}

// Save writes stats only if the stored version still matches stats.Version. Version 0
// means the row must not exist yet. On a mismatch it returns progress.ErrStaleStats.
func (r *StatsRepository) Save(ctx context.Context, stats models.UserStats) (models.UserStats, error) {
	next := stats
	next.Version = stats.Version + 1

	var (
		result sql.Result
		err    error
	)
	if stats.Version == 0 {
		result, err = r.db.ExecContext(ctx,
			r.db.GetDialect().InsertIgnore("user_stats", statsColumnList),
			statsArgs(next)...)
	} else {
		query := `
			UPDATE user_stats
			SET total_activities_completed = ?, activities_completed_today = ?, current_streak = ?, max_streak = ?,
				last_activity_date = ?, total_points = ?, unlocked_achievements = ?, days_active = ?, version = ?
			WHERE user_id = ? AND version = ?
		`
		result, err = r.db.ExecContext(ctx, query,
			next.TotalActivitiesCompleted,
			next.ActivitiesCompletedToday,
			next.CurrentStreak,
			next.MaxStreak,
			next.LastActivityDate,
			next.TotalPoints,
			next.UnlockedAchievements,
			next.DaysActive,
			next.Version,
			stats.UserID,
			stats.Version,
		)
	}
	if err != nil {
		return stats, fmt.Errorf("failed to save stats for %s: %w", stats.UserID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return stats, fmt.Errorf("failed to read save result: %w", err)
	}
	if rows == 0 {
		return stats, progress.ErrStaleStats
	}
	return next, nil
}

// Put overwrites a user's stats regardless of version, used by backup restore
func (r *StatsRepository) Put(ctx context.Context, stats models.UserStats) error {
	if stats.Version == 0 {
		stats.Version = 1
	}
	query := r.db.GetDialect().Upsert("user_stats", "user_id", statsColumnList)
	if _, err := r.db.ExecContext(ctx, query, statsArgs(stats)...); err != nil {
		return fmt.Errorf("failed to put stats for %s: %w", stats.UserID, err)
	}
	return nil
}

// ListAll returns every stats row, used by backups
func (r *StatsRepository) ListAll(ctx context.Context) ([]models.UserStats, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+statsColumns+" FROM user_stats ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var all []models.UserStats
	for rows.Next() {
		stats, err := scanStats(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		all = append(all, stats)
	}
	return all, rows.Err()
}

func statsArgs(s models.UserStats) []any {
	return []any{
		s.UserID,
		s.TotalActivitiesCompleted,
		s.ActivitiesCompletedToday,
		s.CurrentStreak,
		s.MaxStreak,
		s.LastActivityDate,
		s.TotalPoints,
		s.UnlockedAchievements,
		s.DaysActive,
		s.Version,
	}
}

func scanStats(row rowScanner) (models.UserStats, error) {
	var s models.UserStats
	err := row.Scan(
		&s.UserID,
		&s.TotalActivitiesCompleted,
		&s.ActivitiesCompletedToday,
		&s.CurrentStreak,
		&s.MaxStreak,
		&s.LastActivityDate,
		&s.TotalPoints,
		&s.UnlockedAchievements,
		&s.DaysActive,
		&s.Version,
	)
	return s, err
}
