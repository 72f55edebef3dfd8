package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"visualroutine/internal/database"
	"visualroutine/internal/models"
)

var reminderColumnList = []string{"activity_id", "user_id", "fire_at", "mode", "payload_json", "created_at"}

const reminderColumns = `activity_id, user_id, fire_at, mode, payload_json, created_at`

// ReminderRepository persists pending alarms, at most one per activity
type ReminderRepository struct {
	db database.DBTX
}

// NewReminderRepository creates a new reminder repository
func NewReminderRepository(db database.DBTX) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Put stores a reminder, replacing any pending reminder with the same key
func (r *ReminderRepository) Put(ctx context.Context, rem models.Reminder) error {
	payload, err := json.Marshal(rem.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode reminder payload: %w", err)
	}
	if rem.CreatedAt.IsZero() {
		rem.CreatedAt = time.Now()
	}

	query := r.db.GetDialect().Upsert("reminders", "activity_id", reminderColumnList)
	_, err = r.db.ExecContext(ctx, query,
		rem.Key,
		rem.Payload.UserID,
		rem.FireAt.UnixMilli(),
		string(rem.Mode),
		string(payload),
		rem.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to store reminder %s: %w", rem.Key, err)
	}
	return nil
}

// Get returns the pending reminder for key, or nil if there is none
func (r *ReminderRepository) Get(ctx context.Context, key string) (*models.Reminder, error) {
	query := "SELECT " + reminderColumns + " FROM reminders WHERE activity_id = ?"
	rem, err := scanReminder(r.db.QueryRowContext(ctx, query, key))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder %s: %w", key, err)
	}
	return rem, nil
}

// Delete removes the reminder for key and reports whether one existed
func (r *ReminderRepository) Delete(ctx context.Context, key string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM reminders WHERE activity_id = ?", key)
	if err != nil {
		return false, fmt.Errorf("failed to delete reminder %s: %w", key, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return rows > 0, nil
}

// DeleteFired removes the reminder for key only if it still fires at firedAt, so a
// reminder rescheduled while firing is kept
func (r *ReminderRepository) DeleteFired(ctx context.Context, key string, firedAt time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM reminders WHERE activity_id = ? AND fire_at = ?", key, firedAt.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to delete fired reminder %s: %w", key, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return rows > 0, nil
}

// ListAll returns every pending reminder ordered by fire time
func (r *ReminderRepository) ListAll(ctx context.Context) ([]models.Reminder, error) {
	return r.list(ctx, "SELECT "+reminderColumns+" FROM reminders ORDER BY fire_at")
}

// ListDue returns reminders of the given mode whose fire time is at or before now
func (r *ReminderRepository) ListDue(ctx context.Context, mode models.DeliveryMode, now time.Time) ([]models.Reminder, error) {
	query := "SELECT " + reminderColumns + " FROM reminders WHERE mode = ? AND fire_at <= ? ORDER BY fire_at"
	return r.list(ctx, query, string(mode), now.UnixMilli())
}

func (r *ReminderRepository) list(ctx context.Context, query string, args ...any) ([]models.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []models.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, *rem)
	}
	return reminders, rows.Err()
}

func scanReminder(row rowScanner) (*models.Reminder, error) {
	var (
		rem       models.Reminder
		userID    string
		fireAt    int64
		mode      string
		payload   string
		createdAt int64
	)
	if err := row.Scan(&rem.Key, &userID, &fireAt, &mode, &payload, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &rem.Payload); err != nil {
		return nil, fmt.Errorf("reminder %s: invalid payload: %w", rem.Key, err)
	}
	rem.Payload.UserID = userID
	rem.FireAt = time.UnixMilli(fireAt)
	rem.Mode = models.DeliveryMode(mode)
	rem.CreatedAt = time.UnixMilli(createdAt)
	return &rem, nil
}
