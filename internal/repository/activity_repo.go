package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"visualroutine/internal/database"
	"visualroutine/internal/models"
)

const activityColumns = `id, user_id, name, time_of_day, pictogram_id, pictogram_keyword, completed, is_sequence, steps_json, current_step_index, created_at`

// ActivityRepository handles database operations for activities and their steps
type ActivityRepository struct {
	db database.DBTX
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db database.DBTX) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create inserts an activity. An empty ID is assigned a fresh UUID.
func (r *ActivityRepository) Create(ctx context.Context, a *models.Activity) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	steps, err := models.EncodeSteps(a.Steps)
	if err != nil {
		return fmt.Errorf("failed to encode steps: %w", err)
	}

	query := `
		INSERT INTO activities (` + activityColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		a.ID,
		a.UserID,
		a.Name,
		a.Time,
		a.PictogramID,
		a.PictogramKeyword,
		a.Completed,
		a.IsSequence,
		string(steps),
		a.CurrentStepIndex,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

// GetByID retrieves an activity, or ErrNotFound
func (r *ActivityRepository) GetByID(ctx context.Context, id string) (*models.Activity, error) {
	query := "SELECT " + activityColumns + " FROM activities WHERE id = ?"
	a, err := scanActivity(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity %s: %w", id, err)
	}
	return a, nil
}

// ListByUser returns a user's activities ordered by time of day
func (r *ActivityRepository) ListByUser(ctx context.Context, userID string) ([]models.Activity, error) {
	query := "SELECT " + activityColumns + " FROM activities WHERE user_id = ? ORDER BY time_of_day, created_at"
	return r.list(ctx, query, userID)
}

// ListAll returns every activity, used by backups
func (r *ActivityRepository) ListAll(ctx context.Context) ([]models.Activity, error) {
	return r.list(ctx, "SELECT "+activityColumns+" FROM activities ORDER BY user_id, time_of_day")
}

func (r *ActivityRepository) list(ctx context.Context, query string, args ...any) ([]models.Activity, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var activities []models.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}

// Update writes every mutable field of an activity
func (r *ActivityRepository) Update(ctx context.Context, a *models.Activity) error {
	if err := a.Validate(); err != nil {
		return err
	}
	steps, err := models.EncodeSteps(a.Steps)
	if err != nil {
		return fmt.Errorf("failed to encode steps: %w", err)
	}

	query := `
		UPDATE activities
		SET name = ?, time_of_day = ?, pictogram_id = ?, pictogram_keyword = ?, completed = ?,
			is_sequence = ?, steps_json = ?, current_step_index = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		a.Name,
		a.Time,
		a.PictogramID,
		a.PictogramKeyword,
		a.Completed,
		a.IsSequence,
		string(steps),
		a.CurrentStepIndex,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update activity %s: %w", a.ID, err)
	}
	return r.requireRow(ctx, result, a.ID)
}

// Delete removes an activity, or returns ErrNotFound
func (r *ActivityRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM activities WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete activity %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// requireRow maps a zero-row update to ErrNotFound. MySQL reports unchanged rows as
// unaffected, so a zero count is confirmed with a lookup.
func (r *ActivityRepository) requireRow(ctx context.Context, result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows > 0 {
		return nil
	}
	var exists int
	err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM activities WHERE id = ?", id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check activity %s: %w", id, err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return nil
}

func scanActivity(row rowScanner) (*models.Activity, error) {
	a := &models.Activity{}
	var steps string
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Name,
		&a.Time,
		&a.PictogramID,
		&a.PictogramKeyword,
		&a.Completed,
		&a.IsSequence,
		&steps,
		&a.CurrentStepIndex,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Steps, err = models.DecodeSteps([]byte(steps))
	if err != nil {
		return nil, fmt.Errorf("activity %s: %w", a.ID, err)
	}
	return a, nil
}
