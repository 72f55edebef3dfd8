package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"visualroutine/internal/database"
	"visualroutine/internal/models"
	"visualroutine/internal/repository"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version    string           `json:"version"`
	ExportedAt time.Time        `json:"exported_at"`
	Users      []UserBackup     `json:"users"`
	Activities []ActivityBackup `json:"activities"`
	Stats      []StatsBackup    `json:"stats"`
	Unlocks    []UnlockBackup   `json:"unlocks"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash"`
	Name          string    `json:"name"`
	OAuthProvider string    `json:"oauth_provider"`
	OAuthSubject  string    `json:"oauth_subject"`
	ChildPINHash  string    `json:"child_pin_hash"`
	CreatedAt     time.Time `json:"created_at"`
}

// ActivityBackup represents an activity for backup. Steps are kept as raw JSON and
// decoded strictly on import.
type ActivityBackup struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Name             string          `json:"name"`
	Time             string          `json:"time"`
	PictogramID      int             `json:"pictogram_id"`
	PictogramKeyword string          `json:"pictogram_keyword"`
	Completed        bool            `json:"completed"`
	IsSequence       bool            `json:"is_sequence"`
	Steps            json.RawMessage `json:"steps"`
	CurrentStepIndex int             `json:"current_step_index"`
	CreatedAt        time.Time       `json:"created_at"`
}

// StatsBackup represents a user's stats for backup
type StatsBackup struct {
	UserID                   string `json:"user_id"`
	TotalActivitiesCompleted int    `json:"total_activities_completed"`
	ActivitiesCompletedToday int    `json:"activities_completed_today"`
	CurrentStreak            int    `json:"current_streak"`
	MaxStreak                int    `json:"max_streak"`
	LastActivityDate         string `json:"last_activity_date"`
	TotalPoints              int    `json:"total_points"`
	UnlockedAchievements     int    `json:"unlocked_achievements"`
	DaysActive               int    `json:"days_active"`
}

// UnlockBackup represents an achievement unlock for backup
type UnlockBackup struct {
	UserID        string `json:"user_id"`
	AchievementID string `json:"achievement_id"`
	UnlockedDate  int64  `json:"unlocked_date"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportTo(ctx, file); err != nil {
		return err
	}
	log.Printf("Database exported successfully to %s", outputPath)
	return nil
}

// ExportTo writes a complete backup as indented JSON
func (s *BackupService) ExportTo(ctx context.Context, w io.Writer) error {
	backup, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	log.Printf("Exported: %d users, %d activities, %d stats, %d unlocks",
		len(backup.Users), len(backup.Activities), len(backup.Stats), len(backup.Unlocks))
	return nil
}

// Snapshot reads every table into a BackupData
func (s *BackupService) Snapshot(ctx context.Context) (*BackupData, error) {
	backup := &BackupData{
		Version:    BackupVersion,
		ExportedAt: time.Now().UTC(),
		Users:      []UserBackup{},
		Activities: []ActivityBackup{},
		Stats:      []StatsBackup{},
		Unlocks:    []UnlockBackup{},
	}

	users, err := repository.NewUserRepository(s.db).GetAllUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	for _, u := range users {
		backup.Users = append(backup.Users, UserBackup{
			ID:            u.ID,
			Email:         u.Email,
			PasswordHash:  u.PasswordHash,
			Name:          u.Name,
			OAuthProvider: u.OAuthProvider,
			OAuthSubject:  u.OAuthSubject,
			ChildPINHash:  u.ChildPINHash,
			CreatedAt:     u.CreatedAt,
		})
	}

	activities, err := repository.NewActivityRepository(s.db).ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export activities: %w", err)
	}
	for _, a := range activities {
		steps, err := models.EncodeSteps(a.Steps)
		if err != nil {
			return nil, fmt.Errorf("failed to encode steps of %s: %w", a.ID, err)
		}
		backup.Activities = append(backup.Activities, ActivityBackup{
			ID:               a.ID,
			UserID:           a.UserID,
			Name:             a.Name,
			Time:             a.Time,
			PictogramID:      a.PictogramID,
			PictogramKeyword: a.PictogramKeyword,
			Completed:        a.Completed,
			IsSequence:       a.IsSequence,
			Steps:            steps,
			CurrentStepIndex: a.CurrentStepIndex,
			CreatedAt:        a.CreatedAt,
		})
	}

	stats, err := repository.NewStatsRepository(s.db).ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export stats: %w", err)
	}
	for _, st := range stats {
		backup.Stats = append(backup.Stats, StatsBackup{
			UserID:                   st.UserID,
			TotalActivitiesCompleted: st.TotalActivitiesCompleted,
			ActivitiesCompletedToday: st.ActivitiesCompletedToday,
			CurrentStreak:            st.CurrentStreak,
			MaxStreak:                st.MaxStreak,
			LastActivityDate:         st.LastActivityDate,
			TotalPoints:              st.TotalPoints,
			UnlockedAchievements:     st.UnlockedAchievements,
			DaysActive:               st.DaysActive,
		})
	}

	unlocks, err := repository.NewAchievementRepository(s.db).ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export unlocks: %w", err)
	}
	for _, u := range unlocks {
		backup.Unlocks = append(backup.Unlocks, UnlockBackup{
			UserID:        u.UserID,
			AchievementID: u.AchievementID,
			UnlockedDate:  u.UnlockedDateMillis(),
		})
	}

	return backup, nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(ctx context.Context, inputPath string) error {
	log.Printf("Starting database import from %s...", inputPath)

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file)
}

// ImportFromReader restores a database from a backup reader. Everything is written in
// one transaction, so a malformed entry leaves the database unchanged.
func (s *BackupService) ImportFromReader(ctx context.Context, reader io.Reader) error {
	var backup BackupData
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		// Import in order of dependencies
		if err := importUsers(ctx, tx, backup.Users); err != nil {
			return fmt.Errorf("failed to import users: %w", err)
		}
		if err := importActivities(ctx, tx, backup.Activities); err != nil {
			return fmt.Errorf("failed to import activities: %w", err)
		}
		if err := importStats(ctx, tx, backup.Stats); err != nil {
			return fmt.Errorf("failed to import stats: %w", err)
		}
		if err := importUnlocks(ctx, tx, backup.Unlocks); err != nil {
			return fmt.Errorf("failed to import unlocks: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Println("Database import completed successfully")
	return nil
}

func importUsers(ctx context.Context, tx *database.Tx, users []UserBackup) error {
	log.Printf("Importing %d users...", len(users))
	repo := repository.NewUserRepository(tx)
	for _, u := range users {
		user := &models.User{
			ID:            u.ID,
			Email:         u.Email,
			PasswordHash:  u.PasswordHash,
			Name:          u.Name,
			OAuthProvider: u.OAuthProvider,
			OAuthSubject:  u.OAuthSubject,
			ChildPINHash:  u.ChildPINHash,
			CreatedAt:     u.CreatedAt,
		}
		if err := repo.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("failed to import user %s: %w", u.ID, err)
		}
	}
	return nil
}

func importActivities(ctx context.Context, tx *database.Tx, activities []ActivityBackup) error {
	log.Printf("Importing %d activities...", len(activities))
	repo := repository.NewActivityRepository(tx)
	for _, a := range activities {
		steps, err := models.DecodeSteps(a.Steps)
		if err != nil {
			return fmt.Errorf("activity %s: %w", a.ID, err)
		}
		activity := &models.Activity{
			ID:               a.ID,
			UserID:           a.UserID,
			Name:             a.Name,
			Time:             a.Time,
			PictogramID:      a.PictogramID,
			PictogramKeyword: a.PictogramKeyword,
			Completed:        a.Completed,
			IsSequence:       a.IsSequence,
			Steps:            steps,
			CurrentStepIndex: a.CurrentStepIndex,
			CreatedAt:        a.CreatedAt,
		}
		if err := repo.Create(ctx, activity); err != nil {
			return fmt.Errorf("failed to import activity %s: %w", a.ID, err)
		}
	}
	return nil
}

func importStats(ctx context.Context, tx *database.Tx, stats []StatsBackup) error {
	log.Printf("Importing %d stats records...", len(stats))
	repo := repository.NewStatsRepository(tx)
	for _, st := range stats {
		record := models.UserStats{
			UserID:                   st.UserID,
			TotalActivitiesCompleted: st.TotalActivitiesCompleted,
			ActivitiesCompletedToday: st.ActivitiesCompletedToday,
			CurrentStreak:            st.CurrentStreak,
			MaxStreak:                st.MaxStreak,
			LastActivityDate:         st.LastActivityDate,
			TotalPoints:              st.TotalPoints,
			UnlockedAchievements:     st.UnlockedAchievements,
			DaysActive:               st.DaysActive,
		}
		if err := repo.Put(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func importUnlocks(ctx context.Context, tx *database.Tx, unlocks []UnlockBackup) error {
	log.Printf("Importing %d unlocks...", len(unlocks))
	repo := repository.NewAchievementRepository(tx)
	for _, u := range unlocks {
		if _, err := repo.MarkUnlocked(ctx, u.UserID, u.AchievementID, time.UnixMilli(u.UnlockedDate).UTC()); err != nil {
			return fmt.Errorf("failed to import unlock %s/%s: %w", u.UserID, u.AchievementID, err)
		}
	}
	return nil
}
