package progress

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"visualroutine/internal/clock"
	"visualroutine/internal/models"
)

// ErrStoreUnavailable wraps any persistence failure in the completion pipeline
var ErrStoreUnavailable = errors.New("progress store unavailable")

// AchievementStore persists write-once unlock records
type AchievementStore interface {
	IsUnlocked(ctx context.Context, userID, achievementID string) (bool, error)
	// MarkUnlocked writes the record if absent and reports whether this call created it
	MarkUnlocked(ctx context.Context, userID, achievementID string, at time.Time) (bool, error)
	// CountUnlocked returns how many unlock records the user holds
	CountUnlocked(ctx context.Context, userID string) (int, error)
}

// UnlockNotifier receives one call per newly unlocked achievement
type UnlockNotifier interface {
	OnAchievementUnlocked(ctx context.Context, userID string, achievement models.Achievement)
}

// RuleEngine unlocks catalog achievements whose rule holds for a stats snapshot
type RuleEngine struct {
	store    AchievementStore
	notifier UnlockNotifier
	clock    clock.Clock
	catalog  []models.Achievement
}

// NewRuleEngine creates a rule engine over the built-in catalog
func NewRuleEngine(store AchievementStore, notifier UnlockNotifier, clk clock.Clock) *RuleEngine {
	return &RuleEngine{
		store:    store,
		notifier: notifier,
		clock:    clk,
		catalog:  Catalog(),
	}
}

// Evaluate checks every achievement that is not yet unlocked for the user and unlocks the
// ones that qualify. It returns the stats with UnlockedAchievements incremented once per
// new unlock, and the newly unlocked entries. Evaluating the same snapshot again unlocks
// nothing.
//
// On a store failure the unlocks made so far are returned with an error wrapping
// ErrStoreUnavailable.
func (e *RuleEngine) Evaluate(ctx context.Context, stats models.UserStats) (models.UserStats, []models.Achievement, error) {
	var unlocked []models.Achievement

	for _, achievement := range e.catalog {
		done, err := e.store.IsUnlocked(ctx, stats.UserID, achievement.ID)
		if err != nil {
			return stats, unlocked, fmt.Errorf("%w: check %s: %v", ErrStoreUnavailable, achievement.ID, err)
		}
		if done || !Qualifies(achievement, stats) {
			continue
		}

		created, err := e.store.MarkUnlocked(ctx, stats.UserID, achievement.ID, e.clock.Now())
		if err != nil {
			return stats, unlocked, fmt.Errorf("%w: unlock %s: %v", ErrStoreUnavailable, achievement.ID, err)
		}
		if !created {
			continue
		}

		stats.UnlockedAchievements++
		unlocked = append(unlocked, achievement)
		log.Printf("Achievement unlocked for user %s: %s", stats.UserID, achievement.ID)

		if e.notifier != nil {
			e.notifier.OnAchievementUnlocked(ctx, stats.UserID, achievement)
		}
	}

	return stats, unlocked, nil
}

// UnlockedCount returns the number of unlock records held by the user
func (e *RuleEngine) UnlockedCount(ctx context.Context, userID string) (int, error) {
	n, err := e.store.CountUnlocked(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: count unlocks: %v", ErrStoreUnavailable, err)
	}
	return n, nil
}
