package progress

import (
	"context"
	"errors"
	"fmt"
	"log"

	"visualroutine/internal/clock"
	"visualroutine/internal/models"
)

const maxSaveAttempts = 3

var (
	// ErrStatsNotFound is returned by StatsStore.Load when a user has no stats yet
	ErrStatsNotFound = errors.New("user stats not found")

	// ErrStaleStats is returned by StatsStore.Save when the stored version moved on
	ErrStaleStats = errors.New("user stats were modified concurrently")
)

// StatsStore persists one UserStats record per user
type StatsStore interface {
	Load(ctx context.Context, userID string) (models.UserStats, error)
	// Save writes stats if the stored version still equals stats.Version and returns the
	// record with its new version
	Save(ctx context.Context, stats models.UserStats) (models.UserStats, error)
}

// CompletionResult is the outcome of one completion event
type CompletionResult struct {
	Stats    models.UserStats     `json:"stats"`
	Unlocked []models.Achievement `json:"unlocked"`
	// Recorded is true once the completion itself is persisted, even if a later
	// unlock step failed
	Recorded bool `json:"recorded"`
}

// Pipeline runs stats accumulation and achievement evaluation for completion events
type Pipeline struct {
	stats StatsStore
	rules *RuleEngine
	clock clock.Clock
	locks *KeyedMutex
	debug bool
}

// NewPipeline creates a completion pipeline
func NewPipeline(stats StatsStore, rules *RuleEngine, clk clock.Clock, debug bool) *Pipeline {
	return &Pipeline{
		stats: stats,
		rules: rules,
		clock: clk,
		locks: NewKeyedMutex(),
		debug: debug,
	}
}

// Locks exposes the per-user writer lock so other user-state mutations can share it
func (p *Pipeline) Locks() *KeyedMutex {
	return p.locks
}

// RecordCompletion applies a single completion for userID. The caller must already hold
// the user's lock from Locks().
//
// If the completion cannot be persisted the result carries the reduced stats with
// Recorded false, so the caller can undo its own writes and retry later. Failures after
// that point leave Recorded true. Every error wraps ErrStoreUnavailable.
func (p *Pipeline) RecordCompletion(ctx context.Context, userID string) (CompletionResult, error) {
	today := p.clock.Now().Format(models.DateLayout)

	saved, reduced, err := p.applyCompletion(ctx, userID, today)
	if err != nil {
		return CompletionResult{Stats: reduced}, err
	}

	withUnlocks, unlocked, evalErr := p.rules.Evaluate(ctx, saved)
	result := CompletionResult{Stats: withUnlocks, Unlocked: unlocked, Recorded: true}

	// the counter follows the unlock records, which also repairs a count left behind
	// by an earlier failed save
	held, err := p.rules.UnlockedCount(ctx, userID)
	if err != nil {
		return result, err
	}
	if held != saved.UnlockedAchievements {
		final, err := p.saveUnlockCount(ctx, withUnlocks, held)
		if err != nil {
			return result, err
		}
		result.Stats = final
	}
	if evalErr != nil {
		return result, evalErr
	}

	if p.debug {
		log.Printf("[DEBUG] completion for %s: total=%d today=%d streak=%d unlocked=%d",
			userID, result.Stats.TotalActivitiesCompleted, result.Stats.ActivitiesCompletedToday, result.Stats.CurrentStreak, len(unlocked))
	}

	return result, nil
}

// applyCompletion loads, reduces and conditionally saves, re-reading on version conflicts
func (p *Pipeline) applyCompletion(ctx context.Context, userID, today string) (saved, reduced models.UserStats, err error) {
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		current, err := p.load(ctx, userID)
		if err != nil {
			return models.UserStats{}, OnActivityCompleted(models.NewUserStats(userID), today), err
		}

		reduced = OnActivityCompleted(current, today)
		saved, err = p.stats.Save(ctx, reduced)
		if err == nil {
			return saved, reduced, nil
		}
		if !errors.Is(err, ErrStaleStats) {
			return models.UserStats{}, reduced, fmt.Errorf("%w: save stats: %v", ErrStoreUnavailable, err)
		}
		log.Printf("Stats for %s changed concurrently, retrying (attempt %d)", userID, attempt)
	}
	return models.UserStats{}, reduced, fmt.Errorf("%w: save stats: %v", ErrStoreUnavailable, ErrStaleStats)
}

// saveUnlockCount stores held as the unlock counter, re-reading the record if another
// writer got in first
func (p *Pipeline) saveUnlockCount(ctx context.Context, stats models.UserStats, held int) (models.UserStats, error) {
	stats.UnlockedAchievements = held
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		saved, err := p.stats.Save(ctx, stats)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, ErrStaleStats) {
			return stats, fmt.Errorf("%w: save unlock count: %v", ErrStoreUnavailable, err)
		}

		fresh, err := p.load(ctx, stats.UserID)
		if err != nil {
			return stats, err
		}
		fresh.UnlockedAchievements = held
		stats = fresh
	}
	return stats, fmt.Errorf("%w: save unlock count: %v", ErrStoreUnavailable, ErrStaleStats)
}

// load returns the stored stats, or a fresh record for a user with none
func (p *Pipeline) load(ctx context.Context, userID string) (models.UserStats, error) {
	stats, err := p.stats.Load(ctx, userID)
	if errors.Is(err, ErrStatsNotFound) {
		return models.NewUserStats(userID), nil
	}
	if err != nil {
		return models.UserStats{}, fmt.Errorf("%w: load stats: %v", ErrStoreUnavailable, err)
	}
	return stats, nil
}

// CurrentStats returns the user's stats as seen today without modifying them
func (p *Pipeline) CurrentStats(ctx context.Context, userID string) (models.UserStats, error) {
	stats, err := p.load(ctx, userID)
	if err != nil {
		return models.UserStats{}, err
	}
	stats.ActivitiesCompletedToday = stats.ActivitiesToday(p.clock.Now().Format(models.DateLayout))
	return stats, nil
}
