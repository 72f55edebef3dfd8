// Package progress turns activity completions into user statistics and achievements.
//
// OnActivityCompleted is a pure reducer over models.UserStats. RuleEngine evaluates the
// fixed achievement catalog against a stats snapshot and unlocks each entry at most once.
// Pipeline chains the two against the persistence ports: load stats, reduce, save,
// evaluate rules, persist unlocks.
//
// Writes are serialized per user inside the process, and StatsStore.Save is expected to be
// a conditional write on UserStats.Version so that a second writer (another device) is
// detected with ErrStaleStats and the completion is re-applied to the fresh record.
package progress
