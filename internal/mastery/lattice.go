package mastery

import "github.com/example/engprogress/pkg/models"

// Advance moves one step up the lattice on success and leaves the level unchanged otherwise.
// Mastered is a ceiling.
func Advance(level models.MasteryLevel, success bool) models.MasteryLevel {
	if !success || level >= models.Mastered {
		return level
	}
	return level + 1
}

// Regress moves one step down. NotStarted and Seen are floors, so a miss on a
// fresh item never drops it below Seen.
func Regress(level models.MasteryLevel) models.MasteryLevel {
	if level <= models.Seen {
		return level
	}
	return level - 1
}
