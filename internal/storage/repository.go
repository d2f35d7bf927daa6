package storage

import (
	"context"
	"errors"
)

// ErrEmptyKey is returned when a key is blank
var ErrEmptyKey = errors.New("storage key is required")

// Store is the durable key/value port used for selection state.
// Values are plain strings; a missing key reports ok=false.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Backend holds the durable namespaces of every profile
type Backend interface {
	// For returns the store of a single profile
	For(profileID string) Store

	// Clear removes every key of a profile
	Clear(ctx context.Context, profileID string) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}

// Keys used by the selection state
const LanguageKey = "lang"

// CourseKey is the key remembering the course chosen for lang
func CourseKey(lang string) string {
	return "selectedCourse-" + lang
}

// LevelKey is the key remembering the level chosen for lang/courseID
func LevelKey(lang, courseID string) string {
	return "selectedLevel-" + lang + "-" + courseID
}
