package models

import (
	"database/sql/driver"
	"fmt"
)

// MasteryLevel is a stage on the six-step familiarity scale shared by topics and words.
type MasteryLevel int

const (
	NotStarted MasteryLevel = iota
	Seen
	Learning
	Practiced
	Known
	Mastered
)

var masteryLevelNames = [...]string{
	NotStarted: "NotStarted",
	Seen:       "Seen",
	Learning:   "Learning",
	Practiced:  "Practiced",
	Known:      "Known",
	Mastered:   "Mastered",
}

// MasteryLevels lists every level in ascending order
func MasteryLevels() []MasteryLevel {
	return []MasteryLevel{NotStarted, Seen, Learning, Practiced, Known, Mastered}
}

// Valid reports whether l is one of the six defined levels
func (l MasteryLevel) Valid() bool {
	return l >= NotStarted && l <= Mastered
}

func (l MasteryLevel) String() string {
	if !l.Valid() {
		return fmt.Sprintf("MasteryLevel(%d)", int(l))
	}
	return masteryLevelNames[l]
}

// ParseMasteryLevel converts a stored level name back to a MasteryLevel
func ParseMasteryLevel(s string) (MasteryLevel, error) {
	for i, name := range masteryLevelNames {
		if name == s {
			return MasteryLevel(i), nil
		}
	}
	return NotStarted, fmt.Errorf("unknown mastery level %q", s)
}

// MarshalText encodes the level by name so JSON and YAML stay readable
func (l MasteryLevel) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid mastery level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText rejects anything outside the six known names
func (l *MasteryLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseMasteryLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Value stores the level as its name
func (l MasteryLevel) Value() (driver.Value, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid mastery level %d", int(l))
	}
	return l.String(), nil
}

// Scan reads a level name written by Value
func (l *MasteryLevel) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return l.UnmarshalText([]byte(v))
	case []byte:
		return l.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into MasteryLevel", src)
	}
}
