package progression

import (
	"encoding/json"

	"github.com/okian/ascend/internal/domain/model"
)

// LevelSet is an immutable set of levels.
type LevelSet struct {
	bits uint32
}

// NewLevelSet builds a set from levels; out-of-range levels are dropped.
func NewLevelSet(levels ...int) LevelSet {
	var s LevelSet
	for _, lvl := range levels {
		s = s.With(lvl)
	}
	return s
}

// With returns a copy of s containing level.
func (s LevelSet) With(level int) LevelSet {
	if !model.ValidLevel(level) {
		return s
	}
	return LevelSet{bits: s.bits | 1<<uint(level)}
}

// Has reports membership.
func (s LevelSet) Has(level int) bool {
	if !model.ValidLevel(level) {
		return false
	}
	return s.bits&(1<<uint(level)) != 0
}

// Empty reports whether the set has no levels.
func (s LevelSet) Empty() bool { return s.bits == 0 }

// Len returns the number of levels in the set.
func (s LevelSet) Len() int { return len(s.Levels()) }

// Max returns the highest level, or 0 for an empty set.
func (s LevelSet) Max() int {
	for lvl := model.MaxLevel; lvl >= model.MinLevel; lvl-- {
		if s.Has(lvl) {
			return lvl
		}
	}
	return 0
}

// Levels returns the members in ascending order. Never nil.
func (s LevelSet) Levels() []int {
	out := make([]int, 0, model.MaxLevel)
	for lvl := model.MinLevel; lvl <= model.MaxLevel; lvl++ {
		if s.Has(lvl) {
			out = append(out, lvl)
		}
	}
	return out
}

// Union returns s ∪ other.
func (s LevelSet) Union(other LevelSet) LevelSet {
	return LevelSet{bits: s.bits | other.bits}
}

// Diff returns the levels of s missing from other.
func (s LevelSet) Diff(other LevelSet) LevelSet {
	return LevelSet{bits: s.bits &^ other.bits}
}

// SubsetOf reports whether every level of s is in other.
func (s LevelSet) SubsetOf(other LevelSet) bool {
	return s.bits&^other.bits == 0
}

// HighestAvailable is max(set ∪ {1}). Level 1 is always available because
// its own tour is what generates the first events.
func HighestAvailable(s LevelSet) int {
	if m := s.Max(); m > model.MinLevel {
		return m
	}
	return model.MinLevel
}

// MarshalJSON encodes the set as an ascending array of levels.
func (s LevelSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Levels())
}
