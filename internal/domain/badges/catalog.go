// Package badges holds the static achievement catalog, one badge per level.
package badges

import "github.com/okian/ascend/internal/domain/model"

// Rarity orders badges from common to mythic.
type Rarity int

// Rarity tiers in ascending order.
const (
	RarityCommon Rarity = iota + 1
	RarityRare
	RarityEpic
	RarityLegendary
	RarityMythic
)

var rarityNames = map[Rarity]string{
	RarityCommon:    "common",
	RarityRare:      "rare",
	RarityEpic:      "epic",
	RarityLegendary: "legendary",
	RarityMythic:    "mythic",
}

func (r Rarity) String() string {
	if name, ok := rarityNames[r]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the rarity by name.
func (r Rarity) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Definition is the display metadata for a level's badge.
type Definition struct {
	Level       int    `json:"level"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Rarity      Rarity `json:"rarity"`
	Points      int    `json:"points"`
	Color       string `json:"color"`
}

// catalog is ordered by level. Keep levels contiguous; clients key on them.
var catalog = [model.MaxLevel]Definition{
	{
		Level:       1,
		Name:        "Scout",
		Description: "Explored the job board and opened a first role.",
		Rarity:      RarityCommon,
		Points:      10,
		Color:       "#9CA3AF",
	},
	{
		Level:       2,
		Name:        "Connector",
		Description: "Submitted to several jobs at once or closed a placement.",
		Rarity:      RarityRare,
		Points:      25,
		Color:       "#3B82F6",
	},
	{
		Level:       3,
		Name:        "Recruiter",
		Description: "Submitted three candidates to open roles.",
		Rarity:      RarityEpic,
		Points:      50,
		Color:       "#8B5CF6",
	},
	{
		Level:       4,
		Name:        "Talent Magnet",
		Description: "Built a candidate pipeline and configured outreach.",
		Rarity:      RarityLegendary,
		Points:      100,
		Color:       "#F59E0B",
	},
	{
		Level:       5,
		Name:        "Rainmaker",
		Description: "Made a placement and reviewed the analytics behind it.",
		Rarity:      RarityMythic,
		Points:      250,
		Color:       "#EF4444",
	},
}

// All returns a copy of the catalog ordered by level.
func All() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog[:])
	return out
}

// ForLevel returns the badge for level.
func ForLevel(level int) (Definition, bool) {
	if !model.ValidLevel(level) {
		return Definition{}, false
	}
	return catalog[level-1], true
}

// TotalPoints sums the points of the given levels. Unknown levels and
// duplicates are ignored.
func TotalPoints(levels []int) int {
	seen := make(map[int]struct{}, len(levels))
	total := 0
	for _, lvl := range levels {
		if _, dup := seen[lvl]; dup {
			continue
		}
		seen[lvl] = struct{}{}
		if def, ok := ForLevel(lvl); ok {
			total += def.Points
		}
	}
	return total
}
