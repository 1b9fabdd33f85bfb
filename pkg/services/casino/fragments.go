package casino

import (
	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

// FragmentTable holds a percent drop chance per tier, common first
type FragmentTable [entities.TierCount]int

// Scale multiplies every chance by factor, rounding down and capping at 100
func (t FragmentTable) Scale(factor float64) FragmentTable {
	for i, p := range t {
		scaled := int(float64(p) * factor)
		if scaled > 100 {
			scaled = 100
		}
		t[i] = scaled
	}
	return t
}

// RollFragments rolls each tier in ascending order. Common drops 1-3,
// uncommon 1-2 and every rarer tier a single fragment.
func RollFragments(src rng.Source, table FragmentTable) entities.FragmentSet {
	var drops entities.FragmentSet
	for _, tier := range entities.FragmentTiers {
		if !rng.Chance(src, table[tier]) {
			continue
		}
		drops[tier] += dropQuantity(src, tier)
	}
	return drops
}

func dropQuantity(src rng.Source, tier entities.FragmentTier) int64 {
	switch tier {
	case entities.TierCommon:
		return int64(rng.Between(src, 1, 3))
	case entities.TierUncommon:
		return int64(rng.Between(src, 1, 2))
	default:
		return 1
	}
}
