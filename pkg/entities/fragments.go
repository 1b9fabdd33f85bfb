package entities

import "fmt"

// FragmentTier is a crafting material rarity, ordered common < legendary
type FragmentTier int

const (
	TierCommon FragmentTier = iota
	TierUncommon
	TierRare
	TierEpic
	TierLegendary
)

// TierCount is the number of fragment tiers
const TierCount = 5

// FragmentTiers lists every tier in ascending rarity
var FragmentTiers = []FragmentTier{TierCommon, TierUncommon, TierRare, TierEpic, TierLegendary}

// Stored keys are kept stable for existing databases.
var tierKeys = [TierCount]string{"comum", "incomum", "raro", "épico", "lendário"}

var tierNames = [TierCount]string{"common", "uncommon", "rare", "epic", "legendary"}

var tierEmoji = [TierCount]string{"⚪", "🟢", "🔵", "🟣", "🟡"}

// Key returns the persisted identifier of the tier
func (t FragmentTier) Key() string {
	if !t.Valid() {
		return ""
	}
	return tierKeys[t]
}

func (t FragmentTier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// Emoji returns the display marker for the tier
func (t FragmentTier) Emoji() string {
	if !t.Valid() {
		return ""
	}
	return tierEmoji[t]
}

func (t FragmentTier) Valid() bool {
	return t >= TierCommon && t <= TierLegendary
}

// ParseFragmentTier accepts either the persisted key or the english name
func ParseFragmentTier(s string) (FragmentTier, bool) {
	for i := 0; i < TierCount; i++ {
		if tierKeys[i] == s || tierNames[i] == s {
			return FragmentTier(i), true
		}
	}
	return 0, false
}

// FragmentSet holds one quantity per tier
type FragmentSet [TierCount]int64

// Get returns the quantity for a tier
func (s FragmentSet) Get(t FragmentTier) int64 {
	if !t.Valid() {
		return 0
	}
	return s[t]
}

// With returns a copy with qty added to a tier
func (s FragmentSet) With(t FragmentTier, qty int64) FragmentSet {
	if t.Valid() {
		s[t] += qty
	}
	return s
}

// Add returns the element-wise sum
func (s FragmentSet) Add(o FragmentSet) FragmentSet {
	for i := range s {
		s[i] += o[i]
	}
	return s
}

func (s FragmentSet) Total() int64 {
	var n int64
	for _, q := range s {
		n += q
	}
	return n
}

func (s FragmentSet) IsZero() bool {
	return s == FragmentSet{}
}

// Covers reports whether s holds at least need in every tier
func (s FragmentSet) Covers(need FragmentSet) bool {
	return len(s.Shortfall(need)) == 0
}

// Shortfall returns the missing quantity per tier, omitting satisfied tiers
func (s FragmentSet) Shortfall(need FragmentSet) map[FragmentTier]int64 {
	missing := map[FragmentTier]int64{}
	for _, t := range FragmentTiers {
		if s[t] < need[t] {
			missing[t] = need[t] - s[t]
		}
	}
	return missing
}
