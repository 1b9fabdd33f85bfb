package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPremiumActive(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	acct := NewAccount("1", "ana", now)
	assert.False(t, acct.PremiumActive(now))

	acct.Premium = true
	assert.False(t, acct.PremiumActive(now), "premium without expiry is inactive")

	acct.PremiumUntil = &future
	assert.True(t, acct.PremiumActive(now))

	acct.PremiumUntil = &past
	assert.False(t, acct.PremiumActive(now))
}

func TestFragmentTierKeys(t *testing.T) {
	for _, tier := range FragmentTiers {
		parsed, ok := ParseFragmentTier(tier.Key())
		assert.True(t, ok)
		assert.Equal(t, tier, parsed)

		parsed, ok = ParseFragmentTier(tier.String())
		assert.True(t, ok)
		assert.Equal(t, tier, parsed)
	}

	assert.Equal(t, "épico", TierEpic.Key())
	_, ok := ParseFragmentTier("mythic")
	assert.False(t, ok)
}

func TestFragmentSetShortfall(t *testing.T) {
	have := FragmentSet{}.With(TierCommon, 10).With(TierRare, 1)
	need := FragmentSet{5, 2, 3, 0, 0}

	assert.False(t, have.Covers(need))
	assert.Equal(t, map[FragmentTier]int64{TierUncommon: 2, TierRare: 2}, have.Shortfall(need))

	have = have.Add(FragmentSet{0, 2, 2, 0, 0})
	assert.True(t, have.Covers(need))
	assert.Equal(t, int64(15), have.Total())
}

func TestDiscountedPrice(t *testing.T) {
	assert.Equal(t, int64(850), DiscountedPrice(1000, 15))
	assert.Equal(t, int64(1000), DiscountedPrice(1000, 0))
	assert.Equal(t, int64(0), DiscountedPrice(1000, 100))
	assert.Equal(t, int64(699), DailyOffer{Item: ShopItem{Price: 999}, DiscountPercent: 30}.Price())
}

func TestLoanRemaining(t *testing.T) {
	now := time.Now()
	loan := &Loan{TotalDue: 5250, Paid: 5000, Status: LoanStatusActive, DueAt: now.Add(-time.Minute)}

	assert.Equal(t, int64(250), loan.Remaining())
	assert.True(t, loan.Overdue(now))

	loan.Paid = 6000
	assert.Zero(t, loan.Remaining())
}

func TestPlayerStatisticsRecord(t *testing.T) {
	stats := &PlayerStatistics{}
	stats.Record(&Outcome{Stake: 100, Payout: 1400, Result: StringResultWin})
	stats.Record(&Outcome{Stake: 100, Result: StringResultLose})

	assert.Equal(t, 2, stats.GamesPlayed)
	assert.Equal(t, int64(1200), stats.NetProfit())
	assert.InDelta(t, 50.0, stats.WinRate(), 0.001)
}
