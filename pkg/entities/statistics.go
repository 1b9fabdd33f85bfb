package entities

// LeaderboardKind selects the column a leaderboard ranks by
type LeaderboardKind string

const (
	LeaderboardCoins    LeaderboardKind = "coins"
	LeaderboardLevel    LeaderboardKind = "level"
	LeaderboardMessages LeaderboardKind = "messages"
)

// LeaderboardEntry is one ranked row
type LeaderboardEntry struct {
	Rank      int
	AccountID string
	Username  string
	Coins     int64
	Level     int
	XP        int64
	Messages  int64
}

// Value returns the figure the board is ranked by
func (e *LeaderboardEntry) Value(kind LeaderboardKind) int64 {
	switch kind {
	case LeaderboardLevel:
		return int64(e.Level)
	case LeaderboardMessages:
		return e.Messages
	default:
		return e.Coins
	}
}

// PlayerStatistics represents aggregated game results for a player
type PlayerStatistics struct {
	AccountID     string
	Game          GameKind
	GamesPlayed   int
	Wins          int
	Losses        int
	TotalBet      int64
	TotalWinnings int64
}

// NetProfit calculates the player's net profit
func (s *PlayerStatistics) NetProfit() int64 {
	return s.TotalWinnings - s.TotalBet
}

// WinRate calculates the player's win rate as a percentage
func (s *PlayerStatistics) WinRate() float64 {
	if s.GamesPlayed == 0 {
		return 0.0
	}
	return float64(s.Wins) / float64(s.GamesPlayed) * 100.0
}

// Record folds one outcome into the statistics
func (s *PlayerStatistics) Record(o *Outcome) {
	s.GamesPlayed++
	s.TotalBet += o.Stake
	s.TotalWinnings += o.Payout
	if o.Won() {
		s.Wins++
	} else {
		s.Losses++
	}
}
