package entities

import "time"

// JailRecord blocks an account from robbery until release
type JailRecord struct {
	AccountID string
	Reason    string
	Fine      int64
	JailedAt  time.Time
	ReleaseAt time.Time
}

// Jailed reports whether the sentence is still running
func (j *JailRecord) Jailed(now time.Time) bool {
	return now.Before(j.ReleaseAt)
}

// RobberyResult is the resolved outcome of one attempt
type RobberyResult string

const (
	RobberySuccess RobberyResult = "success"
	RobberyCaught  RobberyResult = "caught"
	RobberyFailed  RobberyResult = "failed"
)

// RobberyAttempt records one robbery for statistics
type RobberyAttempt struct {
	RobberID    string
	VictimID    string
	Result      RobberyResult
	Amount      int64 // stolen on success
	Fine        int64 // paid when caught
	JailMinutes int
	At          time.Time
}

// RobberyStats aggregates an account's attempts
type RobberyStats struct {
	AccountID   string
	Attempts    int
	Successes   int
	Caught      int
	TotalStolen int64
	TotalFines  int64
	TimesRobbed int
	TotalLost   int64
}
