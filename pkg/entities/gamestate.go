package entities

import "time"

// Result represents the outcome of a player's participation in a game
type Result interface {
	// String returns the string representation of the result
	String() string

	// IsWin returns true if this result represents a win
	IsWin() bool
}

// StringResult is a simple string-based implementation of Result
type StringResult string

// String returns the string representation of the result
func (r StringResult) String() string {
	return string(r)
}

// IsWin returns true if this result represents a win
func (r StringResult) IsWin() bool {
	return r == StringResultWin
}

// Common result constants
const (
	StringResultWin     StringResult = "WIN"
	StringResultLose    StringResult = "LOSE"
	StringResultPending StringResult = "PENDING"
)

// GameKind identifies a reward/risk game
type GameKind string

const (
	GameDice        GameKind = "dice"
	GameRoulette    GameKind = "roulette"
	GameNumberGuess GameKind = "guess"
	GameHangman     GameKind = "hangman"
	GameQuiz        GameKind = "quiz"
	GameRobbery     GameKind = "rob"
	GameRaffle      GameKind = "raffle"
)

// Difficulty selects a game's parameter table
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty accepts english or portuguese names
func ParseDifficulty(s string) (Difficulty, bool) {
	switch s {
	case "easy", "facil", "fácil":
		return DifficultyEasy, true
	case "medium", "medio", "médio":
		return DifficultyMedium, true
	case "hard", "dificil", "difícil":
		return DifficultyHard, true
	}
	return "", false
}

// Outcome is what a resolver decided; the caller applies it to the ledger
type Outcome struct {
	Game      GameKind
	AccountID string
	Stake     int64
	Payout    int64 // credited in full on a win; the stake was already debited
	Fragments FragmentSet
	XP        int64
	Result    StringResult
	Detail    string
	At        time.Time
}

// Won reports whether the outcome is a win
func (o *Outcome) Won() bool {
	return o.Result.IsWin()
}

// Net returns the signed balance change of the whole round
func (o *Outcome) Net() int64 {
	return o.Payout - o.Stake
}
