package casino

import (
	"strings"

	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

// HangmanConfig is the parameter table of one hangman difficulty
type HangmanConfig struct {
	Lives      int
	Reward     int64
	XP         int64
	Categories []string
	Fragments  FragmentTable
}

var HangmanConfigs = map[entities.Difficulty]HangmanConfig{
	entities.DifficultyEasy: {
		Lives: 8, Reward: 150, XP: 10,
		Categories: []string{"animals", "fruits", "colors"},
		Fragments:  FragmentTable{80, 30, 10, 0, 0},
	},
	entities.DifficultyMedium: {
		Lives: 6, Reward: 250, XP: 20,
		Categories: []string{"countries", "sports", "jobs", "animals"},
		Fragments:  FragmentTable{90, 40, 20, 5, 0},
	},
	entities.DifficultyHard: {
		Lives: 5, Reward: 400, XP: 30,
		Categories: []string{"movies", "objects", "technology", "mythology"},
		Fragments:  FragmentTable{100, 60, 30, 10, 3},
	},
}

// HangmanWords is the dictionary per category. Words are lowercase a-z;
// any other character is shown from the start.
var HangmanWords = map[string][]string{
	"animals":    {"cat", "dog", "elephant", "giraffe", "lion", "tiger", "zebra", "monkey", "hippopotamus", "penguin"},
	"fruits":     {"banana", "apple", "orange", "grape", "strawberry", "pineapple", "watermelon", "kiwi", "mango", "pear"},
	"colors":     {"red", "blue", "green", "yellow", "purple", "orange", "black", "white", "gray", "pink"},
	"countries":  {"brazil", "argentina", "portugal", "spain", "italy", "france", "germany", "england", "china", "japan"},
	"sports":     {"football", "basketball", "volleyball", "swimming", "athletics", "cycling", "tennis", "boxing", "golf", "chess"},
	"jobs":       {"doctor", "teacher", "lawyer", "engineer", "programmer", "cook", "architect", "driver", "pilot", "journalist"},
	"movies":     {"matrix", "titanic", "interstellar", "avatar", "gladiator", "avengers", "inception", "hostage", "batman", "frozen"},
	"objects":    {"computer", "keyboard", "telephone", "charger", "controller", "bottle", "lamp", "umbrella", "clock", "calendar"},
	"technology": {"algorithm", "smartphone", "hardware", "software", "internet", "bluetooth", "computing", "intelligence", "reality", "cryptography"},
	"mythology":  {"zeus", "poseidon", "athena", "hercules", "minotaur", "medusa", "pegasus", "achilles", "phoenix", "chimera"},
}

// HangmanStatus is the state of a hangman game
type HangmanStatus string

const (
	HangmanPlaying   HangmanStatus = "playing"
	HangmanWon       HangmanStatus = "won"
	HangmanLost      HangmanStatus = "lost"
	HangmanAbandoned HangmanStatus = "abandoned"
)

// Hangman is one game. It is stored between guesses, so every field is
// exported for JSON.
type Hangman struct {
	Difficulty entities.Difficulty `json:"difficulty"`
	Category   string              `json:"category"`
	Word       string              `json:"word"`
	Used       []string            `json:"used"`
	Lives      int                 `json:"lives"`
	MaxLives   int                 `json:"max_lives"`
	Status     HangmanStatus       `json:"status"`
}

func hangmanConfig(d entities.Difficulty) (HangmanConfig, error) {
	cfg, ok := HangmanConfigs[d]
	if !ok {
		return HangmanConfig{}, types.Errorf(types.ErrInvalidArgument, "unknown difficulty %q", d)
	}
	return cfg, nil
}

// NewHangman picks a category of the difficulty, then a word from it
func NewHangman(src rng.Source, difficulty entities.Difficulty) (*Hangman, error) {
	cfg, err := hangmanConfig(difficulty)
	if err != nil {
		return nil, err
	}
	category := cfg.Categories[src.Intn(len(cfg.Categories))]
	words := HangmanWords[category]

	return &Hangman{
		Difficulty: difficulty,
		Category:   category,
		Word:       words[src.Intn(len(words))],
		Used:       []string{},
		Lives:      cfg.Lives,
		MaxLives:   cfg.Lives,
		Status:     HangmanPlaying,
	}, nil
}

func isLetter(r rune) bool {
	return r >= 'a' && r <= 'z'
}

func (h *Hangman) used(letter string) bool {
	for _, u := range h.Used {
		if u == letter {
			return true
		}
	}
	return false
}

// Guess plays one letter and reports whether the word contains it.
// Repeated letters and anything but a single letter are rejected without
// costing a life.
func (h *Hangman) Guess(input string) (bool, error) {
	if h.Status != HangmanPlaying {
		return false, types.NewError(types.ErrInvalidState, "this hangman game is over")
	}

	letter := strings.ToLower(strings.TrimSpace(input))
	if len(letter) != 1 || !isLetter(rune(letter[0])) {
		return false, types.Errorf(types.ErrInvalidArgument, "%q is not a letter", input)
	}
	if h.used(letter) {
		return false, types.Errorf(types.ErrInvalidArgument, "letter %q was already played", letter)
	}
	h.Used = append(h.Used, letter)

	hit := strings.Contains(h.Word, letter)
	if !hit {
		h.Lives--
	}

	switch {
	case h.Solved():
		h.Status = HangmanWon
	case h.Lives <= 0:
		h.Lives = 0
		h.Status = HangmanLost
	}
	return hit, nil
}

// Solved reports whether every letter of the word was played
func (h *Hangman) Solved() bool {
	for _, r := range h.Word {
		if isLetter(r) && !h.used(string(r)) {
			return false
		}
	}
	return true
}

// Masked renders the word with unplayed letters as underscores
func (h *Hangman) Masked() string {
	parts := make([]string, 0, len(h.Word))
	for _, r := range h.Word {
		if isLetter(r) && !h.used(string(r)) {
			parts = append(parts, "_")
			continue
		}
		parts = append(parts, string(r))
	}
	return strings.Join(parts, " ")
}

// GiveUp ends the game without a reward
func (h *Hangman) GiveUp() {
	if h.Status == HangmanPlaying {
		h.Status = HangmanAbandoned
	}
}

// Finished reports whether the game stopped taking guesses
func (h *Hangman) Finished() bool {
	return h.Status != HangmanPlaying
}

// Reward computes the prize of a won game: floor(base*(lives/max+0.5)) coins,
// the difficulty's xp, and fragments with chances raised by 30% when at least
// 70% of the lives are left. Lost games return a losing outcome.
func (h *Hangman) Reward(src rng.Source) (*entities.Outcome, error) {
	cfg, err := hangmanConfig(h.Difficulty)
	if err != nil {
		return nil, err
	}
	if h.Status == HangmanPlaying {
		return nil, types.NewError(types.ErrInvalidState, "the hangman game is still running")
	}

	o := &entities.Outcome{
		Game:   entities.GameHangman,
		Result: entities.StringResultLose,
		Detail: h.Category + ": " + h.Word,
	}
	if h.Status != HangmanWon {
		return o, nil
	}

	o.Result = entities.StringResultWin
	// base*(lives/max+0.5) in integers
	o.Payout = cfg.Reward * int64(2*h.Lives+h.MaxLives) / int64(2*h.MaxLives)
	o.XP = cfg.XP

	table := cfg.Fragments
	if float64(h.Lives) >= float64(h.MaxLives)*0.7 {
		table = table.Scale(1.3)
	}
	o.Fragments = RollFragments(src, table)
	return o, nil
}
