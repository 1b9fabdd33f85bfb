package casino

import (
	"fmt"
	"math"

	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

// Question is a multiple-choice question; Answer indexes Options
type Question struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Answer  int      `json:"answer"`
}

var QuestionBank = []Question{
	{Prompt: "Which language is most used for web development?", Options: []string{"Python", "JavaScript", "Java", "C++"}, Answer: 1},
	{Prompt: "Which of these is NOT a JavaScript framework?", Options: []string{"React", "Angular", "Django", "Vue"}, Answer: 2},
	{Prompt: "What does API stand for?", Options: []string{"Application Programming Interface", "Automated Programming Interface", "Advanced Programming Interface", "Application Process Integration"}, Answer: 0},
	{Prompt: "Which of these is NOT a markup language?", Options: []string{"HTML", "XML", "Markdown", "Python"}, Answer: 3},
	{Prompt: "Which language is used to style web pages?", Options: []string{"CSS", "SQL", "PHP", "Go"}, Answer: 0},
	{Prompt: "In object-oriented programming, what is encapsulation?", Options: []string{"Inheriting behavior", "Hiding data behind an interface", "Overloading methods", "Creating objects"}, Answer: 1},
	{Prompt: "Which kind of database does not use fixed tables and schemas?", Options: []string{"NoSQL", "Relational", "Spreadsheet", "Ledger"}, Answer: 0},
	{Prompt: "Which protocol do browsers use to load web pages?", Options: []string{"HTTP", "FTP", "SMTP", "SSH"}, Answer: 0},
	{Prompt: "What does HTML stand for?", Options: []string{"HyperText Markup Language", "HighText Machine Language", "Hyperlink Text Management Language", "Home Tool Markup Language"}, Answer: 0},
	{Prompt: "Which operator assigns a value in JavaScript?", Options: []string{"==", "===", "=", "=>"}, Answer: 2},
}

// QuizConfig is the parameter table of one quiz difficulty
type QuizConfig struct {
	Questions  int
	Multiplier float64
	Reward     int64
	XP         int64 // per correct answer
	Fragments  FragmentTable
}

var QuizConfigs = map[entities.Difficulty]QuizConfig{
	entities.DifficultyEasy:   {Questions: 3, Multiplier: 1.5, Reward: 50, XP: 5, Fragments: FragmentTable{70, 30, 10, 0, 0}},
	entities.DifficultyMedium: {Questions: 5, Multiplier: 2.0, Reward: 100, XP: 10, Fragments: FragmentTable{60, 40, 20, 5, 0}},
	entities.DifficultyHard:   {Questions: 7, Multiplier: 3.0, Reward: 200, XP: 20, Fragments: FragmentTable{50, 40, 30, 15, 5}},
}

// Quiz is one run through sampled questions, stored between answers
type Quiz struct {
	Difficulty entities.Difficulty `json:"difficulty"`
	Questions  []int               `json:"questions"` // indexes into QuestionBank
	Current    int                 `json:"current"`
	Correct    int                 `json:"correct"`
}

func quizConfig(d entities.Difficulty) (QuizConfig, error) {
	cfg, ok := QuizConfigs[d]
	if !ok {
		return QuizConfig{}, types.Errorf(types.ErrInvalidArgument, "unknown difficulty %q", d)
	}
	return cfg, nil
}

// NewQuiz samples the difficulty's number of questions without replacement
func NewQuiz(src rng.Source, difficulty entities.Difficulty) (*Quiz, error) {
	cfg, err := quizConfig(difficulty)
	if err != nil {
		return nil, err
	}

	n := cfg.Questions
	if n > len(QuestionBank) {
		n = len(QuestionBank)
	}
	pool := make([]int, len(QuestionBank))
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < n; i++ {
		j := i + src.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}

	return &Quiz{Difficulty: difficulty, Questions: pool[:n]}, nil
}

// Question returns the question waiting for an answer, nil when finished
func (q *Quiz) Question() *Question {
	if q.Finished() {
		return nil
	}
	return &QuestionBank[q.Questions[q.Current]]
}

// Finished reports whether every question was answered
func (q *Quiz) Finished() bool {
	return q.Current >= len(q.Questions)
}

// Answer records a choice for the current question and reports whether it
// was right
func (q *Quiz) Answer(choice int) (bool, error) {
	question := q.Question()
	if question == nil {
		return false, types.NewError(types.ErrInvalidState, "the quiz is over")
	}
	if choice < 0 || choice >= len(question.Options) {
		return false, types.Errorf(types.ErrInvalidArgument, "choice must be between 1 and %d", len(question.Options))
	}

	correct := choice == question.Answer
	if correct {
		q.Correct++
	}
	q.Current++
	return correct, nil
}

// Accuracy returns the share of right answers, 0-1
func (q *Quiz) Accuracy() float64 {
	if len(q.Questions) == 0 {
		return 0
	}
	return float64(q.Correct) / float64(len(q.Questions))
}

// QuizPayout is floor(base * (correct/total) * multiplier), evaluated in that
// order in float64. Ratios such as 1/3 and 2/3 round down at the boundary:
// easy 1/3 pays 24 and easy 2/3 pays 49.
func QuizPayout(base int64, correct, total int, multiplier float64) int64 {
	if total <= 0 || correct <= 0 {
		return 0
	}
	ratio := float64(correct) / float64(total)
	return int64(math.Floor(float64(base) * ratio * multiplier))
}

// Result computes the prize of a finished quiz. Coins are
// floor(base*accuracy*multiplier), xp is per right answer, and fragment
// chances are halved below 50% accuracy and raised by half on a perfect run.
func (q *Quiz) Result(src rng.Source) (*entities.Outcome, error) {
	cfg, err := quizConfig(q.Difficulty)
	if err != nil {
		return nil, err
	}
	if !q.Finished() {
		return nil, types.NewError(types.ErrInvalidState, "the quiz is still running")
	}

	accuracy := q.Accuracy()
	o := &entities.Outcome{
		Game:   entities.GameQuiz,
		Result: entities.StringResultLose,
		Payout: QuizPayout(cfg.Reward, q.Correct, len(q.Questions), cfg.Multiplier),
		XP:     cfg.XP * int64(q.Correct),
		Detail: fmt.Sprintf("%s: %d/%d correct", q.Difficulty, q.Correct, len(q.Questions)),
	}
	if accuracy >= 0.5 {
		o.Result = entities.StringResultWin
	}

	table := cfg.Fragments
	switch {
	case accuracy < 0.5:
		table = table.Scale(0.5)
	case accuracy == 1:
		table = table.Scale(1.5)
	}
	o.Fragments = RollFragments(src, table)
	return o, nil
}
