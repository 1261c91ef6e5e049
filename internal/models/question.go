package models

type QuestionType string

const (
	MultipleChoice  QuestionType = "multiple_choice"
	NumericalAnswer QuestionType = "numerical"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "Easy"
	DifficultyMedium DifficultyLevel = "Medium"
	DifficultyHard   DifficultyLevel = "Hard"
)

// Question is an immutable snapshot of a single test question. The option
// referenced by CorrectAnswer is zero-based into Options.
type Question struct {
	ID            string          `json:"id" validate:"required"`
	Text          string          `json:"text" validate:"required"`
	Options       []string        `json:"options"`
	CorrectAnswer int             `json:"correct_answer"`
	Explanation   string          `json:"explanation,omitempty"`
	Subject       string          `json:"subject,omitempty"`
	Difficulty    DifficultyLevel `json:"difficulty,omitempty"`
	Type          QuestionType    `json:"type,omitempty"`
}

// MarksPerQuestion is the credit awarded for a correct answer. Total marks for
// an attempt are len(questions) * MarksPerQuestion.
const MarksPerQuestion = 2
