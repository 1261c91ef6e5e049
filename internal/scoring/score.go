package scoring

import (
	"math"

	"github.com/prepstack/attempt-engine/internal/models"
)

// DefaultNegativeMarking is the penalty subtracted for an incorrect answer.
const DefaultNegativeMarking = 0.66

// Score computes the net score for a set of answers with negative marking.
// Per question: +models.MarksPerQuestion when the selected option matches the
// key, -negativeMarking when answered and wrong, 0 when unanswered. The result
// is rounded to two decimals on the cent value, half away from zero, to keep
// repeated penalties free of binary floating-point drift.
//
// Pure and order independent: iterating questions in any order yields the
// same value.
func Score(questions []models.Question, answers map[string]int, negativeMarking float64) float64 {
	var total float64
	for _, q := range questions {
		selected, ok := answers[q.ID]
		if !ok {
			continue
		}
		if selected == q.CorrectAnswer {
			total += models.MarksPerQuestion
		} else {
			total -= negativeMarking
		}
	}
	return roundCents(total)
}

// TotalMarks returns the maximum attainable score for a question set.
func TotalMarks(questions []models.Question) int {
	return len(questions) * models.MarksPerQuestion
}

func roundCents(v float64) float64 {
	cents := v * 100
	if cents < 0 {
		return math.Ceil(cents-0.5) / 100
	}
	return math.Floor(cents+0.5) / 100
}
