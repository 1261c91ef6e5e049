package models

// MockQuestions is the static fallback set used when the question bank
// returns nothing for a test. Keeps a session startable offline.
func MockQuestions() []Question {
	return []Question{
		{
			ID:            "mock-q1",
			Text:          "If 12 men can finish a work in 18 days, how many days will 9 men take?",
			Options:       []string{"20", "22", "24", "27"},
			CorrectAnswer: 2,
			Explanation:   "Work is constant: 12 x 18 = 9 x d, so d = 24.",
			Subject:       "Quantitative Aptitude",
			Difficulty:    DifficultyMedium,
			Type:          MultipleChoice,
		},
		{
			ID:            "mock-q2",
			Text:          "Choose the word most nearly opposite in meaning to CANDID.",
			Options:       []string{"Frank", "Evasive", "Blunt", "Honest"},
			CorrectAnswer: 1,
			Subject:       "English",
			Difficulty:    DifficultyEasy,
			Type:          MultipleChoice,
		},
		{
			ID:            "mock-q3",
			Text:          "Which article of the Constitution deals with the Right to Equality?",
			Options:       []string{"Article 14", "Article 19", "Article 21", "Article 32"},
			CorrectAnswer: 0,
			Subject:       "General Awareness",
			Difficulty:    DifficultyMedium,
			Type:          MultipleChoice,
		},
		{
			ID:            "mock-q4",
			Text:          "Find the next number in the series: 2, 6, 12, 20, 30, ?",
			Options:       []string{"40", "42", "44", "46"},
			CorrectAnswer: 1,
			Explanation:   "Differences grow by 2: 4, 6, 8, 10, 12.",
			Subject:       "Reasoning",
			Difficulty:    DifficultyEasy,
			Type:          MultipleChoice,
		},
		{
			ID:            "mock-q5",
			Text:          "A train 150 m long crosses a pole in 15 seconds. Its speed is:",
			Options:       []string{"10 m/s", "12 m/s", "15 m/s", "20 m/s"},
			CorrectAnswer: 0,
			Subject:       "Quantitative Aptitude",
			Difficulty:    DifficultyEasy,
			Type:          MultipleChoice,
		},
	}
}
