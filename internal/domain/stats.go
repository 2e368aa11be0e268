package domain

import "math"

// UserStats holds the process-wide learning counters. TotalScore is the sum
// of quiz percentages, not an average.
type UserStats struct {
	QuizzesTaken       int `json:"quizzesTaken"`
	TotalScore         int `json:"totalScore"`
	ReactionsMastered  int `json:"reactionsMastered"`
	MoleculesGenerated int `json:"moleculesGenerated"`
}

// AverageScore returns the rounded mean quiz percentage, or 0 before any quiz.
func (s UserStats) AverageScore() int {
	if s.QuizzesTaken == 0 {
		return 0
	}
	return int(math.Round(float64(s.TotalScore) / float64(s.QuizzesTaken)))
}
