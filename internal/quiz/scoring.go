package quiz

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/phrazzld/chemlab/internal/domain"
	"golang.org/x/text/cases"
)

// minShortAnswerLength is exclusive: a short answer must be longer than this
// many characters to earn its point.
const minShortAnswerLength = 3

// scoreOption reports whether choosing option idx answers q correctly.
// Matching is exact.
func scoreOption(q domain.QuizQuestion, idx int) bool {
	return q.Options[idx] == q.CorrectAnswer
}

// scoreText reports whether text earns the point for a fitb or short answer
// question. Fill-in-the-blank compares the trimmed, case-folded text against
// the case-folded answer as stored. Short answers score on effort alone, since free text
// cannot be checked without the oracle.
func scoreText(q domain.QuizQuestion, text string) bool {
	switch q.Type {
	case domain.QuestionFITB:
		fold := cases.Fold()
		return fold.String(strings.TrimSpace(text)) == fold.String(q.CorrectAnswer)
	case domain.QuestionShortAnswer:
		return utf8.RuneCountInString(text) > minShortAnswerLength
	default:
		return false
	}
}

// Percentage returns round(score / total * 100), or 0 for an empty quiz.
func Percentage(score, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}
