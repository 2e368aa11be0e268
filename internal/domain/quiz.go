package domain

import (
	"fmt"
	"slices"
)

// QuestionType tags the variant of a quiz question.
type QuestionType string

// Supported question types.
const (
	QuestionMCQ         QuestionType = "mcq"
	QuestionFITB        QuestionType = "fitb"
	QuestionShortAnswer QuestionType = "short_answer"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMCQ, QuestionFITB, QuestionShortAnswer:
		return true
	default:
		return false
	}
}

// QuizQuestion is a single question of a quiz. Options are present only for
// multiple choice questions.
type QuizQuestion struct {
	ID            int          `json:"id"`
	Type          QuestionType `json:"type"`
	Question      string       `json:"question"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer"`
	Explanation   string       `json:"explanation"`
}

// Validate enforces the tagged variant: an mcq question carries a non-empty
// option list containing the exact correct answer, every other type carries
// no options at all.
func (q QuizQuestion) Validate() error {
	if !q.Type.Valid() {
		return fmt.Errorf("%w: question %d has unknown type %q", ErrInvalidQuestion, q.ID, q.Type)
	}
	if q.Question == "" {
		return fmt.Errorf("%w: question %d has no text", ErrInvalidQuestion, q.ID)
	}

	if q.Type == QuestionMCQ {
		if len(q.Options) == 0 {
			return fmt.Errorf("%w: mcq question %d has no options", ErrInvalidQuestion, q.ID)
		}
		if !slices.Contains(q.Options, q.CorrectAnswer) {
			return fmt.Errorf("%w: mcq question %d correct answer is not one of its options", ErrInvalidQuestion, q.ID)
		}
		return nil
	}

	if len(q.Options) > 0 {
		return fmt.Errorf("%w: %s question %d must not carry options", ErrInvalidQuestion, q.Type, q.ID)
	}
	if q.CorrectAnswer == "" && q.Type == QuestionFITB {
		return fmt.Errorf("%w: fitb question %d has no correct answer", ErrInvalidQuestion, q.ID)
	}
	return nil
}

// Clone returns a copy of the question with its own option slice.
func (q QuizQuestion) Clone() QuizQuestion {
	if q.Options != nil {
		q.Options = append([]string(nil), q.Options...)
	}
	return q
}

// Quiz is a topic and its fixed, ordered question list.
type Quiz struct {
	Topic     string         `json:"topic"`
	Questions []QuizQuestion `json:"questions"`
}

// Validate rejects quizzes without questions and any malformed question.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return ErrEmptyQuiz
	}
	for _, question := range q.Questions {
		if err := question.Validate(); err != nil {
			return err
		}
	}
	return nil
}
