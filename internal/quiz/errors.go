package quiz

import "errors"

// Errors returned by the Engine.
var (
	// ErrQuizGenerationFailed is returned when Start cannot obtain a usable
	// question list. The engine stays NotStarted.
	ErrQuizGenerationFailed = errors.New("quiz generation failed")

	// ErrInvalidTransition is returned when an operation is not valid in the
	// current state, such as Next while awaiting an answer.
	ErrInvalidTransition = errors.New("invalid quiz transition")

	// ErrWrongQuestionType is returned when the answer kind does not match
	// the current question's type.
	ErrWrongQuestionType = errors.New("answer does not match question type")

	// ErrInvalidOption is returned for an option index outside the question's options.
	ErrInvalidOption = errors.New("option index out of range")

	// ErrStartInProgress is returned when Start is called while another Start
	// on the same engine is still waiting for the oracle.
	ErrStartInProgress = errors.New("quiz start already in progress")
)
