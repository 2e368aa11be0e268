// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrMalformedStructure is returned when a molecular structure violates
	// one of the graph invariants. It is always wrapped by a
	// *MalformedStructureError carrying the reason.
	ErrMalformedStructure = errors.New("malformed structure")

	// ErrInvalidQuestion is returned when a quiz question is not a well-formed
	// member of its question type.
	ErrInvalidQuestion = errors.New("invalid quiz question")

	// ErrEmptyQuiz is returned when a quiz carries no questions.
	ErrEmptyQuiz = errors.New("quiz has no questions")

	// ErrInvalidConditions is returned when a reaction condition set is out of range.
	ErrInvalidConditions = errors.New("invalid reaction conditions")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")
)
