package service

import "errors"

// Common service errors - sentinel errors used across the Lab operations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Lab methods return sentinel errors for expected error conditions
// 2. Component failures are wrapped, keeping their own sentinels reachable
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrOperationInProgress indicates that an operation of the same family
	// is still waiting for the oracle.
	// API layer should map this to HTTP 409 Conflict.
	ErrOperationInProgress = errors.New("operation already in progress")

	// ErrStaleResponse indicates that an oracle response arrived after the
	// state it was requested for had been superseded. The response is discarded.
	// API layer should map this to HTTP 409 Conflict.
	ErrStaleResponse = errors.New("response superseded by a newer action")

	// ErrNoStructure indicates that an operation needs a current structure
	// and none has been generated or loaded.
	// API layer should map this to HTTP 409 Conflict.
	ErrNoStructure = errors.New("no structure loaded")

	// ErrNoQuiz indicates that no quiz has been started.
	// API layer should map this to HTTP 404 Not Found.
	ErrNoQuiz = errors.New("no quiz in progress")

	// ErrModuleNotFound indicates that the module id is not in the selected syllabus.
	// API layer should map this to HTTP 404 Not Found.
	ErrModuleNotFound = errors.New("module not found")

	// ErrModuleLocked indicates an attempt to study or quiz a locked module.
	// API layer should map this to HTTP 409 Conflict.
	ErrModuleLocked = errors.New("module is locked")
)
