package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrOracleUnavailable is returned when the content service cannot be
	// reached, retries were exhausted, or the circuit breaker is open.
	// Callers should treat it as retryable.
	ErrOracleUnavailable = errors.New("content oracle unavailable")

	// ErrInvalidResponse is returned when the LLM response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the LLM blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrEmptyInput is returned when a request is missing its subject text.
	ErrEmptyInput = errors.New("generation input cannot be empty")
)
