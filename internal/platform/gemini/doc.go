// Package gemini provides an implementation of the generation.Generator interface
// that uses Google's Gemini API as the chemistry content oracle.
//
// This package is an infrastructure adapter: it translates between the
// application's domain models and the Gemini API without exposing the details
// of the external service to the core application.
//
// Key components:
//
// 1. GeminiGenerator:
//   - Implements the generation.Generator interface
//   - Renders embedded prompt templates for each operation
//   - Requests JSON responses and decodes them into domain types
//
// 2. Response Processing:
//   - Checks payload shape with generation.ValidateShape
//   - Re-validates molecular graphs with domain.NewStructure
//   - Rejects quizzes that violate the question variants
//
// 3. Error Handling:
//   - Retries transient failures with exponential backoff and jitter
//   - Trips a circuit breaker after sustained failures
//   - Maps upstream failures to generation.ErrOracleUnavailable,
//     generation.ErrInvalidResponse and generation.ErrContentBlocked
package gemini
