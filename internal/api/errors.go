package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/phrazzld/chemlab/internal/archive"
	"github.com/phrazzld/chemlab/internal/curriculum"
	"github.com/phrazzld/chemlab/internal/domain"
	"github.com/phrazzld/chemlab/internal/generation"
	"github.com/phrazzld/chemlab/internal/quiz"
	"github.com/phrazzld/chemlab/internal/reaction"
	"github.com/phrazzld/chemlab/internal/service"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
//
// Order matters: oracle failures are usually wrapped by a component error
// such as reaction.ErrReactionFailed, and the oracle cause decides the code.
func MapErrorToStatusCode(err error) int {
	switch {
	// Concurrency guards
	case errors.Is(err, service.ErrOperationInProgress),
		errors.Is(err, service.ErrStaleResponse),
		errors.Is(err, reaction.ErrReactionInProgress),
		errors.Is(err, quiz.ErrStartInProgress):
		return http.StatusConflict

	// Content oracle
	case errors.Is(err, generation.ErrOracleUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, generation.ErrContentBlocked):
		return http.StatusUnprocessableEntity
	case errors.Is(err, generation.ErrInvalidResponse):
		return http.StatusBadGateway
	case errors.Is(err, generation.ErrInvalidConfig):
		return http.StatusInternalServerError

	// A product that fails the structure gate is the oracle's fault
	case errors.Is(err, reaction.ErrReactionFailed) && errors.Is(err, domain.ErrMalformedStructure):
		return http.StatusBadGateway

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrMalformedStructure),
		errors.Is(err, domain.ErrInvalidConditions),
		errors.Is(err, generation.ErrEmptyInput),
		errors.Is(err, quiz.ErrWrongQuestionType),
		errors.Is(err, quiz.ErrInvalidOption):
		return http.StatusBadRequest

	// Not found errors
	case errors.Is(err, service.ErrNoQuiz),
		errors.Is(err, service.ErrModuleNotFound),
		errors.Is(err, archive.ErrItemNotFound),
		errors.Is(err, curriculum.ErrUnknownSyllabus):
		return http.StatusNotFound

	// State conflicts
	case errors.Is(err, service.ErrNoStructure),
		errors.Is(err, service.ErrModuleLocked),
		errors.Is(err, quiz.ErrInvalidTransition):
		return http.StatusConflict

	// Remaining generation failures
	case errors.Is(err, quiz.ErrQuizGenerationFailed),
		errors.Is(err, reaction.ErrReactionFailed):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly one-line message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, service.ErrOperationInProgress),
		errors.Is(err, reaction.ErrReactionInProgress),
		errors.Is(err, quiz.ErrStartInProgress):
		return "A request of this kind is already in progress"
	case errors.Is(err, service.ErrStaleResponse):
		return "The request was superseded by a newer action"

	case errors.Is(err, generation.ErrOracleUnavailable):
		return "The content service is unavailable, please try again"
	case errors.Is(err, generation.ErrContentBlocked):
		return "The content service declined this request"
	case errors.Is(err, generation.ErrInvalidResponse):
		return "The content service returned an unusable response, please try again"
	case errors.Is(err, generation.ErrInvalidConfig):
		return "The content service is misconfigured"

	case errors.Is(err, reaction.ErrReactionFailed) && errors.Is(err, domain.ErrMalformedStructure):
		return "The reaction produced an invalid structure, please try again"
	case errors.Is(err, domain.ErrMalformedStructure):
		return "Invalid structure: " + malformedReason(err)
	case errors.Is(err, domain.ErrInvalidConditions):
		return "Invalid reaction conditions: pressure must be greater than 0"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, generation.ErrEmptyInput):
		return "Invalid request"
	case errors.Is(err, quiz.ErrWrongQuestionType):
		return "This answer does not match the question type"
	case errors.Is(err, quiz.ErrInvalidOption):
		return "Option index out of range"

	case errors.Is(err, service.ErrNoQuiz):
		return "No quiz in progress"
	case errors.Is(err, service.ErrModuleNotFound):
		return "Module not found"
	case errors.Is(err, archive.ErrItemNotFound):
		return "Archive item not found"
	case errors.Is(err, curriculum.ErrUnknownSyllabus):
		return "Syllabus not found"

	case errors.Is(err, service.ErrNoStructure):
		return "No molecule is loaded"
	case errors.Is(err, service.ErrModuleLocked):
		return "Module is locked"
	case errors.Is(err, quiz.ErrInvalidTransition):
		return "This quiz action is not allowed now"

	case errors.Is(err, quiz.ErrQuizGenerationFailed):
		return "Failed to generate quiz"
	case errors.Is(err, reaction.ErrReactionFailed):
		return "Reaction failed"

	default:
		return "An unexpected error occurred"
	}
}

// malformedReason names the violated graph rule without echoing atom ids.
func malformedReason(err error) string {
	var malformed *domain.MalformedStructureError
	if errors.As(err, &malformed) {
		return strings.ReplaceAll(malformed.Reason, "_", " ")
	}
	return "malformed graph"
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example: "Key: 'SearchRequest.Name' Error:Field validation for 'Name' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required", "required_without":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "gte", "gt":
		return "too small"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
