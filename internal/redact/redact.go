// Package redact provides utilities for redacting sensitive information from strings
// before they are logged or returned in error responses. This package helps prevent
// the accidental leakage of oracle credentials, request URLs, file paths, and other
// sensitive data that might be included in upstream error messages.
package redact

import (
	"regexp"
	"sync"
)

// Constants for redaction placeholders
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
)

// Precompiled regex patterns
var (
	// Google API keys as issued for the Gemini API
	googleKeyRegex = regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`)

	// key=... query parameters in request URLs echoed by HTTP client errors
	queryKeyRegex = regexp.MustCompile(`(?i)([?&](?:key|api_key|access_token)=)[^&\s"']+`)

	// Credentials and tokens
	apiKeyRegex = regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|authorization)(['"\s:=]+)(?:bearer\s+)?[A-Za-z0-9_\-.~+/]{8,}`,
	)
	bearerRegex = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_\-.~+/]{8,}=*`)

	// URL userinfo
	urlCredRegex = regexp.MustCompile(`(?i)([a-z][a-z0-9+.-]*://)[^/@\s]+@`)

	// File paths
	unixPathRegex = regexp.MustCompile(`(/[\w.-]+){2,}`)
	winPathRegex  = regexp.MustCompile(`[A-Za-z]:\\[^\\]+(\\[^\\]+)+`)

	// Stack trace fragments
	stackTraceRegex = regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`)

	// Email addresses
	emailRegex = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)

	// Order matters: specific key shapes first, then URL parts, then paths.
	patterns = []*regexp.Regexp{
		googleKeyRegex, queryKeyRegex, bearerRegex, apiKeyRegex, urlCredRegex,
		stackTraceRegex, emailRegex, unixPathRegex, winPathRegex,
	}

	patternPlaceholders = map[*regexp.Regexp]string{
		googleKeyRegex:  RedactedKeyPlaceholder,
		queryKeyRegex:   "${1}" + RedactedKeyPlaceholder,
		bearerRegex:     RedactedCredentialPlaceholder,
		apiKeyRegex:     RedactedKeyPlaceholder,
		urlCredRegex:    "${1}" + RedactedCredentialPlaceholder + "@",
		stackTraceRegex: "[STACK_TRACE_REDACTED]",
		emailRegex:      "[REDACTED_EMAIL]",
		unixPathRegex:   RedactedPathPlaceholder,
		winPathRegex:    RedactedPathPlaceholder,
	}

	mu sync.RWMutex
)

// String redacts sensitive information from the input string
func String(input string) string {
	if input == "" {
		return input
	}

	mu.RLock()
	defer mu.RUnlock()

	result := input
	for _, pattern := range patterns {
		placeholder := RedactionPlaceholder
		if ph, ok := patternPlaceholders[pattern]; ok {
			placeholder = ph
		}
		result = pattern.ReplaceAllString(result, placeholder)
	}

	return result
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}
