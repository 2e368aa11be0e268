// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional config.yaml. It provides
// type-safe access to the server, LLM, oracle and curriculum settings while
// keeping configuration details separate from the learning logic.
package config
