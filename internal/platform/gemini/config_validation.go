package gemini

import (
	"fmt"

	"github.com/phrazzld/chemlab/internal/config"
	"github.com/phrazzld/chemlab/internal/generation"
)

// validateConfig checks the settings the generator cannot run without.
// Retry settings out of range are corrected at call time instead.
func validateConfig(llm config.LLMConfig, oracle config.OracleConfig) error {
	if llm.GeminiAPIKey == "" {
		return fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if llm.ModelName == "" {
		return fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	if oracle.BreakerFailureThreshold <= 0 || oracle.BreakerFailureThreshold > 1 {
		return fmt.Errorf("%w: breaker failure threshold must be in (0, 1], got %g",
			generation.ErrInvalidConfig, oracle.BreakerFailureThreshold)
	}
	return nil
}
