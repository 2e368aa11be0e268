package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm" validate:"required"`
	Oracle     OracleConfig     `mapstructure:"oracle" validate:"required"`
	Curriculum CurriculumConfig `mapstructure:"curriculum" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port           int      `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel       string   `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat      string   `mapstructure:"log_format" validate:"required,oneof=json text"`
	AllowedOrigins []string `mapstructure:"allowed_origins" validate:"dive,required"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey          string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName             string `mapstructure:"model_name" validate:"required"`
	MaxRetries            int    `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds     int    `mapstructure:"retry_delay_seconds" validate:"gte=1"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" validate:"gte=1"`
}

// OracleConfig tunes the circuit breaker guarding the content oracle.
type OracleConfig struct {
	BreakerFailureThreshold float64 `mapstructure:"breaker_failure_threshold" validate:"gt=0,lte=1"`
	BreakerMinRequests      uint32  `mapstructure:"breaker_min_requests" validate:"gte=1"`
	BreakerTimeoutSeconds   int     `mapstructure:"breaker_timeout_seconds" validate:"gte=1"`
}

// CurriculumConfig selects the syllabus shown at startup.
type CurriculumConfig struct {
	DefaultSyllabus string `mapstructure:"default_syllabus" validate:"required"`
}
