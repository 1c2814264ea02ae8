package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm"        validate:"required"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Evaluation EvaluationConfig `mapstructure:"evaluation" validate:"required"`
	Task       TaskConfig       `mapstructure:"task"       validate:"required"`
	Quiz       QuizConfig       `mapstructure:"quiz"       validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"gt=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"     validate:"gt=0"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"  validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"               validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gt=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"     validate:"required,min=32"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
	ClockSkew     time.Duration `mapstructure:"clock_skew"     validate:"gte=0"`
}

// LLMConfig contains all LLM integration related settings.
// Provider "offline" uses the deterministic local generator and judge.
type LLMConfig struct {
	Provider              string        `mapstructure:"provider"               validate:"required,oneof=gemini openai anthropic offline"`
	Model                 string        `mapstructure:"model"`
	GeminiAPIKey          string        `mapstructure:"gemini_api_key"         validate:"required_if=Provider gemini"`
	OpenAIAPIKey          string        `mapstructure:"openai_api_key"         validate:"required_if=Provider openai"`
	AnthropicAPIKey       string        `mapstructure:"anthropic_api_key"      validate:"required_if=Provider anthropic"`
	BaseURL               string        `mapstructure:"base_url"               validate:"omitempty,url"`
	Timeout               time.Duration `mapstructure:"timeout"                validate:"gt=0"`
	MaxTokens             int           `mapstructure:"max_tokens"             validate:"gt=0"`
	Temperature           float64       `mapstructure:"temperature"            validate:"gte=0,lte=2"`
	GenerationConcurrency int           `mapstructure:"generation_concurrency" validate:"gt=0"`
	MaxRetries            int           `mapstructure:"max_retries"            validate:"gte=0"`
	RetryDelay            time.Duration `mapstructure:"retry_delay"            validate:"gt=0"`
}

// SchedulerConfig overrides scheduler parameters. Zero values keep the defaults.
type SchedulerConfig struct {
	BoxIntervals       []time.Duration `mapstructure:"box_intervals"`
	ReexposureInterval time.Duration   `mapstructure:"reexposure_interval" validate:"gte=0"`
	MasteryThreshold   int             `mapstructure:"mastery_threshold"   validate:"gte=0"`
	MinIntervalFactor  float64         `mapstructure:"min_interval_factor" validate:"gte=0"`
	MaxIntervalFactor  float64         `mapstructure:"max_interval_factor" validate:"gte=0"`
	Weights            []float64       `mapstructure:"weights"             validate:"omitempty,len=17"`
}

// EvaluationConfig controls judgment retries and reconciliation.
type EvaluationConfig struct {
	MaxAttempts       uint          `mapstructure:"max_attempts"       validate:"gt=0"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff"    validate:"gt=0"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"        validate:"gtefield=InitialBackoff"`
	AttemptTimeout    time.Duration `mapstructure:"attempt_timeout"    validate:"gt=0"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval" validate:"gte=0"`
}

// TaskConfig controls the background task runner.
type TaskConfig struct {
	Workers                int           `mapstructure:"workers"                   validate:"gt=0"`
	QueueSize              int           `mapstructure:"queue_size"                validate:"gt=0"`
	StuckTaskAge           time.Duration `mapstructure:"stuck_task_age"            validate:"gt=0"`
	StuckTaskCheckInterval time.Duration `mapstructure:"stuck_task_check_interval" validate:"gt=0"`
}

// QuizConfig controls sitting construction.
type QuizConfig struct {
	MaxItems int `mapstructure:"max_items" validate:"gt=0,lte=100"`
}
