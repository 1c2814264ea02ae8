package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. RECALL_DATABASE_URL.
const EnvPrefix = "RECALL"

// Load reads configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence. An empty configFile looks
// for config.yaml in the working directory; a missing file is not an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.cors_origins", []string{})

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime", "24h")
	v.SetDefault("auth.clock_skew", "30s")

	v.SetDefault("llm.provider", "offline")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.openai_api_key", "")
	v.SetDefault("llm.anthropic_api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.temperature", 0.4)
	v.SetDefault("llm.generation_concurrency", 4)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.retry_delay", "1s")

	v.SetDefault("scheduler.box_intervals", []string{})
	v.SetDefault("scheduler.reexposure_interval", "0s")
	v.SetDefault("scheduler.mastery_threshold", 0)
	v.SetDefault("scheduler.min_interval_factor", 0)
	v.SetDefault("scheduler.max_interval_factor", 0)
	v.SetDefault("scheduler.weights", []float64{})

	v.SetDefault("evaluation.max_attempts", 3)
	v.SetDefault("evaluation.initial_backoff", "1s")
	v.SetDefault("evaluation.max_backoff", "30s")
	v.SetDefault("evaluation.attempt_timeout", "45s")
	v.SetDefault("evaluation.reconcile_interval", "10m")

	v.SetDefault("task.workers", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.stuck_task_age", "30m")
	v.SetDefault("task.stuck_task_check_interval", "5m")

	v.SetDefault("quiz.max_items", 10)
}
