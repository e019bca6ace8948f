package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// LoadConfig builds the configuration from defaults and overrides provided
// via environment variables.
func LoadConfig() (*Config, error) {
	config := defaultConfig()

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func loadFromEnv(config *Config) error {
	if err := loadServerConfig(&config.Server); err != nil {
		return fmt.Errorf("failed to load server config: %w", err)
	}
	if err := loadDatabaseConfig(&config.Database); err != nil {
		return fmt.Errorf("failed to load database config: %w", err)
	}
	if err := loadRedisConfig(&config.Redis); err != nil {
		return fmt.Errorf("failed to load redis config: %w", err)
	}
	if err := loadGeneratorConfig(&config.Generator); err != nil {
		return fmt.Errorf("failed to load generator config: %w", err)
	}
	if err := loadQueueConfig(&config.Queue); err != nil {
		return fmt.Errorf("failed to load queue config: %w", err)
	}
	if err := loadPipelineConfig(&config.Pipeline); err != nil {
		return fmt.Errorf("failed to load pipeline config: %w", err)
	}
	if err := loadPublishConfig(&config.Publish); err != nil {
		return fmt.Errorf("failed to load publish config: %w", err)
	}
	if err := loadDLQConfig(&config.DLQ); err != nil {
		return fmt.Errorf("failed to load DLQ config: %w", err)
	}
	return nil
}

func loadServerConfig(cfg *ServerConfig) error {
	var err error
	if cfg.Port, err = parseIntEnv("SERVER_PORT", cfg.Port); err != nil {
		return err
	}
	if cfg.ShutdownTimeout, err = parseDurationEnv("SERVER_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return err
	}
	if cfg.ReadTimeout, err = parseDurationEnv("SERVER_READ_TIMEOUT", cfg.ReadTimeout); err != nil {
		return err
	}
	if cfg.WriteTimeout, err = parseDurationEnv("SERVER_WRITE_TIMEOUT", cfg.WriteTimeout); err != nil {
		return err
	}
	return nil
}

func loadDatabaseConfig(cfg *DatabaseConfig) error {
	var err error
	cfg.URL = parseStringEnv("DATABASE_URL", cfg.URL)
	if cfg.MaxConns, err = parseIntEnv("DATABASE_MAX_CONNS", cfg.MaxConns); err != nil {
		return err
	}
	if cfg.ConnectTimeout, err = parseDurationEnv("DATABASE_CONNECT_TIMEOUT", cfg.ConnectTimeout); err != nil {
		return err
	}
	if cfg.HealthCheckWait, err = parseDurationEnv("DATABASE_HEALTH_CHECK_WAIT", cfg.HealthCheckWait); err != nil {
		return err
	}
	return nil
}

func loadRedisConfig(cfg *RedisConfig) error {
	var err error
	cfg.Addr = parseStringEnv("REDIS_ADDR", cfg.Addr)
	cfg.Stream = parseStringEnv("REDIS_EVENT_STREAM", cfg.Stream)
	if cfg.StreamMaxLen, err = parseInt64Env("REDIS_STREAM_MAX_LEN", cfg.StreamMaxLen); err != nil {
		return err
	}
	if cfg.Timeout, err = parseDurationEnv("REDIS_TIMEOUT", cfg.Timeout); err != nil {
		return err
	}
	return nil
}

func loadGeneratorConfig(cfg *GeneratorConfig) error {
	var err error
	cfg.Host = parseStringEnv("GENERATOR_HOST", cfg.Host)
	if cfg.Timeout, err = parseDurationEnv("GENERATOR_TIMEOUT", cfg.Timeout); err != nil {
		return err
	}
	if cfg.RatePerSec, err = parseFloatEnv("GENERATOR_RATE_PER_SEC", cfg.RatePerSec); err != nil {
		return err
	}
	if cfg.RateBurst, err = parseIntEnv("GENERATOR_RATE_BURST", cfg.RateBurst); err != nil {
		return err
	}
	if cfg.PhaseRetries, err = parseIntEnv("GENERATOR_PHASE_RETRIES", cfg.PhaseRetries); err != nil {
		return err
	}
	if cfg.RetryBase, err = parseDurationEnv("GENERATOR_RETRY_BASE", cfg.RetryBase); err != nil {
		return err
	}
	if cfg.RetryMax, err = parseDurationEnv("GENERATOR_RETRY_MAX", cfg.RetryMax); err != nil {
		return err
	}
	return nil
}

func loadQueueConfig(cfg *QueueConfig) error {
	var err error
	if cfg.WorkerInterval, err = parseDurationEnv("QUEUE_WORKER_INTERVAL", cfg.WorkerInterval); err != nil {
		return err
	}
	if cfg.BatchSize, err = parseIntEnv("QUEUE_BATCH_SIZE", cfg.BatchSize); err != nil {
		return err
	}
	if cfg.Concurrency, err = parseIntEnv("QUEUE_CONCURRENCY", cfg.Concurrency); err != nil {
		return err
	}
	if cfg.MaxAttempts, err = parseIntEnv("QUEUE_MAX_ATTEMPTS", cfg.MaxAttempts); err != nil {
		return err
	}
	if cfg.BackoffBase, err = parseDurationEnv("QUEUE_BACKOFF_BASE", cfg.BackoffBase); err != nil {
		return err
	}
	if cfg.BackoffCap, err = parseDurationEnv("QUEUE_BACKOFF_CAP", cfg.BackoffCap); err != nil {
		return err
	}
	if cfg.PruneInterval, err = parseDurationEnv("QUEUE_PRUNE_INTERVAL", cfg.PruneInterval); err != nil {
		return err
	}
	return nil
}

func loadPipelineConfig(cfg *PipelineConfig) error {
	var err error
	if cfg.PhaseTimeout, err = parseDurationEnv("PIPELINE_PHASE_TIMEOUT", cfg.PhaseTimeout); err != nil {
		return err
	}
	return nil
}

func loadPublishConfig(cfg *PublishConfig) error {
	var err error
	if cfg.SweepInterval, err = parseDurationEnv("PUBLISH_SWEEP_INTERVAL", cfg.SweepInterval); err != nil {
		return err
	}
	if cfg.SweepLimit, err = parseIntEnv("PUBLISH_SWEEP_LIMIT", cfg.SweepLimit); err != nil {
		return err
	}
	return nil
}

func loadDLQConfig(cfg *DLQConfig) error {
	var err error
	cfg.BasePath = parseStringEnv("DLQ_BASE_PATH", cfg.BasePath)
	if cfg.Retention, err = parseDurationEnv("DLQ_RETENTION", cfg.Retention); err != nil {
		return err
	}
	if cfg.EnableCleanup, err = parseBoolEnv("DLQ_ENABLE_CLEANUP", cfg.EnableCleanup); err != nil {
		return err
	}
	return nil
}

func parseStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return parsed, nil
}

func parseInt64Env(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return parsed, nil
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float for %s: %w", key, err)
	}
	return parsed, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return parsed, nil
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid boolean for %s: %w", key, err)
	}
	return parsed, nil
}
