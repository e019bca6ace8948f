package config

import "fmt"

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.URL == "" {
		return fmt.Errorf("database URL cannot be empty")
	}

	if config.Database.MaxConns <= 0 {
		return fmt.Errorf("database max conns must be positive: %d", config.Database.MaxConns)
	}

	if config.Redis.Addr == "" {
		return fmt.Errorf("redis address cannot be empty")
	}

	if config.Redis.Stream == "" {
		return fmt.Errorf("redis event stream cannot be empty")
	}

	if config.Generator.Host == "" {
		return fmt.Errorf("generator host cannot be empty")
	}

	if config.Generator.Timeout <= 0 {
		return fmt.Errorf("generator timeout must be positive: %v", config.Generator.Timeout)
	}

	if config.Generator.PhaseRetries <= 0 {
		return fmt.Errorf("generator phase retries must be positive: %d", config.Generator.PhaseRetries)
	}

	if config.Generator.RatePerSec <= 0 {
		return fmt.Errorf("generator rate must be positive: %f", config.Generator.RatePerSec)
	}

	if config.Queue.WorkerInterval <= 0 {
		return fmt.Errorf("queue worker interval must be positive: %v", config.Queue.WorkerInterval)
	}

	if config.Queue.BatchSize <= 0 {
		return fmt.Errorf("queue batch size must be positive: %d", config.Queue.BatchSize)
	}

	if config.Queue.Concurrency <= 0 || config.Queue.Concurrency > 4 {
		return fmt.Errorf("queue concurrency must be between 1 and 4: %d", config.Queue.Concurrency)
	}

	if config.Queue.MaxAttempts <= 0 {
		return fmt.Errorf("queue max attempts must be positive: %d", config.Queue.MaxAttempts)
	}

	if config.Queue.BackoffBase <= 0 || config.Queue.BackoffCap < config.Queue.BackoffBase {
		return fmt.Errorf("queue backoff base/cap invalid: base=%v cap=%v",
			config.Queue.BackoffBase, config.Queue.BackoffCap)
	}

	if config.Pipeline.PhaseTimeout <= 0 {
		return fmt.Errorf("pipeline phase timeout must be positive: %v", config.Pipeline.PhaseTimeout)
	}

	if config.Publish.SweepInterval <= 0 {
		return fmt.Errorf("publish sweep interval must be positive: %v", config.Publish.SweepInterval)
	}

	if config.Publish.SweepLimit <= 0 {
		return fmt.Errorf("publish sweep limit must be positive: %d", config.Publish.SweepLimit)
	}

	if config.DLQ.BasePath == "" {
		return fmt.Errorf("DLQ base path cannot be empty")
	}

	return nil
}
