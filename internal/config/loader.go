package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "riftd.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "RIFT_PORT")
	setString(&cfg.Server.CORSOrigin, "RIFT_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "RIFT_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "RIFT_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "RIFT_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "RIFT_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "RIFT_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Agent.BaseURL, "AGENT_BASE_URL")
	setDuration(&cfg.Agent.StartTimeout, "RIFT_AGENT_START_TIMEOUT")
	setDuration(&cfg.Agent.PollInterval, "RIFT_AGENT_POLL_INTERVAL")
	setInt(&cfg.Agent.MaxPollAttempts, "RIFT_AGENT_MAX_POLL_ATTEMPTS")
	setDuration(&cfg.Agent.QueryTimeout, "RIFT_AGENT_QUERY_TIMEOUT")
	setInt(&cfg.Agent.MaxIterations, "RIFT_AGENT_MAX_ITERATIONS")
	setInt(&cfg.Queue.MaxDeliver, "RIFT_QUEUE_MAX_DELIVER")
	setDuration(&cfg.Queue.BackoffBase, "RIFT_QUEUE_BACKOFF_BASE")
	setString(&cfg.Artifacts.Dir, "RIFT_OUTPUTS_DIR")
	setInt64(&cfg.Artifacts.CacheBytes, "RIFT_ARTIFACT_CACHE_BYTES")
	setDuration(&cfg.Artifacts.CacheTTL, "RIFT_ARTIFACT_CACHE_TTL")
	setString(&cfg.Logging.Level, "RIFT_LOG_LEVEL")
	setString(&cfg.Logging.Service, "RIFT_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "RIFT_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "RIFT_BREAKER_TIMEOUT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Agent.BaseURL == "" {
		return errors.New("agent.base_url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Agent.MaxPollAttempts < 1 {
		return errors.New("agent.max_poll_attempts must be >= 1")
	}
	if cfg.Queue.MaxDeliver < 1 {
		return errors.New("queue.max_deliver must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
