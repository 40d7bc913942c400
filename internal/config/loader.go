package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arbiterhq/arbiter/internal/domain/debate"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "arbiter.yaml"

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
	setString(&cfg.Server.Port, "ARBITER_PORT")
	setString(&cfg.Server.CORSOrigin, "ARBITER_CORS_ORIGIN")
	setString(&cfg.Server.APIKeyHash, "ARBITER_API_KEY_HASH")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "ARBITER_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "ARBITER_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "ARBITER_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "ARBITER_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "ARBITER_PG_HEALTH_CHECK")

	setBool(&cfg.NATS.Enabled, "ARBITER_NATS_ENABLED")
	setString(&cfg.NATS.URL, "NATS_URL")

	setString(&cfg.LLM.URL, "ARBITER_LLM_URL")
	setString(&cfg.LLM.APIKey, "ARBITER_LLM_API_KEY")
	setString(&cfg.LLM.Model, "ARBITER_LLM_MODEL")
	setInt(&cfg.LLM.MaxTokens, "ARBITER_LLM_MAX_TOKENS")
	setFloat64(&cfg.LLM.Temperature, "ARBITER_LLM_TEMPERATURE")
	setDuration(&cfg.LLM.Timeout, "ARBITER_LLM_TIMEOUT")

	setString(&cfg.Logging.Level, "ARBITER_LOG_LEVEL")
	setString(&cfg.Logging.Service, "ARBITER_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "ARBITER_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "ARBITER_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "ARBITER_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "ARBITER_RATE_RPS")
	setInt(&cfg.Rate.Burst, "ARBITER_RATE_BURST")

	setInt(&cfg.Council.Rounds, "ARBITER_COUNCIL_ROUNDS")
	setFloat64(&cfg.Council.Threshold, "ARBITER_COUNCIL_THRESHOLD")
	setString(&cfg.Council.Mode, "ARBITER_COUNCIL_MODE")
	setInt(&cfg.Council.MaxParallel, "ARBITER_COUNCIL_MAX_PARALLEL")
	setBool(&cfg.Council.WeightedVoting, "ARBITER_COUNCIL_WEIGHTED_VOTING")
	setString(&cfg.Council.LeadReviewer, "ARBITER_COUNCIL_LEAD")
	setInt(&cfg.Council.MinTeamSize, "ARBITER_COUNCIL_MIN_TEAM")
	setInt(&cfg.Council.MaxTeamSize, "ARBITER_COUNCIL_MAX_TEAM")

	setBool(&cfg.Autopilot.Enabled, "ARBITER_AUTOPILOT_ENABLED")
	setDuration(&cfg.Autopilot.PollInterval, "ARBITER_AUTOPILOT_POLL_INTERVAL")
	setFloat64(&cfg.Autopilot.AutoApproveThreshold, "ARBITER_AUTOPILOT_THRESHOLD")
	setBool(&cfg.Autopilot.RequireUnanimous, "ARBITER_AUTOPILOT_REQUIRE_UNANIMOUS")
	setInt(&cfg.Autopilot.MaxAutoApprovals, "ARBITER_AUTOPILOT_MAX_APPROVALS")

	setString(&cfg.History.Backend, "ARBITER_HISTORY_BACKEND")
	setString(&cfg.History.Path, "ARBITER_HISTORY_PATH")
	setInt(&cfg.History.MaxRecords, "ARBITER_HISTORY_MAX_RECORDS")
	setDuration(&cfg.History.AutosaveInterval, "ARBITER_HISTORY_AUTOSAVE")

	setInt64(&cfg.Cache.MaxSizeMB, "ARBITER_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.AnalyticsTTL, "ARBITER_CACHE_ANALYTICS_TTL")

	setBool(&cfg.Telemetry.Enabled, "ARBITER_OTEL_ENABLED")
	setString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.Telemetry.Insecure, "ARBITER_OTEL_INSECURE")

	setBool(&cfg.MCP.Enabled, "ARBITER_MCP_ENABLED")
	setString(&cfg.MCP.Port, "ARBITER_MCP_PORT")
}

// validate checks that required fields are set and in range.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Council.Rounds < 1 {
		return errors.New("council.rounds must be >= 1")
	}
	if cfg.Council.Threshold < 0 || cfg.Council.Threshold > 1 {
		return errors.New("council.threshold must be in [0, 1]")
	}
	if !debate.ValidMode(debate.ConsensusMode(cfg.Council.Mode)) {
		return fmt.Errorf("council.mode %q is not a known consensus mode", cfg.Council.Mode)
	}
	if cfg.Council.MaxParallel < 1 {
		return errors.New("council.max_parallel must be >= 1")
	}
	if cfg.Autopilot.AutoApproveThreshold < 0 || cfg.Autopilot.AutoApproveThreshold > 1 {
		return errors.New("autopilot.auto_approve_threshold must be in [0, 1]")
	}
	if cfg.History.MaxRecords < 1 {
		return errors.New("history.max_records must be >= 1")
	}
	switch cfg.History.Backend {
	case "memory", "file", "postgres":
	default:
		return fmt.Errorf("history.backend %q must be one of memory, file, postgres", cfg.History.Backend)
	}
	if cfg.History.Backend == "postgres" && cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required for the postgres history backend")
	}
	if cfg.History.Backend == "file" && cfg.History.Path == "" {
		return errors.New("history.path is required for the file history backend")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	for _, r := range cfg.Reviewers {
		if r.Name == "" {
			return errors.New("reviewers[].name is required")
		}
		if r.Backend == "" {
			return fmt.Errorf("reviewer %q: backend is required", r.Name)
		}
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
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
