// Package config provides hierarchical configuration loading for Arbiter.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the Arbiter engine.
type Config struct {
	Server    Server     `yaml:"server"`
	Postgres  Postgres   `yaml:"postgres"`
	NATS      NATS       `yaml:"nats"`
	LLM       LLM        `yaml:"llm"`
	Logging   Logging    `yaml:"logging"`
	Breaker   Breaker    `yaml:"breaker"`
	Rate      Rate       `yaml:"rate"`
	Council   Council    `yaml:"council"`
	Autopilot Autopilot  `yaml:"autopilot"`
	History   History    `yaml:"history"`
	Cache     Cache      `yaml:"cache"`
	Telemetry Telemetry  `yaml:"telemetry"`
	MCP       MCP        `yaml:"mcp"`
	Reviewers []Reviewer `yaml:"reviewers"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
	APIKeyHash string `yaml:"api_key_hash"` // bcrypt hash; empty disables auth
}

// Postgres holds PostgreSQL connection configuration for the history store.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// NATS holds the optional JetStream event mirror configuration.
type NATS struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// LLM holds the OpenAI-compatible endpoint reviewers talk to.
type LLM struct {
	URL         string        `yaml:"url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"` // default model when a reviewer declares none
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds circuit breaker configuration for reviewer calls.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Rate holds HTTP rate limiter configuration.
type Rate struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Council holds debate orchestration configuration.
type Council struct {
	Rounds         int      `yaml:"rounds"`          // debate rounds per session (default: 2)
	Threshold      float64  `yaml:"threshold"`       // consensus threshold (default: 0.5)
	Mode           string   `yaml:"mode"`            // consensus mode (default: "simple-majority")
	MaxParallel    int      `yaml:"max_parallel"`    // concurrent reviewer calls per phase (default: 8)
	WeightedVoting bool     `yaml:"weighted_voting"` // apply reviewer weights and peer boosts
	LeadReviewer   string   `yaml:"lead_reviewer"`   // optional lead for ceo-* and hybrid modes
	MinTeamSize    int      `yaml:"min_team_size"`
	MaxTeamSize    int      `yaml:"max_team_size"`
	Fallbacks      []string `yaml:"fallbacks"` // tried in order when a roster reviewer is unavailable
}

// Autopilot holds the polling automation loop configuration.
type Autopilot struct {
	Enabled              bool          `yaml:"enabled"`
	PollInterval         time.Duration `yaml:"poll_interval"`
	AutoApproveThreshold float64       `yaml:"auto_approve_threshold"`
	RequireUnanimous     bool          `yaml:"require_unanimous"`
	MaxAutoApprovals     int           `yaml:"max_auto_approvals"` // 0 = unlimited
}

// History holds the debate history store configuration.
type History struct {
	Backend          string        `yaml:"backend"` // "memory" | "file" | "postgres"
	Path             string        `yaml:"path"`    // snapshot path for the file backend
	MaxRecords       int           `yaml:"max_records"`
	AutosaveInterval time.Duration `yaml:"autosave_interval"` // 0 disables autosave
}

// Cache holds the analytics cache configuration.
type Cache struct {
	MaxSizeMB    int64         `yaml:"max_size_mb"`
	AnalyticsTTL time.Duration `yaml:"analytics_ttl"`
}

// Telemetry holds OpenTelemetry exporter configuration.
type Telemetry struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// MCP holds the Model Context Protocol server configuration.
type MCP struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port"`
}

// Reviewer declares one reviewer backend instance on the roster.
type Reviewer struct {
	Name        string   `yaml:"name"`
	Backend     string   `yaml:"backend"` // factory name, e.g. "openai-chat"
	Model       string   `yaml:"model"`
	Weight      float64  `yaml:"weight"`
	Specialties []string `yaml:"specialties"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "*",
		},
		Postgres: Postgres{
			MaxConns:        8,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
			HealthCheck:     time.Minute,
		},
		NATS: NATS{
			URL: "nats://localhost:4222",
		},
		LLM: LLM{
			URL:         "http://localhost:4000",
			Model:       "openai/gpt-4o-mini",
			MaxTokens:   1024,
			Temperature: 0.2,
			Timeout:     60 * time.Second,
		},
		Logging: Logging{
			Level:   "info",
			Service: "arbiter",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Rate: Rate{
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Council: Council{
			Rounds:         2,
			Threshold:      0.5,
			Mode:           "simple-majority",
			MaxParallel:    8,
			WeightedVoting: true,
			MinTeamSize:    2,
			MaxTeamSize:    5,
		},
		Autopilot: Autopilot{
			PollInterval:         30 * time.Second,
			AutoApproveThreshold: 0.8,
			MaxAutoApprovals:     10,
		},
		History: History{
			Backend:          "file",
			Path:             "arbiter-history.json",
			MaxRecords:       1000,
			AutosaveInterval: 5 * time.Minute,
		},
		Cache: Cache{
			MaxSizeMB:    16,
			AnalyticsTTL: time.Minute,
		},
		Telemetry: Telemetry{
			Endpoint: "localhost:4317",
			Insecure: true,
		},
		MCP: MCP{
			Port: "8090",
		},
	}
}
