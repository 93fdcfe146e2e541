// Package config loads server settings from defaults, an optional YAML or
// JSON file, and environment variables, in that order.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	StorageJSON     = "json"
	StoragePostgres = "postgres"
)

// Config is the full server configuration
type Config struct {
	Server     ServerConfig     `json:"server" yaml:"server"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Storage    StorageConfig    `json:"storage" yaml:"storage"`
	Log        LogConfig        `json:"log" yaml:"log"`
}

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	Port            string        `json:"port" yaml:"port"`
	AllowedOrigins  []string      `json:"allowed_origins" yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// SimulationConfig holds the parameters every run is created with
type SimulationConfig struct {
	TickInterval   time.Duration `json:"tick_interval" yaml:"tick_interval"`
	StuckThreshold int           `json:"stuck_threshold" yaml:"stuck_threshold"`
	// MaxTicks of 0 lets runs go on until they finish or are stopped.
	MaxTicks     int    `json:"max_ticks" yaml:"max_ticks"`
	StrictMaps   bool   `json:"strict_maps" yaml:"strict_maps"`
	FloorMarkers string `json:"floor_markers" yaml:"floor_markers"`
	Seed         int64  `json:"seed" yaml:"seed"`
}

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	Type        string `json:"type" yaml:"type"`
	DatabaseURL string `json:"database_url" yaml:"database_url"`
	File        string `json:"file" yaml:"file"`
	// RecorderBuffer is how many events may queue for the run recorder.
	RecorderBuffer int `json:"recorder_buffer" yaml:"recorder_buffer"`
}

// LogConfig controls slog output
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns the configuration used when nothing overrides it
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "3000",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Simulation: SimulationConfig{
			TickInterval:   200 * time.Millisecond,
			StuckThreshold: 25,
			FloorMarkers:   " ",
		},
		Storage: StorageConfig{
			Type:           StorageJSON,
			DatabaseURL:    "host=localhost user=cleanbot password=cleanbot dbname=cleanbot sslmode=disable",
			File:           "db.json",
			RecorderBuffer: 256,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the file at path (if any) and the environment
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	loadFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadFromEnv(cfg *Config) {
	// Server
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("CLEANBOT_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}

	// Storage
	if v := os.Getenv("DB_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = v
	}
	if v := os.Getenv("DB_FILE"); v != "" {
		cfg.Storage.File = v
	}

	// Simulation
	if v := os.Getenv("CLEANBOT_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Simulation.TickInterval = d
		} else {
			slog.Warn("Ignoring CLEANBOT_TICK_INTERVAL", "value", v, "error", err)
		}
	}
	if v := os.Getenv("CLEANBOT_STUCK_THRESHOLD"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Simulation.StuckThreshold = i
		}
	}
	if v := os.Getenv("CLEANBOT_MAX_TICKS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Simulation.MaxTicks = i
		}
	}
	if v := os.Getenv("CLEANBOT_STRICT_MAPS"); v != "" {
		cfg.Simulation.StrictMaps = v == "true" || v == "1"
	}
	if v := os.Getenv("CLEANBOT_SEED"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Simulation.Seed = i
		}
	}

	// Logging
	if v := os.Getenv("CLEANBOT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CLEANBOT_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that the configuration is usable
func (c Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("port is required")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("port must be numeric, got %q", c.Server.Port)
	}
	for _, origin := range c.Server.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("allowed origin %q must be \"*\" or start with http:// or https://", origin)
		}
	}
	if c.Simulation.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be > 0")
	}
	if c.Simulation.StuckThreshold < 1 {
		return fmt.Errorf("stuck_threshold must be >= 1")
	}
	if c.Simulation.MaxTicks < 0 {
		return fmt.Errorf("max_ticks must be >= 0")
	}
	if c.Simulation.FloorMarkers == "" {
		return fmt.Errorf("floor_markers must not be empty")
	}
	switch c.Storage.Type {
	case StorageJSON:
		if c.Storage.File == "" {
			return fmt.Errorf("storage file is required for the json backend")
		}
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("database_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// ParseLevel maps a level name onto slog.Level
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// NewLogger builds the process logger described by c
func (c LogConfig) NewLogger() *slog.Logger {
	level, err := ParseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
