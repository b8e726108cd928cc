package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"stylistapi/stylist"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// PathEnvVar points at an optional YAML file.
	PathEnvVar = "STYLIST_CONFIG"
	envPrefix  = "STYLIST_"
)

type Config struct {
	Server  ServerConfig   `koanf:"server"`
	Worker  WorkerConfig   `koanf:"worker"`
	Log     LogConfig      `koanf:"log"`
	Cache   CacheConfig    `koanf:"cache"`
	Stylist stylist.Config `koanf:"stylist"`
}

type ServerConfig struct {
	Addr        string  `koanf:"addr"`
	Environment string  `koanf:"environment"`
	Release     string  `koanf:"release"`
	RateLimit   float64 `koanf:"rate_limit"`
	Bucket      string  `koanf:"bucket"`
}

type WorkerConfig struct {
	BrokerAddress  string `koanf:"broker_address"`
	Concurrency    int    `koanf:"concurrency"`
	StyleWeight    int    `koanf:"style_weight"`
	GenerateWeight int    `koanf:"generate_weight"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// CacheConfig sizes the in-process ristretto caches.
type CacheConfig struct {
	URLTTL         time.Duration `koanf:"url_ttl"`
	ExplanationTTL time.Duration `koanf:"explanation_ttl"`
	MaxCost        int64         `koanf:"max_cost"`
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:        ":8083",
			Environment: "local",
			Release:     "stylistapi@1.0.0",
			RateLimit:   3,
		},
		Worker: WorkerConfig{
			BrokerAddress:  "localhost:6379",
			Concurrency:    10,
			StyleWeight:    3,
			GenerateWeight: 7,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Cache: CacheConfig{
			URLTTL:         12 * time.Minute,
			ExplanationTTL: 6 * time.Hour,
			MaxCost:        1 << 27,
		},
		Stylist: stylist.DefaultConfig(),
	}
}

// Load layers struct defaults, the optional YAML file named by
// STYLIST_CONFIG and STYLIST_* environment variables. Nested keys use a
// double underscore: STYLIST_STYLIST__GATE__HIGH sets stylist.gate.high.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := os.Getenv(PathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.Stylist = cfg.Stylist.Normalize()
	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// InitLogger configures the global zerolog logger and returns it.
func InitLogger(cfg LogConfig, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger
}
