package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mwhitt/stockpulse/internal/backtest"
	"github.com/mwhitt/stockpulse/internal/ledger"
	"github.com/mwhitt/stockpulse/internal/regime"
	"github.com/mwhitt/stockpulse/internal/sizing"
)

// Config is the full application configuration.
type Config struct {
	Regime   regime.Config         `yaml:"regime"`
	Backtest backtest.Config       `yaml:"backtest"`
	Ledger   ledger.Config         `yaml:"ledger"`
	Risk     sizing.RiskParameters `yaml:"risk"`
	Server   ServerConfig          `yaml:"server"`
	Redis    RedisConfig           `yaml:"redis"`
	Postgres PostgresConfig        `yaml:"postgres"`
	Provider ProviderConfig        `yaml:"provider"`
	Workers  int                   `yaml:"workers"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds  int    `yaml:"idle_timeout_seconds"`
}

// ReadTimeout converts the configured value to a duration.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout converts the configured value to a duration.
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

// IdleTimeout converts the configured value to a duration.
func (s ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutSeconds) * time.Second
}

// RedisConfig holds quote cache settings. Empty Addr disables Redis.
type RedisConfig struct {
	Addr              string `yaml:"addr"`
	DB                int    `yaml:"db"`
	DefaultTTLSeconds int    `yaml:"default_ttl_seconds"`
}

// DefaultTTL converts the configured TTL to a duration.
func (r RedisConfig) DefaultTTL() time.Duration {
	return time.Duration(r.DefaultTTLSeconds) * time.Second
}

// PostgresConfig holds trade journal settings. Empty DSN disables the
// journal.
type PostgresConfig struct {
	DSN                 string `yaml:"dsn"`
	QueryTimeoutSeconds int    `yaml:"query_timeout_seconds"`
}

// QueryTimeout converts the configured value to a duration.
func (p PostgresConfig) QueryTimeout() time.Duration {
	return time.Duration(p.QueryTimeoutSeconds) * time.Second
}

// ProviderConfig bounds outbound market data calls.
type ProviderConfig struct {
	Name string  `yaml:"name"`
	RPS  float64 `yaml:"rps"`
}

// Default returns a runnable configuration with standard thresholds.
func Default() Config {
	return Config{
		Regime:   regime.DefaultConfig(),
		Backtest: backtest.DefaultConfig(),
		Ledger:   ledger.DefaultConfig(),
		Risk: sizing.RiskParameters{
			AccountEquity:          100000,
			RiskPerTradePercent:    0.02,
			MaxPositionSizePercent: 0.10,
		},
		Server: ServerConfig{
			Host:                "127.0.0.1",
			Port:                8090,
			ReadTimeoutSeconds:  10,
			WriteTimeoutSeconds: 30,
			IdleTimeoutSeconds:  60,
		},
		Redis:    RedisConfig{DefaultTTLSeconds: 15},
		Postgres: PostgresConfig{QueryTimeoutSeconds: 5},
		Provider: ProviderConfig{Name: "default", RPS: 5},
		Workers:  2,
	}
}

// Load reads a yaml config file over the defaults. A missing path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
