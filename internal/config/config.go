// Package config loads service configuration from a yaml file and the
// environment. Environment variables override file values; defaults keep a
// bare `go run ./cmd/api` working against an in-memory store.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root configuration for the API process.
type Config struct {
	Env  string     `yaml:"env" env:"VOLUNTEER_ENV" env-default:"local"`
	HTTP HTTPConfig `yaml:"http"`
	DB   DBConfig   `yaml:"db"`
	Auth AuthConfig `yaml:"auth"`
	Rate RateConfig `yaml:"rate"`
}

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Host string `yaml:"host" env:"VOLUNTEER_HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"VOLUNTEER_HTTP_PORT" env-default:"8080"`
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// DBConfig holds Postgres settings. An empty DSN means the in-memory stores
// are used, which is the local development default.
type DBConfig struct {
	DSN string `yaml:"dsn" env:"VOLUNTEER_PG_DSN" env-default:""`
}

// AuthConfig holds token issuance parameters.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret" env:"VOLUNTEER_JWT_SECRET" env-default:""`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"VOLUNTEER_ACCESS_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"VOLUNTEER_REFRESH_TTL" env-default:"168h"`
	SweepInterval   time.Duration `yaml:"sweep_interval" env:"VOLUNTEER_SWEEP_INTERVAL" env-default:"1h"`
}

// RateConfig holds the per-IP request rate limit.
type RateConfig struct {
	PerSecond int `yaml:"per_second" env:"VOLUNTEER_RATE_PER_SECOND" env-default:"20"`
	Burst     int `yaml:"burst" env:"VOLUNTEER_RATE_BURST" env-default:"40"`
}

// Load reads configuration from path (optional) and the environment.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env config: %w", err)
	}
	return &cfg, nil
}

// MustLoad is Load with panic on failure, for main wiring.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
