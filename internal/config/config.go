// Package config loads server configuration from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all server settings.
type Config struct {
	Addr          string        `env:"ADDR" envDefault:":8080"`
	RedisURL      string        `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	MongoURI      string        `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string        `env:"MONGO_DB" envDefault:"speedrace"`
	Username      string        `env:"COORDINATOR_USERNAME" envDefault:"teacher"`
	Password      string        `env:"COORDINATOR_PASSWORD" envDefault:"password123"`
	JWTSecret     string        `env:"JWT_SECRET" envDefault:"super-secret-key-change-in-production"`
	PollInterval  time.Duration `env:"POLL_INTERVAL" envDefault:"400ms"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
