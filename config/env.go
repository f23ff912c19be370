package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Env holds environment-driven settings shared by all CLI commands.
type Env struct {
	Environment string        `envconfig:"LINGO_ENVIRONMENT" default:"local"`
	LogLevel    string        `envconfig:"LINGO_LOG_LEVEL" default:"warn"`
	APIURL      string        `envconfig:"LINGO_API_URL" default:"https://engine.lingo.dev"`
	Timeout     time.Duration `envconfig:"LINGO_TIMEOUT" default:"30s"`
}

// LoadEnv loads a .env file when present (existing process variables win)
// and then parses the LINGO_* environment into an Env.
func LoadEnv() (*Env, error) {
	// Best effort: a missing .env is the normal case.
	_ = godotenv.Load()

	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &env, nil
}
