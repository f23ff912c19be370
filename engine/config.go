package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/lingodotdev/lingo-go/retry"
)

// Default batching and transport settings, matching the engine service's
// documented limits.
const (
	DefaultBatchSize          = 25
	MaxBatchSize              = 250
	DefaultIdealBatchItemSize = 250
	MaxIdealBatchItemSize     = 2500
	DefaultTimeout            = 30 * time.Second
	MaxTimeout                = 300 * time.Second
	DefaultMaxConcurrent      = 5
)

// Config configures an Engine. Validate is called once at construction;
// after that the values are trusted everywhere else.
type Config struct {
	// APIKey authenticates against the engine service. Required.
	APIKey string
	// APIURL is the engine endpoint (default https://engine.lingo.dev).
	APIURL string
	// BatchSize caps the number of items per chunk (1..250, default 25).
	BatchSize int
	// IdealBatchItemSize is the approximate word cap per chunk
	// (1..2500, default 250).
	IdealBatchItemSize int
	// Timeout is the per-request HTTP timeout (1s..300s, default 30s).
	Timeout time.Duration
	// MaxConcurrent caps in-flight chunk sends in concurrent mode (>= 1).
	MaxConcurrent int
	// Retry configures the backoff policy and retry executor.
	Retry retry.Config
}

func (c Config) withDefaults() Config {
	if c.APIURL == "" {
		c.APIURL = "https://engine.lingo.dev"
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.IdealBatchItemSize == 0 {
		c.IdealBatchItemSize = DefaultIdealBatchItemSize
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	return c
}

// Validate range-checks every field. It is applied to the defaulted config,
// so a zero value for an optional field never fails.
func (c Config) Validate() error {
	key := strings.TrimSpace(c.APIKey)
	if key == "" {
		return fmt.Errorf("engine: API key is required")
	}
	if len(key) < 10 {
		return fmt.Errorf("engine: API key appears to be too short")
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("engine: API URL must be a valid HTTP/HTTPS URL, got %q", c.APIURL)
	}
	if c.BatchSize < 1 || c.BatchSize > MaxBatchSize {
		return fmt.Errorf("engine: batch size %d outside [1, %d]", c.BatchSize, MaxBatchSize)
	}
	if c.IdealBatchItemSize < 1 || c.IdealBatchItemSize > MaxIdealBatchItemSize {
		return fmt.Errorf("engine: ideal batch item size %d outside [1, %d]", c.IdealBatchItemSize, MaxIdealBatchItemSize)
	}
	if c.Timeout < time.Second || c.Timeout > MaxTimeout {
		return fmt.Errorf("engine: timeout %s outside [1s, %s]", c.Timeout, MaxTimeout)
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("engine: max concurrent %d must be >= 1", c.MaxConcurrent)
	}
	if err := c.Retry.Validate(); err != nil {
		return err
	}
	return nil
}
