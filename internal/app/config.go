package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (KART_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	RulesFile    string `default:"" usage:"Pricing rules YAML file; empty uses the built-in promotions" flag:"rules-file"`
	MaxBatch     int    `default:"100" usage:"Maximum carts per batch quote request" flag:"max-batch"`
	BatchWorkers int    `default:"8" usage:"Carts priced concurrently per batch request" flag:"batch-workers"`
	MaxBodyBytes int64  `default:"1048576" usage:"Maximum request body size in bytes" flag:"max-body-bytes"`
	RateLimit    RateLimitConfig
	Graceful     GracefulConfig
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window, 0 disables limiting"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files and flags, then applies platform defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "KART",
		Files:     []string{"config.yaml", "/etc/kart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.MaxBatch < 1:
		return errors.Errorf("max batch must be positive, got %d", c.MaxBatch)
	case c.BatchWorkers < 0:
		return errors.Errorf("batch workers must not be negative, got %d", c.BatchWorkers)
	case c.RateLimit.Max < 0:
		return errors.Errorf("rate limit must not be negative, got %d", c.RateLimit.Max)
	case c.RateLimit.Max > 0 && c.RateLimit.Window <= 0:
		return errors.New("rate limit window must be positive")
	}
	return nil
}

// applyPlatformDefaults honours the PORT variable set by hosting platforms
// unless the address was configured explicitly.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
