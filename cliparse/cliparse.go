package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port         int    `env:"PORT" envDefault:"3318"`
	DatabaseURL  string `env:"DATABASE_URL" envDefault:"file:cla-access.db"`
	DatabaseType string `env:"DATABASE_TYPE" envDefault:"sqlite"`
	FlowKeySalt  string `env:"FLOW_KEY_SALT"`

	// Flows untouched this long are dismissed; 0 keeps them until shutdown.
	FlowIdleTTL time.Duration `env:"FLOW_IDLE_TTL" envDefault:"30m"`

	// Remote CLA backend
	CLAAPIURL     string        `env:"CLA_API_URL"`
	CLAAPITimeout time.Duration `env:"CLA_API_TIMEOUT" envDefault:"30s"`
	CLAAPIRate    float64       `env:"CLA_API_RATE" envDefault:"0"`
	CLAAPIBurst   int           `env:"CLA_API_BURST" envDefault:"10"`
}

// ParseFlags loads an optional .env file, reads the environment, then
// applies CLI flags on top. Flags always win.
func ParseFlags(args []string) (Config, error) {
	var (
		flags   Config
		envFile string
	)

	fs := flag.NewFlagSet("cla-access", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&flags.Port, "p", 0, "Server port")
	fs.StringVar(&flags.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&flags.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&flags.CLAAPIURL, "api", "", "CLA backend base URL")
	fs.DurationVar(&flags.CLAAPITimeout, "api-timeout", 0, "CLA backend request timeout")
	fs.Float64Var(&flags.CLAAPIRate, "api-rate", 0, "CLA backend requests per second (0 = unlimited)")
	fs.IntVar(&flags.CLAAPIBurst, "api-burst", 0, "CLA backend request burst")
	fs.DurationVar(&flags.FlowIdleTTL, "flow-ttl", 0, "Dismiss flows idle this long (0 = never)")
	fs.StringVar(&envFile, "env-file", "", "Path to a .env file (default: ./.env if present)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&flags.FlowKeySalt, "flow-salt", "", "Flow key salt (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	// CLI overrides env
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "p":
			cfg.Port = flags.Port
		case "d":
			cfg.DatabaseURL = flags.DatabaseURL
		case "t":
			cfg.DatabaseType = flags.DatabaseType
		case "api":
			cfg.CLAAPIURL = flags.CLAAPIURL
		case "api-timeout":
			cfg.CLAAPITimeout = flags.CLAAPITimeout
		case "api-rate":
			cfg.CLAAPIRate = flags.CLAAPIRate
		case "api-burst":
			cfg.CLAAPIBurst = flags.CLAAPIBurst
		case "flow-ttl":
			cfg.FlowIdleTTL = flags.FlowIdleTTL
		case "flow-salt":
			cfg.FlowKeySalt = flags.FlowKeySalt
		}
	})

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadEnvFile loads path, or ./.env when path is empty. A missing default
// file is not an error. Variables already set in the environment win.
func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("invalid port")
	}
	if c.CLAAPIURL == "" {
		return errors.New("CLA API URL required (use -api or CLA_API_URL env)")
	}
	if c.DatabaseType != "sqlite" && c.DatabaseType != "postgres" {
		return fmt.Errorf("database type must be sqlite or postgres, got %q", c.DatabaseType)
	}
	if c.DatabaseURL == "" {
		return errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	// Secrets - MUST be provided
	if c.FlowKeySalt == "" {
		return errors.New("FLOW_KEY_SALT required")
	}

	if c.FlowIdleTTL < 0 {
		return errors.New("flow idle TTL must be >= 0")
	}
	if c.CLAAPITimeout <= 0 {
		return errors.New("CLA API timeout must be positive")
	}
	if c.CLAAPIRate < 0 || c.CLAAPIBurst <= 0 {
		return errors.New("CLA API rate must be >= 0 and burst > 0")
	}
	return nil
}
