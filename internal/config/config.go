package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config is loaded from the environment at process start. Every secret the
// service cannot run without is marked required so a missing value fails fast
// instead of crashing mid-request.
type Config struct {
	Debug    bool `env:"DEBUG" envDefault:"false"`
	HTTPPort int  `env:"HTTP_PORT" envDefault:"3002"`

	Chain struct {
		RPCURL          string `env:"RPC_URL,required"`
		ChainID         int64  `env:"CHAIN_ID" envDefault:"1"`
		ContractAddress string `env:"CONTRACT_ADDRESS,required"`
		MinterKey       string `env:"MINTER_PRIVATE_KEY,required"`
	}

	Stripe struct {
		SecretKey     string `env:"STRIPE_SECRET_KEY,required"`
		WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"`
	}

	Pricing struct {
		UnitPriceUSDCents int64 `env:"UNIT_PRICE_USD_CENTS" envDefault:"5000"`
		MaxPerTransaction int   `env:"MAX_PER_TRANSACTION" envDefault:"10"`
	}

	Ledger struct {
		// DatabaseURL selects the Postgres store; when empty the service
		// falls back to the file store at Path.
		DatabaseURL string `env:"DATABASE_URL" envDefault:""`
		Path        string `env:"LEDGER_PATH" envDefault:"data/minted-intents.json"`
	}

	Reconciliation struct {
		Dir string `env:"RECONCILIATION_DIR" envDefault:"data/reconciliation"`
	}

	Admin struct {
		HMACSecret string        `env:"ADMIN_HMAC_SECRET" envDefault:""`
		ClockSkew  time.Duration `env:"ADMIN_HMAC_CLOCK_SKEW" envDefault:"60s"`
	}

	Timeouts struct {
		Confirmation    time.Duration `env:"CONFIRMATION_TIMEOUT" envDefault:"2m"`
		RPC             time.Duration `env:"RPC_TIMEOUT" envDefault:"15s"`
		ShutdownGrace   time.Duration `env:"SHUTDOWN_GRACE" envDefault:"10s"`
		DisplayInterval time.Duration `env:"DISPLAY_REFRESH_INTERVAL" envDefault:"30s"`
	}
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	// Missing .env is fine; production sets variables directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.Pricing.MaxPerTransaction < 1 {
		return nil, fmt.Errorf("MAX_PER_TRANSACTION must be at least 1, got %d", cfg.Pricing.MaxPerTransaction)
	}
	if cfg.Pricing.UnitPriceUSDCents < 1 {
		return nil, fmt.Errorf("UNIT_PRICE_USD_CENTS must be positive, got %d", cfg.Pricing.UnitPriceUSDCents)
	}
	return cfg, nil
}
