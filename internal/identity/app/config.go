package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config holds every tunable of the identity service, sourced from the
// environment. Email delivery credentials are only enforced outside local,
// where the log sender stands in for Resend.
type Config struct {
	Env       string `env:"ENV"        envDefault:"local" validate:"required,oneof=local staging production"`
	Port      int    `env:"PORT"       envDefault:"8080"  validate:"min=1,max=65535"`
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"  validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"  validate:"oneof=json text"`

	DatabaseFile string `env:"IDENTITY_DATABASE_FILE" envDefault:"identity.db" validate:"required"`
	PepperFile   string `env:"IDENTITY_PEPPER_FILE"   envDefault:"pepper"      validate:"required"`

	LinkBase string `env:"IDENTITY_LINK_BASE" envDefault:"http://localhost:3000" validate:"url"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`

	SessionTTL  time.Duration `env:"SESSION_TTL"        envDefault:"720h"`
	OtpTTL      time.Duration `env:"OTP_TTL"            envDefault:"10m"`
	RecoveryTTL time.Duration `env:"RECOVERY_TOKEN_TTL" envDefault:"1h"`
	InviteTTL   time.Duration `env:"INVITE_TTL"         envDefault:"72h"`

	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL"  envDefault:"1h"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD"  envDefault:"10s"`
}

// LoadConfig reads the configuration from the environment and validates it.
func LoadConfig() (Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
