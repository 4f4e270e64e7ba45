package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Escrow   EscrowConfig
	Paystack PaystackConfig
	CORS     CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Paystack.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SAFELINK_APP_ENV" required:"true"`
	Port         string `envconfig:"SAFELINK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SAFELINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SAFELINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SAFELINK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"SAFELINK_DB_DSN" required:"true"`

	MaxOpenConns    int           `envconfig:"SAFELINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SAFELINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SAFELINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SAFELINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"SAFELINK_DB_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SAFELINK_REDIS_URL"`
	Address      string        `envconfig:"SAFELINK_REDIS_ADDR"`
	Password     string        `envconfig:"SAFELINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"SAFELINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SAFELINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SAFELINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SAFELINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SAFELINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SAFELINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes the access tokens minted by the external identity
// provider. The backend only validates them; it never issues sessions.
type JWTConfig struct {
	Secret string `envconfig:"SAFELINK_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"SAFELINK_JWT_ISSUER" required:"true"`
}

type EscrowConfig struct {
	// GracePeriod is how long an unresolved order may sit before the refund
	// sweep claims the funds back for the buyer.
	GracePeriod time.Duration `envconfig:"SAFELINK_ESCROW_GRACE_PERIOD" default:"336h"`
	// CodeTTL bounds how long the raw delivery code stays readable by the
	// buyer. The hash on the order is the only durable representation.
	CodeTTL       time.Duration `envconfig:"SAFELINK_ESCROW_CODE_TTL" default:"336h"`
	SweepInterval time.Duration `envconfig:"SAFELINK_ESCROW_SWEEP_INTERVAL" default:"24h"`
	BcryptCost    int           `envconfig:"SAFELINK_ESCROW_BCRYPT_COST" default:"10"`
}

type PaystackConfig struct {
	SecretKey string `envconfig:"SAFELINK_PAYSTACK_SECRET_KEY"`
	BaseURL   string `envconfig:"SAFELINK_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	// Mode selects the gateway adapter at wiring time: "sandbox" returns
	// synthetic transfer successes, "live" moves real money.
	Mode     string        `envconfig:"SAFELINK_PAYSTACK_MODE" default:"sandbox"`
	Currency string        `envconfig:"SAFELINK_PAYSTACK_CURRENCY" default:"NGN"`
	Timeout  time.Duration `envconfig:"SAFELINK_PAYSTACK_TIMEOUT" default:"15s"`
}

func (p PaystackConfig) IsSandbox() bool {
	return strings.EqualFold(p.Mode, PaystackModeSandbox)
}

func (p PaystackConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(p.Mode)) {
	case PaystackModeSandbox, PaystackModeLive:
	default:
		return fmt.Errorf("paystack mode must be %q or %q, got %q", PaystackModeSandbox, PaystackModeLive, p.Mode)
	}
	if !p.IsSandbox() && strings.TrimSpace(p.SecretKey) == "" {
		return fmt.Errorf("paystack secret key is required in live mode")
	}
	return nil
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"SAFELINK_CORS_ALLOWED_ORIGINS"`
}
