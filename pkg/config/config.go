package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Payouts      PayoutConfig
	Shipping     ShippingConfig
	RateLimit    RateLimitConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Payouts.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PLAZA_APP_ENV" required:"true"`
	Port         string `envconfig:"PLAZA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PLAZA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PLAZA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PLAZA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PLAZA_DB_DSN"`
	Driver string `envconfig:"PLAZA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PLAZA_DB_HOST"`
	LegacyPort     int    `envconfig:"PLAZA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PLAZA_DB_USER"`
	LegacyPassword string `envconfig:"PLAZA_DB_PASSWORD"`
	LegacyName     string `envconfig:"PLAZA_DB_NAME"`
	LegacySSLMode  string `envconfig:"PLAZA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PLAZA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PLAZA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PLAZA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PLAZA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PLAZA_REDIS_URL" required:"true"`
	Password     string        `envconfig:"PLAZA_REDIS_PASSWORD"`
	DB           int           `envconfig:"PLAZA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PLAZA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PLAZA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PLAZA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PLAZA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PLAZA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PLAZA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PLAZA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PLAZA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PLAZA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PLAZA_AUTO_MIGRATE" default:"false"`
}

// PayoutConfig supplies the externally-configured commission percentage applied
// to delivered revenue.
type PayoutConfig struct {
	CommissionRatePercent string `envconfig:"PLAZA_COMMISSION_RATE_PERCENT" default:"10"`
}

func (p PayoutConfig) validate() error {
	if strings.TrimSpace(p.CommissionRatePercent) == "" {
		return fmt.Errorf("commission rate must not be empty")
	}
	return nil
}

// ShippingConfig prices the delivery fee applied at order placement.
type ShippingConfig struct {
	HomeDeliveryFeeCents  int `envconfig:"PLAZA_HOME_DELIVERY_FEE_CENTS" default:"500"`
	SurchargePerKiloCents int `envconfig:"PLAZA_SURCHARGE_PER_KILO_CENTS" default:"0"`
}

// RateLimitConfig throttles the unauthenticated tracking endpoint, which is
// the only surface open to anonymous traffic.
type RateLimitConfig struct {
	TrackingWindow  time.Duration `envconfig:"PLAZA_TRACKING_RATE_WINDOW" default:"1m"`
	TrackingIPLimit int           `envconfig:"PLAZA_TRACKING_RATE_IP_LIMIT" default:"60"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PLAZA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PLAZA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PLAZA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic  string `envconfig:"PLAZA_PUBSUB_ORDERS_TOPIC" default:"plaza-order-events"`
	PayoutsTopic string `envconfig:"PLAZA_PUBSUB_PAYOUTS_TOPIC" default:"plaza-payout-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PLAZA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PLAZA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PLAZA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
