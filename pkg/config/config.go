package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "BAZAARCART"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App        AppConfig
	Service    ServiceConfig
	DB         DBConfig
	Redis      RedisConfig
	Gateway    GatewayConfig
	Shipping   ShippingConfig
	Settlement SettlementConfig
	GCP        GCPConfig
	PubSub     PubSubConfig
	Outbox     OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BAZAARCART_APP_ENV" required:"true"`
	Port         string `envconfig:"BAZAARCART_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"BAZAARCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BAZAARCART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BAZAARCART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BAZAARCART_DB_DSN"`
	Driver string `envconfig:"BAZAARCART_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"BAZAARCART_DB_HOST"`
	Port     int    `envconfig:"BAZAARCART_DB_PORT" default:"5432"`
	User     string `envconfig:"BAZAARCART_DB_USER"`
	Password string `envconfig:"BAZAARCART_DB_PASSWORD"`
	Name     string `envconfig:"BAZAARCART_DB_NAME"`
	SSLMode  string `envconfig:"BAZAARCART_DB_SSLMODE" default:"disable"`

	AutoMigrate bool `envconfig:"BAZAARCART_DB_AUTO_MIGRATE" default:"false"`

	MaxOpenConns    int           `envconfig:"BAZAARCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAZAARCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAZAARCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAZAARCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("database DSN or host/user/name settings are required")
	}
	d.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(d.Password),
		d.Host,
		d.Port,
		d.Name,
		d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"BAZAARCART_REDIS_URL"`
	Address      string        `envconfig:"BAZAARCART_REDIS_ADDR"`
	Password     string        `envconfig:"BAZAARCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAZAARCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAZAARCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAZAARCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAZAARCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAZAARCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAZAARCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// GatewayConfig holds the payment gateway credentials. WebhookSecret signs
// the confirmation callback; KeyID/KeySecret authenticate outbound order
// creation calls.
type GatewayConfig struct {
	BaseURL       string        `envconfig:"BAZAARCART_GATEWAY_BASE_URL"`
	KeyID         string        `envconfig:"BAZAARCART_GATEWAY_KEY_ID"`
	KeySecret     string        `envconfig:"BAZAARCART_GATEWAY_KEY_SECRET"`
	WebhookSecret string        `envconfig:"BAZAARCART_GATEWAY_WEBHOOK_SECRET"`
	Timeout       time.Duration `envconfig:"BAZAARCART_GATEWAY_TIMEOUT" default:"10s"`
}

type ShippingConfig struct {
	FreeThreshold int64 `envconfig:"BAZAARCART_SHIPPING_FREE_THRESHOLD" default:"499"`
	FlatFee       int64 `envconfig:"BAZAARCART_SHIPPING_FLAT_FEE" default:"49"`
}

type SettlementConfig struct {
	Interval   time.Duration `envconfig:"BAZAARCART_SETTLEMENT_INTERVAL" default:"24h"`
	PeriodDays int           `envconfig:"BAZAARCART_SETTLEMENT_PERIOD_DAYS" default:"30"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"BAZAARCART_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"BAZAARCART_PUBSUB_DOMAIN_TOPIC" default:"bazaarcart-domain-events"`
	DomainSubscription string `envconfig:"BAZAARCART_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BAZAARCART_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BAZAARCART_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BAZAARCART_OUTBOX_MAX_ATTEMPTS" default:"10"`
}
