package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SCORELINE_DB_DSN"
	EnvDBHost = "SCORELINE_DB_HOST"
	EnvDBUser = "SCORELINE_DB_USER"
	EnvDBName = "SCORELINE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Stripe       StripeConfig
	Catalog      CatalogConfig
	Assets       AssetConfig
	Mail         MailConfig
	ExtLedger    ExtLedgerConfig
	Retention    RetentionConfig
	WebhookLimit WebhookRateLimitConfig
	Links        LinkConfig
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
	Env          string `envconfig:"SCORELINE_APP_ENV" required:"true"`
	Port         string `envconfig:"SCORELINE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SCORELINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SCORELINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SCORELINE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SCORELINE_DB_DSN"`
	Driver string `envconfig:"SCORELINE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SCORELINE_DB_HOST"`
	LegacyPort     int    `envconfig:"SCORELINE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SCORELINE_DB_USER"`
	LegacyPassword string `envconfig:"SCORELINE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SCORELINE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SCORELINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SCORELINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SCORELINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SCORELINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SCORELINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SCORELINE_REDIS_URL"`
	Address      string        `envconfig:"SCORELINE_REDIS_ADDR"`
	Password     string        `envconfig:"SCORELINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SCORELINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SCORELINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SCORELINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SCORELINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SCORELINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SCORELINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SCORELINE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SCORELINE_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey         string        `envconfig:"SCORELINE_STRIPE_API_KEY"`
	WebhookSecret  string        `envconfig:"SCORELINE_STRIPE_WEBHOOK_SECRET" required:"true"`
	Env            string        `envconfig:"SCORELINE_STRIPE_ENV" default:"test"`
	IdempotencyTTL time.Duration `envconfig:"SCORELINE_STRIPE_IDEMPOTENCY_TTL" default:"72h"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CatalogConfig struct {
	BaseURL    string        `envconfig:"SCORELINE_CATALOG_BASE_URL" default:"https://api.notion.com/v1"`
	APIKey     string        `envconfig:"SCORELINE_CATALOG_API_KEY"`
	DatabaseID string        `envconfig:"SCORELINE_CATALOG_DATABASE_ID"`
	Timeout    time.Duration `envconfig:"SCORELINE_CATALOG_TIMEOUT" default:"10s"`
}

type AssetConfig struct {
	CacheDir      string        `envconfig:"SCORELINE_ASSET_CACHE_DIR" default:"./storage/assets"`
	FetchTimeout  time.Duration `envconfig:"SCORELINE_ASSET_FETCH_TIMEOUT" default:"30s"`
	MaxDownloadMB int           `envconfig:"SCORELINE_ASSET_MAX_DOWNLOAD_MB" default:"100"`
}

type MailConfig struct {
	FromEmail     string `envconfig:"SCORELINE_MAIL_FROM_EMAIL" required:"true"`
	FromName      string `envconfig:"SCORELINE_MAIL_FROM_NAME" default:"Scoreline"`
	SupportEmail  string `envconfig:"SCORELINE_MAIL_SUPPORT_EMAIL"`
	OperatorEmail string `envconfig:"SCORELINE_MAIL_OPERATOR_EMAIL"`

	MailgunAPIKey   string `envconfig:"SCORELINE_MAILGUN_API_KEY"`
	MailgunDomain   string `envconfig:"SCORELINE_MAILGUN_DOMAIN"`
	MailgunTemplate string `envconfig:"SCORELINE_MAILGUN_PURCHASE_TEMPLATE"`

	SendgridAPIKey     string `envconfig:"SCORELINE_SENDGRID_API_KEY"`
	SendgridTemplateID string `envconfig:"SCORELINE_SENDGRID_PURCHASE_TEMPLATE_ID"`

	SMTPHost     string `envconfig:"SCORELINE_SMTP_HOST"`
	SMTPPort     int    `envconfig:"SCORELINE_SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"SCORELINE_SMTP_USER"`
	SMTPPassword string `envconfig:"SCORELINE_SMTP_PASSWORD"`

	SendTimeout time.Duration `envconfig:"SCORELINE_MAIL_SEND_TIMEOUT" default:"15s"`
}

type ExtLedgerConfig struct {
	BaseURL    string        `envconfig:"SCORELINE_EXT_LEDGER_BASE_URL" default:"https://api.notion.com/v1"`
	APIKey     string        `envconfig:"SCORELINE_EXT_LEDGER_API_KEY"`
	DatabaseID string        `envconfig:"SCORELINE_EXT_LEDGER_DATABASE_ID"`
	Timeout    time.Duration `envconfig:"SCORELINE_EXT_LEDGER_TIMEOUT" default:"10s"`
}

type RetentionConfig struct {
	OrderDays    int           `envconfig:"SCORELINE_RETENTION_ORDER_DAYS" default:"365"`
	AttemptDays  int           `envconfig:"SCORELINE_RETENTION_ATTEMPT_DAYS" default:"30"`
	CronInterval time.Duration `envconfig:"SCORELINE_CRON_INTERVAL" default:"24h"`
}

type WebhookRateLimitConfig struct {
	Window time.Duration `envconfig:"SCORELINE_WEBHOOK_RATE_WINDOW" default:"1m"`
	Limit  int           `envconfig:"SCORELINE_WEBHOOK_RATE_LIMIT" default:"120"`
}

type LinkConfig struct {
	WebsiteURL  string `envconfig:"SCORELINE_WEBSITE_URL" default:"https://scoreline.example.com"`
	SupportURL  string `envconfig:"SCORELINE_SUPPORT_URL"`
	AdminOrders string `envconfig:"SCORELINE_ADMIN_ORDERS_URL"`
}

// DownloadLink builds the customer-facing download URL for an order.
func (l LinkConfig) DownloadLink(orderID string) string {
	return strings.TrimRight(l.WebsiteURL, "/") + "/download/" + url.PathEscape(orderID)
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
