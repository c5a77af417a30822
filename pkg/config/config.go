package config

import (
	"database/sql"
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
	Ledger       LedgerConfig
	Summary      SummaryConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.DB.IsolationLevel(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CASHFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"CASHFLOW_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CASHFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CASHFLOW_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"CASHFLOW_LOG_FORMAT" default:"json"`

	CORSOrigins []string `envconfig:"CASHFLOW_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CASHFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN       string `envconfig:"CASHFLOW_DB_DSN"`
	Driver    string `envconfig:"CASHFLOW_DB_DRIVER" default:"postgres"`
	Isolation string `envconfig:"CASHFLOW_DB_ISOLATION" default:"serializable"`

	LegacyHost     string `envconfig:"CASHFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"CASHFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CASHFLOW_DB_USER"`
	LegacyPassword string `envconfig:"CASHFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"CASHFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"CASHFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CASHFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CASHFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CASHFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CASHFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsolationLevel maps the configured isolation name onto database/sql levels.
func (db DBConfig) IsolationLevel() (sql.IsolationLevel, error) {
	switch strings.ToLower(strings.TrimSpace(db.Isolation)) {
	case "", "serializable":
		return sql.LevelSerializable, nil
	case "repeatable_read", "repeatable read":
		return sql.LevelRepeatableRead, nil
	case "read_committed", "read committed":
		return sql.LevelReadCommitted, nil
	case "default":
		return sql.LevelDefault, nil
	default:
		return sql.LevelDefault, fmt.Errorf("unsupported %s %q", EnvDBIsolation, db.Isolation)
	}
}

type RedisConfig struct {
	URL          string        `envconfig:"CASHFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CASHFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"CASHFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"CASHFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CASHFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CASHFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CASHFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CASHFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CASHFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CASHFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CASHFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CASHFLOW_JWT_EXPIRATION_MINUTES" default:"60"`
}

// LedgerConfig bounds how long an allocation may wait on contended rows.
type LedgerConfig struct {
	MaxAttempts int           `envconfig:"CASHFLOW_LEDGER_MAX_ATTEMPTS" default:"4"`
	BackoffBase time.Duration `envconfig:"CASHFLOW_LEDGER_BACKOFF_BASE" default:"25ms"`
	LockTimeout time.Duration `envconfig:"CASHFLOW_LEDGER_LOCK_TIMEOUT" default:"3s"`
}

type SummaryConfig struct {
	CacheTTL time.Duration `envconfig:"CASHFLOW_SUMMARY_CACHE_TTL" default:"30s"`
}

type CronConfig struct {
	Interval    time.Duration `envconfig:"CASHFLOW_CRON_INTERVAL" default:"6h"`
	// Schedule takes precedence over Interval, e.g. "15 3 * * *".
	Schedule    string        `envconfig:"CASHFLOW_CRON_SCHEDULE"`
	JobTimeout  time.Duration `envconfig:"CASHFLOW_CRON_JOB_TIMEOUT" default:"10m"`
	MetricsAddr string        `envconfig:"CASHFLOW_CRON_METRICS_ADDR" default:":9091"`
}

// RateLimitConfig caps authenticated writes per owner; a zero limit disables it.
type RateLimitConfig struct {
	WriteLimit  int           `envconfig:"CASHFLOW_RATE_LIMIT_WRITES" default:"120"`
	WriteWindow time.Duration `envconfig:"CASHFLOW_RATE_LIMIT_WINDOW" default:"1m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CASHFLOW_AUTO_MIGRATE" default:"false"`
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
