package config

// EnvPrefix namespaces envconfig lookups; fields fall back to their explicit tag names.
const EnvPrefix = "CASHFLOW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "CASHFLOW_APP_ENV"
	EnvPort   = "CASHFLOW_APP_PORT"

	EnvDBDSN       = "CASHFLOW_DB_DSN"
	EnvDBHost      = "CASHFLOW_DB_HOST"
	EnvDBUser      = "CASHFLOW_DB_USER"
	EnvDBName      = "CASHFLOW_DB_NAME"
	EnvDBIsolation = "CASHFLOW_DB_ISOLATION"

	EnvRedisURL = "CASHFLOW_REDIS_URL"

	EnvJWTSecret = "CASHFLOW_JWT_SECRET"
	EnvJWTIssuer = "CASHFLOW_JWT_ISSUER"

	EnvLedgerMaxAttempts = "CASHFLOW_LEDGER_MAX_ATTEMPTS"
	EnvLedgerLockTimeout = "CASHFLOW_LEDGER_LOCK_TIMEOUT"
	EnvSummaryCacheTTL   = "CASHFLOW_SUMMARY_CACHE_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
