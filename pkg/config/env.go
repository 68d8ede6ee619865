package config

const (
	EnvPrefix = "HWINV"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv       = "HWINV_APP_ENV"
	EnvPort         = "HWINV_APP_PORT"
	EnvLogLevel     = "HWINV_LOG_LEVEL"
	EnvDBDSN        = "HWINV_DB_DSN"
	EnvDBDriver     = "HWINV_DB_DRIVER"
	EnvDBHost       = "HWINV_DB_HOST"
	EnvDBPort       = "HWINV_DB_PORT"
	EnvDBUser       = "HWINV_DB_USER"
	EnvDBPassword   = "HWINV_DB_PASSWORD"
	EnvDBName       = "HWINV_DB_NAME"
	EnvDBSSLMode    = "HWINV_DB_SSLMODE"
	EnvRedisURL     = "HWINV_REDIS_URL"
	EnvRedisAddr    = "HWINV_REDIS_ADDR"
	EnvAutoMigrate  = "HWINV_AUTO_MIGRATE"
	EnvDefaultActor = "HWINV_DEFAULT_ACTOR_ID"
	EnvGCPProjectID = "HWINV_GCP_PROJECT_ID"
	EnvStockTopic   = "HWINV_PUBSUB_STOCK_ALERTS_TOPIC"
	EnvOutboxBatch  = "HWINV_OUTBOX_PUBLISH_BATCH_SIZE"
)
