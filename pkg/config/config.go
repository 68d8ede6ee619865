package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Inventory    InventoryConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Maintenance  MaintenanceConfig
}

// Load reads every HWINV_* variable. A missing HWINV_APP_ENV or database
// location is an error.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("read HWINV environment: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"HWINV_APP_ENV" required:"true"`
	Port         string `envconfig:"HWINV_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"HWINV_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HWINV_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"HWINV_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"HWINV_DB_DSN"`
	Driver string `envconfig:"HWINV_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HWINV_DB_HOST"`
	LegacyPort     int    `envconfig:"HWINV_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HWINV_DB_USER"`
	LegacyPassword string `envconfig:"HWINV_DB_PASSWORD"`
	LegacyName     string `envconfig:"HWINV_DB_NAME"`
	LegacySSLMode  string `envconfig:"HWINV_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HWINV_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HWINV_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HWINV_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HWINV_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"HWINV_DB_SLOW_QUERY" default:"200ms"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite engine.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

// DriverName is the lower-cased driver, used to label the database in health
// reports. An unset driver reads as postgres, matching the envconfig default.
func (db DBConfig) DriverName() string {
	name := strings.ToLower(strings.TrimSpace(db.Driver))
	if name == "" {
		return DriverPostgres
	}
	return name
}

// Redis holds idempotency records and the maintenance lease. Leaving both URL
// and address empty disables it.
type RedisConfig struct {
	URL            string        `envconfig:"HWINV_REDIS_URL"`
	Address        string        `envconfig:"HWINV_REDIS_ADDR"`
	Password       string        `envconfig:"HWINV_REDIS_PASSWORD"`
	DB             int           `envconfig:"HWINV_REDIS_DB" default:"0"`
	PoolSize       int           `envconfig:"HWINV_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns   int           `envconfig:"HWINV_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout    time.Duration `envconfig:"HWINV_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"HWINV_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout   time.Duration `envconfig:"HWINV_REDIS_WRITE_TIMEOUT" default:"5s"`
	IdempotencyTTL time.Duration `envconfig:"HWINV_IDEMPOTENCY_TTL" default:"24h"`
}

// Enabled reports whether enough connection details were supplied to dial redis.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	AutoMigrate         bool `envconfig:"HWINV_AUTO_MIGRATE" default:"false"`
	EnforceIdempotency  bool `envconfig:"HWINV_ENFORCE_IDEMPOTENCY" default:"false"`
	SeedSampleInventory bool `envconfig:"HWINV_SEED_SAMPLE_INVENTORY" default:"false"`
	// AllowRestore mounts POST /api/v1/reports/backup, which replaces all data.
	AllowRestore        bool `envconfig:"HWINV_ALLOW_RESTORE" default:"false"`
}

type InventoryConfig struct {
	DefaultActorID int64 `envconfig:"HWINV_DEFAULT_ACTOR_ID" default:"1"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"HWINV_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"HWINV_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	StockAlertsTopic string `envconfig:"HWINV_PUBSUB_STOCK_ALERTS_TOPIC" default:"hwinv-stock-alerts"`
	OrdersTopic      string `envconfig:"HWINV_PUBSUB_ORDERS_TOPIC" default:"hwinv-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"HWINV_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"HWINV_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"HWINV_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type MaintenanceConfig struct {
	Interval        time.Duration `envconfig:"HWINV_MAINTENANCE_INTERVAL" default:"1h"`
	LockTTL         time.Duration `envconfig:"HWINV_MAINTENANCE_LOCK_TTL" default:"30m"`
	OutboxRetention time.Duration `envconfig:"HWINV_OUTBOX_RETENTION" default:"720h"`
}

// ensureDSN assembles a postgres URL from the HWINV_DB_HOST style parts when
// HWINV_DB_DSN is unset.
func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	parts := []struct{ env, value string }{
		{EnvDBHost, db.LegacyHost},
		{EnvDBUser, db.LegacyUser},
		{EnvDBName, db.LegacyName},
	}
	var missing []string
	for _, p := range parts {
		if p.value == "" {
			missing = append(missing, p.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s is unset and so is %s", EnvDBDSN, strings.Join(missing, ", "))
	}

	dsn := url.URL{
		Scheme: "postgres",
		User:   url.User(db.LegacyUser),
		Host:   net.JoinHostPort(db.LegacyHost, strconv.Itoa(db.LegacyPort)),
		Path:   db.LegacyName,
	}
	if db.LegacyPassword != "" {
		dsn.User = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}
	if db.LegacySSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.LegacySSLMode}}.Encode()
	}
	db.DSN = dsn.String()
	return nil
}
