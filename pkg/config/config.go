package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "GSTBILL"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "GSTBILL_APP_ENV"
	EnvPort   = "GSTBILL_APP_PORT"
)

const (
	EnvDBDSN  = "GSTBILL_DB_DSN"
	EnvDBHost = "GSTBILL_DB_HOST"
	EnvDBUser = "GSTBILL_DB_USER"
	EnvDBName = "GSTBILL_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Numbering NumberingConfig
	Invoicing InvoicingConfig
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
	Env          string `envconfig:"GSTBILL_APP_ENV" required:"true"`
	Port         string `envconfig:"GSTBILL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GSTBILL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GSTBILL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GSTBILL_DB_DSN"`
	Driver string `envconfig:"GSTBILL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GSTBILL_DB_HOST"`
	LegacyPort     int    `envconfig:"GSTBILL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GSTBILL_DB_USER"`
	LegacyPassword string `envconfig:"GSTBILL_DB_PASSWORD"`
	LegacyName     string `envconfig:"GSTBILL_DB_NAME"`
	LegacySSLMode  string `envconfig:"GSTBILL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GSTBILL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GSTBILL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GSTBILL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GSTBILL_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"GSTBILL_DB_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	// URL is optional; when empty the numbering mutex is disabled and
	// allocation relies solely on the unique index + retry loop.
	URL          string        `envconfig:"GSTBILL_REDIS_URL"`
	Password     string        `envconfig:"GSTBILL_REDIS_PASSWORD"`
	DB           int           `envconfig:"GSTBILL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GSTBILL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GSTBILL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GSTBILL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GSTBILL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GSTBILL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type NumberingConfig struct {
	MaxAttempts int           `envconfig:"GSTBILL_NUMBERING_MAX_ATTEMPTS" default:"3"`
	LockTTL     time.Duration `envconfig:"GSTBILL_NUMBERING_LOCK_TTL" default:"5s"`
}

type InvoicingConfig struct {
	DueDays int `envconfig:"GSTBILL_INVOICE_DUE_DAYS" default:"30"`
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
