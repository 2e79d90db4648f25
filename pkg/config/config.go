package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	GeoLimit   GeoRateLimitConfig
	GoogleMaps GoogleMapsConfig
	GCP        GCPConfig
	GCS        GCSConfig
	PubSub     PubSubConfig
	Dispatch   DispatchConfig
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
	Env          string `envconfig:"RELAYDROP_APP_ENV" required:"true"`
	Port         string `envconfig:"RELAYDROP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RELAYDROP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RELAYDROP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RELAYDROP_DB_DSN"`
	Driver string `envconfig:"RELAYDROP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RELAYDROP_DB_HOST"`
	LegacyPort     int    `envconfig:"RELAYDROP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RELAYDROP_DB_USER"`
	LegacyPassword string `envconfig:"RELAYDROP_DB_PASSWORD"`
	LegacyName     string `envconfig:"RELAYDROP_DB_NAME"`
	LegacySSLMode  string `envconfig:"RELAYDROP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RELAYDROP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RELAYDROP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RELAYDROP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RELAYDROP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RELAYDROP_REDIS_URL" required:"true"`
	Password     string        `envconfig:"RELAYDROP_REDIS_PASSWORD"`
	DB           int           `envconfig:"RELAYDROP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RELAYDROP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RELAYDROP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RELAYDROP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RELAYDROP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RELAYDROP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RELAYDROP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RELAYDROP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"RELAYDROP_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// GeoRateLimitConfig throttles geocoding-backed endpoints per principal.
type GeoRateLimitConfig struct {
	Window time.Duration `envconfig:"RELAYDROP_GEO_RATE_LIMIT_WINDOW" default:"1m"`
	Limit  int           `envconfig:"RELAYDROP_GEO_RATE_LIMIT" default:"10"`
}

type GoogleMapsConfig struct {
	APIKey string `envconfig:"RELAYDROP_GOOGLE_MAPS_API_KEY"`
	// AverageSpeedKmh feeds the straight-line fallback ETA when the routing
	// provider is not configured.
	AverageSpeedKmh float64       `envconfig:"RELAYDROP_GEO_AVERAGE_SPEED_KMH" default:"30"`
	Timeout         time.Duration `envconfig:"RELAYDROP_GEO_TIMEOUT" default:"10s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"RELAYDROP_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"RELAYDROP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string        `envconfig:"RELAYDROP_GCS_BUCKET_NAME"`
	Timeout    time.Duration `envconfig:"RELAYDROP_GCS_TIMEOUT" default:"10s"`
}

type PubSubConfig struct {
	DriverTopic string `envconfig:"RELAYDROP_PUBSUB_DRIVER_TOPIC" default:"rd-driver-events"`
	StoreTopic  string `envconfig:"RELAYDROP_PUBSUB_STORE_TOPIC" default:"rd-store-events"`
}

// DispatchConfig bounds the fire-and-forget notification fan-out.
type DispatchConfig struct {
	Timeout time.Duration `envconfig:"RELAYDROP_DISPATCH_TIMEOUT" default:"10s"`
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
