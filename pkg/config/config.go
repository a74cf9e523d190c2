package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	PubSub        PubSubConfig
	Import        ImportConfig
	Shadow        ShadowConfig
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
	Env          string `envconfig:"ASSETDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"ASSETDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ASSETDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ASSETDESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ASSETDESK_DB_DSN"`
	Driver string `envconfig:"ASSETDESK_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"ASSETDESK_DB_HOST"`
	Port     int    `envconfig:"ASSETDESK_DB_PORT" default:"5432"`
	User     string `envconfig:"ASSETDESK_DB_USER"`
	Password string `envconfig:"ASSETDESK_DB_PASSWORD"`
	Name     string `envconfig:"ASSETDESK_DB_NAME"`
	SSLMode  string `envconfig:"ASSETDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ASSETDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ASSETDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ASSETDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ASSETDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ASSETDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ASSETDESK_REDIS_ADDR"`
	Password     string        `envconfig:"ASSETDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"ASSETDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ASSETDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ASSETDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ASSETDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ASSETDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ASSETDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"ASSETDESK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"ASSETDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"ASSETDESK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"ASSETDESK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ASSETDESK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ASSETDESK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ASSETDESK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ASSETDESK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ASSETDESK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"ASSETDESK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"ASSETDESK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"ASSETDESK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"ASSETDESK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"ASSETDESK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"ASSETDESK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ASSETDESK_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ASSETDESK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"ASSETDESK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ASSETDESK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"ASSETDESK_GCS_BUCKET_NAME" required:"true"`
}

type PubSubConfig struct {
	ImportsTopic        string `envconfig:"ASSETDESK_PUBSUB_IMPORTS_TOPIC" required:"true"`
	ImportsSubscription string `envconfig:"ASSETDESK_PUBSUB_IMPORTS_SUBSCRIPTION" required:"true"`
}

type ImportConfig struct {
	MaxUploadMB int    `envconfig:"ASSETDESK_IMPORT_MAX_UPLOAD_MB" default:"2"`
	BatchSize   int    `envconfig:"ASSETDESK_IMPORT_BATCH_SIZE" default:"100"`
	ObjectDir   string `envconfig:"ASSETDESK_IMPORT_OBJECT_DIR" default:"imports"`
}

type ShadowConfig struct {
	Endpoint        string `envconfig:"ASSETDESK_IOT_SHADOW_ENDPOINT" required:"true"`
	Region          string `envconfig:"ASSETDESK_IOT_REGION" default:"ap-northeast-1"`
	AccessKeyID     string `envconfig:"ASSETDESK_AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"ASSETDESK_AWS_SECRET_ACCESS_KEY"`
	SessionToken    string `envconfig:"ASSETDESK_AWS_SESSION_TOKEN"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
