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
	OTP           OTPConfig
	FeatureFlags  FeatureFlagsConfig
	Mailer        MailerConfig
	GCP           GCPConfig
	Import        ImportConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Mailer.validate(cfg.GCP); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env             string        `envconfig:"CONTACTBOOK_APP_ENV" required:"true"`
	Port            string        `envconfig:"CONTACTBOOK_APP_PORT" required:"true"`
	BaseURL         string        `envconfig:"CONTACTBOOK_APP_BASE_URL" default:"http://localhost:8080"`
	LogLevel        string        `envconfig:"CONTACTBOOK_LOG_LEVEL" default:"info"`
	LogWarnStack    bool          `envconfig:"CONTACTBOOK_LOG_WARN_STACK" default:"false"`
	ShutdownTimeout time.Duration `envconfig:"CONTACTBOOK_SHUTDOWN_TIMEOUT" default:"15s"`
	CORSOrigins     []string      `envconfig:"CONTACTBOOK_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CONTACTBOOK_DB_DSN"`
	Driver string `envconfig:"CONTACTBOOK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CONTACTBOOK_DB_HOST"`
	LegacyPort     int    `envconfig:"CONTACTBOOK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CONTACTBOOK_DB_USER"`
	LegacyPassword string `envconfig:"CONTACTBOOK_DB_PASSWORD"`
	LegacyName     string `envconfig:"CONTACTBOOK_DB_NAME"`
	LegacySSLMode  string `envconfig:"CONTACTBOOK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CONTACTBOOK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CONTACTBOOK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CONTACTBOOK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CONTACTBOOK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// NormalizedDriver returns the lower-cased driver name, defaulting to postgres.
func (db DBConfig) NormalizedDriver() string {
	driver := strings.ToLower(strings.TrimSpace(db.Driver))
	if driver == "" {
		return DriverPostgres
	}
	return driver
}

// IsSQLite reports whether the service runs on the embedded SQLite driver.
func (db DBConfig) IsSQLite() bool {
	return db.NormalizedDriver() == DriverSQLite
}

// RedisConfig is optional; an empty URL and address disables the Redis-backed features.
type RedisConfig struct {
	URL          string        `envconfig:"CONTACTBOOK_REDIS_URL"`
	Address      string        `envconfig:"CONTACTBOOK_REDIS_ADDR"`
	Password     string        `envconfig:"CONTACTBOOK_REDIS_PASSWORD"`
	DB           int           `envconfig:"CONTACTBOOK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CONTACTBOOK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CONTACTBOOK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CONTACTBOOK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CONTACTBOOK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CONTACTBOOK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret                        string `envconfig:"CONTACTBOOK_JWT_SECRET" required:"true"`
	Issuer                        string `envconfig:"CONTACTBOOK_JWT_ISSUER" required:"true"`
	ExpirationMinutes             int    `envconfig:"CONTACTBOOK_JWT_EXPIRATION_MINUTES" default:"60"`
	VerificationExpirationMinutes int    `envconfig:"CONTACTBOOK_JWT_VERIFICATION_EXPIRATION_MINUTES" default:"1440"`
}

// VerificationTTL returns the lifetime of email verification links.
func (j JWTConfig) VerificationTTL() time.Duration {
	if j.VerificationExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.VerificationExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CONTACTBOOK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CONTACTBOOK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CONTACTBOOK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CONTACTBOOK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CONTACTBOOK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"CONTACTBOOK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"15m"`
	LoginEmailLimit    int           `envconfig:"CONTACTBOOK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"CONTACTBOOK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"5"`
	RegisterWindow     time.Duration `envconfig:"CONTACTBOOK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"15m"`
	RegisterEmailLimit int           `envconfig:"CONTACTBOOK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"5"`
	RegisterIPLimit    int           `envconfig:"CONTACTBOOK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"5"`
	ForgotWindow       time.Duration `envconfig:"CONTACTBOOK_AUTH_RATE_LIMIT_FORGOT_WINDOW" default:"15m"`
	ForgotEmailLimit   int           `envconfig:"CONTACTBOOK_AUTH_RATE_LIMIT_FORGOT_EMAIL_LIMIT" default:"3"`
	ForgotIPLimit      int           `envconfig:"CONTACTBOOK_AUTH_RATE_LIMIT_FORGOT_IP_LIMIT" default:"10"`
}

type OTPConfig struct {
	TTL    time.Duration `envconfig:"CONTACTBOOK_OTP_TTL" default:"1h"`
	Length int           `envconfig:"CONTACTBOOK_OTP_LENGTH" default:"6"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CONTACTBOOK_AUTO_MIGRATE" default:"false"`
}

type MailerConfig struct {
	Driver string `envconfig:"CONTACTBOOK_MAILER_DRIVER" default:"log"`
	From   string `envconfig:"CONTACTBOOK_MAILER_FROM" default:"no-reply@contactbook.local"`
	Topic  string `envconfig:"CONTACTBOOK_MAILER_TOPIC" default:"contactbook-email-tasks"`
}

// NormalizedDriver returns the configured mailer driver, defaulting to log.
func (m MailerConfig) NormalizedDriver() string {
	driver := strings.ToLower(strings.TrimSpace(m.Driver))
	if driver == "" {
		return MailerDriverLog
	}
	return driver
}

func (m MailerConfig) validate(gcp GCPConfig) error {
	switch m.NormalizedDriver() {
	case MailerDriverLog:
		return nil
	case MailerDriverPubSub:
		if strings.TrimSpace(gcp.ProjectID) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvGCPProjectID, EnvMailerDriver, MailerDriverPubSub)
		}
		if strings.TrimSpace(m.Topic) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvMailerTopic, EnvMailerDriver, MailerDriverPubSub)
		}
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvMailerDriver, m.Driver)
	}
}

type GCPConfig struct {
	ProjectID string `envconfig:"CONTACTBOOK_GCP_PROJECT_ID"`
}

type ImportConfig struct {
	MaxUploadMB int `envconfig:"CONTACTBOOK_IMPORT_MAX_UPLOAD_MB" default:"10"`
	MaxRows     int `envconfig:"CONTACTBOOK_IMPORT_MAX_ROWS" default:"5000"`
}

// MaxUploadBytes converts the configured upload cap into bytes.
func (i ImportConfig) MaxUploadBytes() int64 {
	if i.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(i.MaxUploadMB) << 20
}

func (db *DBConfig) ensureDSN() error {
	switch db.NormalizedDriver() {
	case DriverSQLite:
		if db.DSN == "" {
			db.DSN = defaultSQLiteDSN
		}
		return nil
	case DriverPostgres:
	default:
		return fmt.Errorf("unsupported %s %q", EnvDBDriver, db.Driver)
	}

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
