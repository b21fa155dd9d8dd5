package config

const EnvPrefix = "CONTACTBOOK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:contactbook.db?_foreign_keys=on"
)

const (
	MailerDriverLog    = "log"
	MailerDriverPubSub = "pubsub"
)

const (
	EnvAppEnv       = "CONTACTBOOK_APP_ENV"
	EnvPort         = "CONTACTBOOK_APP_PORT"
	EnvDBDSN        = "CONTACTBOOK_DB_DSN"
	EnvDBDriver     = "CONTACTBOOK_DB_DRIVER"
	EnvDBHost       = "CONTACTBOOK_DB_HOST"
	EnvDBUser       = "CONTACTBOOK_DB_USER"
	EnvDBName       = "CONTACTBOOK_DB_NAME"
	EnvRedisURL     = "CONTACTBOOK_REDIS_URL"
	EnvJWTSecret    = "CONTACTBOOK_JWT_SECRET"
	EnvJWTIssuer    = "CONTACTBOOK_JWT_ISSUER"
	EnvJWTExpMins   = "CONTACTBOOK_JWT_EXPIRATION_MINUTES"
	EnvOTPTTL       = "CONTACTBOOK_OTP_TTL"
	EnvMailerDriver = "CONTACTBOOK_MAILER_DRIVER"
	EnvMailerTopic  = "CONTACTBOOK_MAILER_TOPIC"
	EnvGCPProjectID = "CONTACTBOOK_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
