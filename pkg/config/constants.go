package config

// EnvPrefix namespaces every environment variable consumed by the service.
const EnvPrefix = "RELAYDROP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "RELAYDROP_DB_DSN"
	EnvDBHost = "RELAYDROP_DB_HOST"
	EnvDBUser = "RELAYDROP_DB_USER"
	EnvDBName = "RELAYDROP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
