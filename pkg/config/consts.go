package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "PLAZA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "PLAZA_DB_DSN"
	EnvDBHost = "PLAZA_DB_HOST"
	EnvDBUser = "PLAZA_DB_USER"
	EnvDBName = "PLAZA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
