package config

// EnvPrefix is passed to envconfig; the struct tags carry the full names.
const EnvPrefix = "ASSETDESK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "ASSETDESK_APP_ENV"
	EnvPort     = "ASSETDESK_APP_PORT"
	EnvLogLevel = "ASSETDESK_LOG_LEVEL"

	EnvDBDSN  = "ASSETDESK_DB_DSN"
	EnvDBHost = "ASSETDESK_DB_HOST"
	EnvDBUser = "ASSETDESK_DB_USER"
	EnvDBName = "ASSETDESK_DB_NAME"

	EnvRedisURL = "ASSETDESK_REDIS_URL"

	EnvJWTSecret  = "ASSETDESK_JWT_SECRET"
	EnvJWTIssuer  = "ASSETDESK_JWT_ISSUER"
	EnvJWTExpMins = "ASSETDESK_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "ASSETDESK_GCP_PROJECT_ID"
	EnvGCSBucket    = "ASSETDESK_GCS_BUCKET_NAME"

	EnvPubSubImportsTopic = "ASSETDESK_PUBSUB_IMPORTS_TOPIC"
	EnvPubSubImportsSub   = "ASSETDESK_PUBSUB_IMPORTS_SUBSCRIPTION"

	EnvShadowEndpoint = "ASSETDESK_IOT_SHADOW_ENDPOINT"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
