package config

import "github.com/harrypeter07/billsync/pkg/enums"

const (
	EnvPrefix = "BILLSYNC"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv      = "BILLSYNC_APP_ENV"
	EnvAppPort     = "BILLSYNC_APP_PORT"
	EnvLocalDBPath = "BILLSYNC_LOCAL_DB_PATH"
	EnvRemoteDSN   = "BILLSYNC_REMOTE_DSN"
	EnvSessionTTL  = "BILLSYNC_SESSION_TTL"
	EnvDefaultMode = "BILLSYNC_DEFAULT_MODE"
	EnvJWTSecret   = "BILLSYNC_JWT_SECRET"
)

// Mode returns the configured default routing mode.
func (f FeatureFlagsConfig) Mode() enums.Mode {
	return enums.Mode(f.DefaultMode)
}
