package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	LocalDB      LocalDBConfig
	Remote       RemoteConfig
	Session      SessionConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Sync         SyncConfig
	Render       RenderConfig
	Storage      StorageConfig
	Store        StoreConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.Mode().IsValid() {
		return nil, fmt.Errorf("invalid default mode %q", cfg.FeatureFlags.DefaultMode)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BILLSYNC_APP_ENV" required:"true"`
	Port         string `envconfig:"BILLSYNC_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"BILLSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BILLSYNC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// LocalDBConfig points at the embedded SQLite mirror.
type LocalDBConfig struct {
	Path        string        `envconfig:"BILLSYNC_LOCAL_DB_PATH" default:"billsync.db"`
	BusyTimeout time.Duration `envconfig:"BILLSYNC_LOCAL_DB_BUSY_TIMEOUT" default:"5s"`
	AutoMigrate bool          `envconfig:"BILLSYNC_LOCAL_DB_AUTO_MIGRATE" default:"false"`
}

// RemoteConfig configures the remote row store the reconciler drains into.
type RemoteConfig struct {
	DSN             string        `envconfig:"BILLSYNC_REMOTE_DSN"`
	Timeout         time.Duration `envconfig:"BILLSYNC_REMOTE_TIMEOUT" default:"30s"`
	MaxOpenConns    int           `envconfig:"BILLSYNC_REMOTE_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"BILLSYNC_REMOTE_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"BILLSYNC_REMOTE_CONN_MAX_LIFETIME" default:"1h"`
}

type SessionConfig struct {
	TTL time.Duration `envconfig:"BILLSYNC_SESSION_TTL" default:"24h"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BILLSYNC_JWT_SECRET"`
	Issuer            string `envconfig:"BILLSYNC_JWT_ISSUER" default:"billsync"`
	ExpirationMinutes int    `envconfig:"BILLSYNC_JWT_EXPIRATION_MINUTES" default:"1440"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BILLSYNC_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BILLSYNC_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BILLSYNC_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BILLSYNC_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BILLSYNC_ARGON_KEY_LEN" default:"32"`
}

type SyncConfig struct {
	BatchSize      int           `envconfig:"BILLSYNC_SYNC_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"BILLSYNC_SYNC_POLL_MS" default:"500"`
	MaxRetries     int           `envconfig:"BILLSYNC_SYNC_MAX_RETRIES" default:"10"`
	MaxBackoff     time.Duration `envconfig:"BILLSYNC_SYNC_MAX_BACKOFF" default:"5m"`
}

// PollInterval returns the drain poll interval as a duration.
func (s SyncConfig) PollInterval() time.Duration {
	if s.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(s.PollIntervalMS) * time.Millisecond
}

type RenderConfig struct {
	BaseURL string        `envconfig:"BILLSYNC_RENDER_BASE_URL"`
	Timeout time.Duration `envconfig:"BILLSYNC_RENDER_TIMEOUT" default:"30s"`
}

type StorageConfig struct {
	UploadURL string        `envconfig:"BILLSYNC_STORAGE_UPLOAD_URL"`
	APIKey    string        `envconfig:"BILLSYNC_STORAGE_API_KEY"`
	Timeout   time.Duration `envconfig:"BILLSYNC_STORAGE_TIMEOUT" default:"30s"`
}

// StoreConfig identifies the store this instance serves. The server
// read-or-creates the matching store row at startup.
type StoreConfig struct {
	Code      string `envconfig:"BILLSYNC_STORE_CODE" default:"MAIN"`
	Name      string `envconfig:"BILLSYNC_STORE_NAME" default:"My Store"`
	GSTIN     string `envconfig:"BILLSYNC_STORE_GSTIN"`
	StateCode string `envconfig:"BILLSYNC_STORE_STATE_CODE"`
	OwnerID   string `envconfig:"BILLSYNC_STORE_OWNER_ID"`
	// Owner credentials are provisioned through the environment; this is a
	// single-tenant install with exactly one owner account.
	OwnerEmail        string `envconfig:"BILLSYNC_STORE_OWNER_EMAIL"`
	OwnerPasswordHash string `envconfig:"BILLSYNC_STORE_OWNER_PASSWORD_HASH"`
}

type FeatureFlagsConfig struct {
	DefaultMode string `envconfig:"BILLSYNC_DEFAULT_MODE" default:"local_first"`
}
