package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/yungbote/markupsync/internal/clients/redis"
	"github.com/yungbote/markupsync/internal/data/db"
	"github.com/yungbote/markupsync/internal/modules/markup"
	"github.com/yungbote/markupsync/internal/observability"
	"github.com/yungbote/markupsync/internal/platform/authapi"
	"github.com/yungbote/markupsync/internal/platform/gcp"
	"github.com/yungbote/markupsync/internal/temporalx"
)

// LoadEnv loads whichever of envFiles exist, in order. Variables already set in the
// process win over file values.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if st, err := os.Stat(file); err == nil && !st.IsDir() {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

type DatabaseOptions struct {
	DSN             string        `env:"POSTGRES_DSN"`
	Host            string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port            string        `env:"POSTGRES_PORT" envDefault:"5432"`
	User            string        `env:"POSTGRES_USER" envDefault:"postgres"`
	Password        string        `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	Name            string        `env:"POSTGRES_NAME" envDefault:"markupsync"`
	SSLMode         string        `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"30m"`
	SlowThreshold   time.Duration `env:"POSTGRES_SLOW_THRESHOLD" envDefault:"1s"`
}

// ConnectionString prefers POSTGRES_DSN and falls back to the discrete fields.
func (d DatabaseOptions) ConnectionString() string {
	if strings.TrimSpace(d.DSN) != "" {
		return d.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.Password, d.SSLMode,
	)
}

func (d DatabaseOptions) Postgres() db.PostgresConfig {
	return db.PostgresConfig{
		DSN:             d.ConnectionString(),
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		SlowThreshold:   d.SlowThreshold,
	}
}

type StorageOptions struct {
	Bucket       string `env:"MODELS_BUCKET"`
	Mode         string `env:"OBJECT_STORAGE_MODE"`
	EmulatorHost string `env:"STORAGE_EMULATOR_HOST"`
	Credentials  string `env:"GOOGLE_APPLICATION_CREDENTIALS_JSON"`
}

// Store resolves the storage target and returns the store config for it.
func (s StorageOptions) Store() (gcp.StoreConfig, error) {
	target, err := gcp.ParseStorageTarget(s.Mode, s.EmulatorHost)
	if err != nil {
		return gcp.StoreConfig{}, err
	}
	return gcp.StoreConfig{Bucket: s.Bucket, Credentials: s.Credentials, Storage: target}, nil
}

type RedisOptions struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	LockTTL  time.Duration `env:"REDIS_LOCK_TTL" envDefault:"30s"`
}

func (r RedisOptions) Client() redis.Config {
	return redis.Config{Addr: r.Addr, Password: r.Password, DB: r.DB}
}

type TemporalOptions struct {
	Address                string        `env:"TEMPORAL_ADDRESS"`
	Namespace              string        `env:"TEMPORAL_NAMESPACE" envDefault:"markupsync"`
	TaskQueue              string        `env:"TEMPORAL_TASK_QUEUE" envDefault:"markupsync"`
	ClientCertPath         string        `env:"TEMPORAL_CLIENT_CERT_PATH"`
	ClientKeyPath          string        `env:"TEMPORAL_CLIENT_KEY_PATH"`
	ClientCAPath           string        `env:"TEMPORAL_CLIENT_CA_PATH"`
	AutoRegisterNamespace  bool          `env:"TEMPORAL_AUTO_REGISTER_NAMESPACE" envDefault:"false"`
	NamespaceRetentionDays int           `env:"TEMPORAL_NAMESPACE_RETENTION_DAYS" envDefault:"7"`
	NamespaceEnsureTimeout time.Duration `env:"TEMPORAL_NAMESPACE_ENSURE_TIMEOUT" envDefault:"10s"`
	DialTimeout            time.Duration `env:"TEMPORAL_DIAL_TIMEOUT" envDefault:"5s"`
	DialMaxWait            time.Duration `env:"TEMPORAL_DIAL_MAX_WAIT" envDefault:"60s"`
	DialBackoff            time.Duration `env:"TEMPORAL_DIAL_BACKOFF" envDefault:"250ms"`
	DialBackoffMax         time.Duration `env:"TEMPORAL_DIAL_BACKOFF_MAX" envDefault:"5s"`
	WorkerConcurrency      int           `env:"WORKER_CONCURRENCY" envDefault:"2"`
	WorkerStartMaxWait     time.Duration `env:"TEMPORAL_WORKER_START_MAX_WAIT" envDefault:"60s"`
}

func (t TemporalOptions) Client() temporalx.Config {
	return temporalx.Config{
		Address:                t.Address,
		Namespace:              t.Namespace,
		TaskQueue:              t.TaskQueue,
		ClientCertPath:         t.ClientCertPath,
		ClientKeyPath:          t.ClientKeyPath,
		ClientCAPath:           t.ClientCAPath,
		AutoRegisterNamespace:  t.AutoRegisterNamespace,
		NamespaceRetentionDays: t.NamespaceRetentionDays,
		NamespaceEnsureTimeout: t.NamespaceEnsureTimeout,
		DialTimeout:            t.DialTimeout,
		DialMaxWait:            t.DialMaxWait,
		DialBackoff:            t.DialBackoff,
		DialBackoffMax:         t.DialBackoffMax,
		WorkerConcurrency:      t.WorkerConcurrency,
		WorkerStartMaxWait:     t.WorkerStartMaxWait,
	}
}

type AuthAPIOptions struct {
	URL     string        `env:"AUTH_API_URL"`
	Token   string        `env:"AUTH_API_TOKEN"`
	Timeout time.Duration `env:"AUTH_API_TIMEOUT" envDefault:"15s"`
}

func (a AuthAPIOptions) Client() authapi.Config {
	return authapi.Config{BaseURL: a.URL, Token: a.Token, Timeout: a.Timeout}
}

type IngestOptions struct {
	RootFolder      string `env:"MODELS_ROOT_FOLDER" envDefault:"models"`
	ChunkSize       int    `env:"MARKUP_CHUNK_SIZE" envDefault:"5000"`
	Keep            int    `env:"MODEL_VERSIONS_KEEP" envDefault:"2"`
	ArchiveFolder   string `env:"MODEL_ARCHIVE_FOLDER" envDefault:"archive_models"`
	MoveConcurrency int    `env:"MODEL_ARCHIVE_CONCURRENCY" envDefault:"8"`
	SourcesFile     string `env:"MARKUP_SOURCES_FILE"`
	Locker          string `env:"MARKUP_LOCKER" envDefault:"auto"`
}

type TelemetryOptions struct {
	OtelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	ServiceName    string  `env:"OTEL_SERVICE_NAME" envDefault:"markupsync"`
	Environment    string  `env:"OTEL_ENVIRONMENT" envDefault:"dev"`
	Version        string  `env:"OTEL_SERVICE_VERSION"`
	Endpoint       string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Headers        string  `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	Insecure       bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"false"`
	SampleRatio    float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1"`
	PushgatewayURL string  `env:"PUSHGATEWAY_URL"`
	PushgatewayJob string  `env:"PUSHGATEWAY_JOB" envDefault:"markupsync"`
}

func (t TelemetryOptions) Otel() observability.OtelConfig {
	return observability.OtelConfig{
		Enabled:     t.OtelEnabled,
		ServiceName: t.ServiceName,
		Environment: t.Environment,
		Version:     t.Version,
		Endpoint:    t.Endpoint,
		Headers:     t.Headers,
		Insecure:    t.Insecure,
		SampleRatio: t.SampleRatio,
	}
}

type Configuration struct {
	LogMode string `env:"LOG_MODE" envDefault:"development"`

	Database  DatabaseOptions
	Storage   StorageOptions
	Redis     RedisOptions
	Temporal  TemporalOptions
	AuthAPI   AuthAPIOptions
	Ingest    IngestOptions
	Telemetry TelemetryOptions
}

// Load parses the process environment.
func Load() (*Configuration, error) {
	return parse(env.Options{})
}

// LoadFrom parses only the given variables. Used by tests.
func LoadFrom(vars map[string]string) (*Configuration, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Configuration, error) {
	c := &Configuration{}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Configuration) Validate() error {
	if c.Ingest.ChunkSize < 1 {
		return fmt.Errorf("MARKUP_CHUNK_SIZE must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.Keep < 1 {
		return fmt.Errorf("MODEL_VERSIONS_KEEP must be at least 1, got %d", c.Ingest.Keep)
	}
	if c.Ingest.MoveConcurrency < 1 {
		return fmt.Errorf("MODEL_ARCHIVE_CONCURRENCY must be positive, got %d", c.Ingest.MoveConcurrency)
	}
	if strings.Contains(strings.Trim(c.Ingest.RootFolder, "/"), "/") || strings.TrimSpace(c.Ingest.RootFolder) == "" {
		return fmt.Errorf("MODELS_ROOT_FOLDER must be a single path segment, got %q", c.Ingest.RootFolder)
	}
	switch c.Ingest.Locker {
	case "auto", "redis", "postgres", "local":
	default:
		return fmt.Errorf("MARKUP_LOCKER must be auto, redis, postgres or local, got %q", c.Ingest.Locker)
	}
	if c.Ingest.Locker == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required when MARKUP_LOCKER is redis")
	}
	return nil
}

// Pipeline maps the ingest options onto the pipeline config.
func (c *Configuration) Pipeline() markup.Config {
	return markup.Config{
		RootFolder: strings.Trim(c.Ingest.RootFolder, "/"),
		ChunkSize:  c.Ingest.ChunkSize,
		Retention: markup.RetentionPolicy{
			Keep:            c.Ingest.Keep,
			ArchiveFolder:   c.Ingest.ArchiveFolder,
			MoveConcurrency: c.Ingest.MoveConcurrency,
		},
		PushgatewayURL: c.Telemetry.PushgatewayURL,
		PushJob:        c.Telemetry.PushgatewayJob,
	}
}
