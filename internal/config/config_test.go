package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/markupsync/internal/platform/gcp"
)

func TestLoadFromDefaults(t *testing.T) {
	c, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	require.Equal(t, "models", c.Ingest.RootFolder)
	require.Equal(t, 5000, c.Ingest.ChunkSize)
	require.Equal(t, 2, c.Ingest.Keep)
	require.Equal(t, "archive_models", c.Ingest.ArchiveFolder)
	require.Equal(t, 8, c.Ingest.MoveConcurrency)
	require.Equal(t, 30*time.Second, c.Redis.LockTTL)
	require.Equal(t, "markupsync", c.Temporal.TaskQueue)
	require.Equal(t, "host=localhost port=5432 user=postgres dbname=markupsync password=postgres sslmode=disable", c.Database.ConnectionString())

	p := c.Pipeline()
	require.Equal(t, 2, p.Retention.Keep)
	require.Equal(t, 5000, p.ChunkSize)
}

func TestLoadFromOverrides(t *testing.T) {
	c, err := LoadFrom(map[string]string{
		"POSTGRES_DSN":          "postgres://u:p@db:5432/x",
		"MARKUP_CHUNK_SIZE":     "100",
		"MODEL_VERSIONS_KEEP":   "3",
		"MODELS_ROOT_FOLDER":    "/models/",
		"TEMPORAL_ADDRESS":      "temporal:7233",
		"TEMPORAL_DIAL_BACKOFF": "1s",
		"REDIS_ADDR":            "redis:6379",
		"MARKUP_LOCKER":         "redis",
	})
	require.NoError(t, err)
	require.Equal(t, "postgres://u:p@db:5432/x", c.Database.Postgres().DSN)
	require.Equal(t, "models", c.Pipeline().RootFolder)
	require.Equal(t, 3, c.Pipeline().Retention.Keep)

	tc := c.Temporal.Client()
	require.Equal(t, "temporal:7233", tc.Address)
	require.Equal(t, time.Second, tc.DialBackoff)
	require.Equal(t, "redis:6379", c.Redis.Client().Addr)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"chunk size":    {"MARKUP_CHUNK_SIZE": "0"},
		"keep":          {"MODEL_VERSIONS_KEEP": "0"},
		"concurrency":   {"MODEL_ARCHIVE_CONCURRENCY": "0"},
		"nested root":   {"MODELS_ROOT_FOLDER": "a/b"},
		"locker":        {"MARKUP_LOCKER": "zookeeper"},
		"redis no addr": {"MARKUP_LOCKER": "redis"},
		"bad int":       {"MARKUP_CHUNK_SIZE": "many"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(vars)
			require.Error(t, err)
		})
	}
}

func TestStorageOptionsStore(t *testing.T) {
	cfg, err := StorageOptions{Bucket: "b", EmulatorHost: "http://fake-gcs:4443"}.Store()
	require.NoError(t, err)
	require.Equal(t, gcp.StorageModeEmulator, cfg.Storage.Mode)
	require.True(t, cfg.Storage.Implied)
	require.Equal(t, "b", cfg.Bucket)

	_, err = StorageOptions{Bucket: "b", Mode: "s3"}.Store()
	require.ErrorIs(t, err, gcp.ErrUnknownStorageMode)
}

func TestLoadEnvSkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("MARKUPSYNC_TEST_LOADENV=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("MARKUPSYNC_TEST_LOADENV") })

	n, err := LoadEnv([]string{filepath.Join(dir, ".env.missing"), file})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "from-file", os.Getenv("MARKUPSYNC_TEST_LOADENV"))

	n, err = LoadEnv([]string{filepath.Join(dir, "nope")})
	require.NoError(t, err)
	require.Zero(t, n)
}
