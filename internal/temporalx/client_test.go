package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClampBackoff(t *testing.T) {
	require.Equal(t, 250*time.Millisecond, ClampBackoff(0, 0, 1))
	require.Equal(t, time.Second, ClampBackoff(250*time.Millisecond, 5*time.Second, 3))
	require.Equal(t, 5*time.Second, ClampBackoff(250*time.Millisecond, 5*time.Second, 10))
}

func TestIsRetryableRPC(t *testing.T) {
	require.False(t, isRetryableRPC(nil))
	require.True(t, isRetryableRPC(status.Error(codes.Unavailable, "down")))
	require.True(t, isRetryableRPC(context.DeadlineExceeded))
	require.False(t, isRetryableRPC(status.Error(codes.PermissionDenied, "no")))
	require.False(t, isRetryableRPC(errors.New("boom")))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{NamespaceRetentionDays: 900}.withDefaults()
	require.False(t, cfg.Enabled())
	require.Equal(t, "markupsync", cfg.Namespace)
	require.Equal(t, "markupsync", cfg.TaskQueue)
	require.Equal(t, 365, cfg.NamespaceRetentionDays)
	require.Equal(t, 1, cfg.WorkerConcurrency)
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	c, err := NewClient(nil, Config{})
	require.NoError(t, err)
	require.Nil(t, c)
}

func TestLoadTLSConfigRequiresPair(t *testing.T) {
	_, err := loadTLSConfig(Config{ClientCAPath: "/tmp/ca.pem"})
	require.ErrorContains(t, err, "TEMPORAL_CLIENT_CERT_PATH")
}
