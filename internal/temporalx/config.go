package temporalx

import (
	"strings"
	"time"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	AutoRegisterNamespace  bool
	NamespaceRetentionDays int
	NamespaceEnsureTimeout time.Duration

	DialTimeout    time.Duration
	DialMaxWait    time.Duration
	DialBackoff    time.Duration
	DialBackoffMax time.Duration

	WorkerConcurrency  int
	WorkerStartMaxWait time.Duration
}

// Enabled reports whether a Temporal frontend is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Address) != ""
}

func (c Config) withDefaults() Config {
	c.Address = strings.TrimSpace(c.Address)
	c.Namespace = stringsOr(strings.TrimSpace(c.Namespace), "markupsync")
	c.TaskQueue = stringsOr(strings.TrimSpace(c.TaskQueue), "markupsync")
	if c.NamespaceRetentionDays < 1 {
		c.NamespaceRetentionDays = 7
	}
	if c.NamespaceRetentionDays > 365 {
		c.NamespaceRetentionDays = 365
	}
	if c.NamespaceEnsureTimeout <= 0 {
		c.NamespaceEnsureTimeout = 10 * time.Second
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.DialBackoff <= 0 {
		c.DialBackoff = 250 * time.Millisecond
	}
	if c.DialBackoffMax <= 0 {
		c.DialBackoffMax = 5 * time.Second
	}
	if c.WorkerConcurrency < 1 {
		c.WorkerConcurrency = 1
	}
	return c
}

func (c Config) tlsEnabled() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}

func stringsOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
