package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebogdum/datarepo/metadata"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	return p
}

func TestLoadConfigFromYAML(t *testing.T) {
	p := writeConfig(t, "config.yaml", `
control:
  storage: minio
minio:
  endpoint: localhost:9000
  access_key: minio
  secret_key: minio123
  bucket: videos
sync:
  compare: size
log:
  path_mode: hash
`)

	cfg, err := LoadConfigFromFile(p)
	require.NoError(t, err)

	assert.Equal(t, "minio", cfg.Control.Storage)
	assert.Equal(t, "localhost:9000", cfg.MinIO.Endpoint)
	assert.Equal(t, "videos", cfg.MinIO.Bucket)
	assert.Equal(t, "size", cfg.Sync.Compare)
	assert.Equal(t, "hash", cfg.Log.PathMode)
	// defaults survive
	assert.Equal(t, "*.mp4", cfg.Sync.Pattern)
	assert.Equal(t, 7*24*time.Hour, cfg.MinIO.URLExpiry)
	assert.Equal(t, 22, cfg.SFTP.Port)
}

func TestLoadConfigFromJSON(t *testing.T) {
	p := writeConfig(t, "config.json", `{
  "control": {"storage": "sftp"},
  "sftp": {"host": "files.local", "user": "infer", "password": "secret", "base_path": "/srv/data"}
}`)

	cfg, err := LoadConfigFromFile(p)
	require.NoError(t, err)

	assert.Equal(t, "sftp", cfg.Control.Storage)
	assert.Equal(t, "files.local", cfg.SFTP.Host)
	assert.Equal(t, "/srv/data", cfg.SFTP.BasePath)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	p := writeConfig(t, "config.yaml", `
control:
  storage: sftp
sftp:
  host: files.local
  user: infer
  password: secret
`)
	t.Setenv("DATAREPO_SFTP__HOST", "override.local")
	t.Setenv("DATAREPO_SYNC__LOCK__TYPE", "local")

	cfg, err := LoadConfigFromFile(p)
	require.NoError(t, err)

	assert.Equal(t, "override.local", cfg.SFTP.Host)
	assert.Equal(t, "local", cfg.Sync.Lock.Type)
}

func TestLoadConfigMissingStorage(t *testing.T) {
	p := writeConfig(t, "config.yaml", `
minio:
  endpoint: localhost:9000
  bucket: videos
`)

	_, err := LoadConfigFromFile(p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, metadata.ErrConfiguration))
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, metadata.ErrConfiguration))
}

func TestStorageKind(t *testing.T) {
	tests := []struct {
		tag      string
		expected string
		wantErr  bool
	}{
		{tag: "minio", expected: StorageObject},
		{tag: "S3", expected: StorageObject},
		{tag: "object", expected: StorageObject},
		{tag: "sftp", expected: StorageTree},
		{tag: " tree ", expected: StorageTree},
		{tag: "none", expected: StorageNone},
		{tag: "", wantErr: true},
		{tag: "ftp", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			kind, err := StorageKind(tt.tag)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, metadata.ErrConfiguration))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, kind)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() AppConfig {
		cfg := DefaultAppConfig()
		cfg.Control.Storage = "sftp"
		cfg.SFTP.Host = "files.local"
		cfg.SFTP.User = "infer"
		cfg.SFTP.Password = "secret"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"missing sftp host", func(c *AppConfig) { c.SFTP.Host = "" }},
		{"missing sftp credentials", func(c *AppConfig) { c.SFTP.Password = "" }},
		{"missing minio bucket", func(c *AppConfig) { c.Control.Storage = "minio"; c.MinIO.Endpoint = "localhost:9000" }},
		{"bad pattern", func(c *AppConfig) { c.Sync.Pattern = "[" }},
		{"bad compare", func(c *AppConfig) { c.Sync.Compare = "hash" }},
		{"bad lock type", func(c *AppConfig) { c.Sync.Lock.Type = "etcd" }},
		{"redis without addr", func(c *AppConfig) { c.Sync.Lock.Type = "redis"; c.Sync.Lock.RedisAddr = "" }},
		{"bad path mode", func(c *AppConfig) { c.Log.PathMode = "redact" }},
	}

	base := valid()
	require.NoError(t, Validate(&base))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := Validate(&cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, metadata.ErrConfiguration))
		})
	}
}
