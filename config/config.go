// Package config provides configuration management for datarepo.
// It handles loading and validating configuration from YAML/JSON files and environment variables.
package config

import "time"

// Storage backend selection tags accepted under control.storage
const (
	StorageMinIO  = "minio"
	StorageObject = "object"
	StorageS3     = "s3"
	StorageSFTP   = "sftp"
	StorageTree   = "tree"
	StorageNone   = "none" // storage explicitly disabled; every remote operation fails
)

// AppConfig represents the complete application configuration
type AppConfig struct {
	Control ControlConfig `koanf:"control"`
	MinIO   MinIOConfig   `koanf:"minio"`
	SFTP    SFTPConfig    `koanf:"sftp"`
	Sync    SyncConfig    `koanf:"sync"`
	Server  ServerConfig  `koanf:"server"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// ControlConfig selects the remote store implementation
type ControlConfig struct {
	Storage string `koanf:"storage"` // "minio"/"object"/"s3", "sftp"/"tree" or "none"
}

// MinIOConfig holds the object-store connection bag
type MinIOConfig struct {
	Endpoint  string        `koanf:"endpoint"` // host:port or URL of the S3-compatible service
	AccessKey string        `koanf:"access_key"`
	SecretKey string        `koanf:"secret_key"`
	Secure    bool          `koanf:"secure"` // use HTTPS
	Bucket    string        `koanf:"bucket"` // default bucket, created on first use
	Region    string        `koanf:"region"`
	URLExpiry time.Duration `koanf:"url_expiry"` // lifetime of presigned GET URLs
}

// SFTPConfig holds the tree-store connection bag
type SFTPConfig struct {
	Host                  string        `koanf:"host"`
	Port                  int           `koanf:"port"`
	User                  string        `koanf:"user"`
	Password              string        `koanf:"password"`
	PrivateKeyPath        string        `koanf:"private_key_path"`
	BasePath              string        `koanf:"base_path"` // every remote path is joined to this
	KnownHostsPath        string        `koanf:"known_hosts_path"`
	InsecureIgnoreHostKey bool          `koanf:"insecure_ignore_host_key"`
	DialTimeout           time.Duration `koanf:"dial_timeout"`
}

// SyncConfig controls the file manager's higher-level algorithms
type SyncConfig struct {
	Pattern string     `koanf:"pattern"` // glob applied to base names, "*.mp4" by default
	Compare string     `koanf:"compare"` // "name" or "size"
	Lock    LockConfig `koanf:"lock"`
}

// LockConfig selects the optional per-directory writer lock
type LockConfig struct {
	Type          string        `koanf:"type"` // "none", "local" or "redis"
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	TTL           time.Duration `koanf:"ttl"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	ListenAddr    string        `koanf:"listen_addr"`
	LocalRoot     string        `koanf:"local_root"` // local paths in sync requests are resolved under this root
	ReadTimeout   time.Duration `koanf:"read_timeout"`
	WriteTimeout  time.Duration `koanf:"write_timeout"`
	FileOpTimeout time.Duration `koanf:"file_op_timeout"`
	SyncRateLimit float64       `koanf:"sync_rate_limit"` // sync requests per second
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level    string `koanf:"level"`
	Format   string `koanf:"format"`
	PathMode string `koanf:"path_mode"` // "full", "truncate" or "hash" for paths in request logs
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}
