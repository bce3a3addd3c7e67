package config

import "time"

// DefaultAppConfig returns an AppConfig struct with sensible default values.
// control.storage is deliberately left empty: a backend must be chosen explicitly.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		MinIO: MinIOConfig{
			Region:    "us-east-1",
			Secure:    false,
			URLExpiry: 7 * 24 * time.Hour,
		},
		SFTP: SFTPConfig{
			Port:        22,
			BasePath:    "/",
			DialTimeout: 30 * time.Second,
		},
		Sync: SyncConfig{
			Pattern: "*.mp4",
			Compare: "name",
			Lock: LockConfig{
				Type:          "none",
				RedisAddr:     "localhost:6379",
				RedisPassword: "",
				TTL:           5 * time.Minute,
			},
		},
		Server: ServerConfig{
			ListenAddr:    ":8080",
			LocalRoot:     ".",
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  5 * time.Minute,
			FileOpTimeout: 10 * time.Minute,
			SyncRateLimit: 5,
		},
		Log: LogConfig{
			Level:    "info",
			Format:   "json",
			PathMode: "full",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}
