package config

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/ebogdum/datarepo/metadata"
)

// EnvPrefix is the prefix of environment variables overriding file settings.
// Nesting uses a double underscore: DATAREPO_MINIO__ACCESS_KEY -> minio.access_key.
const EnvPrefix = "DATAREPO_"

var defaultConfigFiles = []string{"config.yaml", "config.yml", "config.json"}

// LoadConfig loads configuration from multiple sources with strict priority:
// 1. Environment variables (highest priority)
// 2. Config file (config.yaml, config.yml or config.json in the working directory)
// 3. Defaults (lowest priority)
func LoadConfig() (AppConfig, error) {
	return LoadConfigFromFile("")
}

// LoadConfigFromFile loads configuration from multiple sources with a specific config file:
// 1. Environment variables (highest priority)
// 2. Specified config file or default config files
// 3. Defaults (lowest priority)
func LoadConfigFromFile(configFilePath string) (AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultAppConfig(), "koanf"), nil); err != nil {
		return AppConfig{}, fmt.Errorf("failed to load default config: %w", err)
	}

	if configFilePath != "" {
		if _, err := os.Stat(configFilePath); err != nil {
			return AppConfig{}, fmt.Errorf("%w: specified config file %s not found: %v", metadata.ErrConfiguration, configFilePath, err)
		}
		if err := loadFile(k, configFilePath); err != nil {
			return AppConfig{}, err
		}
	} else {
		for _, configFile := range defaultConfigFiles {
			if _, err := os.Stat(configFile); err == nil {
				if err := loadFile(k, configFile); err != nil {
					return AppConfig{}, err
				}
				break
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return AppConfig{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func loadFile(k *koanf.Koanf, configFile string) error {
	var parser koanf.Parser
	switch strings.ToLower(path.Ext(configFile)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return fmt.Errorf("%w: unsupported config file format %s", metadata.ErrConfiguration, configFile)
	}

	if err := k.Load(file.Provider(configFile), parser); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", configFile, err)
	}
	return nil
}

// envKey maps DATAREPO_SYNC__LOCK__TYPE to sync.lock.type
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// StorageKind canonicalizes a control.storage tag to StorageObject, StorageTree or StorageNone.
func StorageKind(tag string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "":
		return "", fmt.Errorf("%w: control.storage is required", metadata.ErrConfiguration)
	case StorageMinIO, StorageObject, StorageS3:
		return StorageObject, nil
	case StorageSFTP, StorageTree:
		return StorageTree, nil
	case StorageNone:
		return StorageNone, nil
	default:
		return "", fmt.Errorf("%w: unknown storage backend %q", metadata.ErrConfiguration, tag)
	}
}

// Validate checks that required configuration fields are set.
// Every failure matches metadata.ErrConfiguration.
func Validate(cfg *AppConfig) error {
	kind, err := StorageKind(cfg.Control.Storage)
	if err != nil {
		return err
	}

	switch kind {
	case StorageObject:
		if cfg.MinIO.Endpoint == "" {
			return fmt.Errorf("%w: minio.endpoint is required", metadata.ErrConfiguration)
		}
		if cfg.MinIO.Bucket == "" {
			return fmt.Errorf("%w: minio.bucket is required", metadata.ErrConfiguration)
		}
	case StorageTree:
		if cfg.SFTP.Host == "" {
			return fmt.Errorf("%w: sftp.host is required", metadata.ErrConfiguration)
		}
		if cfg.SFTP.User == "" {
			return fmt.Errorf("%w: sftp.user is required", metadata.ErrConfiguration)
		}
		if cfg.SFTP.Password == "" && cfg.SFTP.PrivateKeyPath == "" {
			return fmt.Errorf("%w: sftp.password or sftp.private_key_path is required", metadata.ErrConfiguration)
		}
		if cfg.SFTP.BasePath == "" {
			return fmt.Errorf("%w: sftp.base_path is required", metadata.ErrConfiguration)
		}
	}

	if _, err := path.Match(cfg.Sync.Pattern, ""); err != nil {
		return fmt.Errorf("%w: sync.pattern %q: %v", metadata.ErrConfiguration, cfg.Sync.Pattern, err)
	}

	switch cfg.Sync.Compare {
	case "", "name", "size":
	default:
		return fmt.Errorf("%w: sync.compare must be \"name\" or \"size\", got %q", metadata.ErrConfiguration, cfg.Sync.Compare)
	}

	switch cfg.Sync.Lock.Type {
	case "", "none", "local":
	case "redis":
		if cfg.Sync.Lock.RedisAddr == "" {
			return fmt.Errorf("%w: sync.lock.redis_addr is required for redis locks", metadata.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown sync.lock.type %q", metadata.ErrConfiguration, cfg.Sync.Lock.Type)
	}

	switch cfg.Log.PathMode {
	case "", "full", "truncate", "hash":
	default:
		return fmt.Errorf("%w: log.path_mode must be \"full\", \"truncate\" or \"hash\", got %q", metadata.ErrConfiguration, cfg.Log.PathMode)
	}

	return nil
}
