package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
)

type Config struct {
	Environment string `toml:"-"`

	Host string `toml:"host"`
	Port int    `toml:"port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// storage
	StorageBackend  string `toml:"storage_backend"`
	MongoDBName     string `toml:"mongo_db_name"`
	MongoCollection string `toml:"mongo_collection"`
	MongoTLS        bool   `toml:"mongo_tls"`
	PostgresHost    string `toml:"postgres_host"`
	PostgresPort    string `toml:"postgres_port"`
	PostgresDBName  string `toml:"postgres_db_name"`

	// notes list cache, 0 disables it
	ListCacheTTLSeconds int `toml:"list_cache_ttl_seconds"`
	ListCacheSizeMB     int `toml:"list_cache_size_mb"`

	// redis, used for rate limiting of mutating requests; empty host disables it
	RedisHost                string `toml:"redis_host"`
	RedisPort                string `toml:"redis_port"`
	MutationsRateLimitPerMin int    `toml:"mutations_rate_limit_per_min"`

	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// backups
	BackupDir        string `toml:"backup_dir"`
	BackupS3Endpoint string `toml:"backup_s3_endpoint"`
	BackupS3Bucket   string `toml:"backup_s3_bucket"`
	BackupS3Prefix   string `toml:"backup_s3_prefix"`
}

type Toml struct {
	Development *Config
	Production  *Config
	DockerDev   *Config `toml:"dockerdev"`
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	case "ddev", "dockerdev":
		cfg = t.DockerDev
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("config for env [%s] missing", env)
	}
	return cfg, nil
}

func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode toml config [%s]: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}

	cfg.Environment = strings.ToLower(env)
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.StorageBackend == "" {
		c.StorageBackend = StorageMongo
	}
	if c.MongoDBName == "" {
		c.MongoDBName = "notes"
	}
	if c.MongoCollection == "" {
		c.MongoCollection = "notes"
	}
	if c.PostgresPort == "" {
		c.PostgresPort = "5432"
	}
	if c.ListCacheSizeMB == 0 {
		c.ListCacheSizeMB = 10
	}
	if c.RedisPort == "" {
		c.RedisPort = "6379"
	}
	if c.MutationsRateLimitPerMin == 0 {
		c.MutationsRateLimitPerMin = 60
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = "2112"
	}
	if c.BackupS3Prefix == "" {
		c.BackupS3Prefix = "notes-backup"
	}
}

func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageMongo:
	case StoragePostgres:
		if c.PostgresHost == "" || c.PostgresDBName == "" {
			return errors.New("postgres storage needs postgres_host and postgres_db_name")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.StorageBackend)
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.ListCacheTTLSeconds < 0 {
		return errors.New("list_cache_ttl_seconds must not be negative")
	}

	return nil
}

func (c *Config) RateLimitingEnabled() bool {
	return c.RedisHost != ""
}
