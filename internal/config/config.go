// Package config loads process settings from the environment (prefix NV_),
// optional .env files and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"netventure.org/internal/validate"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

type Storage struct {
	Backend string `json:"backend" validate:"oneof=memory file sqlite postgres s3"`
	Path    string `json:"path"`
	DSN     string `json:"dsn"`
	// Legacy writes values in the browser app's envelope.
	Legacy        bool          `json:"legacy"`
	FlushInterval time.Duration `json:"flush_interval" validate:"min=0"`
	S3            S3            `json:"s3"`
}

type S3 struct {
	Bucket          string `json:"bucket"`
	Prefix          string `json:"prefix"`
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
}

type Backup struct {
	Enabled  bool          `json:"enabled"`
	Interval time.Duration `json:"interval"`
	Prefix   string        `json:"prefix"`
}

type Config struct {
	Env         string        `json:"env"`
	HTTPAddr    string        `json:"http_addr" validate:"required"`
	GRPCAddr    string        `json:"grpc_addr"`
	LogLevel    string        `json:"log_level" validate:"oneof=debug info warn error"`
	LogJSON     bool          `json:"log_json"`
	AuthSecret  string        `json:"auth_secret"`
	TokenTTL    time.Duration `json:"token_ttl" validate:"gt=0"`
	SessionTTL  time.Duration `json:"session_ttl" validate:"gt=0"`
	RateLimit   float64       `json:"rate_limit" validate:"gte=0"`
	RateBurst   int           `json:"rate_burst" validate:"gte=0"`
	CORSOrigins []string      `json:"cors_origins"`
	DemoSeed    bool          `json:"demo_seed"`
	Storage     Storage       `json:"storage"`
	Backup      Backup        `json:"backup"`
}

// New returns a viper instance with every default set and environment
// binding enabled. Callers may bind flags on it before calling FromViper.
func New() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("env", "dev")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("grpc.addr", ":9090")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", true)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_ttl", 30*time.Minute)
	v.SetDefault("auth.session_ttl", 15*time.Minute)
	v.SetDefault("http.rate_limit", 20.0)
	v.SetDefault("http.rate_burst", 40)
	v.SetDefault("http.cors_origins", []string{})
	v.SetDefault("demo.seed", false)
	v.SetDefault("storage.backend", BackendSQLite)
	v.SetDefault("storage.path", "netventure.db")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.legacy", false)
	v.SetDefault("storage.flush_interval", 2*time.Second)
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.prefix", "netventure")
	v.SetDefault("storage.s3.region", "auto")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("backup.enabled", false)
	v.SetDefault("backup.interval", 24*time.Hour)
	v.SetDefault("backup.prefix", "backups")

	v.SetEnvPrefix("NV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads .env files (missing ones are ignored), then an optional config
// file named by NV_CONFIG, then the environment.
func Load(dotEnvPaths ...string) (Config, error) {
	if err := LoadDotEnv(dotEnvPaths...); err != nil {
		return Config{}, err
	}
	v := New()
	if path := os.Getenv("NV_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config.read(%s): %w", path, err)
		}
	}
	return FromViper(v)
}

// LoadDotEnv loads each existing file into the process environment without
// overriding variables already set.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config.os.Stat(%s): %w", p, err)
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("config.godotenv(%s): %w", p, err)
		}
	}
	return nil
}

// FromViper materialises and validates a Config.
func FromViper(v *viper.Viper) (Config, error) {
	c := Config{
		Env:         v.GetString("env"),
		HTTPAddr:    v.GetString("http.addr"),
		GRPCAddr:    v.GetString("grpc.addr"),
		LogLevel:    strings.ToLower(v.GetString("log.level")),
		LogJSON:     v.GetBool("log.json"),
		AuthSecret:  v.GetString("auth.secret"),
		TokenTTL:    v.GetDuration("auth.token_ttl"),
		SessionTTL:  v.GetDuration("auth.session_ttl"),
		RateLimit:   v.GetFloat64("http.rate_limit"),
		RateBurst:   v.GetInt("http.rate_burst"),
		CORSOrigins: splitList(v.GetStringSlice("http.cors_origins")),
		DemoSeed:    v.GetBool("demo.seed"),
		Storage: Storage{
			Backend:       strings.ToLower(v.GetString("storage.backend")),
			Path:          v.GetString("storage.path"),
			DSN:           v.GetString("storage.dsn"),
			Legacy:        v.GetBool("storage.legacy"),
			FlushInterval: v.GetDuration("storage.flush_interval"),
			S3: S3{
				Bucket:          v.GetString("storage.s3.bucket"),
				Prefix:          v.GetString("storage.s3.prefix"),
				Region:          v.GetString("storage.s3.region"),
				Endpoint:        v.GetString("storage.s3.endpoint"),
				AccessKeyID:     v.GetString("storage.s3.access_key_id"),
				SecretAccessKey: v.GetString("storage.s3.secret_access_key"),
			},
		},
		Backup: Backup{
			Enabled:  v.GetBool("backup.enabled"),
			Interval: v.GetDuration("backup.interval"),
			Prefix:   v.GetString("backup.prefix"),
		},
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks field constraints and backend-specific requirements.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return validate.Fieldf("storage.path", "storage.path is required for the "+c.Storage.Backend+" backend")
		}
	case BackendPostgres:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return validate.Fieldf("storage.dsn", "storage.dsn is required for the postgres backend")
		}
	case BackendS3:
		if strings.TrimSpace(c.Storage.S3.Bucket) == "" {
			return validate.Fieldf("storage.s3.bucket", "storage.s3.bucket is required for the s3 backend")
		}
	}
	if c.Backup.Enabled {
		if c.Backup.Interval < time.Minute {
			return validate.Fieldf("backup.interval", "backup.interval must be at least 1m")
		}
		if strings.TrimSpace(c.Storage.S3.Bucket) == "" {
			return validate.Fieldf("storage.s3.bucket", "storage.s3.bucket is required when backups are enabled")
		}
	}
	return nil
}

// splitList accepts both repeated values and a single comma-separated
// value, which is how lists arrive from the environment.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
