// Package config loads server settings: defaults first, then an optional YAML
// file named by CONFIG_FILE, then environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Postgres struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns URL when set, otherwise a URL assembled from the parts.
func (p Postgres) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

type Redis struct {
	Enabled  bool          `yaml:"enabled"`
	Host     string        `yaml:"host"`
	Port     string        `yaml:"port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

type S3 struct {
	Region       string `yaml:"region"`
	AccessKey    string `yaml:"accessKey"`
	SecretKey    string `yaml:"secretKey"`
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	BaseEndpoint string `yaml:"baseEndpoint"`
}

type Storage struct {
	Backend        string `yaml:"backend"` // "local" or "s3"
	UploadDir      string `yaml:"uploadDir"`
	MaxUploadBytes int64  `yaml:"maxUploadBytes"`
	S3             S3     `yaml:"s3"`
}

type Sweeper struct {
	Enabled  bool          `yaml:"enabled"`
	Schedule string        `yaml:"schedule"`
	Grace    time.Duration `yaml:"grace"`
}

type Config struct {
	Env            string        `yaml:"env"`
	Port           string        `yaml:"port"`
	CORSOrigin     string        `yaml:"corsOrigin"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	Postgres       Postgres      `yaml:"postgres"`
	Redis          Redis         `yaml:"redis"`
	Storage        Storage       `yaml:"storage"`
	Sweeper        Sweeper       `yaml:"sweeper"`
}

// Default returns settings suitable for local development.
func Default() *Config {
	return &Config{
		Env:            "production",
		Port:           "5000",
		CORSOrigin:     "*",
		RequestTimeout: 10 * time.Second,
		Postgres: Postgres{
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			DBName:  "confessions",
			SSLMode: "disable",
		},
		Redis: Redis{
			Enabled:  true,
			Host:     "localhost",
			Port:     "6379",
			CacheTTL: 30 * time.Second,
		},
		Storage: Storage{
			Backend:        "local",
			UploadDir:      "uploads",
			MaxUploadBytes: 10 << 20,
			S3: S3{
				Region: "us-east-1",
				Bucket: "confessions",
				Prefix: "audio",
			},
		},
		Sweeper: Sweeper{
			Enabled:  true,
			Schedule: "@every 1h",
			Grace:    10 * time.Minute,
		},
	}
}

// Load applies the YAML file named by CONFIG_FILE (if any) and then the
// environment on top of the defaults.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	setString(&c.Env, "APP_ENV")
	setString(&c.Port, "PORT")
	setString(&c.CORSOrigin, "CORS_ORIGIN")

	setString(&c.Postgres.URL, "DATABASE_URL")
	setString(&c.Postgres.Host, "POSTGRES_HOST")
	setString(&c.Postgres.Port, "POSTGRES_PORT")
	setString(&c.Postgres.User, "POSTGRES_USER")
	setString(&c.Postgres.Password, "POSTGRES_PASSWORD")
	setString(&c.Postgres.DBName, "POSTGRES_DB")
	setString(&c.Postgres.SSLMode, "POSTGRES_SSLMODE")

	setString(&c.Redis.Host, "REDIS_HOST")
	setString(&c.Redis.Port, "REDIS_PORT")
	setString(&c.Redis.Password, "REDIS_PASSWORD")

	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.UploadDir, "UPLOAD_DIR")
	setString(&c.Storage.S3.Region, "S3_REGION")
	setString(&c.Storage.S3.AccessKey, "S3_ACCESS_KEY")
	setString(&c.Storage.S3.SecretKey, "S3_SECRET_KEY")
	setString(&c.Storage.S3.Bucket, "S3_BUCKET")
	setString(&c.Storage.S3.Prefix, "S3_PREFIX")
	setString(&c.Storage.S3.BaseEndpoint, "S3_ENDPOINT")

	setString(&c.Sweeper.Schedule, "SWEEP_SCHEDULE")

	if err := setBool(&c.Redis.Enabled, "REDIS_ENABLED"); err != nil {
		return err
	}
	if err := setInt(&c.Redis.DB, "REDIS_DB"); err != nil {
		return err
	}
	if err := setInt64(&c.Storage.MaxUploadBytes, "MAX_UPLOAD_BYTES"); err != nil {
		return err
	}
	if err := setBool(&c.Sweeper.Enabled, "SWEEP_ENABLED"); err != nil {
		return err
	}
	for key, dst := range map[string]*time.Duration{
		"REQUEST_TIMEOUT": &c.RequestTimeout,
		"CACHE_TTL":       &c.Redis.CacheTTL,
		"SWEEP_GRACE":     &c.Sweeper.Grace,
	} {
		if err := setDuration(dst, key); err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}
	switch c.Storage.Backend {
	case "local":
		if c.Storage.UploadDir == "" {
			return fmt.Errorf("upload directory must not be empty")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket must not be empty")
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s", c.Storage.Backend)
	}
	if c.Sweeper.Enabled && c.Sweeper.Grace <= 0 {
		return fmt.Errorf("sweeper grace period must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s value: %w", key, err)
	}
	*dst = b
	return nil
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s value: %w", key, err)
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s value: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s value: %w", key, err)
	}
	*dst = d
	return nil
}
