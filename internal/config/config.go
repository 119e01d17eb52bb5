package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Database    DatabaseConfig    `yaml:"database"`
	JWT         JWTConfig         `yaml:"jwt"`
	Storage     StorageConfig     `yaml:"storage"`
	Redis       RedisConfig       `yaml:"redis"`
	ProjectCode ProjectCodeConfig `yaml:"project_code"`
	Counter     CounterConfig     `yaml:"counter"`
	Admin       AdminConfig       `yaml:"admin"`
}

type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        string   `yaml:"port"`
	Mode        string   `yaml:"mode"` // debug, release, test
	CORSOrigins []string `yaml:"cors_origins"`
	// LoginRPS and LoginBurst limit login attempts per client IP.
	LoginRPS   float64 `yaml:"login_rps"`
	LoginBurst int     `yaml:"login_burst"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	SQL    bool   `yaml:"sql"`    // log every statement
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

// StorageConfig points at the S3-compatible bucket holding uploaded files.
type StorageConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"` // presigned download links
}

// RedisConfig for optional async task queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// Worker goroutines consuming blob cleanup tasks.
	Concurrency int `yaml:"concurrency"`
	MaxRetry    int `yaml:"max_retry"`
}

// ProjectCodeConfig controls how correlative project codes are assigned.
type ProjectCodeConfig struct {
	// Strategy is "count" (same-day count query) or "sequence"
	// (transactional per-day sequence row).
	Strategy string `yaml:"strategy"`
	// Timezone names the IANA zone whose calendar day a code belongs to.
	Timezone string `yaml:"timezone"`
}

type CounterConfig struct {
	// ReconcileCron is a 5-field cron spec; empty disables reconciliation.
	ReconcileCron string `yaml:"reconcile_cron"`
}

// AdminConfig seeds the first admin account on an empty database.
type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Tenant   string `yaml:"tenant"`
}

const (
	CodeStrategyCount    = "count"
	CodeStrategySequence = "sequence"
)

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	}

	cfg.overrideFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        "8080",
			Mode:        "debug",
			CORSOrigins: []string{"*"},
			LoginRPS:    1,
			LoginBurst:  5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "tch-portal.db",
		},
		JWT: JWTConfig{
			Secret:     "tch-portal-secret-change-in-production",
			ExpireHour: 24,
		},
		Storage: StorageConfig{
			Enabled:    false,
			Endpoint:   "localhost:9000",
			Bucket:     "tch-projects",
			ExpireDays: 7,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:        "localhost:6379",
			DB:          0,
			Concurrency: 4,
			MaxRetry:    5,
		},
		ProjectCode: ProjectCodeConfig{
			Strategy: CodeStrategyCount,
			Timezone: "Local",
		},
		Counter: CounterConfig{
			ReconcileCron: "0 3 * * *",
		},
		Admin: AdminConfig{
			Email:  "admin@tch.local",
			Tenant: "TCH",
		},
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.ProjectCode.Strategy {
	case CodeStrategyCount, CodeStrategySequence:
	default:
		return fmt.Errorf("unsupported project_code.strategy: %q", c.ProjectCode.Strategy)
	}
	if _, err := c.ProjectCode.Location(); err != nil {
		return fmt.Errorf("invalid project_code.timezone: %w", err)
	}
	if c.JWT.ExpireHour <= 0 {
		return fmt.Errorf("jwt.expire_hour must be positive")
	}
	return nil
}

// Location resolves Timezone; "" and "Local" mean the server zone.
func (p ProjectCodeConfig) Location() (*time.Location, error) {
	if p.Timezone == "" || p.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(p.Timezone)
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.Server.CORSOrigins = strings.Split(origins, ",")
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if endpoint := os.Getenv("MINIO_ENDPOINT"); endpoint != "" {
		c.Storage.Enabled = true
		c.Storage.Endpoint = endpoint
	}
	if key := os.Getenv("MINIO_ACCESS_KEY"); key != "" {
		c.Storage.AccessKey = key
	}
	if secret := os.Getenv("MINIO_SECRET_KEY"); secret != "" {
		c.Storage.SecretKey = secret
	}
	if bucket := os.Getenv("MINIO_BUCKET"); bucket != "" {
		c.Storage.Bucket = bucket
	}
	if strategy := os.Getenv("PROJECT_CODE_STRATEGY"); strategy != "" {
		c.ProjectCode.Strategy = strategy
	}
	if tz := os.Getenv("PROJECT_CODE_TIMEZONE"); tz != "" {
		c.ProjectCode.Timezone = tz
	}
	if pw := os.Getenv("ADMIN_PASSWORD"); pw != "" {
		c.Admin.Password = pw
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
