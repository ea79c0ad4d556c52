package config

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	defaultServiceName  = "site-api"
	defaultServicePort  = 8094
	defaultVersion      = "0.1.0"
	defaultLoggingLevel = "info"

	defaultSiteTitle       = "dcyfr.labs"
	defaultSiteDescription = "Writing on security, software, and systems."
	defaultSiteURL         = "https://dcyfr.dev"
	defaultSiteLanguage    = "en-us"
	defaultContentDir      = "content"

	defaultFeedLimit    = 20
	defaultFeedMaxLimit = 100

	defaultRedisAddress = "localhost:6379"
	defaultKeyPrefix    = "site:prod"
	defaultRedisTimeout = 2 * time.Second

	defaultDBHost    = "localhost"
	defaultDBPort    = 5432
	defaultDBName    = "site_api"
	defaultDBUser    = "postgres"
	defaultDBSSLMode = "disable"

	defaultBufferSize     = 1000
	defaultFlushInterval  = time.Second
	defaultFlushThreshold = 100

	defaultMaxWritesPerMinute = 30
	defaultRateWindow         = time.Minute

	defaultStatsRetentionDays = 30
)

// Config holds the application configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Site      SiteConfig      `yaml:"site"`
	Feed      FeedConfig      `yaml:"feed"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	Archive   ArchiveConfig   `yaml:"archive"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Admin     AdminConfig     `yaml:"admin"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"SITE_API_PORT" yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"     yaml:"debug"`
}

// SiteConfig describes the public site the API serves.
type SiteConfig struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	URL         string `env:"SITE_URL" yaml:"url"`
	Author      string `yaml:"author"`
	Language    string `yaml:"language"`
	ContentDir  string `env:"SITE_CONTENT_DIR" yaml:"content_dir"`
}

// FeedConfig holds syndication feed settings.
type FeedConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// RedisConfig holds Redis connection and namespacing configuration.
// KeyPrefix separates deployment environments sharing one Redis
// (e.g. "site:prod" vs "site:preview").
type RedisConfig struct {
	Address   string        `env:"REDIS_ADDRESS"   yaml:"address"`
	Password  string        `env:"REDIS_PASSWORD"  yaml:"password"`
	DB        int           `env:"REDIS_DB"        yaml:"db"`
	KeyPrefix string        `env:"REDIS_KEY_PREFIX" yaml:"key_prefix"`
	Timeout   time.Duration `yaml:"timeout"`
}

// DatabaseConfig holds PostgreSQL configuration for the event archive.
type DatabaseConfig struct {
	Host     string `env:"POSTGRES_SITE_API_HOST"     yaml:"host"`
	Port     int    `env:"POSTGRES_SITE_API_PORT"     yaml:"port"`
	User     string `env:"POSTGRES_SITE_API_USER"     yaml:"user"`
	Password string `env:"POSTGRES_SITE_API_PASSWORD" yaml:"password"`
	Database string `env:"POSTGRES_SITE_API_DB"       yaml:"database"`
	SSLMode  string `env:"POSTGRES_SITE_API_SSLMODE"  yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// ArchiveConfig tunes the buffered engagement event archive.
type ArchiveConfig struct {
	BufferSize     int           `yaml:"buffer_size"`
	FlushInterval  time.Duration `yaml:"flush_interval"`
	FlushThreshold int           `yaml:"flush_threshold"`
}

// RateLimitConfig limits bookmark writes per client IP.
type RateLimitConfig struct {
	MaxWritesPerMinute int           `yaml:"max_writes_per_minute"`
	Window             time.Duration `yaml:"window"`
}

// AdminConfig guards the admin stats endpoints.
type AdminConfig struct {
	JWTSecret          string `env:"SITE_API_ADMIN_SECRET" yaml:"jwt_secret"`
	StatsRetentionDays int    `yaml:"stats_retention_days"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `env:"LOG_LEVEL" yaml:"level"`
}

// Load loads configuration from the specified path and applies defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := load(path, &cfg); err != nil {
		return nil, err
	}

	setDefaults(&cfg)

	// Env always wins, including over defaults.
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setSiteDefaults(&cfg.Site)
	setFeedDefaults(&cfg.Feed)
	setRedisDefaults(&cfg.Redis)
	setDatabaseDefaults(&cfg.Database)
	setArchiveDefaults(&cfg.Archive)
	setRateLimitDefaults(&cfg.RateLimit)
	setAdminDefaults(&cfg.Admin)
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultLoggingLevel
	}
}

func setServiceDefaults(svc *ServiceConfig) {
	if svc.Name == "" {
		svc.Name = defaultServiceName
	}
	if svc.Version == "" {
		svc.Version = defaultVersion
	}
	if svc.Port == 0 {
		svc.Port = defaultServicePort
	}
}

func setSiteDefaults(site *SiteConfig) {
	if site.Title == "" {
		site.Title = defaultSiteTitle
	}
	if site.Description == "" {
		site.Description = defaultSiteDescription
	}
	if site.URL == "" {
		site.URL = defaultSiteURL
	}
	if site.Language == "" {
		site.Language = defaultSiteLanguage
	}
	if site.ContentDir == "" {
		site.ContentDir = defaultContentDir
	}
}

func setFeedDefaults(feed *FeedConfig) {
	if feed.DefaultLimit == 0 {
		feed.DefaultLimit = defaultFeedLimit
	}
	if feed.MaxLimit == 0 {
		feed.MaxLimit = defaultFeedMaxLimit
	}
}

func setRedisDefaults(r *RedisConfig) {
	if r.Address == "" {
		r.Address = defaultRedisAddress
	}
	if r.KeyPrefix == "" {
		r.KeyPrefix = defaultKeyPrefix
	}
	if r.Timeout == 0 {
		r.Timeout = defaultRedisTimeout
	}
}

func setDatabaseDefaults(db *DatabaseConfig) {
	if db.Host == "" {
		db.Host = defaultDBHost
	}
	if db.Port == 0 {
		db.Port = defaultDBPort
	}
	if db.User == "" {
		db.User = defaultDBUser
	}
	if db.Database == "" {
		db.Database = defaultDBName
	}
	if db.SSLMode == "" {
		db.SSLMode = defaultDBSSLMode
	}
}

func setArchiveDefaults(a *ArchiveConfig) {
	if a.BufferSize == 0 {
		a.BufferSize = defaultBufferSize
	}
	if a.FlushInterval == 0 {
		a.FlushInterval = defaultFlushInterval
	}
	if a.FlushThreshold == 0 {
		a.FlushThreshold = defaultFlushThreshold
	}
}

func setRateLimitDefaults(rl *RateLimitConfig) {
	if rl.MaxWritesPerMinute == 0 {
		rl.MaxWritesPerMinute = defaultMaxWritesPerMinute
	}
	if rl.Window == 0 {
		rl.Window = defaultRateWindow
	}
}

func setAdminDefaults(a *AdminConfig) {
	if a.StatsRetentionDays == 0 {
		a.StatsRetentionDays = defaultStatsRetentionDays
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := ValidatePort("service.port", c.Service.Port); err != nil {
		return err
	}
	if c.Site.URL == "" {
		return &ValidationError{Field: "site.url", Message: "is required"}
	}
	if c.Redis.Address == "" {
		return &ValidationError{Field: "redis.address", Message: "is required"}
	}
	if c.Admin.JWTSecret == "" {
		return &ValidationError{Field: "admin.jwt_secret", Message: "is required"}
	}
	if c.Feed.DefaultLimit < 1 || c.Feed.DefaultLimit > c.Feed.MaxLimit {
		return &ValidationError{
			Field:   "feed.default_limit",
			Message: fmt.Sprintf("must be between 1 and %d", c.Feed.MaxLimit),
		}
	}
	return nil
}
