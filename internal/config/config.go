package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Log           LogConfig           `yaml:"log"`
	Database      DatabaseConfig      `yaml:"database"`
	Session       SessionConfig       `yaml:"session"`
	Redis         RedisConfig         `yaml:"redis"`
	Email         EmailConfig         `yaml:"email"`
	PasswordReset PasswordResetConfig `yaml:"password_reset"`
	Listings      ListingsConfig      `yaml:"listings"`
	Admin         AdminConfig         `yaml:"admin"`
	SystemLog     SystemLogConfig     `yaml:"system_log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
	// AllowedOrigins lists the front-end origins allowed to send the session cookie.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	Secret       string `yaml:"secret"`
	ExpireHour   int    `yaml:"expire_hour"`
	CookieName   string `yaml:"cookie_name"`
	CookieSecure bool   `yaml:"cookie_secure"`
}

// RedisConfig for optional async task queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type EmailConfig struct {
	Transport   string `yaml:"transport"` // smtp, log
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	APIKey      string `yaml:"api_key"`
	From        string `yaml:"from"`
	FromName    string `yaml:"from_name"`
	MaxAttempts int    `yaml:"max_attempts"`
	// RetryBackoffSeconds is the first delay of the in-process retry loop; it doubles per attempt.
	RetryBackoffSeconds int `yaml:"retry_backoff_seconds"`
	// StaleMinutes is how long a pending delivery may sit before the sweep re-enqueues it.
	StaleMinutes int `yaml:"stale_minutes"`
}

type PasswordResetConfig struct {
	TimeoutHours int    `yaml:"timeout_hours"`
	BaseURL      string `yaml:"base_url"`
}

type ListingsConfig struct {
	PageSize       int  `yaml:"page_size"`
	StrictLocation bool `yaml:"strict_location"` // require "City, Country"
}

type AdminConfig struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type SystemLogConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

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
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.overrideFromEnv()
	cfg.applyFloors()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           "8080",
			Mode:           "debug",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
		},
		Log: LogConfig{
			Level: "info",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "harmonix.db",
		},
		Session: SessionConfig{
			Secret:     "harmonix-secret-key-change-in-production",
			ExpireHour: 24 * 14,
			CookieName: "harmonix_session",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Email: EmailConfig{
			Transport:           "log",
			Port:                587,
			From:                "no-reply@harmonix.local",
			FromName:            "Harmonix",
			MaxAttempts:         3,
			RetryBackoffSeconds: 5,
			StaleMinutes:        15,
		},
		PasswordReset: PasswordResetConfig{
			TimeoutHours: 72,
			BaseURL:      "http://localhost:8080",
		},
		Listings: ListingsConfig{
			PageSize: 4,
		},
		Admin: AdminConfig{
			Username: "admin",
			Email:    "admin@harmonix.local",
		},
		SystemLog: SystemLogConfig{
			RetentionDays: 30,
		},
	}
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
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, o)
			}
		}
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
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		c.Session.Secret = secret
	}
	if os.Getenv("SESSION_COOKIE_SECURE") == "true" {
		c.Session.CookieSecure = true
	}
	if from := os.Getenv("DEFAULT_FROM_EMAIL"); from != "" {
		c.Email.From = from
	}
	if host := os.Getenv("SMTP_HOST"); host != "" {
		c.Email.Host = host
		c.Email.Transport = "smtp"
	}
	if port := os.Getenv("SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Email.Port = p
		}
	}
	if username := os.Getenv("SMTP_USERNAME"); username != "" {
		c.Email.Username = username
	}
	if password := os.Getenv("SMTP_PASSWORD"); password != "" {
		c.Email.Password = password
	}
	// SENDGRID_API_KEY is accepted for deployments that predate EMAIL_API_KEY
	if apiKey := os.Getenv("SENDGRID_API_KEY"); apiKey != "" {
		c.Email.APIKey = apiKey
	}
	if apiKey := os.Getenv("EMAIL_API_KEY"); apiKey != "" {
		c.Email.APIKey = apiKey
	}
	if baseURL := os.Getenv("APP_BASE_URL"); baseURL != "" {
		c.PasswordReset.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	if password := os.Getenv("ADMIN_PASSWORD"); password != "" {
		c.Admin.Password = password
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// applyFloors replaces non-positive numeric settings with their defaults.
func (c *Config) applyFloors() {
	def := DefaultConfig()
	if c.Session.ExpireHour <= 0 {
		c.Session.ExpireHour = def.Session.ExpireHour
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = def.Session.CookieName
	}
	if c.Email.MaxAttempts <= 0 {
		c.Email.MaxAttempts = def.Email.MaxAttempts
	}
	if c.Email.RetryBackoffSeconds <= 0 {
		c.Email.RetryBackoffSeconds = def.Email.RetryBackoffSeconds
	}
	if c.Email.StaleMinutes <= 0 {
		c.Email.StaleMinutes = def.Email.StaleMinutes
	}
	if c.PasswordReset.TimeoutHours <= 0 {
		c.PasswordReset.TimeoutHours = def.PasswordReset.TimeoutHours
	}
	if c.Listings.PageSize <= 0 {
		c.Listings.PageSize = def.Listings.PageSize
	}
	if c.SystemLog.RetentionDays <= 0 {
		c.SystemLog.RetentionDays = def.SystemLog.RetentionDays
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		// Password format: :password or user:password
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
