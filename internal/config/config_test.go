package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, expected sqlite", cfg.Database.Driver)
	}
	if cfg.Listings.PageSize != 4 {
		t.Errorf("Listings.PageSize = %d, expected 4", cfg.Listings.PageSize)
	}
	if cfg.Email.MaxAttempts != 3 {
		t.Errorf("Email.MaxAttempts = %d, expected 3", cfg.Email.MaxAttempts)
	}
	if cfg.PasswordReset.TimeoutHours != 72 {
		t.Errorf("PasswordReset.TimeoutHours = %d, expected 72", cfg.PasswordReset.TimeoutHours)
	}
	if GlobalConfig != cfg {
		t.Error("Load should set GlobalConfig")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  port: \"9090\"\nlistings:\n  page_size: 10\n  strict_location: true\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, expected 9090", cfg.Server.Port)
	}
	if cfg.Listings.PageSize != 10 {
		t.Errorf("Listings.PageSize = %d, expected 10", cfg.Listings.PageSize)
	}
	if !cfg.Listings.StrictLocation {
		t.Error("Listings.StrictLocation should be true")
	}
	// keys absent from the file keep their defaults
	if cfg.Session.CookieName != "harmonix_session" {
		t.Errorf("Session.CookieName = %q, expected harmonix_session", cfg.Session.CookieName)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on invalid yaml")
	}
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("DEFAULT_FROM_EMAIL", "bands@harmonix.test")
	t.Setenv("EMAIL_API_KEY", "key-123")
	t.Setenv("SMTP_HOST", "smtp.harmonix.test")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("APP_BASE_URL", "https://harmonix.test/")

	cfg := DefaultConfig()
	cfg.overrideFromEnv()

	if cfg.Email.From != "bands@harmonix.test" {
		t.Errorf("Email.From = %q", cfg.Email.From)
	}
	if cfg.Email.APIKey != "key-123" {
		t.Errorf("Email.APIKey = %q", cfg.Email.APIKey)
	}
	if cfg.Email.Transport != "smtp" {
		t.Errorf("Email.Transport = %q, expected smtp when SMTP_HOST is set", cfg.Email.Transport)
	}
	if cfg.Email.Port != 2525 {
		t.Errorf("Email.Port = %d, expected 2525", cfg.Email.Port)
	}
	if cfg.PasswordReset.BaseURL != "https://harmonix.test" {
		t.Errorf("PasswordReset.BaseURL = %q", cfg.PasswordReset.BaseURL)
	}
}

func TestOverrideFromEnv_SendGridFallback(t *testing.T) {
	t.Setenv("SENDGRID_API_KEY", "sg-key")

	cfg := DefaultConfig()
	cfg.overrideFromEnv()

	if cfg.Email.APIKey != "sg-key" {
		t.Errorf("Email.APIKey = %q, expected sg-key", cfg.Email.APIKey)
	}
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		addr     string
		password string
		db       int
	}{
		{"host only", "redis://localhost:6379", "localhost:6379", "", 0},
		{"with password", "redis://:secret@redis:6379", "redis:6379", "secret", 0},
		{"with user and db", "redis://user:pw@10.0.0.5:6380/2", "10.0.0.5:6380", "pw", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.parseRedisURL(tt.url)
			if cfg.Redis.Addr != tt.addr {
				t.Errorf("Addr = %q, expected %q", cfg.Redis.Addr, tt.addr)
			}
			if cfg.Redis.Password != tt.password {
				t.Errorf("Password = %q, expected %q", cfg.Redis.Password, tt.password)
			}
			if cfg.Redis.DB != tt.db {
				t.Errorf("DB = %d, expected %d", cfg.Redis.DB, tt.db)
			}
		})
	}
}

func TestApplyFloors(t *testing.T) {
	cfg := &Config{}
	cfg.applyFloors()

	if cfg.Listings.PageSize != 4 {
		t.Errorf("PageSize = %d, expected 4", cfg.Listings.PageSize)
	}
	if cfg.Email.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, expected 3", cfg.Email.MaxAttempts)
	}
	if cfg.Session.CookieName == "" {
		t.Error("CookieName should have a default")
	}
}
