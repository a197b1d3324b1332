package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: PostgresConfig{
			Host:   "localhost",
			DBName: "tradefind",
		},
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingDatabase(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no host", func(c *Config) { c.Database.Host = "" }},
		{"no dbname", func(c *Config) { c.Database.DBName = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected error for incomplete database config")
			}
		})
	}
}

func TestValidate_ScoreThresholdRange(t *testing.T) {
	cfg := validConfig()
	cfg.Search.ScoreThreshold = 1.5

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range score threshold")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Cache.KeyPrefix != "tradefind:" {
		t.Errorf("expected KeyPrefix=tradefind:, got %q", cfg.Cache.KeyPrefix)
	}
	if cfg.Cache.DefaultTTLSec != 3600 {
		t.Errorf("expected DefaultTTLSec=3600, got %d", cfg.Cache.DefaultTTLSec)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("expected Port=5432, got %d", cfg.Database.Port)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("expected Dimensions=384, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Search.TopK != 20 {
		t.Errorf("expected TopK=20, got %d", cfg.Search.TopK)
	}
	if cfg.Search.ScoreThreshold != 0.3 {
		t.Errorf("expected ScoreThreshold=0.3, got %g", cfg.Search.ScoreThreshold)
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("TRADEFIND_TEST_VAR", "secret")
	defer os.Unsetenv("TRADEFIND_TEST_VAR")

	tests := []struct {
		in   string
		want string
	}{
		{"key: ${TRADEFIND_TEST_VAR}", "key: secret"},
		{"key: ${TRADEFIND_MISSING:-fallback}", "key: fallback"},
		{"key: plain", "key: plain"},
	}

	for _, tt := range tests {
		got := string(expandEnvVars([]byte(tt.in)))
		if got != tt.want {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
