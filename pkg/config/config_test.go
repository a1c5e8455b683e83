package config

import (
	"strings"
	"testing"
	"time"
)

func TestConfig_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.HTTPPort != "8080" {
		t.Errorf("expected default HTTPPort 8080, got %s", cfg.HTTPPort)
	}
	if cfg.PolymarketGammaURL != "https://gamma-api.polymarket.com" {
		t.Errorf("unexpected default gamma URL %s", cfg.PolymarketGammaURL)
	}
	if !cfg.PaperTrading {
		t.Error("expected PaperTrading to default to true")
	}
	if cfg.MaxPositionSize != 100 {
		t.Errorf("expected default MaxPositionSize 100, got %f", cfg.MaxPositionSize)
	}
	if cfg.MaxTotalExposure != 1000 {
		t.Errorf("expected default MaxTotalExposure 1000, got %f", cfg.MaxTotalExposure)
	}
	if cfg.StorageMode != "memory" {
		t.Errorf("expected default StorageMode memory, got %s", cfg.StorageMode)
	}
	if cfg.ScanInterval != 5*time.Minute {
		t.Errorf("expected default ScanInterval 5m, got %s", cfg.ScanInterval)
	}
	if cfg.ResolveInterval != time.Hour {
		t.Errorf("expected default ResolveInterval 1h, got %s", cfg.ResolveInterval)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("MAX_POSITION_SIZE", "25.5")
	t.Setenv("MAX_TOTAL_EXPOSURE", "500")
	t.Setenv("PAPER_TRADING", "false")
	t.Setenv("SCAN_INTERVAL", "30s")
	t.Setenv("SCAN_MARKET_LIMIT", "0")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.MaxPositionSize != 25.5 {
		t.Errorf("expected MaxPositionSize 25.5, got %f", cfg.MaxPositionSize)
	}
	if cfg.MaxTotalExposure != 500 {
		t.Errorf("expected MaxTotalExposure 500, got %f", cfg.MaxTotalExposure)
	}
	if cfg.PaperTrading {
		t.Error("expected PaperTrading false")
	}
	if cfg.ScanInterval != 30*time.Second {
		t.Errorf("expected ScanInterval 30s, got %s", cfg.ScanInterval)
	}
	if cfg.ScanMarketLimit != 0 {
		t.Errorf("expected ScanMarketLimit 0 (unlimited), got %d", cfg.ScanMarketLimit)
	}
}

func TestConfig_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("MAX_POSITION_SIZE", "lots")
	t.Setenv("PAPER_TRADING", "absolutely")
	t.Setenv("SCAN_INTERVAL", "whenever")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.MaxPositionSize != 100 {
		t.Errorf("expected fallback MaxPositionSize 100, got %f", cfg.MaxPositionSize)
	}
	if !cfg.PaperTrading {
		t.Error("expected fallback PaperTrading true")
	}
	if cfg.ScanInterval != 5*time.Minute {
		t.Errorf("expected fallback ScanInterval 5m, got %s", cfg.ScanInterval)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			HTTPPort:           "8080",
			PolymarketGammaURL: "https://gamma-api.polymarket.com",
			MaxPositionSize:    100,
			MaxTotalExposure:   1000,
			ScanInterval:       time.Minute,
			ResolveInterval:    time.Hour,
			StorageMode:        "memory",
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty_port",
			mutate:  func(c *Config) { c.HTTPPort = "" },
			wantErr: "HTTP_PORT",
		},
		{
			name:    "empty_gamma_url",
			mutate:  func(c *Config) { c.PolymarketGammaURL = "" },
			wantErr: "POLYMARKET_GAMMA_API_URL",
		},
		{
			name:    "zero_position_size",
			mutate:  func(c *Config) { c.MaxPositionSize = 0 },
			wantErr: "MAX_POSITION_SIZE",
		},
		{
			name:    "negative_exposure",
			mutate:  func(c *Config) { c.MaxTotalExposure = -5 },
			wantErr: "MAX_TOTAL_EXPOSURE",
		},
		{
			name: "position_size_exceeds_exposure",
			mutate: func(c *Config) {
				c.MaxPositionSize = 2000
			},
			wantErr: "exceeds MAX_TOTAL_EXPOSURE",
		},
		{
			name:    "bad_storage_mode",
			mutate:  func(c *Config) { c.StorageMode = "console" },
			wantErr: "STORAGE_MODE",
		},
		{
			name:    "zero_scan_interval",
			mutate:  func(c *Config) { c.ScanInterval = 0 },
			wantErr: "SCAN_INTERVAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestConfig_PostgresDSN(t *testing.T) {
	cfg := &Config{
		PostgresHost: "db",
		PostgresPort: "5433",
		PostgresUser: "agent",
		PostgresPass: "secret",
		PostgresDB:   "prediction_agent",
		PostgresSSL:  "require",
	}

	want := "host=db port=5433 user=agent password=secret dbname=prediction_agent sslmode=require"
	if got := cfg.PostgresDSN(); got != want {
		t.Errorf("dsn = %q, want %q", got, want)
	}
}
