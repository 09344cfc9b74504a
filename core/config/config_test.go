package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Token:   "123:abc",
			AdminID: 42,
		},
		Catalog: CatalogConfig{
			BaseURL: "http://localhost:8000/",
		},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Errorf("run_mode default = %q", cfg.Telegram.RunMode)
	}
	if cfg.Catalog.BaseURL != "http://localhost:8000" {
		t.Errorf("base_url not trimmed: %q", cfg.Catalog.BaseURL)
	}
	if cfg.Catalog.TimeoutSeconds != 15 {
		t.Errorf("timeout default = %d", cfg.Catalog.TimeoutSeconds)
	}
	if cfg.State.Backend != StateBackendMemory {
		t.Errorf("state backend default = %q", cfg.State.Backend)
	}
}

func TestNormalizeRequiresToken(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.Token = ""
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestNormalizeRequiresAdminID(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.AdminID = 0
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for missing admin_id")
	}
}

func TestNormalizeRequiresCatalogURL(t *testing.T) {
	cfg := validConfig()
	cfg.Catalog.BaseURL = " "
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for missing catalog.base_url")
	}
}

func TestNormalizeAcceptsPollingAlias(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "polling"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Errorf("alias not normalized: %q", cfg.Telegram.RunMode)
	}
}

func TestNormalizeWebhookValidation(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	err := Normalize(cfg)
	if err == nil || !strings.Contains(err.Error(), "webhook.url") {
		t.Fatalf("expected webhook.url error, got %v", err)
	}

	cfg.Webhook = WebhookConfig{URL: "https://bot.example.com", Listen: "0.0.0.0", Port: 8443}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize with webhook fields: %v", err)
	}
}

func TestNormalizePostgresBackendNeedsDatabase(t *testing.T) {
	cfg := validConfig()
	cfg.State.Backend = StateBackendPostgres
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for missing database settings")
	}
	cfg.Database.Host = "localhost"
	cfg.Database.Name = "shopbot"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize with database settings: %v", err)
	}
}

func TestNormalizeRateLimitExclusions(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{"Callback", "message"}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.RateLimit.ExcludeUpdates[0] != UpdateCallback {
		t.Errorf("exclusion not lowercased: %q", cfg.RateLimit.ExcludeUpdates[0])
	}

	cfg.RateLimit.ExcludeUpdates = []string{"inline_query"}
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for unsupported exclusion")
	}
}

func TestNormalizeOrderOnlyPrefixesTrimmed(t *testing.T) {
	cfg := validConfig()
	cfg.Catalog.OrderOnlyPrefixes = []string{" VIP ", "Lux"}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Catalog.OrderOnlyPrefixes[0] != "VIP" {
		t.Errorf("prefix not trimmed: %q", cfg.Catalog.OrderOnlyPrefixes[0])
	}
}
