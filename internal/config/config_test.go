package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_ResolvesLiteralAndEnvSecrets(t *testing.T) {
	t.Setenv("TEST_FULL_SECRET", "secret-from-env")
	path := writeConfig(t, `
[binance]
full_key = "literal-key"
full_secret = { env = "TEST_FULL_SECRET" }
read_key = "read-key"
read_secret = "read-secret"

[engine]
asset = "ETH"
venue = "BinanceFutures"
size_usdt = 500.0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Binance.FullKey != "literal-key" {
		t.Errorf("FullKey = %q, want literal-key", cfg.Binance.FullKey)
	}
	if cfg.Binance.FullSecret != "secret-from-env" {
		t.Errorf("FullSecret = %q, want secret-from-env", cfg.Binance.FullSecret)
	}
	if cfg.Engine.Asset != "ETH" || cfg.Engine.SizeUSDT != 500.0 {
		t.Errorf("unexpected engine config: %+v", cfg.Engine)
	}
}

func TestLoad_ErrorsOnMissingEnvVar(t *testing.T) {
	os.Unsetenv("TEST_MISSING_SECRET_XYZ")
	path := writeConfig(t, `
[binance]
full_key = "k"
full_secret = { env = "TEST_MISSING_SECRET_XYZ" }
read_key = "k"
read_secret = "s"

[engine]
size_usdt = 100.0
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error when the referenced env var is unset")
	}
}

func TestLoad_RejectsNonPositiveSizeUSDT(t *testing.T) {
	path := writeConfig(t, `
[binance]
full_key = "k"
full_secret = "s"
read_key = "k"
read_secret = "s"

[engine]
size_usdt = 0
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for size_usdt <= 0")
	}
}

func TestLoad_AppliesDefaultsForOmittedEngineFields(t *testing.T) {
	path := writeConfig(t, `
[binance]
full_key = "k"
full_secret = "s"
read_key = "k"
read_secret = "s"

[engine]
size_usdt = 250.0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Asset != "BTC" {
		t.Errorf("Asset default = %q, want BTC", cfg.Engine.Asset)
	}
	if cfg.Engine.Venue != "BinanceFutures" {
		t.Errorf("Venue default = %q, want BinanceFutures", cfg.Engine.Venue)
	}
	if cfg.Engine.PollInterval.Seconds() != 5 {
		t.Errorf("PollInterval default = %v, want 5s", cfg.Engine.PollInterval)
	}
	if cfg.Engine.RefreshInterval.Seconds() != 15 {
		t.Errorf("RefreshInterval default = %v, want 15s", cfg.Engine.RefreshInterval)
	}
	if cfg.Audit.DatabasePath != "data/execengine.db" {
		t.Errorf("DatabasePath default = %q, want data/execengine.db", cfg.Audit.DatabasePath)
	}
}

func TestLoad_ErrorsOnMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
