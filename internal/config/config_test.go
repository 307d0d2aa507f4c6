package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadFallsBackOnBadNumericValues(t *testing.T) {
	t.Setenv("DB_CONNECT_ATTEMPTS", "zero")
	t.Setenv("DB_CONNECT_RETRY_MS", "-10")
	t.Setenv("STOCK_CACHE_TTL_SECONDS", "")
	t.Setenv("SALE_TX_TIMEOUT_SECONDS", "nope")

	cfg := Load()
	if cfg.DBConnectAttempts != 5 {
		t.Fatalf("expected 5 connect attempts, got %d", cfg.DBConnectAttempts)
	}
	if cfg.DBConnectRetryMS != 500 {
		t.Fatalf("expected 500ms retry delay, got %d", cfg.DBConnectRetryMS)
	}
	if cfg.StockCacheTTLSeconds != 15 {
		t.Fatalf("expected 15s stock cache TTL, got %d", cfg.StockCacheTTLSeconds)
	}
	if cfg.SaleTxTimeoutSeconds != 10 {
		t.Fatalf("expected 10s sale timeout, got %d", cfg.SaleTxTimeoutSeconds)
	}
}

func TestAddress(t *testing.T) {
	t.Setenv("PORT", "9191")

	cfg := Load()
	if cfg.Address() != ":9191" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}
