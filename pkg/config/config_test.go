package config

import (
	"testing"
	"time"

	"restoPlay/domain"
)

func TestLoad_MemoryDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", StoreDriverMemory)
	t.Setenv("DB_PASSWORD", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.Game.MultiTenant() {
		t.Error("multi-tenant should be the default mode")
	}
	if cfg.Game.HistoryPolicy != domain.HistoryLatest {
		t.Errorf("history policy = %q", cfg.Game.HistoryPolicy)
	}
	if cfg.Game.RegistrationLock != LockNone || cfg.Game.LenientTokens {
		t.Errorf("unexpected game defaults %+v", cfg.Game)
	}
	if cfg.Server.RequestTimeout != 10*time.Second {
		t.Errorf("request timeout = %v", cfg.Server.RequestTimeout)
	}
	if cfg.Mailjet.Enabled() {
		t.Error("mailjet should be disabled without configuration")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", StoreDriverPostgres)
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("TENANT_MODE", TenantModeSingle)
	t.Setenv("PLAY_HISTORY_POLICY", "append")
	t.Setenv("GAME_LENIENT_TOKENS", "true")
	t.Setenv("REGISTRATION_LOCK", LockRedis)
	t.Setenv("REDIS_LOCK_TTL", "2s")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Game.MultiTenant() || cfg.Game.HistoryPolicy != domain.HistoryAppend || !cfg.Game.LenientTokens {
		t.Errorf("game config = %+v", cfg.Game)
	}
	if cfg.Redis.LockTTL != 2*time.Second || cfg.Redis.DB != 3 {
		t.Errorf("redis config = %+v", cfg.Redis)
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "postgres without password", env: map[string]string{"STORE_DRIVER": StoreDriverPostgres, "DB_PASSWORD": ""}},
		{name: "unknown driver", env: map[string]string{"STORE_DRIVER": "mongo"}},
		{name: "unknown tenant mode", env: map[string]string{"STORE_DRIVER": StoreDriverMemory, "TENANT_MODE": "both"}},
		{name: "unknown history policy", env: map[string]string{"STORE_DRIVER": StoreDriverMemory, "PLAY_HISTORY_POLICY": "sometimes"}},
		{name: "unknown lock", env: map[string]string{"STORE_DRIVER": StoreDriverMemory, "REGISTRATION_LOCK": "zookeeper"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
