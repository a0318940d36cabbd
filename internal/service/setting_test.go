package service

import (
	"testing"
	"time"

	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/config"
)

const testAESKey = "0123456789abcdef0123456789abcdef"

func TestSettingUpsertEncryptsKey(t *testing.T) {
	db := openTestDB(t)
	user := createUser(t, db, "owner@example.com")
	svc := NewSettingService(db, testAESKey)

	setting, err := svc.Upsert(user.ID, "https://api.example.com/v1", "sk-secret-value", "gpt-4o")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if setting.APIKeyEnc == "sk-secret-value" || setting.APIKeyEnc == "" {
		t.Fatalf("key not encrypted at rest: %q", setting.APIKeyEnc)
	}

	key, err := svc.APIKey(setting)
	if err != nil {
		t.Fatalf("APIKey: %v", err)
	}
	if key != "sk-secret-value" {
		t.Fatalf("roundtrip: want sk-secret-value got %q", key)
	}

	// Empty api_key on update keeps the stored one.
	updated, err := svc.Upsert(user.ID, "https://api.example.com/v1", "", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	if updated.Model != "gpt-4o-mini" {
		t.Fatalf("model not updated: %s", updated.Model)
	}
	key, _ = svc.APIKey(updated)
	if key != "sk-secret-value" {
		t.Fatalf("stored key lost on empty update: %q", key)
	}
}

func TestResolveAIConfig(t *testing.T) {
	db := openTestDB(t)
	user := createUser(t, db, "owner@example.com")
	other := createUser(t, db, "other@example.com")
	svc := NewSettingService(db, testAESKey)

	fallback := config.AIConfig{
		BaseURL:        "https://default.example.com/v1",
		APIKey:         "default-key",
		Model:          "default-model",
		TimeoutSeconds: 30,
	}

	// No setting stored: server defaults apply.
	cfg, err := svc.ResolveAIConfig(other.ID, fallback)
	if err != nil {
		t.Fatalf("ResolveAIConfig: %v", err)
	}
	if cfg.BaseURL != fallback.BaseURL || cfg.APIKey != "default-key" || cfg.Timeout != 30*time.Second {
		t.Fatalf("defaults not applied: %+v", cfg)
	}

	// Partial override: base URL and key from the user, model from defaults.
	if _, err := svc.Upsert(user.ID, "https://user.example.com/v1", "user-key", ""); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	cfg, err = svc.ResolveAIConfig(user.ID, fallback)
	if err != nil {
		t.Fatalf("ResolveAIConfig: %v", err)
	}
	if cfg.BaseURL != "https://user.example.com/v1" || cfg.APIKey != "user-key" || cfg.Model != "default-model" {
		t.Fatalf("override wrong: %+v", cfg)
	}
}
