package config

import (
	"os"
	"testing"
)

func TestNewEnvConfig_Defaults(t *testing.T) {
	os.Unsetenv("PORT")
	os.Unsetenv("DEFAULT_PROVIDER")

	cfg := NewEnvConfig()
	if cfg.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.Port)
	}
	if cfg.DefaultProvider != "grok" {
		t.Fatalf("expected default provider grok, got %q", cfg.DefaultProvider)
	}
	if cfg.StreamTimeout != 120 {
		t.Fatalf("expected default stream timeout 120s, got %d", cfg.StreamTimeout)
	}
}

func TestNewEnvConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ADMIN_USERS", " @alice, bob ,")

	cfg := NewEnvConfig()
	if cfg.Port != 8080 {
		t.Fatalf("expected port override, got %d", cfg.Port)
	}
	if len(cfg.AdminSeed) != 2 || cfg.AdminSeed[0] != "alice" || cfg.AdminSeed[1] != "bob" {
		t.Fatalf("unexpected admin seed: %v", cfg.AdminSeed)
	}
}

func TestGetModel(t *testing.T) {
	mc, ok := GetModel("OpenAI ")
	if !ok || mc.Model != "gpt-4o" {
		t.Fatalf("expected openai lookup to normalize, got %+v %v", mc, ok)
	}

	if _, ok := GetModel("nonsense"); ok {
		t.Fatalf("expected unknown provider to miss")
	}

	names := ModelNames()
	if len(names) != 2 || names[0] != "grok" || names[1] != "openai" {
		t.Fatalf("unexpected model names: %v", names)
	}
}
