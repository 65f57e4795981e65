package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempBackend(t *testing.T, content string) Backend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return newFileBackend(path)
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(tempBackend(t, ""))
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	if cfg.Server.Port != 7788 {
		t.Errorf("Server.Port = %d, want 7788", cfg.Server.Port)
	}
	if cfg.Server.DataDir == "" {
		t.Error("Server.DataDir default missing")
	}
	if cfg.Merge.Strategy != "local-wins" {
		t.Errorf("Merge.Strategy = %q, want local-wins", cfg.Merge.Strategy)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	// Gateways are optional: missing credentials disable the feature,
	// loading never fails because of them.
	if cfg.Drive.CredentialsFile != "" || cfg.Enrich.APIKey != "" {
		t.Error("credentials should be empty by default")
	}
}

func TestFileValues(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(tempBackend(t, `{
		"server.port": 9000,
		"server.data_dir": "/tmp/aura-test",
		"drive.credentials_file": "/tmp/creds.json",
		"enrich.model": "gpt-4o",
		"merge.strategy": "Last-Write-Wins"
	}`))
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Server.DataDir != "/tmp/aura-test" {
		t.Errorf("Server.DataDir = %q", cfg.Server.DataDir)
	}
	if cfg.Drive.CredentialsFile != "/tmp/creds.json" {
		t.Errorf("Drive.CredentialsFile = %q", cfg.Drive.CredentialsFile)
	}
	if cfg.Enrich.Model != "gpt-4o" {
		t.Errorf("Enrich.Model = %q", cfg.Enrich.Model)
	}
	if cfg.Merge.Strategy != "last-write-wins" {
		t.Errorf("Merge.Strategy = %q, want normalized lowercase", cfg.Merge.Strategy)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("AURA_SERVER_PORT", "9100")
	t.Setenv("AURA_ENRICH_API_KEY", "env-secret")

	cfg, err := loadWith(tempBackend(t, `{"server.port": 9000}`))
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want env override 9100", cfg.Server.Port)
	}
	if cfg.Enrich.APIKey != "env-secret" {
		t.Errorf("Enrich.APIKey = %q, want env value", cfg.Enrich.APIKey)
	}
}

// TestSecretNeverReadFromFile verifies the API key is env-only even when a
// file carries it.
func TestSecretNeverReadFromFile(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(tempBackend(t, `{"enrich.api_key": "file-secret"}`))
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Enrich.APIKey != "" {
		t.Errorf("Enrich.APIKey = %q, want empty (secrets are env-only)", cfg.Enrich.APIKey)
	}
}

func TestSetKey(t *testing.T) {
	b := tempBackend(t, "")

	if err := setKeyWith(b, "server.port", "9200"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}
	if err := setKeyWith(b, "merge.strategy", "last-write-wins"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}

	v, ok, err := b.GetInt("server.port")
	if err != nil || !ok || v != 9200 {
		t.Errorf("server.port = %d, %v, %v", v, ok, err)
	}

	if err := setKeyWith(b, "server.port", "not-a-number"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := setKeyWith(b, "nope.nope", "x"); err == nil ||
		!strings.Contains(err.Error(), "merge.strategy") {
		t.Errorf("unknown key = %v, want error listing valid keys", err)
	}
	if err := setKeyWith(b, "enrich.api_key", "secret"); err == nil ||
		!strings.Contains(err.Error(), "AURA_ENRICH_API_KEY") {
		t.Errorf("setting secret = %v, want env-var hint", err)
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	clearEnv(t)
	cfg, err := loadWith(tempBackend(t, ""))
	if err != nil {
		t.Fatal(err)
	}

	for _, info := range ShowAll(cfg) {
		if info.Key == "enrich.api_key" {
			t.Error("secret key listed in ShowAll")
		}
	}
	for _, k := range ValidKeys() {
		if k == "enrich.api_key" {
			t.Error("secret key listed in ValidKeys")
		}
	}
}
