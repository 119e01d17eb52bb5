package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ProjectCode.Strategy != CodeStrategyCount {
		t.Errorf("Strategy = %q, expected %q", cfg.ProjectCode.Strategy, CodeStrategyCount)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver = %q, expected sqlite", cfg.Database.Driver)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "9090"
project_code:
  strategy: sequence
  timezone: America/Bogota
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Port = %q, expected 9090", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host default lost: %q", cfg.Server.Host)
	}
	if cfg.ProjectCode.Strategy != CodeStrategySequence {
		t.Errorf("Strategy = %q, expected sequence", cfg.ProjectCode.Strategy)
	}
	loc, err := cfg.ProjectCode.Location()
	if err != nil || loc.String() != "America/Bogota" {
		t.Errorf("Location() = %v, %v", loc, err)
	}
}

func TestLoad_RejectsUnknownStrategy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("project_code:\n  strategy: random\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("MINIO_ENDPOINT", "minio:9000")
	t.Setenv("PROJECT_CODE_STRATEGY", "sequence")

	cfg := DefaultConfig()
	cfg.overrideFromEnv()

	if cfg.Database.Driver != "postgres" {
		t.Errorf("Driver = %q, expected postgres", cfg.Database.Driver)
	}
	if !cfg.Storage.Enabled || cfg.Storage.Endpoint != "minio:9000" {
		t.Errorf("storage not enabled from env: %+v", cfg.Storage)
	}
	if cfg.ProjectCode.Strategy != CodeStrategySequence {
		t.Errorf("Strategy = %q", cfg.ProjectCode.Strategy)
	}
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		url      string
		addr     string
		password string
		db       int
	}{
		{"redis://localhost:6379", "localhost:6379", "", 0},
		{"redis://:secret@cache:6380/2", "cache:6380", "secret", 2},
		{"redis://user:pw@host:6379/1", "host:6379", "pw", 1},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.parseRedisURL(tt.url)
			if cfg.Redis.Addr != tt.addr || cfg.Redis.Password != tt.password || cfg.Redis.DB != tt.db {
				t.Errorf("got %+v", cfg.Redis)
			}
		})
	}
}

func TestSave_WritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Server.Port = "7070"
	cfg.ProjectCode.Strategy = CodeStrategySequence

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Server.Port != "7070" || loaded.ProjectCode.Strategy != CodeStrategySequence {
		t.Errorf("loaded = port %q strategy %q", loaded.Server.Port, loaded.ProjectCode.Strategy)
	}
}
