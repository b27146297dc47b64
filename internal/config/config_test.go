package config

import (
	"path/filepath"
	"testing"
)

func TestLoad_missingRequired(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("ADMIN_ID", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error with no BOT_TOKEN")
	}

	t.Setenv("BOT_TOKEN", "123:abc")
	if _, err := Load(); err == nil {
		t.Fatal("expected error with no ADMIN_ID")
	}

	t.Setenv("ADMIN_ID", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatal("expected error with malformed ADMIN_ID")
	}
}

func TestLoad_dirsUnderBase(t *testing.T) {
	base := t.TempDir()
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_ID", "42")
	t.Setenv("REPOBOT_BASE_DIR", base)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AdminID != 42 {
		t.Fatalf("AdminID = %d", cfg.AdminID)
	}
	if cfg.TempDir != filepath.Join(base, "temp_downloads") {
		t.Fatalf("TempDir = %s", cfg.TempDir)
	}
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
}
