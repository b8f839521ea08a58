package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/dbbuddy/internal/types"
)

func tempConfigPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "config.json")
}

func writeTestConfig(t *testing.T, path string, cfg *Config) {
	t.Helper()
	if err := Save(path, cfg); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"NCBI_API_KEY", "NCBI_EMAIL", "DBBUDDY_LOG_LEVEL", "DBBUDDY_NCBI_API_KEY", "DBBUDDY_UNIPROT_MAX_CONCURRENT"} {
		t.Setenv(k, "")
	}
}

func TestSave_ReloadRoundTrip(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)

	original := Defaults()
	original.LogLevel = "debug"
	original.LogFile = "/tmp/dbbuddy.log"
	original.OutFormat = "fasta"
	original.DownloadThreshold = 1000
	original.UniProt.MaxConcurrent = 4
	original.NCBI.APIKey = "ncbi-key-round-trip"
	original.NCBI.Email = "someone@example.org"
	original.Ensembl.Species = "mus_musculus"

	if err := Save(path, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file does not exist after Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.LogLevel != original.LogLevel {
		t.Errorf("LogLevel: got %q, want %q", loaded.LogLevel, original.LogLevel)
	}
	if loaded.LogFile != original.LogFile {
		t.Errorf("LogFile: got %q, want %q", loaded.LogFile, original.LogFile)
	}
	if loaded.OutFormat != original.OutFormat {
		t.Errorf("OutFormat: got %q, want %q", loaded.OutFormat, original.OutFormat)
	}
	if loaded.DownloadThreshold != original.DownloadThreshold {
		t.Errorf("DownloadThreshold: got %d, want %d", loaded.DownloadThreshold, original.DownloadThreshold)
	}
	if loaded.UniProt.MaxConcurrent != 4 {
		t.Errorf("UniProt.MaxConcurrent: got %d, want 4", loaded.UniProt.MaxConcurrent)
	}
	if loaded.NCBI.APIKey != original.NCBI.APIKey {
		t.Errorf("NCBI.APIKey: got %q, want %q", loaded.NCBI.APIKey, original.NCBI.APIKey)
	}
	if loaded.NCBI.Email != original.NCBI.Email {
		t.Errorf("NCBI.Email: got %q, want %q", loaded.NCBI.Email, original.NCBI.Email)
	}
	if loaded.Ensembl.Species != "mus_musculus" {
		t.Errorf("Ensembl.Species: got %q, want mus_musculus", loaded.Ensembl.Species)
	}
	if loaded.Ensembl.ReqsPerSec != 15 {
		t.Errorf("Ensembl.ReqsPerSec: got %d, want 15", loaded.Ensembl.ReqsPerSec)
	}
}

func TestLoad_CreatesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default config to be written: %v", err)
	}
	if cfg.ShowThreshold != 100 {
		t.Errorf("ShowThreshold: got %d, want 100", cfg.ShowThreshold)
	}
	if cfg.DownloadThreshold != 5000000 {
		t.Errorf("DownloadThreshold: got %d, want 5000000", cfg.DownloadThreshold)
	}
	if cfg.UniProt.MaxConcurrent != 10 {
		t.Errorf("UniProt.MaxConcurrent: got %d, want 10", cfg.UniProt.MaxConcurrent)
	}
}

func TestLoad_MissingKeysFallBackToDefaults(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)
	if err := os.WriteFile(path, []byte(`{"log_level": "warn"}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel: got %q, want warn", cfg.LogLevel)
	}
	if cfg.TimeoutSeconds != 30 {
		t.Errorf("TimeoutSeconds: got %d, want 30", cfg.TimeoutSeconds)
	}
	if cfg.Ensembl.Species != "homo_sapiens" {
		t.Errorf("Ensembl.Species: got %q, want homo_sapiens", cfg.Ensembl.Species)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)
	writeTestConfig(t, path, Defaults())

	t.Setenv("DBBUDDY_LOG_LEVEL", "error")
	t.Setenv("DBBUDDY_UNIPROT_MAX_CONCURRENT", "3")
	t.Setenv("NCBI_API_KEY", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel: got %q, want error", cfg.LogLevel)
	}
	if cfg.UniProt.MaxConcurrent != 3 {
		t.Errorf("UniProt.MaxConcurrent: got %d, want 3", cfg.UniProt.MaxConcurrent)
	}
	if cfg.NCBI.APIKey != "from-env" {
		t.Errorf("NCBI.APIKey: got %q, want from-env", cfg.NCBI.APIKey)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)
	cfg := Defaults()
	cfg.LogLevel = "loud"
	cfg.UniProt.MaxConcurrent = 500
	writeTestConfig(t, path, cfg)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !types.IsConfigError(err) {
		t.Errorf("expected ConfigError, got %T: %v", err, err)
	}
}

func TestSave_AtomicWrite(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, Defaults())

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after Save")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved config: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("saved config is not valid JSON: %v", err)
	}
}

func TestToMap(t *testing.T) {
	cfg := Defaults()
	cfg.NCBI.Email = "a@b.org"

	m, err := ToMap(cfg)
	if err != nil {
		t.Fatalf("ToMap failed: %v", err)
	}
	if m["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", m["log_level"])
	}
	ncbi, ok := m["ncbi"].(map[string]any)
	if !ok {
		t.Fatalf("expected ncbi to be a map, got %T", m["ncbi"])
	}
	if ncbi["email"] != "a@b.org" {
		t.Errorf("expected ncbi.email=a@b.org, got %v", ncbi["email"])
	}
	if m["show_threshold"] != 100.0 {
		t.Errorf("expected show_threshold=100, got %v", m["show_threshold"])
	}
}

func TestListValues_NoMask(t *testing.T) {
	cfg := Defaults()
	cfg.NCBI.APIKey = "abcdef123456"

	values, err := ListValues(cfg, false)
	if err != nil {
		t.Fatalf("ListValues failed: %v", err)
	}
	if values["ncbi.api_key"] != "abcdef123456" {
		t.Errorf("expected unmasked key, got %v", values["ncbi.api_key"])
	}
	if values["ensembl.species"] != "homo_sapiens" {
		t.Errorf("expected ensembl.species=homo_sapiens, got %v", values["ensembl.species"])
	}
}

func TestListValues_WithMask(t *testing.T) {
	cfg := Defaults()
	cfg.NCBI.APIKey = "abcdef123456"

	values, err := ListValues(cfg, true)
	if err != nil {
		t.Fatalf("ListValues failed: %v", err)
	}
	if values["ncbi.api_key"] != "***3456" {
		t.Errorf("expected masked key ***3456, got %v", values["ncbi.api_key"])
	}
	if values["log_level"] != "info" {
		t.Errorf("non-secret should be unmasked, got %v", values["log_level"])
	}
}

func TestGetValue_ExistingKey(t *testing.T) {
	path := tempConfigPath(t)
	cfg := Defaults()
	cfg.NCBI.Email = "a@b.org"
	writeTestConfig(t, path, cfg)

	val, err := GetValue(path, "ncbi.email")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if val != "a@b.org" {
		t.Errorf("expected a@b.org, got %v", val)
	}

	val, err = GetValue(path, "uniprot.max_concurrent")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if val != 10.0 {
		t.Errorf("expected 10, got %v", val)
	}
}

func TestGetValue_UnknownKey(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, Defaults())

	_, err := GetValue(path, "nonexistent.key")
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	if err.Error() != "unknown config key: nonexistent.key" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGetValue_NonexistentFile(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)

	val, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if val != "info" {
		t.Errorf("expected default log_level=info, got %v", val)
	}
}

func TestSetValue_String(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, Defaults())

	if err := SetValue(path, "log_level", "debug"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	val, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if val != "debug" {
		t.Errorf("expected debug, got %v", val)
	}
}

func TestSetValue_Numeric(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, Defaults())

	if err := SetValue(path, "show_threshold", "250"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	val, _ := GetValue(path, "show_threshold")
	if val != 250.0 {
		t.Errorf("expected 250 stored as number, got %v (%T)", val, val)
	}
}

func TestSetValue_NestedKey(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)
	writeTestConfig(t, path, Defaults())

	if err := SetValue(path, "ensembl.reqs_per_sec", "5"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Ensembl.ReqsPerSec != 5 {
		t.Errorf("expected reqs_per_sec=5, got %d", cfg.Ensembl.ReqsPerSec)
	}
	if cfg.Ensembl.Species != "homo_sapiens" {
		t.Errorf("sibling key should survive, got %q", cfg.Ensembl.Species)
	}
}

func TestSetValue_NonexistentFile(t *testing.T) {
	path := tempConfigPath(t)
	if err := SetValue(path, "log_level", "debug"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "config.json")
	if err := Save(path, Defaults()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %v", err)
	}
}

func TestDefaultsDataDir(t *testing.T) {
	cfg := Defaults()
	if cfg.DataDir != filepath.Dir(DefaultPath()) {
		t.Errorf("DataDir: got %q, want %q", cfg.DataDir, filepath.Dir(DefaultPath()))
	}
	if filepath.Base(cfg.DataDir) != ".dbbuddy" {
		t.Errorf("expected data dir to end in .dbbuddy, got %q", cfg.DataDir)
	}
}

func TestSetValue_UnknownKey(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, Defaults())
	if err := SetValue(path, "ncbi.tool", "dbbuddy"); err == nil {
		t.Error("expected error for unknown key")
	}
}
