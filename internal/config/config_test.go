package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PATH_DB", "db.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PDFEngine != "office" || cfg.VATRounding != "half-up" {
		t.Errorf("engine %q rounding %q", cfg.PDFEngine, cfg.VATRounding)
	}
	if cfg.ConvertTimeout != 120*time.Second {
		t.Errorf("ConvertTimeout = %v", cfg.ConvertTimeout)
	}
	if cfg.VerifyEngine != "documentai" {
		t.Errorf("VerifyEngine = %q", cfg.VerifyEngine)
	}
	if cfg.RegisterSheetName != "Register" {
		t.Errorf("RegisterSheetName = %q", cfg.RegisterSheetName)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing db", map[string]string{}, "PATH_DB"},
		{"bad engine", map[string]string{"PATH_DB": "db.json", "PDF_ENGINE": "word"}, "PDF_ENGINE"},
		{"bad rounding", map[string]string{"PATH_DB": "db.json", "VAT_ROUNDING": "ceil"}, "VAT_ROUNDING"},
		{"bad verify engine", map[string]string{"PATH_DB": "db.json", "VERIFY_ENGINE": "tesseract"}, "VERIFY_ENGINE"},
		{"bad timeout", map[string]string{"PATH_DB": "db.json", "CONVERT_TIMEOUT_SECONDS": "-5"}, "CONVERT_TIMEOUT_SECONDS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PATH_DB", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestDriveFolderFor(t *testing.T) {
	t.Setenv("PATH_DB", "db.json")
	t.Setenv("DRIVE_FOLDER_ID", "root-folder")
	t.Setenv("DRIVE_FOLDER_ID_NEON", "neon-folder")
	t.Setenv("DIR_ID_ARGENTA", "argenta-folder")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	tests := map[string]string{
		"NEON":    "neon-folder",
		"argenta": "argenta-folder",
		"OTHER":   "root-folder",
	}
	for template, want := range tests {
		if got := cfg.DriveFolderFor(template); got != want {
			t.Errorf("DriveFolderFor(%q) = %q, want %q", template, got, want)
		}
	}
}

func TestHasGoogleCredentials(t *testing.T) {
	cfg := &Config{GoogleClientSecretFile: "secret.json"}
	if cfg.HasGoogleCredentials() {
		t.Error("client secret without token should not count")
	}
	cfg.GoogleTokenFile = "token.json"
	if !cfg.HasGoogleCredentials() {
		t.Error("client secret with token should count")
	}
}
