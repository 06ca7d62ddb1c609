package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnvInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"unset", "", 7},
		{"valid", "42", 42},
		{"zero", "0", 7},
		{"negative", "-3", 7},
		{"garbage", "abc", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("FACEREC_TEST_INT", tt.value)
			if got := envInt("FACEREC_TEST_INT", 7); got != tt.want {
				t.Errorf("envInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEnvFloat(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  float64
	}{
		{"unset", "", 0.25},
		{"valid", "0.6", 0.6},
		{"zero", "0", 0},
		{"negative", "-1", 0.25},
		{"garbage", "x", 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("FACEREC_TEST_FLOAT", tt.value)
			if got := envFloat("FACEREC_TEST_FLOAT", 0.25); got != tt.want {
				t.Errorf("envFloat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FACEREC_CONFIG", "")
	t.Setenv("FACEREC_CHIP_SIZE", "")
	t.Setenv("WEB_PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Face.Size != 150 || cfg.Face.Padding != 0.25 {
		t.Errorf("face defaults = %+v", cfg.Face)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("Web.Port = %d, want 8080", cfg.Web.Port)
	}
	if cfg.Database.MaxOpenConns != 25 || cfg.Database.MaxIdleConns != 5 {
		t.Errorf("database defaults = %+v", cfg.Database)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "facerec.yaml")
	content := `
face:
  detector_model: /models/face.pigo
  jittering: 10
classify:
  tolerance: 0.4
runtime:
  model_dir: /models
web:
  port: 9000
  allowed_origins: [http://a.example]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FACEREC_CONFIG", path)
	t.Setenv("WEB_PORT", "9100")
	t.Setenv("WEB_ALLOWED_ORIGINS", "http://b.example, http://c.example")
	t.Setenv("FACEREC_DETECTOR_MODEL", "")
	t.Setenv("FACEREC_MODEL_DIR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Face.DetectorModel != "/models/face.pigo" {
		t.Errorf("DetectorModel = %q", cfg.Face.DetectorModel)
	}
	if cfg.Face.Jittering != 10 {
		t.Errorf("Jittering = %d, want 10", cfg.Face.Jittering)
	}
	if cfg.Face.Size != 150 {
		t.Errorf("Size = %d, want default 150", cfg.Face.Size)
	}
	if cfg.Classify.Tolerance != 0.4 {
		t.Errorf("Tolerance = %v, want 0.4", cfg.Classify.Tolerance)
	}
	if cfg.Runtime.ModelDir != "/models" {
		t.Errorf("ModelDir = %q, want /models", cfg.Runtime.ModelDir)
	}
	if cfg.Web.Port != 9100 {
		t.Errorf("Web.Port = %d, want env override 9100", cfg.Web.Port)
	}
	if len(cfg.Web.AllowedOrigins) != 2 || cfg.Web.AllowedOrigins[1] != "http://c.example" {
		t.Errorf("AllowedOrigins = %v", cfg.Web.AllowedOrigins)
	}
}

func TestLoad_BadFile(t *testing.T) {
	t.Setenv("FACEREC_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("Load() with a missing file should fail")
	}
}
