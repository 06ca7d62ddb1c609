package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kozaktomas/facerec/internal/facerec"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Face     facerec.Config `yaml:"face"`
	Runtime  RuntimeConfig  `yaml:"runtime"`
	Classify ClassifyConfig `yaml:"classify"`
	Database DatabaseConfig `yaml:"database"`
	Web      WebConfig      `yaml:"web"`
}

type RuntimeConfig struct {
	ONNXRuntimeLib string `yaml:"onnxruntime_lib"` // path to the onnxruntime shared library
	EmbeddingURL   string `yaml:"embedding_url"`   // remote embedding server, used instead of the embedding model when set
	ModelDir       string `yaml:"model_dir"`       // models reloadable over HTTP must live here; empty disables reloading
}

type ClassifyConfig struct {
	Tolerance float64 `yaml:"tolerance"` // 0 disables the tolerance gate
}

type DatabaseConfig struct {
	URL          string `yaml:"url"`            // PostgreSQL connection URL
	MaxOpenConns int    `yaml:"max_open_conns"` // Maximum open connections (default 25)
	MaxIdleConns int    `yaml:"max_idle_conns"` // Maximum idle connections (default 5)
}

type WebConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a non-negative float, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaults() Config {
	return Config{
		Face: facerec.DefaultConfig(),
		Database: DatabaseConfig{
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by FACEREC_CONFIG and environment variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("FACEREC_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	f := &cfg.Face
	f.DetectorModel = envString("FACEREC_DETECTOR_MODEL", f.DetectorModel)
	f.CNNDetectorModel = envString("FACEREC_CNN_MODEL", f.CNNDetectorModel)
	f.ShapeModel = envString("FACEREC_SHAPE_MODEL", f.ShapeModel)
	f.EmbeddingModel = envString("FACEREC_EMBEDDING_MODEL", f.EmbeddingModel)
	f.GenderModel = envString("FACEREC_GENDER_MODEL", f.GenderModel)
	f.AgeModel = envString("FACEREC_AGE_MODEL", f.AgeModel)
	f.Size = envInt("FACEREC_CHIP_SIZE", f.Size)
	f.Padding = envFloat("FACEREC_PADDING", f.Padding)
	f.Jittering = envInt("FACEREC_JITTERING", f.Jittering)
	f.MinImageSize = envInt("FACEREC_MIN_IMAGE_SIZE", f.MinImageSize)

	cfg.Runtime.ONNXRuntimeLib = envString("ONNXRUNTIME_LIB", cfg.Runtime.ONNXRuntimeLib)
	cfg.Runtime.EmbeddingURL = envString("FACEREC_EMBEDDING_URL", cfg.Runtime.EmbeddingURL)
	cfg.Runtime.ModelDir = envString("FACEREC_MODEL_DIR", cfg.Runtime.ModelDir)
	cfg.Classify.Tolerance = envFloat("FACEREC_TOLERANCE", cfg.Classify.Tolerance)

	cfg.Database.URL = envString("DATABASE_URL", cfg.Database.URL)
	cfg.Database.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)

	cfg.Web.Host = envString("WEB_HOST", cfg.Web.Host)
	cfg.Web.Port = envInt("WEB_PORT", cfg.Web.Port)
	cfg.Web.AllowedOrigins = envList("WEB_ALLOWED_ORIGINS", cfg.Web.AllowedOrigins)

	return &cfg, nil
}
