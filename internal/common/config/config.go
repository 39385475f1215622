package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port          string `yaml:"port"`
	Environment   string `yaml:"env"`
	ReadTimeout   int    `yaml:"read_timeout"`
	WriteTimeout  int    `yaml:"write_timeout"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	StoragePath   string `yaml:"storage_path"`
	ExportDir     string `yaml:"export_dir"`
	MaxImageBytes int64  `yaml:"max_image_bytes"`
	Autosave      bool   `yaml:"autosave"`
	CORSOrigins   string `yaml:"cors_origins"`
}

func defaults() *Config {
	return &Config{
		Port:          "3000",
		Environment:   "development",
		ReadTimeout:   10,
		WriteTimeout:  10,
		LogLevel:      "info",
		LogFormat:     "console",
		StoragePath:   "data/db/planner.db",
		ExportDir:     "exports",
		MaxImageBytes: 10 * 1024 * 1024,
		Autosave:      true,
		CORSOrigins:   "*",
	}
}

// Load builds the configuration: defaults, then the optional YAML file
// (PLANNER_CONFIG, default planner.yaml), then environment variables.
// A .env file, when present, is loaded into the environment first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	path := getEnv("PLANNER_CONFIG", "planner.yaml")
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Environment = getEnv("ENV", cfg.Environment)
	cfg.ReadTimeout = getEnvAsInt("READ_TIMEOUT", cfg.ReadTimeout)
	cfg.WriteTimeout = getEnvAsInt("WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.StoragePath = getEnv("STORAGE_PATH", cfg.StoragePath)
	cfg.ExportDir = getEnv("EXPORT_DIR", cfg.ExportDir)
	cfg.MaxImageBytes = int64(getEnvAsInt("MAX_IMAGE_BYTES", int(cfg.MaxImageBytes)))
	cfg.Autosave = getEnvAsBool("AUTOSAVE", cfg.Autosave)
	cfg.CORSOrigins = getEnv("CORS_ORIGINS", cfg.CORSOrigins)

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}
