package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Providers ProvidersConfig `yaml:"providers"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int           `yaml:"max_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	MaxUploadBytes    int64         `yaml:"max_upload_bytes"`
	UploadDir         string        `yaml:"upload_dir"`
}

// PipelineConfig holds processing-pipeline configuration
type PipelineConfig struct {
	RunTimeout       time.Duration `yaml:"run_timeout"`
	RemoteTimeout    time.Duration `yaml:"remote_timeout"`
	RemoteMaxChars   int           `yaml:"remote_max_chars"`
	RemoteRatePerSec float64       `yaml:"remote_rate_per_sec"`
	RemoteRateBurst  int           `yaml:"remote_rate_burst"`
}

// ProviderConfig holds one LLM backend's connection settings.
type ProviderConfig struct {
	BaseURL string  `yaml:"base_url"`
	Model   string  `yaml:"model"`
	APIKey  string  `yaml:"api_key"`
	Temp    float32 `yaml:"temperature"`
}

// ProvidersConfig holds per-vendor LLM configuration
type ProvidersConfig struct {
	Gemini  ProviderConfig `yaml:"gemini"`
	OpenAI  ProviderConfig `yaml:"openai"`
	Mistral ProviderConfig `yaml:"mistral"`
	Groq    ProviderConfig `yaml:"groq"`
}

// LoadConfig loads configuration from environment variables. If path is
// non-empty, a YAML file is read first and env vars override it.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Database = DatabaseConfig{
		DSN:             getEnv("DB_URL", defaultStr(cfg.Database.DSN, "file:docpipeline.db")),
		MaxConns:        getEnvAsInt("DB_MAX_CONNS", defaultInt(cfg.Database.MaxConns, 10)),
		MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", defaultDur(cfg.Database.MaxConnLifetime, 30*time.Minute)),
		DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", defaultDur(cfg.Database.DialTimeout, 3*time.Second)),
	}
	cfg.Server = ServerConfig{
		Addr:              getEnv("HTTP_ADDR", defaultStr(cfg.Server.Addr, ":8080")),
		ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", defaultDur(cfg.Server.ReadHeaderTimeout, 10*time.Second)),
		WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", defaultDur(cfg.Server.WriteTimeout, 0)),
		IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", defaultDur(cfg.Server.IdleTimeout, 60*time.Second)),
		MaxUploadBytes:    getEnvAsInt64("MAX_UPLOAD_BYTES", defaultInt64(cfg.Server.MaxUploadBytes, 50<<20)),
		UploadDir:         getEnv("UPLOAD_DIR", defaultStr(cfg.Server.UploadDir, "./uploads")),
	}
	cfg.Pipeline = PipelineConfig{
		RunTimeout:       getEnvAsDuration("RUN_TIMEOUT", defaultDur(cfg.Pipeline.RunTimeout, 3*time.Minute)),
		RemoteTimeout:    getEnvAsDuration("REMOTE_TIMEOUT", defaultDur(cfg.Pipeline.RemoteTimeout, 45*time.Second)),
		RemoteMaxChars:   getEnvAsInt("REMOTE_MAX_CHARS", defaultInt(cfg.Pipeline.RemoteMaxChars, 4000)),
		RemoteRatePerSec: getEnvAsFloat64("REMOTE_RATE_PER_SEC", defaultFloat(cfg.Pipeline.RemoteRatePerSec, 2)),
		RemoteRateBurst:  getEnvAsInt("REMOTE_RATE_BURST", defaultInt(cfg.Pipeline.RemoteRateBurst, 4)),
	}
	cfg.Providers = ProvidersConfig{
		Gemini: ProviderConfig{
			BaseURL: getEnv("GEMINI_BASE_URL", defaultStr(cfg.Providers.Gemini.BaseURL, "https://generativelanguage.googleapis.com/v1beta/openai")),
			Model:   getEnv("GEMINI_MODEL", defaultStr(cfg.Providers.Gemini.Model, "gemini-2.5-pro")),
			APIKey:  getEnv("GEMINI_API_KEY", cfg.Providers.Gemini.APIKey),
			Temp:    cfg.Providers.Gemini.Temp,
		},
		OpenAI: ProviderConfig{
			BaseURL: getEnv("OPENAI_BASE_URL", defaultStr(cfg.Providers.OpenAI.BaseURL, "https://api.openai.com/v1")),
			Model:   getEnv("OPENAI_MODEL", defaultStr(cfg.Providers.OpenAI.Model, "gpt-4o-mini")),
			APIKey:  getEnv("OPENAI_API_KEY", cfg.Providers.OpenAI.APIKey),
			Temp:    cfg.Providers.OpenAI.Temp,
		},
		Mistral: ProviderConfig{
			BaseURL: getEnv("MISTRAL_BASE_URL", defaultStr(cfg.Providers.Mistral.BaseURL, "https://api.mistral.ai/v1")),
			Model:   getEnv("MISTRAL_MODEL", defaultStr(cfg.Providers.Mistral.Model, "pixtral-large-latest")),
			APIKey:  getEnv("MISTRAL_API_KEY", cfg.Providers.Mistral.APIKey),
			Temp:    cfg.Providers.Mistral.Temp,
		},
		Groq: ProviderConfig{
			BaseURL: getEnv("GROQ_BASE_URL", defaultStr(cfg.Providers.Groq.BaseURL, "https://api.groq.com/openai/v1")),
			Model:   getEnv("GROQ_MODEL", defaultStr(cfg.Providers.Groq.Model, "llama-3.3-70b-versatile")),
			APIKey:  getEnv("GROQ_API_KEY", cfg.Providers.Groq.APIKey),
			Temp:    cfg.Providers.Groq.Temp,
		},
	}
	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func defaultStr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func defaultInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

func defaultInt64(v, fallback int64) int64 {
	if v != 0 {
		return v
	}
	return fallback
}

func defaultFloat(v, fallback float64) float64 {
	if v != 0 {
		return v
	}
	return fallback
}

func defaultDur(v, fallback time.Duration) time.Duration {
	if v != 0 {
		return v
	}
	return fallback
}

// Validate validates the loaded configuration. Missing provider keys are not
// an error: the extraction chain degrades to its simulated tier without them.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Pipeline.RemoteMaxChars <= 0 {
		return NewAppError("CONFIG_ERROR", "REMOTE_MAX_CHARS must be positive", ErrInvalidInput)
	}
	return nil
}
