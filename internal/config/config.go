package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

type Config struct {
	Port              string   `mapstructure:"PORT"`
	Env               string   `mapstructure:"ENV"`
	DatabaseURL       string   `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32    `mapstructure:"DB_MIN_CONNS"`
	GeminiAPIKey      string   `mapstructure:"GEMINI_API_KEY"`
	GeminiModel       string   `mapstructure:"GEMINI_MODEL"`
	StorageDir        string   `mapstructure:"STORAGE_DIR"`
	CORSOrigins       []string `mapstructure:"CORS_ORIGINS"`
	DefaultSubject    string   `mapstructure:"DEFAULT_SUBJECT"`
	WorkerConcurrency int      `mapstructure:"WORKER_CONCURRENCY"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("STORAGE_DIR", "./data/reports")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("DEFAULT_SUBJECT", "00000000-0000-0000-0000-000000000001")
	v.SetDefault("WORKER_CONCURRENCY", 4)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("GEMINI_API_KEY")
	v.BindEnv("GEMINI_MODEL")
	v.BindEnv("STORAGE_DIR")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("DEFAULT_SUBJECT")
	v.BindEnv("WORKER_CONCURRENCY")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.GeminiAPIKey == "" {
		log.Println("WARNING: GEMINI_API_KEY is not set.")
		log.Println("WARNING: Document uploads will fail at the extraction step.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DefaultSubjectID returns the parsed default subject identifier.
func (c *Config) DefaultSubjectID() (uuid.UUID, error) {
	return uuid.Parse(c.DefaultSubject)
}

// Validate checks that the configuration is safe to run. Production requires
// a Gemini key, since every upload goes through extraction.
func (c *Config) Validate() error {
	if c.IsProduction() && c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required in production")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got %d", c.WorkerConcurrency)
	}
	if _, err := c.DefaultSubjectID(); err != nil {
		return fmt.Errorf("DEFAULT_SUBJECT is not a valid UUID: %w", err)
	}
	if c.StorageDir == "" {
		return fmt.Errorf("STORAGE_DIR is required")
	}
	return nil
}
