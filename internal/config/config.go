package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the API server.
type Config struct {
	APIPort int    `mapstructure:"api_port"`
	BaseURL string `mapstructure:"base_url"`

	DatabaseType string `mapstructure:"database_type"`
	DatabaseURL  string `mapstructure:"database_url"`
	DatabasePath string `mapstructure:"database_path"`

	JWTSecret       string        `mapstructure:"jwt_secret"`
	SessionDuration time.Duration `mapstructure:"session_duration"`

	EmailEnabled bool   `mapstructure:"email_enabled"`
	ResendAPIKey string `mapstructure:"resend_api_key"`
	EmailFrom    string `mapstructure:"email_from"`

	GitHubClientID     string `mapstructure:"github_client_id"`
	GitHubClientSecret string `mapstructure:"github_client_secret"`
	GoogleClientID     string `mapstructure:"google_client_id"`
	GoogleClientSecret string `mapstructure:"google_client_secret"`

	S3Bucket          string `mapstructure:"s3_bucket"`
	S3Region          string `mapstructure:"s3_region"`
	S3Endpoint        string `mapstructure:"s3_endpoint"`
	S3AccessKeyID     string `mapstructure:"s3_access_key_id"`
	S3SecretAccessKey string `mapstructure:"s3_secret_access_key"`

	RateLimitEnabled bool    `mapstructure:"rate_limit_enabled"`
	RateLimitRPS     float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst   int     `mapstructure:"rate_limit_burst"`
}

// configKeys lists every viper key so AutomaticEnv can populate Unmarshal.
// Viper only considers keys it has seen, so each one is bound explicitly.
var configKeys = []string{
	"api_port",
	"base_url",
	"database_type",
	"database_url",
	"database_path",
	"jwt_secret",
	"session_duration",
	"email_enabled",
	"resend_api_key",
	"email_from",
	"github_client_id",
	"github_client_secret",
	"google_client_id",
	"google_client_secret",
	"s3_bucket",
	"s3_region",
	"s3_endpoint",
	"s3_access_key_id",
	"s3_secret_access_key",
	"rate_limit_enabled",
	"rate_limit_rps",
	"rate_limit_burst",
}

// LoadConfig loads the configuration from an optional file and environment variables.
func LoadConfig(path string) (*Config, error) {
	// Load .env into the process environment first so viper sees it.
	if err := godotenv.Load(); err == nil {
		log.Println("[CONFIG] Loaded environment from .env file")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}
	// The TypeScript client reads the app origin as VITE_BASE_URL; accept both.
	if err := v.BindEnv("base_url", "BASE_URL", "VITE_BASE_URL"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
			log.Printf("[CONFIG] Warning: Could not read config file: %s. Using defaults or environment variables.", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Printf("[CONFIG] Configuration loaded (port=%d, db=%s, email=%v)", cfg.APIPort, cfg.DatabaseType, cfg.EmailEnabled)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.APIPort == 0 {
		cfg.APIPort = 8081
		log.Println("[CONFIG] APIPort not specified, using default 8081")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:3000"
		log.Println("[CONFIG] BaseURL not specified, using default http://localhost:3000")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	// A connection URL implies Postgres; otherwise fall back to a local SQLite file.
	if cfg.DatabaseType == "" {
		if cfg.DatabaseURL != "" {
			cfg.DatabaseType = "postgres"
		} else {
			cfg.DatabaseType = "sqlite"
			log.Println("[CONFIG] DatabaseType not specified, using sqlite")
		}
	}
	if cfg.DatabaseType == "sqlite" && cfg.DatabasePath == "" {
		cfg.DatabasePath = "data/starter.db"
		log.Println("[CONFIG] Database path not specified, using default data/starter.db")
	}

	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = 7 * 24 * time.Hour
	}

	if cfg.EmailFrom == "" {
		cfg.EmailFrom = "onboarding@resend.dev"
	}

	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 10
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 20
	}
}

// Validate checks that every required setting is present. It reports all
// violations at once so a broken deployment shows the full list on the first run.
func (cfg *Config) Validate() error {
	var missing []string

	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.DatabaseType == "postgres" && cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.EmailEnabled && cfg.ResendAPIKey == "" {
		missing = append(missing, "RESEND_API_KEY")
	}
	if cfg.GitHubClientID != "" && cfg.GitHubClientSecret == "" {
		missing = append(missing, "GITHUB_CLIENT_SECRET")
	}
	if cfg.GitHubClientSecret != "" && cfg.GitHubClientID == "" {
		missing = append(missing, "GITHUB_CLIENT_ID")
	}
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}
	if cfg.GoogleClientSecret != "" && cfg.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}
	if cfg.S3Bucket != "" {
		if cfg.S3AccessKeyID == "" {
			missing = append(missing, "S3_ACCESS_KEY_ID")
		}
		if cfg.S3SecretAccessKey == "" {
			missing = append(missing, "S3_SECRET_ACCESS_KEY")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("invalid environment: missing required keys: %s", strings.Join(missing, ", "))
	}

	if cfg.DatabaseType != "postgres" && cfg.DatabaseType != "sqlite" {
		return fmt.Errorf("invalid environment: unsupported database_type %q (expected postgres or sqlite)", cfg.DatabaseType)
	}

	return nil
}

// Secure reports whether the public origin is served over HTTPS. Session
// cookies are only marked Secure when it is.
func (cfg *Config) Secure() bool {
	return strings.HasPrefix(cfg.BaseURL, "https://")
}
