// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Directory backends supported by DIRECTORY_BACKEND.
const (
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode            string        `mapstructure:"GIN_MODE"`
	ServerHost         string        `mapstructure:"SERVER_HOST"`
	ServerPort         string        `mapstructure:"SERVER_PORT"`
	ServerTimeout      time.Duration `mapstructure:"-"` // SERVER_TIMEOUT_SECONDS
	CORSAllowedOrigins []string      `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Firebase Configuration
	FirebaseServiceAccountKeyPath string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_KEY_PATH"`
	FirebaseProjectID             string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseAuthEmulatorHost      string `mapstructure:"FIREBASE_AUTH_EMULATOR_HOST"`

	// Directory store
	DirectoryBackend    string `mapstructure:"DIRECTORY_BACKEND"`
	DirectoryCollection string `mapstructure:"DIRECTORY_COLLECTION"`
	SQLitePath          string `mapstructure:"SQLITE_PATH"`

	// Database Configuration (postgres backend)
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"-"` // DB_CONN_MAX_LIFETIME_MINUTES

	// User management
	DeleteRevokesIdentity bool          `mapstructure:"DELETE_REVOKES_IDENTITY"`
	CompensationTimeout   time.Duration `mapstructure:"-"` // COMPENSATION_TIMEOUT_SECONDS
	CreateRatePerMinute   int           `mapstructure:"CREATE_RATE_PER_MINUTE"`
	CreateRateBurst       int           `mapstructure:"CREATE_RATE_BURST"`

	// Console
	ConsoleLocale string `mapstructure:"CONSOLE_LOCALE"`

	// Cron Jobs
	OrphanScanSchedule string `mapstructure:"ORPHAN_SCAN_SCHEDULE"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()

	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", "")
	v.SetDefault("FIREBASE_AUTH_EMULATOR_HOST", "")

	v.SetDefault("DIRECTORY_BACKEND", BackendFirestore)
	v.SetDefault("DIRECTORY_COLLECTION", "users")
	v.SetDefault("SQLITE_PATH", "users.db")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "user_admin_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)

	v.SetDefault("DELETE_REVOKES_IDENTITY", false)
	v.SetDefault("COMPENSATION_TIMEOUT_SECONDS", 10)
	v.SetDefault("CREATE_RATE_PER_MINUTE", 10)
	v.SetDefault("CREATE_RATE_BURST", 5)

	v.SetDefault("CONSOLE_LOCALE", "fr")
	v.SetDefault("ORPHAN_SCAN_SCHEDULE", "@daily")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Durations are configured as plain integers and skipped by Unmarshal.
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.CompensationTimeout = time.Duration(v.GetInt("COMPENSATION_TIMEOUT_SECONDS")) * time.Second
	cfg.CORSAllowedOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"))
	cfg.DirectoryBackend = strings.ToLower(strings.TrimSpace(cfg.DirectoryBackend))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DirectoryBackend {
	case BackendFirestore, BackendPostgres, BackendSQLite:
	default:
		return fmt.Errorf("DIRECTORY_BACKEND must be one of %s, %s, %s (got %q)",
			BackendFirestore, BackendPostgres, BackendSQLite, c.DirectoryBackend)
	}

	// The Auth emulator accepts unsigned credentials, so no key file is needed there.
	if c.FirebaseAuthEmulatorHost != "" {
		return nil
	}
	if strings.TrimSpace(c.FirebaseServiceAccountKeyPath) == "" {
		return fmt.Errorf("FATAL: FIREBASE_SERVICE_ACCOUNT_KEY_PATH is not set. This is required for Firebase Admin SDK initialization")
	}
	if _, err := os.Stat(c.FirebaseServiceAccountKeyPath); os.IsNotExist(err) {
		return fmt.Errorf("FATAL: Firebase service account key file specified in FIREBASE_SERVICE_ACCOUNT_KEY_PATH (%s) not found", c.FirebaseServiceAccountKeyPath)
	}
	return nil
}

// UsesGORM reports whether the directory store is backed by a relational database.
func (c *Config) UsesGORM() bool {
	return c.DirectoryBackend == BackendPostgres || c.DirectoryBackend == BackendSQLite
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
