package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Database types
const (
	DBTypeFile     = "file"
	DBTypePostgres = "postgres"
	DBTypeMongoDB  = "mongodb"
)

// ServerConfig holds all server-related settings
type ServerConfig struct {
	Port           int
	Host           string
	MetricsEnabled bool
}

// DatabaseConfig holds database configuration settings
type DatabaseConfig struct {
	Type     string // "file", "postgres" or "mongodb"
	URI      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	// SeedFile is the YAML page used when Type is "file".
	SeedFile string
}

// Config holds the complete application configuration
type Config struct {
	Server         *ServerConfig
	Database       *DatabaseConfig
	AllowedOrigins []string
	Debug          bool

	// PageID is the page the server loads and serves.
	PageID string
	// JWTSecret signs and checks login tokens.
	JWTSecret string
	// SiteURL is the origin of the settings and special-content service.
	SiteURL string
}

// DefaultConfig provides default server settings
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Port:           8080,
		Host:           "0.0.0.0",
		MetricsEnabled: true,
	}
}

// DefaultDatabaseConfig provides default database settings
func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Type:     DBTypeFile,
		Port:     5432,
		SSLMode:  "require",
		SeedFile: "testdata/page.yaml",
		Name:     "threadview",
	}
}

// envLocations are tried in order; the first .env found wins.
var envLocations = []string{
	".env",       // Current directory
	"../../.env", // Project root when running from cmd/engine
}

// LoadConfig loads configuration from environment variables and applies defaults
func LoadConfig() (*Config, error) {
	for _, location := range envLocations {
		if err := godotenv.Load(location); err == nil {
			break
		}
	}

	serverConfig := DefaultConfig()
	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", portStr, err)
		}
		serverConfig.Port = port
	}
	if host := os.Getenv("HOST"); host != "" {
		serverConfig.Host = host
	}
	if metricsEnabled := os.Getenv("METRICS_ENABLED"); metricsEnabled != "" {
		serverConfig.MetricsEnabled = metricsEnabled == "true"
	}

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server:         serverConfig,
		Database:       dbConfig,
		AllowedOrigins: []string{"*"},
		PageID:         getEnvOrDefault("PAGE_ID", "1"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		SiteURL:        strings.TrimRight(os.Getenv("SITE_URL"), "/"),
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = splitAndTrim(origins)
	}
	if debug := os.Getenv("DEBUG"); debug == "true" {
		config.Debug = true
	}
	if config.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return config, nil
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	dbConfig := DefaultDatabaseConfig()
	if dbType := os.Getenv("DB_TYPE"); dbType != "" {
		dbConfig.Type = dbType
	}

	switch dbConfig.Type {
	case DBTypeFile:
		dbConfig.SeedFile = getEnvOrDefault("SEED_FILE", dbConfig.SeedFile)

	case DBTypeMongoDB:
		dbConfig.URI = os.Getenv("MONGODB_URI")
		if dbConfig.URI == "" {
			return nil, fmt.Errorf("MONGODB_URI environment variable is required when DB_TYPE is mongodb")
		}
		dbConfig.Name = getEnvOrDefault("DB_NAME", dbConfig.Name)

	case DBTypePostgres:
		// Prioritize DATABASE_URL if provided
		if uri := os.Getenv("DATABASE_URL"); uri != "" {
			dbConfig.URI = uri
			dbConfig.SSLMode = getSSLModeFromURI(uri)
			break
		}

		dbConfig.Host = getEnvOrDefault("DB_HOST", "localhost")
		if portStr := os.Getenv("DB_PORT"); portStr != "" {
			if port, err := strconv.Atoi(portStr); err == nil {
				dbConfig.Port = port
			}
		}
		dbConfig.User = os.Getenv("DB_USER")
		if dbConfig.User == "" {
			return nil, fmt.Errorf("DB_USER environment variable is required when DB_TYPE is postgres and DATABASE_URL is not set")
		}
		dbConfig.Password = os.Getenv("DB_PASSWORD")
		if dbConfig.Password == "" {
			return nil, fmt.Errorf("DB_PASSWORD environment variable is required when DB_TYPE is postgres and DATABASE_URL is not set")
		}
		dbConfig.Name = getEnvOrDefault("DB_NAME", dbConfig.Name)
		dbConfig.SSLMode = getEnvOrDefault("DB_SSL_MODE", dbConfig.SSLMode)

		dbConfig.URI = fmt.Sprintf(
			"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
			dbConfig.User,
			dbConfig.Password,
			dbConfig.Host,
			dbConfig.Port,
			dbConfig.Name,
			dbConfig.SSLMode,
		)

	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q (want %s, %s or %s)",
			dbConfig.Type, DBTypeFile, DBTypePostgres, DBTypeMongoDB)
	}
	return dbConfig, nil
}

// Helper function to get environment variable with default fallback
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(list string) []string {
	var out []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Helper function to extract sslmode from a DSN, defaults to "require"
func getSSLModeFromURI(uri string) string {
	_, query, ok := strings.Cut(uri, "?")
	if !ok {
		return "require"
	}
	for _, param := range strings.Split(query, "&") {
		if key, value, ok := strings.Cut(param, "="); ok && key == "sslmode" {
			return value
		}
	}
	return "require"
}
