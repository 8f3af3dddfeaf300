// Package config provides configuration management for the credstore service.
// It handles loading and validation of configuration values from environment
// variables, with support for required variables, default values, and
// collective error reporting: every problem is gathered and reported at once
// instead of failing on the first.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/user/credstore-go/apperror"
	"github.com/user/credstore-go/password"
)

// PoolConfig represents configuration for the database connection pool.
type PoolConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxSize  int
}

// DSN renders the pgx connection string for this pool.
func (c *PoolConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.DBName,
	)
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port string // Port for the HTTP server
}

// AppConfig is the top-level configuration structure for the application.
type AppConfig struct {
	DB         *PoolConfig
	Server     *ServerConfig
	Hashing    password.Params
	Migrations string // Path to the SQL migrations directory
}

// getRequiredEnv reads a required environment variable, collecting an error
// if it is not set. This promotes a fail-fast startup for critical settings.
func getRequiredEnv(key string, errors *[]string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		*errors = append(*errors, fmt.Sprintf("missing required environment variable: %s", key))
		return ""
	}
	return value
}

// getOptionalEnv reads an optional environment variable with a default.
func getOptionalEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getOptionalEnvInt reads an optional environment variable parsed as an int.
// Uses defaultValue if unset; collects an error if parsing fails.
func getOptionalEnvInt(key string, defaultValue int, errors *[]string) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected integer, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueInt
}

// clampPoolSize keeps the connection pool size within sane bounds.
func clampPoolSize(size int, varName string, errors *[]string) int {
	if size < 1 {
		*errors = append(*errors, fmt.Sprintf("pool size for %s (%d) is less than minimum 1, clamping to 1", varName, size))
		size = 1
	}
	if size > 100 {
		*errors = append(*errors, fmt.Sprintf("pool size for %s (%d) is greater than maximum 100, clamping to 100", varName, size))
		size = 100
	}
	return size
}

// LoadConfig creates and returns an AppConfig by reading and validating
// environment variables. It collects all errors encountered during loading
// and returns a single ConfigError if any exist. Bad hashing cost parameters
// are a fatal configuration error here, never a silent fallback at request
// time.
func LoadConfig() (*AppConfig, error) {
	var errors []string

	// Database configuration
	dbUser := getRequiredEnv("DB_USER", &errors)
	dbPassword := getRequiredEnv("DB_PASSWORD", &errors)
	dbName := getRequiredEnv("DB_NAME", &errors)
	dbHost := getOptionalEnv("DB_HOST", "localhost")
	dbPort := getOptionalEnvInt("DB_PORT", 5432, &errors)
	poolSize := clampPoolSize(getOptionalEnvInt("DB_POOL_SIZE", 5, &errors), "DB_POOL_SIZE", &errors)

	db := &PoolConfig{
		Host:     dbHost,
		Port:     dbPort,
		User:     dbUser,
		Password: dbPassword,
		DBName:   dbName,
		MaxSize:  poolSize,
	}

	// Hashing configuration: defaults are production-grade; overrides exist
	// for tuning, not weakening — validation still applies. Range checks
	// precede the unsigned conversions so a negative or oversized value is
	// reported instead of wrapping into a nonsense parameter.
	hashing := password.DefaultParams()
	memory := getOptionalEnvInt("ARGON2_MEMORY_KIB", int(hashing.Memory), &errors)
	iterations := getOptionalEnvInt("ARGON2_ITERATIONS", int(hashing.Iterations), &errors)
	parallelism := getOptionalEnvInt("ARGON2_PARALLELISM", int(hashing.Parallelism), &errors)
	if memory < 1 {
		errors = append(errors, fmt.Sprintf("invalid value for ARGON2_MEMORY_KIB: must be positive, got %d", memory))
	} else {
		hashing.Memory = uint32(memory)
	}
	if iterations < 1 {
		errors = append(errors, fmt.Sprintf("invalid value for ARGON2_ITERATIONS: must be positive, got %d", iterations))
	} else {
		hashing.Iterations = uint32(iterations)
	}
	if parallelism < 1 || parallelism > 255 {
		errors = append(errors, fmt.Sprintf("invalid value for ARGON2_PARALLELISM: must be between 1 and 255, got %d", parallelism))
	} else {
		hashing.Parallelism = uint8(parallelism)
	}
	if err := hashing.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid hashing parameters: %v", err))
	}

	// Server configuration
	serverConfig := &ServerConfig{
		Port: getOptionalEnv("PORT", "8080"),
	}

	migrations := getOptionalEnv("MIGRATIONS_PATH", "./migrations")

	if len(errors) > 0 {
		return nil, apperror.NewConfigError(
			fmt.Sprintf("configuration errors:\n- %s", strings.Join(errors, "\n- ")), nil)
	}

	return &AppConfig{
		DB:         db,
		Server:     serverConfig,
		Hashing:    hashing,
		Migrations: migrations,
	}, nil
}
