package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/cesargomez89/ydljobs/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Database      Database
	LogLevel      string
	LogFormat     string
	KeepJobs      int
	PruneInterval time.Duration
}

// Database holds the connection inputs of the job store
type Database struct {
	Driver   string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	Path     string // sqlite only
}

// Load loads configuration from environment variables with defaults.
// Malformed numeric values are kept as invalid markers and reported by Validate.
func Load() *Config {
	return &Config{
		Database: Database{
			Driver:   getEnv("DB_DRIVER", constants.DefaultDBDriver),
			Host:     getEnv("DB_HOST", constants.DefaultDBHost),
			Port:     getEnv("DB_PORT", constants.DefaultDBPort),
			Name:     getEnv("DB_NAME", constants.DefaultDBName),
			User:     getEnv("DB_USER", constants.DefaultDBUser),
			Password: getEnv("DB_PASSWORD", constants.DefaultDBPassword),
			Path:     getEnv("DB_PATH", constants.DefaultDBPath),
		},
		LogLevel:      getEnv("LOG_LEVEL", constants.DefaultLogLevel),
		LogFormat:     getEnv("LOG_FORMAT", constants.DefaultLogFormat),
		KeepJobs:      getEnvInt("JOBS_KEEP", constants.DefaultKeepJobs),
		PruneInterval: getEnvDuration("JOBS_PRUNE_INTERVAL", constants.DefaultPruneInterval),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	errors := c.Database.problems()

	// Validate LogLevel
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	// Validate LogFormat
	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if c.KeepJobs < 1 {
		errors = append(errors, fmt.Sprintf("JOBS_KEEP must be a positive number, got: %d", c.KeepJobs))
	}
	if c.PruneInterval <= 0 {
		errors = append(errors, fmt.Sprintf("JOBS_PRUNE_INTERVAL must be a positive duration, got: %s", c.PruneInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// Validate checks only the database settings
func (d Database) Validate() error {
	if errors := d.problems(); len(errors) > 0 {
		return fmt.Errorf("database configuration invalid:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

func (d Database) problems() []string {
	var errors []string

	switch d.Driver {
	case constants.DriverSQLite:
		if d.Path == "" {
			errors = append(errors, "DB_PATH cannot be empty")
		}
	case constants.DriverMySQL:
		if d.Host == "" {
			errors = append(errors, "DB_HOST cannot be empty")
		}
		port, err := strconv.Atoi(d.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("DB_PORT must be a valid number, got: %s", d.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("DB_PORT must be between 1 and 65535, got: %d", port))
		}
		if d.Name == "" {
			errors = append(errors, "DB_NAME cannot be empty")
		}
		if d.User == "" {
			errors = append(errors, "DB_USER cannot be empty")
		}
	default:
		errors = append(errors, fmt.Sprintf("DB_DRIVER must be one of: mysql, sqlite, got: %s", d.Driver))
	}

	return errors
}

// DSN returns the data source name for the configured driver
func (d Database) DSN() string {
	if d.Driver == constants.DriverSQLite {
		return d.Path
	}

	mc := mysql.NewConfig()
	mc.User = d.User
	mc.Passwd = d.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(d.Host, d.Port)
	mc.DBName = d.Name
	// timestamps are rendered by the store, keep them as text
	mc.ParseTime = false
	mc.Params = map[string]string{"time_zone": "'+00:00'"}
	return mc.FormatDSN()
}

// String describes the target without the password
func (d Database) String() string {
	if d.Driver == constants.DriverSQLite {
		return "sqlite:" + d.Path
	}
	return fmt.Sprintf("mysql://%s@%s/%s", d.User, net.JoinHostPort(d.Host, d.Port), d.Name)
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return -1
	}
	return d
}
