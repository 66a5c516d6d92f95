package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/employee-directory/internal/pkg/validator"
	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	JWT      JWTConfig
	Admin    AdminConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Image    ImageConfig
	List     ListConfig
	Cron     CronConfig
	CORS     CORSConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int    `env:"APP_PORT" validate:"min=1,max=65535"`
	Env      string `env:"APP_ENV" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string        `env:"JWT_SECRET_KEY" validate:"required"`
	AccessExpiration time.Duration `env:"JWT_ACCESS_EXPIRATION_TIME" validate:"min=1s"`
}

// AdminConfig is the single account allowed to sign in.
type AdminConfig struct {
	Username     string `env:"ADMIN_USERNAME" validate:"required"`
	PasswordHash string `env:"ADMIN_PASSWORD_HASH" validate:"required"`
}

type StorageConfig struct {
	Type string `env:"STORAGE_TYPE" validate:"oneof=badger file postgres memory"`
	Path string `env:"STORAGE_PATH"`
}

// DatabaseConfig is only read when STORAGE_TYPE is postgres.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type ImageConfig struct {
	// MaxDimension of 0 keeps uploads at their original size.
	MaxDimension   int   `env:"IMAGE_MAX_DIMENSION" validate:"min=0"`
	MaxUploadBytes int64 `env:"IMAGE_MAX_UPLOAD_BYTES" validate:"min=1"`
}

type ListConfig struct {
	PageSize int `env:"LIST_PAGE_SIZE" validate:"min=1,max=100"`
}

type CronConfig struct {
	BadgerGCInterval time.Duration `env:"BADGER_GC_INTERVAL" validate:"min=1s"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" validate:"min=1"`
}

// Load reads configuration from the environment, after loading the given .env files
// (".env" when none are given). A missing .env file is not an error.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
		slog.Warn("No .env file found, using process environment")
	}

	config := &Config{}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	// JWT configuration
	accessExpiration, err := time.ParseDuration(getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: accessExpiration,
	}

	config.Admin = AdminConfig{
		Username:     getEnv("ADMIN_USERNAME", "admin"),
		PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
	}

	// Storage configuration
	config.Storage = StorageConfig{
		Type: strings.ToLower(getEnv("STORAGE_TYPE", "badger")),
		Path: getEnv("STORAGE_PATH", "./data"),
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "employee_directory"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Image configuration
	maxDimension, err := strconv.Atoi(getEnv("IMAGE_MAX_DIMENSION", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid IMAGE_MAX_DIMENSION: %w", err)
	}
	maxUploadBytes, err := strconv.ParseInt(getEnv("IMAGE_MAX_UPLOAD_BYTES", "5242880"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid IMAGE_MAX_UPLOAD_BYTES: %w", err)
	}

	config.Image = ImageConfig{
		MaxDimension:   maxDimension,
		MaxUploadBytes: maxUploadBytes,
	}

	pageSize, err := strconv.Atoi(getEnv("LIST_PAGE_SIZE", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid LIST_PAGE_SIZE: %w", err)
	}
	config.List = ListConfig{PageSize: pageSize}

	gcInterval, err := time.ParseDuration(getEnv("BADGER_GC_INTERVAL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid BADGER_GC_INTERVAL: %w", err)
	}
	config.Cron = CronConfig{BadgerGCInterval: gcInterval}

	config.CORS = CORSConfig{
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validator.Struct(c); err != nil {
		return err
	}

	switch c.Storage.Type {
	case "badger", "file":
		if c.Storage.Path == "" {
			return fmt.Errorf("STORAGE_PATH is required for %s storage", c.Storage.Type)
		}
	case "postgres":
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required for postgres storage")
		}
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.App.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(key, fallback string) []string {
	value := getEnv(key, fallback)
	if value == "" {
		return []string{}
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
