package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/swissconsulthub/intake-engine/internal/domain"
)

// Config holds all configuration for our application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Backend    BackendConfig    `mapstructure:"backend"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
	Bus        BusConfig        `mapstructure:"bus"`
	Wizard     WizardConfig     `mapstructure:"wizard"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Port string `mapstructure:"SERVER_PORT"`
	Host string `mapstructure:"SERVER_HOST"`
	Env  string `mapstructure:"ENV"`
}

type DatabaseConfig struct {
	URL          string `mapstructure:"DATABASE_URL"`
	MaxOpenConns int    `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type BackendConfig struct {
	BaseURL string `mapstructure:"BACKEND_BASE_URL"`
	Timeout string `mapstructure:"BACKEND_TIMEOUT"`
	Token   string `mapstructure:"BACKEND_TOKEN"`
}

type BreakerConfig struct {
	FailureThreshold int    `mapstructure:"BREAKER_FAILURE_THRESHOLD"`
	Cooldown         string `mapstructure:"BREAKER_COOLDOWN"`
}

type BusConfig struct {
	RefreshInterval string `mapstructure:"BUS_REFRESH_INTERVAL"`
}

type WizardConfig struct {
	DraftTTL      string `mapstructure:"WIZARD_DRAFT_TTL"`
	DraftDebounce string `mapstructure:"WIZARD_DRAFT_DEBOUNCE"`
}

type SimulationConfig struct {
	// The two bands ship with identical defaults. That mirrors the observed
	// product data; keep them separately configurable until product confirms
	// whether owning property is meant to change the rate.
	RateMinWithProperty    string `mapstructure:"SIM_RATE_MIN_WITH_PROPERTY"`
	RateMaxWithProperty    string `mapstructure:"SIM_RATE_MAX_WITH_PROPERTY"`
	RateMinWithoutProperty string `mapstructure:"SIM_RATE_MIN_WITHOUT_PROPERTY"`
	RateMaxWithoutProperty string `mapstructure:"SIM_RATE_MAX_WITHOUT_PROPERTY"`

	GuaranteeFactorWithProperty    string `mapstructure:"SIM_GUARANTEE_FACTOR_WITH_PROPERTY"`
	GuaranteeFactorWithoutProperty string `mapstructure:"SIM_GUARANTEE_FACTOR_WITHOUT_PROPERTY"`

	SnapshotTTL string `mapstructure:"SIM_SNAPSHOT_TTL"`
}

type UploadConfig struct {
	MaxFileSizeBytes int64  `mapstructure:"UPLOAD_MAX_FILE_SIZE_BYTES"`
	StorageDir       string `mapstructure:"UPLOAD_STORAGE_DIR"`
	BaseURL          string `mapstructure:"UPLOAD_BASE_URL"`
}

type SchedulerConfig struct {
	Timezone       string `mapstructure:"SCHEDULER_TIMEZONE"`
	StaleAfterDays int    `mapstructure:"SCHEDULER_STALE_AFTER_DAYS"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("BACKEND_BASE_URL", "http://localhost:8081")
	viper.SetDefault("BACKEND_TIMEOUT", "10s")
	viper.SetDefault("BREAKER_FAILURE_THRESHOLD", 5)
	viper.SetDefault("BREAKER_COOLDOWN", "30s")
	viper.SetDefault("BUS_REFRESH_INTERVAL", "15s")
	viper.SetDefault("WIZARD_DRAFT_TTL", "45m")
	viper.SetDefault("WIZARD_DRAFT_DEBOUNCE", "400ms")
	viper.SetDefault("SIM_RATE_MIN_WITH_PROPERTY", "0.069")
	viper.SetDefault("SIM_RATE_MAX_WITH_PROPERTY", "0.109")
	viper.SetDefault("SIM_RATE_MIN_WITHOUT_PROPERTY", "0.069")
	viper.SetDefault("SIM_RATE_MAX_WITHOUT_PROPERTY", "0.109")
	viper.SetDefault("SIM_GUARANTEE_FACTOR_WITH_PROPERTY", "0.001845")
	viper.SetDefault("SIM_GUARANTEE_FACTOR_WITHOUT_PROPERTY", "0.001845")
	viper.SetDefault("SIM_SNAPSHOT_TTL", "45m")
	viper.SetDefault("UPLOAD_MAX_FILE_SIZE_BYTES", int64(10*1024*1024))
	viper.SetDefault("UPLOAD_STORAGE_DIR", "./uploads")
	viper.SetDefault("UPLOAD_BASE_URL", "/files")
	viper.SetDefault("SCHEDULER_TIMEZONE", "Europe/Zurich")
	viper.SetDefault("SCHEDULER_STALE_AFTER_DAYS", 3)

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read from .env file (optional)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be greater than 0")
	}

	if c.Upload.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_FILE_SIZE_BYTES must be greater than 0")
	}

	if c.Scheduler.StaleAfterDays <= 0 {
		return fmt.Errorf("SCHEDULER_STALE_AFTER_DAYS must be greater than 0")
	}

	for key, value := range map[string]string{
		"BACKEND_TIMEOUT":       c.Backend.Timeout,
		"BREAKER_COOLDOWN":      c.Breaker.Cooldown,
		"BUS_REFRESH_INTERVAL":  c.Bus.RefreshInterval,
		"WIZARD_DRAFT_TTL":      c.Wizard.DraftTTL,
		"WIZARD_DRAFT_DEBOUNCE": c.Wizard.DraftDebounce,
		"SIM_SNAPSHOT_TTL":      c.Simulation.SnapshotTTL,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s must be a valid duration: %w", key, err)
		}
	}

	for key, value := range map[string]string{
		"SIM_RATE_MIN_WITH_PROPERTY":            c.Simulation.RateMinWithProperty,
		"SIM_RATE_MAX_WITH_PROPERTY":            c.Simulation.RateMaxWithProperty,
		"SIM_RATE_MIN_WITHOUT_PROPERTY":         c.Simulation.RateMinWithoutProperty,
		"SIM_RATE_MAX_WITHOUT_PROPERTY":         c.Simulation.RateMaxWithoutProperty,
		"SIM_GUARANTEE_FACTOR_WITH_PROPERTY":    c.Simulation.GuaranteeFactorWithProperty,
		"SIM_GUARANTEE_FACTOR_WITHOUT_PROPERTY": c.Simulation.GuaranteeFactorWithoutProperty,
	} {
		if _, err := decimal.NewFromString(value); err != nil {
			return fmt.Errorf("%s must be a valid decimal: %w", key, err)
		}
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

func (c *Config) GetBackendTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Backend.Timeout)
	return d
}

func (c *Config) GetBreakerCooldown() time.Duration {
	d, _ := time.ParseDuration(c.Breaker.Cooldown)
	return d
}

func (c *Config) GetRefreshInterval() time.Duration {
	d, _ := time.ParseDuration(c.Bus.RefreshInterval)
	return d
}

func (c *Config) GetDraftTTL() time.Duration {
	d, _ := time.ParseDuration(c.Wizard.DraftTTL)
	return d
}

func (c *Config) GetDraftDebounce() time.Duration {
	d, _ := time.ParseDuration(c.Wizard.DraftDebounce)
	return d
}

func (c *Config) GetSnapshotTTL() time.Duration {
	d, _ := time.ParseDuration(c.Simulation.SnapshotTTL)
	return d
}

// GetRateBand returns the annual rate band for the property flag.
func (c *Config) GetRateBand(ownsProperty bool) domain.RateBand {
	var band domain.RateBand
	if ownsProperty {
		band.Min, _ = decimal.NewFromString(c.Simulation.RateMinWithProperty)
		band.Max, _ = decimal.NewFromString(c.Simulation.RateMaxWithProperty)
		return band
	}
	band.Min, _ = decimal.NewFromString(c.Simulation.RateMinWithoutProperty)
	band.Max, _ = decimal.NewFromString(c.Simulation.RateMaxWithoutProperty)
	return band
}

// GetGuaranteeFactor returns the flat guarantee fee factor for the property flag.
func (c *Config) GetGuaranteeFactor(ownsProperty bool) decimal.Decimal {
	if ownsProperty {
		f, _ := decimal.NewFromString(c.Simulation.GuaranteeFactorWithProperty)
		return f
	}
	f, _ := decimal.NewFromString(c.Simulation.GuaranteeFactorWithoutProperty)
	return f
}
