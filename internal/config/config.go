package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Chain     ChainConfig
	NATS      NATSConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
	Business  BusinessConfig
	Health    HealthConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Driver          string
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host            string
	Port            string
	Password        string
	DB              int
	DepositCacheTTL string
}

type ChainConfig struct {
	RPCURL             string
	SettlementAddress  string
	StartBlock         uint64
	LogBlockBatch      uint64
	ValuationDecimals  int
	CallTimeout        string
	RateLimitPerSecond float64
	RateLimitBurst     int
	FetchConcurrency   int
}

type NATSConfig struct {
	URL     string
	Enabled bool
}

type SchedulerConfig struct {
	ReconcileSpec string
	Timezone      string
	MetricsPort   string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type BusinessConfig struct {
	MinHealthFactor string
}

type HealthConfig struct {
	Timeout string
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Populate the process environment from .env files when present
	_ = godotenv.Load(".env", "./deployments/.env")

	v := viper.New()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")

	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", "5432")
	v.SetDefault("DATABASE_NAME", "lending_engine")
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DEPOSIT_CACHE_TTL", "30s")

	v.SetDefault("CHAIN_START_BLOCK", 0)
	v.SetDefault("CHAIN_LOG_BLOCK_BATCH", 5000)
	v.SetDefault("CHAIN_VALUATION_DECIMALS", 18)
	v.SetDefault("CHAIN_CALL_TIMEOUT", "5s")
	v.SetDefault("CHAIN_RATE_LIMIT_PER_SECOND", 50.0)
	v.SetDefault("CHAIN_RATE_LIMIT_BURST", 20)
	v.SetDefault("CHAIN_FETCH_CONCURRENCY", 16)

	v.SetDefault("NATS_URL", "nats://localhost:4222")
	v.SetDefault("NATS_ENABLED", false)

	v.SetDefault("SCHEDULER_RECONCILE_SPEC", "0 */5 * * * *")
	v.SetDefault("SCHEDULER_TIMEZONE", "UTC")
	v.SetDefault("SCHEDULER_METRICS_PORT", "9091")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MIN_HEALTH_FACTOR", "1.0")
	v.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")

	// Read from environment variables
	v.AutomaticEnv()

	config := Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Env:          v.GetString("ENV"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("DATABASE_DRIVER"),
			URL:             v.GetString("DATABASE_URL"),
			Host:            v.GetString("DATABASE_HOST"),
			Port:            v.GetString("DATABASE_PORT"),
			Name:            v.GetString("DATABASE_NAME"),
			User:            v.GetString("DATABASE_USER"),
			Password:        v.GetString("DATABASE_PASSWORD"),
			SSLMode:         v.GetString("DATABASE_SSLMODE"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DATABASE_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Host:            v.GetString("REDIS_HOST"),
			Port:            v.GetString("REDIS_PORT"),
			Password:        v.GetString("REDIS_PASSWORD"),
			DB:              v.GetInt("REDIS_DB"),
			DepositCacheTTL: v.GetString("DEPOSIT_CACHE_TTL"),
		},
		Chain: ChainConfig{
			RPCURL:             v.GetString("CHAIN_RPC_URL"),
			SettlementAddress:  v.GetString("CHAIN_SETTLEMENT_ADDRESS"),
			StartBlock:         v.GetUint64("CHAIN_START_BLOCK"),
			LogBlockBatch:      v.GetUint64("CHAIN_LOG_BLOCK_BATCH"),
			ValuationDecimals:  v.GetInt("CHAIN_VALUATION_DECIMALS"),
			CallTimeout:        v.GetString("CHAIN_CALL_TIMEOUT"),
			RateLimitPerSecond: v.GetFloat64("CHAIN_RATE_LIMIT_PER_SECOND"),
			RateLimitBurst:     v.GetInt("CHAIN_RATE_LIMIT_BURST"),
			FetchConcurrency:   v.GetInt("CHAIN_FETCH_CONCURRENCY"),
		},
		NATS: NATSConfig{
			URL:     v.GetString("NATS_URL"),
			Enabled: v.GetBool("NATS_ENABLED"),
		},
		Scheduler: SchedulerConfig{
			ReconcileSpec: v.GetString("SCHEDULER_RECONCILE_SPEC"),
			Timezone:      v.GetString("SCHEDULER_TIMEZONE"),
			MetricsPort:   v.GetString("SCHEDULER_METRICS_PORT"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Business: BusinessConfig{
			MinHealthFactor: v.GetString("MIN_HEALTH_FACTOR"),
		},
		Health: HealthConfig{
			Timeout: v.GetString("HEALTH_CHECK_TIMEOUT"),
		},
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

	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" && c.Database.Host == "" {
			return fmt.Errorf("DATABASE_URL or DATABASE_HOST is required")
		}
	case "memory":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be postgres or memory")
	}

	if c.Chain.RPCURL == "" {
		return fmt.Errorf("CHAIN_RPC_URL is required")
	}

	if !common.IsHexAddress(c.Chain.SettlementAddress) {
		return fmt.Errorf("CHAIN_SETTLEMENT_ADDRESS must be a hex address")
	}

	if c.Chain.ValuationDecimals < 0 || c.Chain.ValuationDecimals > 36 {
		return fmt.Errorf("CHAIN_VALUATION_DECIMALS must be between 0 and 36")
	}

	if c.Chain.FetchConcurrency <= 0 {
		return fmt.Errorf("CHAIN_FETCH_CONCURRENCY must be greater than 0")
	}

	if c.Chain.RateLimitPerSecond <= 0 {
		return fmt.Errorf("CHAIN_RATE_LIMIT_PER_SECOND must be greater than 0")
	}

	// Validate health factor threshold
	threshold, err := decimal.NewFromString(c.Business.MinHealthFactor)
	if err != nil {
		return fmt.Errorf("MIN_HEALTH_FACTOR must be a valid decimal: %w", err)
	}
	if threshold.IsNegative() {
		return fmt.Errorf("MIN_HEALTH_FACTOR must not be negative")
	}

	if _, err := time.ParseDuration(c.Chain.CallTimeout); err != nil {
		return fmt.Errorf("CHAIN_CALL_TIMEOUT must be a valid duration: %w", err)
	}

	if _, err := time.ParseDuration(c.Redis.DepositCacheTTL); err != nil {
		return fmt.Errorf("DEPOSIT_CACHE_TTL must be a valid duration: %w", err)
	}

	// Validate health check timeout
	if _, err := time.ParseDuration(c.Health.Timeout); err != nil {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be a valid duration: %w", err)
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid location: %w", err)
	}

	return nil
}

// DSN returns the Postgres connection string
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Addr returns the Redis host:port pair
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// UsesMemoryStore reports whether offers are kept in process memory instead of Postgres
func (c *Config) UsesMemoryStore() bool {
	return c.Database.Driver == "memory"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetMinHealthFactor returns the health factor gate as decimal
func (c *Config) GetMinHealthFactor() decimal.Decimal {
	threshold, _ := decimal.NewFromString(c.Business.MinHealthFactor)
	return threshold
}

// GetSettlementAddress returns the settlement contract address
func (c *Config) GetSettlementAddress() common.Address {
	return common.HexToAddress(strings.TrimSpace(c.Chain.SettlementAddress))
}

// GetCallTimeout returns the per-call settlement read timeout
func (c *Config) GetCallTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Chain.CallTimeout)
	return timeout
}

// GetDepositCacheTTL returns the deposit cache staleness bound
func (c *Config) GetDepositCacheTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Redis.DepositCacheTTL)
	return ttl
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Health.Timeout)
	return timeout
}

// GetLocation returns the scheduler timezone
func (c *Config) GetLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
