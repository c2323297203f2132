package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB int    `mapstructure:"REDIS_SESSION_DB"`
	RedisHoldDB    int    `mapstructure:"REDIS_HOLD_DB"`
	RedisQueueDB   int    `mapstructure:"REDIS_QUEUE_DB"`

	// External pricing authority. Empty means the local pricing engine
	// handles everything in-process.
	PricingServiceURL string `mapstructure:"PRICING_SERVICE_URL"`
	PricingTimeoutSec int    `mapstructure:"PRICING_TIMEOUT_SEC"`

	// Optional NATS fan-out for analytics events.
	NATSUrl string `mapstructure:"NATS_URL"`

	// Bargain engine tuning.
	SessionTTLMin      int `mapstructure:"SESSION_TTL_MIN"`
	CounterOfferTTLSec int `mapstructure:"COUNTER_OFFER_TTL_SEC"`
	HoldDurationMin    int `mapstructure:"HOLD_DURATION_MIN"`
	DefaultMaxAttempts int `mapstructure:"DEFAULT_MAX_ATTEMPTS"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_SESSION_DB", 0)
	viper.SetDefault("REDIS_HOLD_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("DATABASE_URL", "postgres://localhost:5432/faredown?sslmode=disable")
	viper.SetDefault("PRICING_SERVICE_URL", "")
	viper.SetDefault("PRICING_TIMEOUT_SEC", 10)
	viper.SetDefault("NATS_URL", "")
	viper.SetDefault("SESSION_TTL_MIN", 30)
	viper.SetDefault("COUNTER_OFFER_TTL_SEC", 30)
	viper.SetDefault("HOLD_DURATION_MIN", 15)
	viper.SetDefault("DEFAULT_MAX_ATTEMPTS", 3)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
