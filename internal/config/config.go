/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the distribution-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                     string `mapstructure:"SERVER_PORT"`
	DatabaseURL                    string `mapstructure:"DATABASE_URL"`
	RedisURL                       string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix           string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL                    string `mapstructure:"RABBITMQ_URL"`
	TwitterAPIBaseURL              string `mapstructure:"TWITTER_API_BASE_URL"`
	TwitterBearerToken             string `mapstructure:"TWITTER_BEARER_TOKEN"`
	TwitterWebhookSecret           string `mapstructure:"TWITTER_WEBHOOK_SECRET"`
	POAPAPIBaseURL                 string `mapstructure:"POAP_API_BASE_URL"`
	POAPAPIKey                     string `mapstructure:"POAP_API_KEY"`
	InternalAPIKey                 string `mapstructure:"INTERNAL_API_KEY"`
	AdminJWKSURL                   string `mapstructure:"ADMIN_JWKS_URL"`
	ClaimReconcileSchedule         string `mapstructure:"CLAIM_RECONCILE_SCHEDULE"`
	ClaimReconcileBatchSize        int    `mapstructure:"CLAIM_RECONCILE_BATCH_SIZE"`
	ClaimAttemptRateLimitPerMinute int    `mapstructure:"CLAIM_ATTEMPT_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("TWITTER_API_BASE_URL", "https://api.twitter.com")
	viper.SetDefault("POAP_API_BASE_URL", "https://api.poap.tech")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "poapflow:rate_limit")
	viper.SetDefault("CLAIM_RECONCILE_SCHEDULE", "@every 10m")
	viper.SetDefault("CLAIM_RECONCILE_BATCH_SIZE", 200)
	viper.SetDefault("CLAIM_ATTEMPT_RATE_LIMIT_PER_MINUTE", 30)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "DISTRIBUTION_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("TWITTER_API_BASE_URL")
	_ = viper.BindEnv("TWITTER_BEARER_TOKEN")
	_ = viper.BindEnv("TWITTER_WEBHOOK_SECRET")
	_ = viper.BindEnv("POAP_API_BASE_URL")
	_ = viper.BindEnv("POAP_API_KEY")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "DISTRIBUTION_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("ADMIN_JWKS_URL")
	_ = viper.BindEnv("CLAIM_RECONCILE_SCHEDULE")
	_ = viper.BindEnv("CLAIM_RECONCILE_BATCH_SIZE")
	_ = viper.BindEnv("CLAIM_ATTEMPT_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("DISTRIBUTION_SERVICE_INTERNAL_API_KEY"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "poapflow:rate_limit"
	}
	config.TwitterAPIBaseURL = strings.TrimRight(strings.TrimSpace(config.TwitterAPIBaseURL), "/")
	config.POAPAPIBaseURL = strings.TrimRight(strings.TrimSpace(config.POAPAPIBaseURL), "/")

	if strings.TrimSpace(config.ClaimReconcileSchedule) == "" {
		config.ClaimReconcileSchedule = "@every 10m"
	}
	if config.ClaimReconcileBatchSize <= 0 {
		config.ClaimReconcileBatchSize = 200
	}
	if config.ClaimAttemptRateLimitPerMinute <= 0 {
		config.ClaimAttemptRateLimitPerMinute = 30
	}

	return
}
