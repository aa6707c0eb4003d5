/**
 * @description
 * Configuration management for the ledger service. Viper reads everything
 * from environment variables (with an optional .env file), applies defaults,
 * and clamps values that would otherwise break a subsystem.
 *
 * @dependencies
 * - github.com/spf13/viper: Configuration loading.
 */

package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the ledger service.
type Config struct {
	ServerPort  string `mapstructure:"SERVER_PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	AggregationAPIBaseURL string `mapstructure:"AGGREGATION_API_BASE_URL"`
	AggregationClientID   string `mapstructure:"AGGREGATION_CLIENT_ID"`
	AggregationSecret     string `mapstructure:"AGGREGATION_SECRET"`

	SyncLookbackDays int    `mapstructure:"SYNC_LOOKBACK_DAYS"`
	SyncJobSchedule  string `mapstructure:"SYNC_JOB_SCHEDULE"`

	RabbitMQURL         string `mapstructure:"RABBITMQ_URL"`
	SyncEventExchange   string `mapstructure:"SYNC_EVENT_EXCHANGE"`
	SyncEventRoutingKey string `mapstructure:"SYNC_EVENT_ROUTING_KEY"`

	RedisURL                    string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix        string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	LinkTokenRateLimitPerMinute int    `mapstructure:"LINK_TOKEN_RATE_LIMIT_PER_MINUTE"`

	APIJWTSecret string `mapstructure:"API_JWT_SECRET"`
	SeedDemoData bool   `mapstructure:"SEED_DEMO_DATA"`

	DBConnectMaxAttempts       int     `mapstructure:"DB_CONNECT_MAX_ATTEMPTS"`
	DBConnectBaseDelayMS       int     `mapstructure:"DB_CONNECT_BASE_DELAY_MS"`
	DBConnectBackoffMultiplier float64 `mapstructure:"DB_CONNECT_BACKOFF_MULTIPLIER"`
}

// LoadConfig reads configuration from environment variables, with an
// optional .env file at the given path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SYNC_LOOKBACK_DAYS", 30)
	viper.SetDefault("SYNC_JOB_SCHEDULE", "0 */6 * * *")
	viper.SetDefault("SYNC_EVENT_EXCHANGE", "wealthwise.events")
	viper.SetDefault("SYNC_EVENT_ROUTING_KEY", "ledger.sync.completed")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "wealthwise:rate_limit")
	viper.SetDefault("LINK_TOKEN_RATE_LIMIT_PER_MINUTE", 10)
	viper.SetDefault("SEED_DEMO_DATA", false)
	viper.SetDefault("DB_CONNECT_MAX_ATTEMPTS", 5)
	viper.SetDefault("DB_CONNECT_BASE_DELAY_MS", 500)
	viper.SetDefault("DB_CONNECT_BACKOFF_MULTIPLIER", 2.0)

	// Bind explicitly so every key appears in Unmarshal. The aggregation
	// credentials also accept the provider's historical variable names.
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("AGGREGATION_API_BASE_URL")
	_ = viper.BindEnv("AGGREGATION_CLIENT_ID", "AGGREGATION_CLIENT_ID", "PLAID_CLIENT_ID")
	_ = viper.BindEnv("AGGREGATION_SECRET", "AGGREGATION_SECRET", "PLAID_SECRET")
	_ = viper.BindEnv("SYNC_LOOKBACK_DAYS")
	_ = viper.BindEnv("SYNC_JOB_SCHEDULE")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("SYNC_EVENT_EXCHANGE")
	_ = viper.BindEnv("SYNC_EVENT_ROUTING_KEY")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("LINK_TOKEN_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("API_JWT_SECRET")
	_ = viper.BindEnv("SEED_DEMO_DATA")
	_ = viper.BindEnv("DB_CONNECT_MAX_ATTEMPTS")
	_ = viper.BindEnv("DB_CONNECT_BASE_DELAY_MS")
	_ = viper.BindEnv("DB_CONNECT_BACKOFF_MULTIPLIER")

	// A missing or unreadable .env file is fine; environment values still apply.
	_ = viper.ReadInConfig()

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	config.DatabaseURL = strings.TrimSpace(config.DatabaseURL)
	config.AggregationAPIBaseURL = strings.TrimSpace(config.AggregationAPIBaseURL)
	config.AggregationClientID = strings.TrimSpace(config.AggregationClientID)
	config.AggregationSecret = strings.TrimSpace(config.AggregationSecret)

	if config.SyncLookbackDays <= 0 {
		config.SyncLookbackDays = 30
	}
	if strings.TrimSpace(config.SyncJobSchedule) == "" {
		config.SyncJobSchedule = "0 */6 * * *"
	}
	if config.LinkTokenRateLimitPerMinute < 0 {
		config.LinkTokenRateLimitPerMinute = 0
	}
	if config.DBConnectMaxAttempts <= 0 {
		config.DBConnectMaxAttempts = 5
	}
	if config.DBConnectBaseDelayMS <= 0 {
		config.DBConnectBaseDelayMS = 500
	}
	if config.DBConnectBackoffMultiplier < 1 {
		config.DBConnectBackoffMultiplier = 2.0
	}

	return
}
