package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pitchside/pitchside_backend/pkg/constants"
)

var GlobalConf *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.rate_limit.max", 20)
	v.SetDefault("server.rate_limit.expiration_seconds", 30)
	v.SetDefault("booking.store_driver", StoreDriverPostgres)
	v.SetDefault("booking.default_policy.time_slot_increment", 60)
	v.SetDefault("booking.default_policy.min_duration_hours", 1.0)
	v.SetDefault("stripe.currency", "usd")
	v.SetDefault("sms.default_region", "US")
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("logging.level", "info")
	v.SetDefault("observability.service_name", constants.AppName)
}

func ReadConfig(configPath string) (*Config, error) {
	// A .env next to the config file is optional and never overrides the
	// real environment.
	if err := godotenv.Load(filepath.Join(configPath, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName(constants.ConfigName)
	v.SetConfigType(constants.ConfigFormat)
	v.AddConfigPath(configPath)
	setDefaults(v)

	// Allow env vars to override config values.
	// e.g. PITCHSIDE_DATABASE_HOST overrides database.host
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the config file (optional in Docker environments)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func MustReadConfig(path string) *Config {
	config, err := ReadConfig(path)
	if err != nil {
		panic(err)
	}

	GlobalConf = config

	return config
}
