package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper for mastobridge: an optional YAML config file
// plus MASTOBRIDGE_-prefixed environment variables, matching spec.md §6.5's
// environment-first model.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("mastobridge")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/mastobridge")
	}

	viper.SetEnvPrefix("MASTOBRIDGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// bindNestedEnvKeys binds every Config key for environment variable
// override support, e.g. MASTOBRIDGE_SERVER_PORT overrides server.port.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("server.host")
	_ = viper.BindEnv("server.port")
	_ = viper.BindEnv("server.log_level")
	_ = viper.BindEnv("server.shutdown_timeout")

	_ = viper.BindEnv("cache.backend")
	_ = viper.BindEnv("cache.redis_addr")
	_ = viper.BindEnv("cache.redis_password")
	_ = viper.BindEnv("cache.redis_db")
	_ = viper.BindEnv("cache.sqlite_path")

	_ = viper.BindEnv("upstream.pds_host")
	_ = viper.BindEnv("upstream.timeout")

	_ = viper.BindEnv("rate_limit.enabled")
	_ = viper.BindEnv("rate_limit.unauthenticated_capacity")
	_ = viper.BindEnv("rate_limit.authenticated_capacity")
	_ = viper.BindEnv("rate_limit.window_seconds")

	_ = viper.BindEnv("observability.tracing_enabled")
	_ = viper.BindEnv("observability.metrics_enabled")
	_ = viper.BindEnv("observability.collector_endpoint")
	_ = viper.BindEnv("observability.metrics_path")

	_ = viper.BindEnv("dev_mode")
}

// LoadConfig reads the configuration file (if any), applies environment
// overrides, sets defaults, and validates the result.
func LoadConfig() (*Config, error) {
	// A bool's zero value cannot be told apart from an explicit false in
	// SetDefaults, so this default is set on viper before unmarshalling.
	viper.SetDefault("rate_limit.enabled", true)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return &cfg, nil
}

// ConfigFileUsed returns the path of the config file that was loaded, or
// an empty string if none was found (environment-only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
