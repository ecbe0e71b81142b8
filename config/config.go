package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the authorization server. Tags use
// mapstructure for viper unmarshalling; every value can be overridden through
// the environment.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	Issuer      string `mapstructure:"ISSUER"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	TokenStore  string `mapstructure:"TOKEN_STORE"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	AccessTokenTTLMin    int `mapstructure:"ACCESS_TOKEN_TTL_MIN"`
	RefreshTokenTTLHour  int `mapstructure:"REFRESH_TOKEN_TTL_HOUR"`
	AuthCodeTTLMin       int `mapstructure:"AUTH_CODE_TTL_MIN"`
	TicketLifetimeSec    int `mapstructure:"TICKET_LIFETIME_SEC"`
	ConfirmationCodeTTL  int `mapstructure:"CONFIRMATION_CODE_TTL_SEC"`
	KeyRotationHour      int `mapstructure:"KEY_ROTATION_HOUR"`
	ConfirmationCodeLen  int `mapstructure:"CONFIRMATION_CODE_LEN"`
}

// LoadConfig reads configuration from file, environment variables, and
// defaults, in that order of increasing precedence.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/halcyon/")
	v.AddConfigPath("$HOME/.halcyon")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("ISSUER", "http://localhost:8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/halcyon_dev")
	v.SetDefault("MONGO_DB_NAME", "halcyon_dev")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("TOKEN_STORE", "memory")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("ACCESS_TOKEN_TTL_MIN", 60)
	v.SetDefault("REFRESH_TOKEN_TTL_HOUR", 720)
	v.SetDefault("AUTH_CODE_TTL_MIN", 10)
	v.SetDefault("TICKET_LIFETIME_SEC", 3600)
	v.SetDefault("CONFIRMATION_CODE_TTL_SEC", 300)
	v.SetDefault("KEY_ROTATION_HOUR", 24)
	v.SetDefault("CONFIRMATION_CODE_LEN", 6)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env vars apply. Any
		// other read error is real.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
