// Package config provides Viper-based hierarchical configuration: defaults,
// then an optional config file, then HIMALAI_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Server struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"server"`

	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`

	Auth struct {
		JWTSecret       string `mapstructure:"jwt_secret"`
		TokenTTLMinutes int    `mapstructure:"token_ttl_minutes"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"auth"`

	AI struct {
		Enabled        bool   `mapstructure:"enabled"`
		Provider       string `mapstructure:"provider"`
		Model          string `mapstructure:"model"`
		APIKey         string `mapstructure:"api_key"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"ai"`

	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		From     string `mapstructure:"from"`
	} `mapstructure:"smtp"`

	Upload struct {
		MaxSizeMB int `mapstructure:"max_size_mb"`
	} `mapstructure:"upload"`
}

// InitializeConfig loads the configuration hierarchically.
func InitializeConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.himalai")
	v.AddConfigPath(".himalai")
	v.AddConfigPath(".")

	v.SetEnvPrefix("HIMALAI")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	// The AI key always comes from unprefixed env vars, matching how the
	// providers document them.
	if err := v.BindEnv("ai.api_key", "GROQ_API_KEY", "GEMINI_API_KEY"); err != nil {
		fmt.Printf("Warning: failed to bind AI API key environment variables: %v\n", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)

	v.SetDefault("database.path", "himalai.db")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl_minutes", 60)
	v.SetDefault("auth.issuer", "himalai")

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.provider", "groq")
	v.SetDefault("ai.model", "llama-3.1-8b-instant")
	v.SetDefault("ai.timeout_seconds", 30)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "no-reply@himalai.local")

	v.SetDefault("upload.max_size_mb", 16)
}

func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", config.Server.Port)
	}
	if config.Auth.TokenTTLMinutes < 1 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive, got: %d", config.Auth.TokenTTLMinutes)
	}
	if config.AI.Enabled {
		if config.AI.APIKey == "" {
			return fmt.Errorf("GROQ_API_KEY or GEMINI_API_KEY required when AI is enabled")
		}
		if config.AI.Provider != "groq" && config.AI.Provider != "gemini" {
			return fmt.Errorf("ai.provider must be 'groq' or 'gemini', got: %s", config.AI.Provider)
		}
		if config.AI.TimeoutSeconds < 1 || config.AI.TimeoutSeconds > 300 {
			return fmt.Errorf("ai.timeout_seconds must be between 1 and 300, got: %d", config.AI.TimeoutSeconds)
		}
	}
	if config.Upload.MaxSizeMB < 1 {
		return fmt.Errorf("upload.max_size_mb must be positive, got: %d", config.Upload.MaxSizeMB)
	}
	return nil
}
