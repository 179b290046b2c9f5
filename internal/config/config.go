package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
)

var once sync.Once

// LoadEnv loads environment variables from a .env file if one exists, then
// leaves the rest to the process environment.
func LoadEnv() {
	once.Do(func() {
		logger := logging.GetLogger()

		envFile := ".env"
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			envFile = filepath.Join("..", ".env")
			if _, err := os.Stat(envFile); os.IsNotExist(err) {
				logger.Info("No .env file found, using environment variables")
				return
			}
		}

		if err := godotenv.Load(envFile); err != nil {
			logger.WithError(err).Warn("Error loading .env file")
			return
		}
		logger.Info("Loaded environment variables",
			logging.Field{Key: "file", Value: envFile})
	})
}

// ConfigureLogging builds the application logger from the configuration and
// installs it as the process default.
func ConfigureLogging(config *Config) logging.Logger {
	logger := logging.NewLogrusAdapter(config.Log.Level, config.Log.Format)
	logging.SetDefaultLogger(logger)
	return logger
}
