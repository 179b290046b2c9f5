// Package root contains the root command for the application.
package root

import (
	"github.com/spf13/cobra"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/config"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
)

var (
	// Log is the shared logger instance for commands.
	Log = logging.GetLogger()

	// Cmd is the root command.
	Cmd = &cobra.Command{
		Use:   "himalai",
		Short: "Backend for the Himalai expense tracker.",
		Long: `himalai runs the expense-tracker backend: it ingests bank and wallet
statements (Khalti, eSewa, Global IME), normalizes them into categorized
transactions and serves them over an HTTP API.`,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to himalai!")
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnv()
		},
	}
)

// LoadConfig loads and validates the application configuration, installing
// the configured logger as the shared one.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.InitializeConfig()
	if err != nil {
		return nil, err
	}
	Log = config.ConfigureLogging(cfg)
	return cfg, nil
}
