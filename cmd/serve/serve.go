// Package serve contains the command that runs the HTTP API.
package serve

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/biplovgautam/himalai-expense-tracker-backend/cmd/root"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/container"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/server"
)

// Cmd is the serve command.
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long:  `Start the backend HTTP server and serve the expense-tracker API until interrupted.`,
	RunE:  serveFunc,
}

func serveFunc(cmd *cobra.Command, args []string) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}

	deps, err := container.NewContainer(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			root.Log.WithError(err).Warn("Failed to close dependencies")
		}
	}()

	srv := server.New(deps)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		root.Log.Info("Shutting down")
		if err := srv.Shutdown(); err != nil {
			root.Log.WithError(err).Warn("Server shutdown failed")
		}
	}()

	return srv.Listen()
}
