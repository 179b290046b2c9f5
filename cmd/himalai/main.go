// Package main provides the entry point for the himalai backend.
package main

import (
	"os"

	"github.com/biplovgautam/himalai-expense-tracker-backend/cmd/convert"
	"github.com/biplovgautam/himalai-expense-tracker-backend/cmd/root"
	"github.com/biplovgautam/himalai-expense-tracker-backend/cmd/serve"
)

func main() {
	convert.Init()

	root.Cmd.AddCommand(serve.Cmd)
	root.Cmd.AddCommand(convert.Cmd)

	if err := root.Cmd.Execute(); err != nil {
		root.Log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
