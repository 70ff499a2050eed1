package main

import (
	"log/slog"
	"os"

	"github.com/newsroom-cms/newsroom/cmd/newsroom/cli"
	"github.com/newsroom-cms/newsroom/internal/app"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
