package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment")
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
