package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/quarrylabs/ragsync/internal/adapters/driving/cli"
	"github.com/quarrylabs/ragsync/internal/logger"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Could not load .env file: %v", err)
	}

	os.Exit(cli.Execute())
}
