// ABOUTME: Entry point for the hirescore CLI
// ABOUTME: Command-line client for the HireScore resume scoring service

package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/hirescore/hirescore-cli/cmd"
	"github.com/hirescore/hirescore-cli/internal/logger"
)

func main() {
	// Load .env if present (ignore error if not found)
	_ = godotenv.Load()

	logger.Init()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
