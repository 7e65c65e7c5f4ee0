// Package main provides the modelgen command-line tool.
package main

import (
	"os"

	"github.com/leapstack-labs/modelgen/internal/cli"

	// Load .env into the process environment before configuration is read.
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
