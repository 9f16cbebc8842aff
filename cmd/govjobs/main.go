// Package main provides the entry point for the job alerts API server, the
// push fan-out worker and the device runtime simulator.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "govjobs",
	Short: "Government job alerts backend",
	Long:  "govjobs serves the admin panel and public job catalog, fans out job alerts to push topics, and runs the device-side alert runtime for testing.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
