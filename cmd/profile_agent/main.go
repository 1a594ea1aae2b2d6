// Package main provides the entry point for the profile agent.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "profile_agent",
	Short: "Developer profile pipeline server",
	Long:  "Profile agent builds normalized developer profiles from public code-hosting data via a fetch/filter/translate pipeline and serves them over a REST API.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
