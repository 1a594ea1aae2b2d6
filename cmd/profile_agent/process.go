package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devfolio/profile-agent/internal/config"
	"github.com/devfolio/profile-agent/internal/logger"
	"github.com/devfolio/profile-agent/internal/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process <username>",
	Short: "Run the profile pipeline for one subject",
	Long:  `Run the fetch, filter and translate stages for the given username and print the result envelope.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.FromEnv("profile-agent"))

	p := pipeline.New(cfg, log)
	res, err := p.Process(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
