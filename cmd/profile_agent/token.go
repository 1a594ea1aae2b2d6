package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devfolio/profile-agent/internal/config"
	"github.com/devfolio/profile-agent/internal/db"
	"github.com/devfolio/profile-agent/internal/server"
)

var (
	tokenUsername  string
	tokenGitHubID  int64
	tokenName      string
	tokenEmail     string
	tokenAvatarURL string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for local development",
	Long: `Mint a signed bearer token for the given username and record the
identity verification in the store, standing in for the hosted OAuth
exchange during local development.`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUsername, "username", "", "Subject username (required)")
	tokenCmd.Flags().Int64Var(&tokenGitHubID, "github-id", 0, "External identity id; when set, the identity record is upserted")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "Display name for the identity record")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Email for the identity record")
	tokenCmd.Flags().StringVar(&tokenAvatarURL, "avatar-url", "", "Avatar URL for the identity record")
	_ = tokenCmd.MarkFlagRequired("username")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return err
	}

	token, err := server.NewJWTService(jwtConfig).GenerateToken(tokenUsername)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	if tokenGitHubID != 0 {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		database, err := db.Connect(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to connect to database, identity record not updated: %v\n", err)
		} else {
			defer database.Close()
			if _, err := database.UpsertUser(cmd.Context(), tokenGitHubID, tokenUsername, tokenName, tokenEmail, tokenAvatarURL); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to upsert identity record: %v\n", err)
			}
		}
	}

	fmt.Println(token)
	return nil
}
