package system

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pitchside/pitchside_backend/config"
	pasetotoken "github.com/pitchside/pitchside_backend/pkg/paseto"
)

// NewTokenCommand mints an access token with the configured keys. Tokens are
// normally issued by the identity service; this is for local development.
func NewTokenCommand() *cobra.Command {
	var (
		userID string
		email  string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development access token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
			if cfg.Server.Environment == "production" {
				return fmt.Errorf("refusing to issue tokens in production")
			}

			uid, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}

			mgr, err := pasetotoken.NewPasetoManager(cfg)
			if err != nil {
				return fmt.Errorf("failed to load paseto keys: %w", err)
			}
			tok, err := mgr.IssueAccess(uid, email, nil)
			if err != nil {
				return fmt.Errorf("failed to issue token: %w", err)
			}

			fmt.Println(tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID to issue the token for")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
