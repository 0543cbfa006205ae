package main

import (
	"fmt"

	"threadview/internal/config"
	"threadview/internal/middleware"

	"github.com/spf13/cobra"
)

// NewTokenCommand prints a login token for a user, signed with JWT_SECRET.
// Used by the simulator and for local testing.
func NewTokenCommand(root *RootOptions) *cobra.Command {
	var userID int

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed login token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return fmt.Errorf("--user must be a positive user id")
			}
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			auth := middleware.NewAuthenticator(cfg.JWTSecret, newLogger(cmd.ErrOrStderr(), root.Debug))
			token, err := auth.GenerateToken(userID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().IntVar(&userID, "user", 0, "user id to put in the token")
	return cmd
}
