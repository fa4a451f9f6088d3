package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"newgenmusic/auth"
	"newgenmusic/config"
	"newgenmusic/storage/backend"

	"github.com/spf13/cobra"
)

func newCreateAdminCmd() *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account, or reset an existing account to admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return errors.New("--email and --password are required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			repos, err := backend.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer repos.Close(context.Background())

			svc := auth.NewService(repos.Users, cfg.JWTSecret, cfg.JWTTTL)
			user, created, err := svc.CreateAdmin(ctx, username, email, password)
			if err != nil {
				return err
			}

			verb := "Updated"
			if created {
				verb = "Created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s admin %s <%s> (%s)\n", verb, user.Username, user.Email, user.ID.Hex())
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "display name (defaults to the email's local part)")
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	return cmd
}
