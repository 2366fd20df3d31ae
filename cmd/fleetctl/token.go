package main

import (
	"fmt"
	"strconv"

	"fleets-server/internal/auth"
	"fleets-server/internal/models"
	"fleets-server/internal/store"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a session token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}

			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			st, db, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			var u *models.User
			err = st.InTx(ctx, func(tx store.Tx) error {
				u, err = tx.Users().FindByID(ctx, userID)
				return err
			})
			if err != nil {
				return err
			}

			token, err := auth.NewService(cfg.Auth, log).IssueToken(u)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}
