package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hongminglow/portfolio-be/internal/accounts"
	"github.com/hongminglow/portfolio-be/internal/config"
	"github.com/hongminglow/portfolio-be/internal/server"
)

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Account maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set-password <username>",
		Short: "Set a user's password and end its session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.StorageDriver == config.DriverMemory {
				return errors.New("set-password needs a persistent STORAGE_DRIVER")
			}
			log := newLogger(cfg.LogLevel)

			fmt.Fprint(cmd.OutOrStdout(), "New password: ")
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			password := strings.TrimRight(string(raw), "\r\n")

			store, _, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			svc := server.NewServices(cfg, store, log, nil)
			if strings.EqualFold(args[0], accounts.AdminUsername) {
				err = svc.Accounts.EnsureAdmin(cmd.Context(), password)
			} else {
				_, err = svc.Accounts.Edit(cmd.Context(), accounts.EditInput{Username: args[0], Password: password})
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", args[0])
			return nil
		},
	})
	return cmd
}
