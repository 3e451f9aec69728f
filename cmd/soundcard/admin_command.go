package main

import (
	"fmt"
	"strings"

	"github.com/exact3design/soundcard/internal/app"
	"github.com/exact3design/soundcard/internal/config"
	"github.com/spf13/cobra"
)

func newAdminCommand(appCfg func() config.AppConfig) *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Operator account utilities",
	}
	adminCmd.AddCommand(newAdminCreateCommand(appCfg))
	return adminCmd
}

func newAdminCreateCommand(appCfg func() config.AppConfig) *cobra.Command {
	var params app.CreateAdminParams

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an operator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(params.Username) == "" {
				return fmt.Errorf("--username is required")
			}
			res, err := app.CreateAdmin(cmd.Context(), appCfg(), params)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created admin %s (id %d)\n", res.Username, res.ID)
			if res.TOTPURL != "" {
				fmt.Fprintf(out, "TOTP secret: %s\n", res.TOTPSecret)
				fmt.Fprintf(out, "TOTP URL:    %s\n", res.TOTPURL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&params.Username, "username", "", "Login name")
	cmd.Flags().StringVar(&params.Password, "password", "", "Password (min 8 characters)")
	cmd.Flags().BoolVar(&params.TOTP, "totp", false, "Enrol TOTP and require it at login")
	return cmd
}
