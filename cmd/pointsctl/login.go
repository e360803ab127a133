package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baharkarakas/loyalty-admin/internal/config"
)

func newLoginCommand(opts *rootOptions) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the access token in the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readSecret(cmd, "password: ")
			if err != nil {
				return err
			}
			tok, err := opts.client().Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			p := opts.profile
			p.Token = tok.AccessToken
			if err := config.SaveConsole(opts.ConfigPath, p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in, token valid for %ds, saved to %s\n", tok.ExpiresIn, opts.ConfigPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
