package main

import (
	"context"

	"github.com/spf13/cobra"
)

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resetpassword USERNAME|EMAIL",
		Short: "Reset a user's password. The password is prompted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			pwd, err := cli.promptPassword("Enter password")
			if err != nil {
				return err
			}
			return cli.resetPassword(context.Background(), args[0], pwd)
		},
	}
}

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd string) error {
	usr, err := cli.svcs.Users.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	_, err = cli.svcs.Users.SetPassword(ctx, usr, pwd)
	return err
}
