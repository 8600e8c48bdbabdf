package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUserCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "user EMAIL",
		Short: "Print the login of the user with the given email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.engine()
			if err != nil {
				return err
			}
			login, err := eng.FindUserName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if login == "" {
				return fmt.Errorf("no user with email %s", args[0])
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), login)
			return err
		},
	}
}
