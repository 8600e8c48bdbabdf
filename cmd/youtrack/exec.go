package main

import (
	"fmt"

	"github.com/opensdd/youtrack-core/core/resolver"
	"github.com/spf13/cobra"
)

func newExecCmd(a *app) *cobra.Command {
	var opts resolver.CommandOptions
	cmd := &cobra.Command{
		Use:     "exec ID COMMAND...",
		Short:   "Apply commands to an issue",
		Example: `youtrack exec PROJ-12 "State Fixed" "Assignee jdoe" --comment "done"`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.engine()
			if err != nil {
				return err
			}
			if err := eng.ExecuteCommands(cmd.Context(), args[0], args[1:], opts); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Applied %d command(s) to %s\n", len(args)-1, args[0])
			return err
		},
	}
	cmd.Flags().StringVar(&opts.Comment, "comment", "", "comment to add with the command")
	cmd.Flags().StringVar(&opts.Group, "group", "", "restrict the comment to this group")
	cmd.Flags().BoolVar(&opts.Silent, "silent", false, "do not send notifications")
	cmd.Flags().StringVar(&opts.RunAs, "run-as", "", "execute on behalf of this user login")
	return cmd
}
