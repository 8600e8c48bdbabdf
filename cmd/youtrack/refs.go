package main

import (
	"fmt"
	"strings"

	"github.com/opensdd/youtrack-core/core/resolver"
	"github.com/opensdd/youtrack-core/core/utils"
	"github.com/spf13/cobra"
)

func newRefsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refs TEXT...",
		Short: "List the #ID issue mentions in text",
		Example: `youtrack refs "fixes #PROJ-12, see #PROJ-7"
git log -1 --format=%B | xargs -0 youtrack refs --resolve`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := utils.FindIDs(strings.Join(args, " "))
			resolve, _ := cmd.Flags().GetBool("resolve")
			if !resolve {
				for _, id := range ids {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), id); err != nil {
						return err
					}
				}
				return nil
			}

			output, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			eng, err := a.engine()
			if err != nil {
				return err
			}
			issues, err := eng.GetIssues(cmd.Context(), ids, resolver.SearchOptions{})
			if err != nil {
				return err
			}
			return writeIssues(cmd.OutOrStdout(), output, issues)
		},
	}
	cmd.Flags().Bool("resolve", false, "fetch the mentioned issues")
	addOutputFlag(cmd)
	return cmd
}
