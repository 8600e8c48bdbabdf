package main

import (
	"fmt"

	"github.com/opensdd/youtrack-core/core/entity"
	"github.com/opensdd/youtrack-core/core/resolver"
	"github.com/opensdd/youtrack-core/core/utils"
	"github.com/spf13/cobra"
)

func newIssueCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue ID...",
		Short: "Show issues with their parent and subtasks",
		Example: `youtrack issue PROJ-12
youtrack issue PROJ-12 PROJ-13 --work-items -o yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			for _, id := range args {
				if !utils.Supports(id) {
					return fmt.Errorf("%q is not an issue id, expected PROJECT-123", id)
				}
			}
			withWorkItems, _ := cmd.Flags().GetBool("work-items")
			eng, err := a.engine()
			if err != nil {
				return err
			}

			var issues []*entity.Issue
			if len(args) == 1 && !withWorkItems {
				issue, err := eng.GetIssue(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if issue != nil {
					issues = append(issues, issue)
				}
			} else {
				issues, err = eng.GetIssues(cmd.Context(), args, resolver.SearchOptions{WithWorkItems: withWorkItems})
				if err != nil {
					return err
				}
			}
			if len(issues) == 0 {
				return fmt.Errorf("no issues found for %v", args)
			}
			return writeIssues(cmd.OutOrStdout(), output, issues)
		},
	}
	cmd.Flags().Bool("work-items", false, "load logged work for time-tracked projects")
	addOutputFlag(cmd)
	return cmd
}
