package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/opensdd/youtrack-core/core"
	"github.com/opensdd/youtrack-core/core/resolver"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export DIR [QUERY...]",
		Short: "Write every matching issue and its hierarchy to DIR as YAML",
		Long: `export pages through the search results and writes one file per issue to
DIR/<project>/<id>.yaml. Parents and subtasks reached from the results are
written as well.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			filter, err := filterFromFlags(cmd, args[1:])
			if err != nil {
				return err
			}
			eng, err := a.engine()
			if err != nil {
				return err
			}
			withWorkItems, _ := cmd.Flags().GetBool("work-items")
			pageSize := a.cfg.PageSize
			if pageSize <= 0 {
				pageSize = 100
			}

			log := slog.With("op", "export")
			matched := 0
			for page := 0; ; page++ {
				opts := resolver.SearchOptions{
					Max:           pageSize,
					After:         strconv.Itoa(page * pageSize),
					WithWorkItems: withWorkItems,
				}
				issues, err := eng.SearchIssues(cmd.Context(), filter, opts)
				if err != nil {
					return err
				}
				matched += len(issues)
				log.Debug("Fetched page", "page", page, "count", len(issues))
				if len(issues) < pageSize {
					break
				}
			}

			all := eng.Store().Issues()
			if err := core.PersistIssues(cmd.Context(), dir, all); err != nil {
				return fmt.Errorf("failed to export issues: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d issues (%d matched) to %s\n", len(all), matched, dir)
			return err
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().Bool("work-items", false, "include logged work for time-tracked projects")
	return cmd
}
