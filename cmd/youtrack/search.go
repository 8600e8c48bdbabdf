package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/opensdd/youtrack-core/core/resolver"
	"github.com/opensdd/youtrack-core/core/utils"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const dateLayout = "2006-01-02"

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("project", nil, "restrict to these project short names")
	cmd.Flags().String("created-after", "", "created on or after this date (YYYY-MM-DD)")
	cmd.Flags().String("created-before", "", "created on or before this date (YYYY-MM-DD)")
	cmd.Flags().String("updated-after", "", "updated on or after this date (YYYY-MM-DD)")
	cmd.Flags().String("updated-before", "", "updated on or before this date (YYYY-MM-DD)")
}

// filterFromFlags combines the filter flags with a free-text query.
func filterFromFlags(cmd *cobra.Command, query []string) (string, error) {
	f := utils.Filter{Query: strings.Join(query, " ")}
	f.Projects, _ = cmd.Flags().GetStringSlice("project")

	dates := []struct {
		flag string
		dst  **timestamppb.Timestamp
	}{
		{"created-after", &f.CreatedFrom},
		{"created-before", &f.CreatedTo},
		{"updated-after", &f.UpdatedFrom},
		{"updated-before", &f.UpdatedTo},
	}
	for _, d := range dates {
		v, _ := cmd.Flags().GetString(d.flag)
		if v == "" {
			continue
		}
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return "", fmt.Errorf("invalid --%s: %w", d.flag, err)
		}
		*d.dst = timestamppb.New(t)
	}

	filter := utils.BuildFilter(f)
	if filter == "" {
		return "", fmt.Errorf("a query or at least one filter flag is required")
	}
	return filter, nil
}

func newSearchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [QUERY...]",
		Short: "Search issues with a YouTrack query",
		Example: `youtrack search State: Open
youtrack search --project PROJ --updated-after 2025-01-01 -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			filter, err := filterFromFlags(cmd, args)
			if err != nil {
				return err
			}
			eng, err := a.engine()
			if err != nil {
				return err
			}
			opts := resolver.SearchOptions{Max: a.cfg.PageSize}
			if cmd.Flags().Changed("max") {
				opts.Max, _ = cmd.Flags().GetInt("max")
			}
			opts.After, _ = cmd.Flags().GetString("after")
			opts.WithWorkItems, _ = cmd.Flags().GetBool("work-items")

			issues, err := eng.SearchIssues(cmd.Context(), filter, opts)
			if err != nil {
				return err
			}
			return writeIssues(cmd.OutOrStdout(), output, issues)
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().Int("max", 0, "maximum number of issues (defaults to page_size from the config)")
	cmd.Flags().String("after", "", "number of issues to skip")
	cmd.Flags().Bool("work-items", false, "load logged work for time-tracked projects")
	addOutputFlag(cmd)
	return cmd
}
