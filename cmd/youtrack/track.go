package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newTrackCmd(a *app) *cobra.Command {
	var comment, workType string
	cmd := &cobra.Command{
		Use:     "track ID MINUTES",
		Short:   "Log work on an issue",
		Example: `youtrack track PROJ-12 45 --type Development --comment "code review"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid minutes %q: %w", args[1], err)
			}
			eng, err := a.engine()
			if err != nil {
				return err
			}
			if err := eng.TrackTime(cmd.Context(), args[0], minutes, comment, workType); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged %dm on %s\n", minutes, args[0])
			return err
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "work item description")
	cmd.Flags().StringVar(&workType, "type", "", "work type name")
	return cmd
}
