package cmd

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch all enabled feeds into the local cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openCLISession()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), s.cfg.FetchTimeout()+10*time.Second)
		defer cancel()

		result, err := s.refreshFeeds(ctx, s.db)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		keys := make([]string, 0, len(result.PerSource))
		for k := range result.PerSource {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "  %-20s %d\n", s.cfg.SourceName(k), result.PerSource[k])
		}
		fmt.Fprintf(out, "Fetched %d item(s) from %d source(s), %d failed.\n",
			len(result.Items), len(result.PerSource), len(result.Errors))
		return nil
	},
}
