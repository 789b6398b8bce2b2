package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/gwakdaeyun7-hub/ailon/internal/cache"
	"github.com/gwakdaeyun7-hub/ailon/internal/feed"
	"github.com/gwakdaeyun7-hub/ailon/internal/logging"
	"github.com/gwakdaeyun7-hub/ailon/internal/tui"
	"github.com/spf13/cobra"
)

func runTUI(cmd *cobra.Command, args []string) error {
	// The TUI owns the terminal, so logs go to a file.
	logger, closer, err := logging.OpenFile(flagLogLevel)
	if err != nil {
		return err
	}
	defer closer.Close()

	s, err := openSession(logger)
	if err != nil {
		return err
	}
	defer s.Close()

	start := now()
	since, err := sinceTime(flagSince, start)
	if err != nil {
		return err
	}
	startTab, err := resolveCategory(s.cfg.Categories.Order, flagCategory)
	if err != nil {
		return err
	}

	store := cache.NewReadThrough(s.db)

	if flagRefresh || s.db.NeedsRefresh(s.cfg.RefreshDuration()) {
		fmt.Fprintln(cmd.OutOrStdout(), "Fetching feeds...")
		ctx, cancel := context.WithTimeout(cmd.Context(), s.cfg.FetchTimeout()+10*time.Second)
		result, err := s.refreshFeeds(ctx, store)
		cancel()
		if err != nil {
			return err
		}
		for _, e := range result.Errors {
			fmt.Fprintf(cmd.OutOrStdout(), "  [warn] %v\n", e)
		}
	}

	fetchOpts := feed.OptionsFrom(s.cfg)
	fetchOpts.Logger = logger

	err = tui.Run(tui.RunOpts{
		Cfg:       s.cfg,
		Store:     store,
		Logger:    logger,
		FetchOpts: fetchOpts,
		Since:     since,
		StartTab:  startTab,
		Now:       now,
	})
	logger.Debug("tui closed", "store_reads", store.Reads())
	return err
}
