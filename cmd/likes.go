package cmd

import (
	"errors"
	"fmt"

	"github.com/gwakdaeyun7-hub/ailon/internal/browser"
	"github.com/gwakdaeyun7-hub/ailon/internal/cache"
	"github.com/spf13/cobra"
)

var likeCmd = &cobra.Command{
	Use:   "like <link>",
	Short: "Like an item so For You favors similar ones",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		link := args[0]
		if err := browser.Validate(link); err != nil {
			return err
		}

		s, err := openCLISession()
		if err != nil {
			return err
		}
		defer s.Close()

		cached, err := s.db.GetItemsByLinks([]string{link})
		if err != nil {
			return err
		}
		if len(cached) == 0 {
			s.logger.Warn("link is not cached yet; it will count once fetched", "link", link)
		}

		if err := s.db.Like(link); err != nil {
			return fmt.Errorf("liking: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Liked %s\n", link)
		return nil
	},
}

var unlikeCmd = &cobra.Command{
	Use:   "unlike <link>",
	Short: "Remove a like",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openCLISession()
		if err != nil {
			return err
		}
		defer s.Close()

		err = s.db.Unlike(args[0])
		if errors.Is(err, cache.ErrNotLiked) {
			return fmt.Errorf("%s was not liked", args[0])
		}
		if err != nil {
			return fmt.Errorf("unliking: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Unliked %s\n", args[0])
		return nil
	},
}

var likesCmd = &cobra.Command{
	Use:   "likes",
	Short: "List liked items, newest like first",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openCLISession()
		if err != nil {
			return err
		}
		defer s.Close()

		items, err := s.db.LikedItems()
		if err != nil {
			return fmt.Errorf("loading likes: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(out, "No likes yet.")
			return nil
		}
		clock, err := s.cfg.Clock(now())
		if err != nil {
			return err
		}
		printItems(out, items, clock)
		return nil
	},
}
