package cmd

import (
	"fmt"
	"time"

	"github.com/gwakdaeyun7-hub/ailon/internal/content"
	"github.com/gwakdaeyun7-hub/ailon/internal/digest"
	"github.com/gwakdaeyun7-hub/ailon/internal/personalize"
	"github.com/spf13/cobra"
)

var (
	flagForYouLimit   int
	flagForYouExplain bool
	flagForYouJSON    bool
)

type rankedJSON struct {
	digest.ItemJSON
	Affinity personalize.Breakdown `json:"affinity"`
}

var forYouCmd = &cobra.Command{
	Use:   "foryou",
	Short: "Print today's items ranked by your likes",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openCLISession()
		if err != nil {
			return err
		}
		defer s.Close()

		at := now()
		d, err := s.buildDigest(time.Time{}, at)
		if err != nil {
			return err
		}
		history, err := s.db.LikedItems()
		if err != nil {
			return fmt.Errorf("loading likes: %w", err)
		}

		ranked := s.cfg.Scorer().RankWithHistory(d.Items(), history)
		if flagForYouLimit > 0 && len(ranked) > flagForYouLimit {
			ranked = ranked[:flagForYouLimit]
		}

		out := cmd.OutOrStdout()
		if flagForYouJSON {
			docs := make([]rankedJSON, len(ranked))
			for i, r := range ranked {
				docs[i] = rankedJSON{ItemJSON: digest.ToItemJSON(r.Item), Affinity: r.Breakdown}
			}
			return writeJSON(out, docs)
		}

		if len(history) == 0 {
			fmt.Fprintln(out, "No likes yet; ranking by score. Like items with `ailon like <link>`.")
		}
		liked := personalize.NewLinkSet(content.Links(history)...)
		for i, r := range ranked {
			mark := ""
			if liked.Has(r.Link) {
				mark = " ♥"
			}
			fmt.Fprintf(out, "%3d. %6.2f  %s%s\n", i+1, r.Breakdown.Total, r.Item.Title, mark)
			if flagForYouExplain {
				b := r.Breakdown
				fmt.Fprintf(out, "     category %.2f · tags %.2f · score %.2f · %s\n",
					b.Category, b.Tag, b.Intrinsic, s.cfg.Label(r.Item.Category))
			}
		}
		return nil
	},
}

func init() {
	forYouCmd.Flags().IntVar(&flagForYouLimit, "limit", 10, "number of items to print, 0 for all")
	forYouCmd.Flags().BoolVar(&flagForYouExplain, "explain", false, "show the affinity breakdown of each item")
	forYouCmd.Flags().BoolVar(&flagForYouJSON, "json", false, "print the ranking as JSON")
}
