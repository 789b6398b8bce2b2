package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gwakdaeyun7-hub/ailon/internal/content"
	"github.com/gwakdaeyun7-hub/ailon/internal/digest"
	"github.com/gwakdaeyun7-hub/ailon/internal/disclosure"
	"github.com/gwakdaeyun7-hub/ailon/internal/ordering"
	"github.com/spf13/cobra"
)

var (
	flagDigestJSON     bool
	flagDigestLevel    string
	flagDigestCategory string
	flagDigestSince    string
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Print today's digest",
	Long: `Print highlights, each category and the source sections from the cached items.

Categories are collapsed to their first items; --level full shows whole
categories and --level overflow adds the AI-filtered items after them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := disclosure.ParseLevel(flagDigestLevel)
		if err != nil {
			return err
		}

		s, err := openCLISession()
		if err != nil {
			return err
		}
		defer s.Close()

		at := now()
		since, err := sinceTime(flagDigestSince, at)
		if err != nil {
			return err
		}
		d, err := s.buildDigest(since, at)
		if err != nil {
			return err
		}
		clock, err := s.cfg.Clock(at)
		if err != nil {
			return err
		}

		category, err := resolveCategory(s.cfg.Categories.Order, flagDigestCategory)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if category != "" {
			ctrl := disclosure.New(d.Categories, s.cfg.DisclosureSize())
			if err := ctrl.Select(category); err != nil {
				return err
			}
			if err := ctrl.SetLevel(level); err != nil {
				return err
			}
			if flagDigestJSON {
				return writeJSON(out, digest.ItemsJSON(ctrl.Visible()))
			}
			printBucket(out, s.cfg.Label(category), ctrl, clock)
			return nil
		}

		if flagDigestJSON {
			return writeJSON(out, d)
		}

		h := d.Header
		fmt.Fprintf(out, "%s · %s · %d picks\n", h.Greeting, h.DateLabel, h.Selected)
		if h.ActiveSources != "" {
			fmt.Fprintf(out, "from %s\n", h.ActiveSources)
		}
		if len(h.Themes) > 0 {
			fmt.Fprintf(out, "trending: %s\n", strings.Join(h.Themes, ", "))
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, "Highlights")
		printItems(out, d.Highlights, clock)

		ctrl := disclosure.New(d.Categories, s.cfg.DisclosureSize())
		for _, key := range d.Categories.NonEmpty() {
			if err := ctrl.Select(key); err != nil {
				return err
			}
			if err := ctrl.SetLevel(level); err != nil {
				return err
			}
			fmt.Fprintln(out)
			printBucket(out, s.cfg.Label(key), ctrl, clock)
		}

		for _, key := range d.Sections.NonEmpty() {
			fmt.Fprintln(out)
			fmt.Fprintln(out, s.cfg.SourceName(key))
			printItems(out, d.Sections.Buckets[key], clock)
		}
		return nil
	},
}

func init() {
	digestCmd.Flags().BoolVar(&flagDigestJSON, "json", false, "print the digest as JSON")
	digestCmd.Flags().StringVar(&flagDigestLevel, "level", "collapsed", "category disclosure: collapsed, full or overflow")
	digestCmd.Flags().StringVar(&flagDigestCategory, "category", "", "print only this category (key or alias)")
	digestCmd.Flags().StringVar(&flagDigestSince, "since", "", "only use items from the last duration (e.g., 3d)")
}

func printBucket(w io.Writer, label string, ctrl *disclosure.Controller, clock ordering.DayClock) {
	visible := ctrl.Visible()
	fmt.Fprintf(w, "%s (%d)\n", label, len(visible))
	printItems(w, visible, clock)
	if n := ctrl.Remaining(); n > 0 {
		fmt.Fprintf(w, "   + %d more\n", n)
	}
}

func printItems(w io.Writer, items []content.Item, clock ordering.DayClock) {
	for i, it := range items {
		mark := ""
		if it.AIFiltered {
			mark = " [filtered]"
		}
		fmt.Fprintf(w, "%3d. %s%s\n", i+1, it.Title, mark)
		fmt.Fprintf(w, "     %s · %s · %s\n", it.Source, publishedLabel(it, clock), it.Link)
	}
}

func publishedLabel(it content.Item, clock ordering.DayClock) string {
	if it.Published.IsZero() {
		return "undated"
	}
	return clock.Local(it.Published).Format("Jan 2 15:04")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
