package cmd

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/gwakdaeyun7-hub/ailon/internal/classify"
	"github.com/gwakdaeyun7-hub/ailon/internal/update"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig   string
	flagDB       string
	flagLogLevel string

	flagSince    string
	flagRefresh  bool
	flagCategory string
)

// now is the clock every command reads; tests pin it.
var now = time.Now

var rootCmd = &cobra.Command{
	Use:          "ailon",
	Short:        "AI news digest for the terminal",
	Long:         "ailon collects AI news from RSS feeds and arranges it into a daily digest of highlights, categories and a personalized For You list.",
	SilenceUsage: true,
	RunE:         runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "path to the cache database")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.Flags().StringVar(&flagSince, "since", "", "only show items from the last duration (e.g., 7d, 24h)")
	rootCmd.Flags().BoolVar(&flagRefresh, "refresh", false, "force refresh feeds before launching")
	rootCmd.Flags().StringVar(&flagCategory, "category", "", "category key or alias (research, products, industry) to open on")

	versionCmd.Flags().BoolVar(&flagVersionCheck, "check", false, "check for a newer release")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(forYouCmd)
	rootCmd.AddCommand(likeCmd)
	rootCmd.AddCommand(unlikeCmd)
	rootCmd.AddCommand(likesCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(statsCmd)
}

var (
	flagVersionCheck bool
	// releaseURL is the endpoint `version --check` asks; tests point it at a
	// local server.
	releaseURL = update.DefaultURL
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ailon %s (commit: %s, built: %s)\n", version, commit, date)
		if !flagVersionCheck {
			return nil
		}
		res, err := update.Checker{URL: releaseURL}.Check(cmd.Context(), version)
		if err != nil {
			return err
		}
		if res.Newer() {
			fmt.Fprintf(out, "A newer version is available: %s\n", res.LatestVersion)
		} else {
			fmt.Fprintln(out, "You are on the latest version.")
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// parseSince accepts time.ParseDuration values plus a whole-day "Nd" form.
func parseSince(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}

// sinceTime resolves a --since value against now. Empty means no bound.
func sinceTime(s string, at time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := parseSince(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since value: %w", err)
	}
	return at.Add(-d), nil
}

// resolveCategory accepts a configured category key or a short alias such as
// "research". Empty stays empty.
func resolveCategory(order []string, s string) (string, error) {
	if s == "" || slices.Contains(order, s) {
		return s, nil
	}
	cat, err := classify.ResolveAlias(s)
	if err != nil {
		return "", err
	}
	if !slices.Contains(order, string(cat)) {
		return "", fmt.Errorf("category %q is not in categories.order", cat)
	}
	return string(cat), nil
}
