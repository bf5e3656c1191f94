package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig   string
	flagApp      string
	flagFeeds    []string
	flagHeadless bool
	flagInterval string
)

var rootCmd = &cobra.Command{
	Use:   "scrollguard",
	Short: "Real-time distraction filter for scrolling feeds",
	Long: `scrollguard watches a scrolling feed, classifies each piece of content as
productive or unproductive, and masks the unproductive items with overlays
before you read them.`,
	RunE: runWatch,
}

func init() {
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.Flags().StringVar(&flagApp, "app", "com.example.feed", "simulated app identifier")
	rootCmd.Flags().StringSliceVar(&flagFeeds, "feed", nil, "RSS feed URL to browse (repeatable); omit for the built-in demo feed")
	rootCmd.Flags().BoolVar(&flagHeadless, "headless", false, "print verdicts to stdout instead of launching the monitor")
	rootCmd.Flags().StringVar(&flagInterval, "interval", "800ms", "simulated scroll interval")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(statsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("scrollguard %s (commit: %s, built: %s)\n", version, commit, date)
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
