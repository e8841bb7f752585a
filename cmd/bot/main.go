// Command bot is the insta-auto CLI: scan configured reels for comments and
// DM eligible commenters, once or on a continuous schedule.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "insta-auto",
		Short:         "Comment-to-DM automation for Instagram reels",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.json", "path to config file (JSON or YAML)")

	root.AddCommand(newRunCmd(&cfgPath))
	root.AddCommand(newStatsCmd(&cfgPath))
	return root
}
