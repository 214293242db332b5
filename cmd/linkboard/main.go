package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pders01/linkboard/internal/render"
)

// Version is the version of the application, set at build time
var Version = "dev"

type globalOptions struct {
	configPath string
	quiet      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, render.Error(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "linkboard",
		Short: "Share and favorite links on a story board",
		Long: `linkboard is a command-line client for a story board API.

Browse the latest stories, submit links, keep favorites and import
entries from RSS or Atom feeds.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.quiet {
				fmt.Fprintln(cmd.OutOrStdout(), render.Banner(Version))
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return runStories(cmd, opts, false, false)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "Skip banner and status messages")

	rootCmd.AddCommand(
		newVersionCmd(),
		newGenerateConfigCmd(opts),
		newStoriesCmd(opts),
		newSearchCmd(opts),
		newSubmitCmd(opts),
		newDeleteCmd(opts),
		newFavoriteCmd(opts, true),
		newFavoriteCmd(opts, false),
		newToggleCmd(opts),
		newOpenCmd(opts),
		newSignupCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newImportCmd(opts),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "linkboard %s\n", Version)
			fmt.Fprintln(out, "Story board client")
			fmt.Fprintln(out, "github.com/pders01/linkboard")
		},
	}
}
