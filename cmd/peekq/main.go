package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shubhamrasal/peekq/internal/app"
)

var (
	// Version information (set by goreleaser)
	version = "dev"
	commit  = "none"
	date    = "unknown"

	opts app.Options

	peekOpts app.PeekOptions
	tailOpts app.TailOptions
)

var rootCmd = &cobra.Command{
	Use:   "peekq",
	Short: "Live message browser for NATS JetStream queues",
	Long: `Browse queues and subscriptions without consuming them: page through active and
dead-lettered messages, or live tail both as they arrive.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(opts)
	},
}

var peekCmd = &cobra.Command{
	Use:   "peek <queue | topic/subscription>",
	Short: "Print pages of messages from the oldest one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		peekOpts.Target = args[0]
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return app.RunPeek(ctx, opts, peekOpts, cmd.OutOrStdout())
	},
}

var tailCmd = &cobra.Command{
	Use:   "tail <queue | topic/subscription>",
	Short: "Print messages as they enter the live window until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tailOpts.Target = args[0]
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return app.RunTail(ctx, opts, tailOpts, cmd.OutOrStdout())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("peekq version %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.ServerURL, "server", "s", "", "NATS server URL (overrides config file)")
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "Config file path")
	flags.StringVar(&opts.Context, "context", "", "Context to use instead of default_context")
	flags.StringVar(&opts.PluginsPath, "plugins", "", "Plugins file path (default: plugins.yaml next to the config)")
	flags.StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9091")
	flags.StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.LogFile, "log-file", "", "Log file (default: ~/.config/peekq/peekq.log for the UI, stderr otherwise)")

	peekCmd.Flags().BoolVarP(&peekOpts.DeadLetter, "dead-letter", "d", false, "Peek the dead-letter sub-queue")
	peekCmd.Flags().IntVarP(&peekOpts.Pages, "pages", "n", 1, "Number of pages to print")
	peekCmd.Flags().BoolVar(&peekOpts.JSON, "json", false, "Print one JSON object per message")

	tailCmd.Flags().BoolVarP(&tailOpts.DeadLetter, "dead-letter", "d", false, "Tail the dead-letter sub-queue")
	tailCmd.Flags().BoolVar(&tailOpts.Both, "both", false, "Tail the active and dead-letter sub-queues")
	tailCmd.Flags().BoolVar(&tailOpts.JSON, "json", false, "Print one JSON object per message")
	tailCmd.MarkFlagsMutuallyExclusive("dead-letter", "both")

	rootCmd.AddCommand(peekCmd, tailCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
