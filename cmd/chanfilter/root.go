package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"chanfilter/internal/platform/logger"
)

func newRootCommand() *cobra.Command {
	var flags rootFlags
	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:           "chanfilter",
		Short:         "Filter channels by category against a chanfilter catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			level := cfg.Log.Level
			if flags.verbose {
				level = "debug"
			}
			ctx.logger = logger.NewWithWriter(cmd.ErrOrStderr(), level, cfg.Log.Format)
			slog.SetDefault(ctx.logger)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.server, "server", "", "Catalog server base URL")
	pf.StringVar(&flags.policy, "policy", "", "Policy YAML file")
	pf.StringVar(&flags.cacheDB, "cache-db", "", "SQLite cache file, or :memory: to disable persistence")
	pf.StringVar(&flags.redisURL, "redis-url", "", "Keep the decision cache in Redis instead of SQLite")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVar(&flags.json, "json", false, "Write JSON even when stdout is a terminal")

	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newRecordCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))
	rootCmd.AddCommand(newPolicyCommand(ctx))

	return rootCmd
}
