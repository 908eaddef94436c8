package main

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the decision cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheSweepCommand(ctx))

	return cacheCmd
}

type cacheStats struct {
	Backend  string    `json:"backend"`
	Location string    `json:"location,omitempty"`
	TTL      string    `json:"ttl"`
	Live     int       `json:"live_entries"`
	Held     int       `json:"held_entries"`
	Oldest   time.Time `json:"oldest,omitempty"`
	Newest   time.Time `json:"newest,omitempty"`
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show decision cache usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, closeCache, err := ctx.openCache(cmd.Context())
			if err != nil {
				return err
			}
			defer closeCache()

			entries := tc.Entries()
			sort.Slice(entries, func(i, j int) bool { return entries[i].RecordedAt.Before(entries[j].RecordedAt) })

			stats := cacheStats{
				TTL:  tc.TTL().String(),
				Live: len(entries),
				Held: tc.Len(),
			}
			stats.Backend, stats.Location = ctx.cacheBackend()
			if len(entries) > 0 {
				stats.Oldest = entries[0].RecordedAt
				stats.Newest = entries[len(entries)-1].RecordedAt
			}

			if !ctx.useTable(cmd) {
				return writeJSON(cmd, stats)
			}
			const stampLayout = "2006-01-02 15:04"
			rows := [][2]string{
				{"Backend", stats.Backend},
				{"Location", stats.Location},
				{"TTL", stats.TTL},
				{"Live entries", strconv.Itoa(stats.Live)},
				{"Held entries", strconv.Itoa(stats.Held)},
			}
			if stats.Live > 0 {
				rows = append(rows,
					[2]string{"Oldest", stats.Oldest.Local().Format(stampLayout)},
					[2]string{"Newest", stats.Newest.Local().Format(stampLayout)},
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues(rows))
			return nil
		},
	}
}

func newCacheSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired entries from the decision cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, closeCache, err := ctx.openCache(cmd.Context())
			if err != nil {
				return err
			}
			defer closeCache()

			removed, err := tc.SweepExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entr%s\n", removed, pluralY(removed))
			return nil
		},
	}
}

func (c *commandContext) cacheBackend() (string, string) {
	switch {
	case c.config.Redis.URL != "":
		return "redis", ""
	case c.config.CachePath == "" || c.config.CachePath == memoryCachePath:
		return "memory", ""
	default:
		return "sqlite", c.config.CachePath
	}
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
