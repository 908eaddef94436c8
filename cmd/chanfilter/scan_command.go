package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"chanfilter/internal/client/policy"
	"chanfilter/internal/client/scanner"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Decide which channels to hide",
		Long: "Reads channels as a JSON array or newline-delimited JSON objects " +
			"({\"channel_id\":...,\"channel_name\":...}) and prints the decision for each.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeIn, err := openInput(cmd, inputPath)
			if err != nil {
				return err
			}
			defer closeIn()

			items, err := readItems(in, true)
			if err != nil {
				return err
			}

			p, err := policy.Load(ctx.config.PolicyFile)
			if err != nil {
				return err
			}
			tc, closeCache, err := ctx.openCache(cmd.Context())
			if err != nil {
				return err
			}
			defer closeCache()

			collector := &scanner.Collector{}
			sc := scanner.New(ctx.client(), tc, scanner.StaticPolicy(p), collector,
				scanner.WithLogger(ctx.logger),
			)
			report := sc.Scan(cmd.Context(), items)
			sc.Wait()

			decisions := collector.Decisions()
			sortDecisions(decisions)
			ctx.logger.Debug("scan finished",
				"items", len(items),
				"cached", report.Cached,
				"pending", report.Pending,
				"decided", len(decisions),
			)

			if ctx.useTable(cmd) {
				fmt.Fprintln(cmd.OutOrStdout(), renderDecisions(decisions))
				if undecided := report.Seen - len(decisions); undecided > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%d item(s) left visible: not resolved\n", undecided)
				}
				return nil
			}
			views := make([]decisionView, len(decisions))
			for i, d := range decisions {
				views[i] = viewOf(d)
			}
			return writeJSON(cmd, views)
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "-", "Input file, - for stdin")
	return cmd
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
