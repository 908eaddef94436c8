package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"chanfilter/internal/client/cache"
	"chanfilter/internal/client/policy"
	"chanfilter/internal/client/scanner"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		batchWindow time.Duration
		batchSize   int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream decisions for channels read line by line from stdin",
		Long: "Reads newline-delimited channel objects until EOF, resolving them in small batches. " +
			"The policy file is reloaded when it changes and expired cache entries are swept on schedule.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			watcher, err := policy.NewWatcher(cfg.PolicyFile, policy.WithWatcherLogger(ctx.logger))
			if err != nil {
				return err
			}
			tc, closeCache, err := ctx.openCache(cmd.Context())
			if err != nil {
				return err
			}
			defer closeCache()

			sweeper, err := cache.NewSweeper(tc, cfg.SweepSchedule, ctx.logger)
			if err != nil {
				return err
			}

			sc := scanner.New(ctx.client(), tc, watcher, newStreamApplier(cmd.OutOrStdout()),
				scanner.WithSeenSet(scanner.NewSeenSet(cfg.SeenMax, cfg.SeenTTL)),
				scanner.WithLogger(ctx.logger),
			)

			runCtx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			g, gctx := errgroup.WithContext(runCtx)
			g.Go(func() error { return watcher.Run(gctx) })
			g.Go(func() error { return sweeper.Run(gctx) })
			g.Go(func() error {
				defer cancel()
				streamBatches(gctx, cmd.InOrStdin(), sc, batchWindow, batchSize, ctx.logger)
				sc.Wait()
				return nil
			})
			return g.Wait()
		},
	}
	cmd.Flags().DurationVar(&batchWindow, "batch-window", 250*time.Millisecond, "How long to collect lines before resolving them")
	cmd.Flags().IntVar(&batchSize, "batch-size", 100, "Resolve as soon as this many lines are collected")
	return cmd
}

// streamBatches feeds lines from r to the scanner, grouping them by time
// window and size, until r is exhausted or ctx is cancelled.
func streamBatches(ctx context.Context, r io.Reader, sc *scanner.Scanner, window time.Duration, size int, logger *slog.Logger) {
	if size < 1 {
		size = 1
	}
	lines := make(chan []byte)
	go func() {
		defer close(lines)
		s := bufio.NewScanner(r)
		s.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for s.Scan() {
			line := bytes.TrimSpace(s.Bytes())
			if len(line) == 0 {
				continue
			}
			select {
			case lines <- bytes.Clone(line):
			case <-ctx.Done():
				return
			}
		}
		if err := s.Err(); err != nil {
			logger.Warn("stopped reading input", "error", err)
		}
	}()

	ticker := time.NewTicker(window)
	defer ticker.Stop()

	var batch []scanner.Item
	flush := func() {
		if len(batch) == 0 {
			return
		}
		sc.Scan(ctx, batch)
		batch = nil
	}
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				flush()
				return
			}
			it, err := parseLine(line)
			if err != nil {
				logger.Warn("skipping malformed line", "error", err)
				continue
			}
			batch = append(batch, it)
			if len(batch) >= size {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// streamApplier writes each decision as one JSON line.
type streamApplier struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newStreamApplier(w io.Writer) *streamApplier {
	return &streamApplier{enc: json.NewEncoder(w)}
}

func (a *streamApplier) Apply(ctx context.Context, d scanner.Decision) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.enc.Encode(viewOf(d)); err != nil {
		slog.WarnContext(ctx, "failed to write decision", "error", err)
	}
}
