package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"chanfilter/internal/client/cache"
	"chanfilter/internal/client/scanner"
	"chanfilter/internal/platform/config"
	platformredis "chanfilter/internal/platform/redis"
	"chanfilter/pkg/platform/circuit"
)

const memoryCachePath = ":memory:"

type rootFlags struct {
	server   string
	policy   string
	cacheDB  string
	redisURL string
	verbose  bool
	json     bool
}

type commandContext struct {
	flags  *rootFlags
	logger *slog.Logger

	breakerOnce sync.Once
	breaker     *circuit.Breaker

	configOnce sync.Once
	config     config.Client
	configErr  error
}

func newCommandContext(flags *rootFlags) *commandContext {
	return &commandContext{flags: flags, logger: slog.Default()}
}

// ensureConfig reads the environment once and applies flag overrides.
func (c *commandContext) ensureConfig() (config.Client, error) {
	c.configOnce.Do(func() {
		cfg, err := config.ClientFromEnv()
		if err != nil {
			c.configErr = err
			return
		}
		if v := strings.TrimSpace(c.flags.server); v != "" {
			cfg.ServerURL = v
		}
		if v := strings.TrimSpace(c.flags.policy); v != "" {
			cfg.PolicyFile = v
		}
		if v := strings.TrimSpace(c.flags.cacheDB); v != "" {
			cfg.CachePath = v
		}
		if v := strings.TrimSpace(c.flags.redisURL); v != "" {
			cfg.Redis.URL = v
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) client() *scanner.Client {
	c.breakerOnce.Do(func() {
		c.breaker = circuit.New("catalog",
			circuit.WithFailureThreshold(3),
			circuit.WithCooldown(30*time.Second),
		)
	})
	return scanner.NewClient(c.config.ServerURL,
		scanner.WithTimeout(c.config.RequestTimeout),
		scanner.WithClientLogger(c.logger),
		scanner.WithBreaker(c.breaker),
	)
}

// openCache builds the decision cache on the configured sink. The returned
// function releases the sink and any client behind it.
func (c *commandContext) openCache(ctx context.Context) (*cache.TTLCache, func(), error) {
	cfg := c.config
	var (
		sink    cache.Sink
		release = func() {}
	)
	switch {
	case cfg.Redis.URL != "":
		rc, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connect cache redis: %w", err)
		}
		sink = cache.NewRedisSink(rc.Client, cache.WithRedisTTL(cfg.CacheTTL))
		release = func() { _ = rc.Close() }
	case cfg.CachePath == "" || cfg.CachePath == memoryCachePath:
		sink = cache.NewMemorySink()
	default:
		s, err := cache.OpenSQLite(ctx, cfg.CachePath)
		if err != nil {
			return nil, nil, err
		}
		sink = s
	}

	tc, err := cache.New(ctx, sink, cache.WithTTL(cfg.CacheTTL), cache.WithLogger(c.logger))
	if err != nil {
		_ = sink.Close()
		release()
		return nil, nil, err
	}
	return tc, func() {
		_ = tc.Close()
		release()
	}, nil
}
