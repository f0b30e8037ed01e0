package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/wboard/connector"
	"github.com/wboard/connector/kv"
)

var errNoSharedStore = errors.New("this command needs redis.addr: an in-memory store is not shared with the server")

type backend struct {
	engine  *connector.Engine
	tenancy *connector.StaticTenancy
	store   kv.Store
	client  redis.UniversalClient
	closers []io.Closer
}

func (b *backend) Close() {
	if b.engine != nil {
		b.engine.Close()
	}
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i].Close()
	}
}

type miniredisCloser struct{ mr *miniredis.Miniredis }

func (c miniredisCloser) Close() error {
	c.mr.Close()
	return nil
}

// openBackend builds the engine over the configured store. Without a
// redis address and with requireShared false, the engine keeps its state in
// process memory.
func openBackend(cfg fileConfig, logger logrus.FieldLogger, requireShared bool) (*backend, error) {
	b := &backend{}

	addr := cfg.Redis.Addr
	if cfg.Redis.Embedded {
		if requireShared {
			return nil, errNoSharedStore
		}
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start embedded redis: %w", err)
		}
		b.closers = append(b.closers, miniredisCloser{mr: mr})
		addr = mr.Addr()
		logger.WithField("addr", addr).Warn("using embedded redis; state is lost on exit")
	}
	if addr == "" && requireShared {
		return nil, errNoSharedStore
	}

	tenancy, err := cfg.tenancy()
	if err != nil {
		b.Close()
		return nil, err
	}
	b.tenancy = tenancy

	builder := connector.New().
		WithConfig(cfg.engineConfig()).
		WithTenancy(tenancy).
		WithLogger(logger)

	if addr != "" {
		b.client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, b.client)
		b.store = kv.NewRedisStore(b.client)
	} else {
		mem := kv.NewMemoryStore()
		b.closers = append(b.closers, mem)
		b.store = mem
		logger.Warn("no redis configured; rate limits and tokens live in process memory")
	}
	builder = builder.WithStore(b.store)

	if cfg.Audit.Enabled {
		builder = builder.WithAuditSink(connector.NewLogrusSink(logger))
		for site, path := range cfg.Audit.SiteFiles {
			f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
			if err != nil {
				b.Close()
				return nil, fmt.Errorf("open audit file for site %s: %w", site, err)
			}
			b.closers = append(b.closers, f)
			builder = builder.WithSiteAuditSink(site, connector.NewJSONWriterSink(f))
		}
	}

	engine, err := builder.Build()
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("build engine: %w", err)
	}
	b.engine = engine
	return b, nil
}
