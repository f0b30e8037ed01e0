package connector

import (
	"errors"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/wboard/connector/internal/audit"
	"github.com/wboard/connector/internal/clientip"
	"github.com/wboard/connector/internal/rate"
	"github.com/wboard/connector/internal/stores"
	"github.com/wboard/connector/kv"
)

// Builder assembles an [Engine]. A Builder is single-use.
type Builder struct {
	config Config
	store  kv.Store
	redis  redis.UniversalClient

	tenancy    Tenancy
	auditSink  AuditSink
	siteAudits map[string]AuditSink
	logger    logrus.FieldLogger
	now       func() time.Time

	built bool
}

// New returns a builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the state backend. The caller keeps ownership of store.
func (b *Builder) WithStore(store kv.Store) *Builder {
	b.store = store
	return b
}

// WithRedis backs the engine with a Redis client. It is ignored when
// WithStore is also used.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithTenancy sets the host-platform resolver used by the auto-login flow.
func (b *Builder) WithTenancy(t Tenancy) *Builder {
	b.tenancy = t
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithSiteAuditSink sends audit events for siteID to sink instead of the
// default audit sink.
func (b *Builder) WithSiteAuditSink(siteID string, sink AuditSink) *Builder {
	if b.siteAudits == nil {
		b.siteAudits = make(map[string]AuditSink)
	}
	b.siteAudits[siteID] = sink
	return b
}

func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces time.Now. Tests use it to pin timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. Without WithStore
// or WithRedis the engine runs on an in-memory store it owns and closes.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engine := &Engine{
		config:  cfg,
		tenancy: b.tenancy,
		now:     b.now,
		logger:  b.logger,
	}
	if engine.now == nil {
		engine.now = time.Now
	}
	if engine.logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		engine.logger = discard
	}

	switch {
	case b.store != nil:
		engine.store = b.store
	case b.redis != nil:
		engine.store = kv.NewRedisStore(b.redis)
	default:
		mem := kv.NewMemoryStore(kv.WithClock(engine.now))
		engine.store = mem
		engine.ownedStore = mem
	}

	headers := cfg.ClientIP.TrustedHeaders
	if headers == nil {
		headers = clientip.DefaultHeaders
	}

	engine.ipResolver = clientip.New(headers)
	engine.limiter = rate.New(engine.store, rate.Config{
		Prefix:      cfg.Store.KeyPrefix,
		MaxRequests: cfg.Auth.RateLimitMaxRequests,
		Window:      cfg.Auth.RateLimitWindow,
	})
	engine.secrets = stores.NewSecretStore(engine.store, cfg.Store.KeyPrefix)
	engine.tokens = stores.NewAutologinStore(engine.store, cfg.Store.KeyPrefix)
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:      cfg.Audit.Enabled,
		BufferSize:   cfg.Audit.BufferSize,
		DropIfFull:   cfg.Audit.DropIfFull,
		Retain:       retainedAuditEvents,
		SiteSinks:    b.siteAudits,
		DrainTimeout: cfg.Audit.DrainTimeout,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
