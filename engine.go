package connector

import (
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wboard/connector/internal/audit"
	"github.com/wboard/connector/internal/clientip"
	"github.com/wboard/connector/internal/rate"
	"github.com/wboard/connector/internal/stores"
	"github.com/wboard/connector/kv"
)

// Engine verifies board requests and runs the auto-login flow. All methods
// are safe for concurrent use once Build has returned.
type Engine struct {
	config     Config
	store      kv.Store
	ownedStore io.Closer
	secrets    *stores.SecretStore
	tokens     *stores.AutologinStore
	limiter    *rate.Limiter
	ipResolver *clientip.Resolver
	tenancy    Tenancy
	audit      *audit.Dispatcher
	metrics    *Metrics
	logger     logrus.FieldLogger
	now        func() time.Time
}

// Close drains the audit queue and releases an engine-owned store.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.ownedStore != nil {
		if err := e.ownedStore.Close(); err != nil {
			e.logger.WithError(err).Warn("close store")
		}
	}
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// AuditDropped reports events lost to a full audit buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// ClientIP resolves the rate-limit key for r using the configured trusted
// headers.
func (e *Engine) ClientIP(r *http.Request) string {
	if e == nil || e.ipResolver == nil {
		return clientip.Unknown
	}
	return e.ipResolver.FromRequest(r)
}

// Tenancy returns the resolver the engine was built with, or nil.
func (e *Engine) Tenancy() Tenancy {
	if e == nil {
		return nil
	}
	return e.tenancy
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.store != nil && e.secrets != nil && e.limiter != nil
}
