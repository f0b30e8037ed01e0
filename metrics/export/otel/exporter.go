package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/wboard/connector"
	"github.com/wboard/connector/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is returned when no meter is supplied.
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Instrument names. Verification and auto-login counters share one
// instrument each and are told apart by attribute.
const (
	VerifyRequestsName     = "wboard.verify.requests"
	AutologinTokensName    = "wboard.autologin.tokens"
	SecretRotationsName    = "wboard.secret.rotations"
	BackendUnavailableName = "wboard.backend.unavailable"
	MarkerWriteFailedName  = "wboard.marker.write_failures"
	AuditDroppedName       = "wboard.audit.dropped"
	VerifyLatencyName      = "wboard.verify.latency"
)

type instrumentDef struct {
	name string
	unit string
	help string
}

var counterInstruments = []instrumentDef{
	{name: VerifyRequestsName, unit: "{request}", help: "Signed requests by verification outcome."},
	{name: AutologinTokensName, unit: "{token}", help: "Auto-login token lifecycle events."},
	{name: SecretRotationsName, unit: "{rotation}", help: "Shared secret rotations."},
	{name: BackendUnavailableName, unit: "{error}", help: "State store failures surfaced to callers."},
	{name: MarkerWriteFailedName, unit: "{error}", help: "Failed last-request marker writes."},
}

// counterSeries maps each engine counter onto an instrument and, for shared
// instruments, the attribute that identifies it.
var counterSeries = []struct {
	id         connector.MetricID
	instrument string
	key        string
	value      string
}{
	{id: connector.MetricVerifySuccess, instrument: VerifyRequestsName, key: "outcome", value: "success"},
	{id: connector.MetricVerifyRateLimited, instrument: VerifyRequestsName, key: "outcome", value: "rate_limited"},
	{id: connector.MetricVerifyMissingHeaders, instrument: VerifyRequestsName, key: "outcome", value: "missing_headers"},
	{id: connector.MetricVerifyInvalidTimestamp, instrument: VerifyRequestsName, key: "outcome", value: "invalid_timestamp"},
	{id: connector.MetricVerifyInvalidSignature, instrument: VerifyRequestsName, key: "outcome", value: "invalid_signature"},
	{id: connector.MetricVerifyNoSecret, instrument: VerifyRequestsName, key: "outcome", value: "no_secret"},
	{id: connector.MetricVerifyBadBody, instrument: VerifyRequestsName, key: "outcome", value: "bad_body"},
	{id: connector.MetricAutologinIssued, instrument: AutologinTokensName, key: "event", value: "issued"},
	{id: connector.MetricAutologinRejected, instrument: AutologinTokensName, key: "event", value: "rejected"},
	{id: connector.MetricAutologinRedeemed, instrument: AutologinTokensName, key: "event", value: "redeemed"},
	{id: connector.MetricAutologinRedeemFailed, instrument: AutologinTokensName, key: "event", value: "redeem_failed"},
	{id: connector.MetricSecretRotated, instrument: SecretRotationsName},
	{id: connector.MetricBackendUnavailable, instrument: BackendUnavailableName},
	{id: connector.MetricMarkerWriteFailed, instrument: MarkerWriteFailedName},
}

type metricsSource interface {
	MetricsSnapshot() connector.MetricsSnapshot
	AuditDropped() uint64
}

type observedCounter struct {
	id         connector.MetricID
	instrument metric.Int64ObservableCounter
	attrs      metric.ObserveOption
}

// Exporter observes engine metrics through OTel asynchronous instruments.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	bucketAttrs  []metric.ObserveOption
	buckets      metric.Int64ObservableGauge
	count        metric.Int64ObservableGauge
	auditDropped metric.Int64ObservableCounter
}

// NewExporter registers instruments on meter that read from engine.
func NewExporter(meter metric.Meter, engine *connector.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource is NewExporter for any snapshot source.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &Exporter{
		source:   source,
		counters: make([]observedCounter, 0, len(counterSeries)),
	}

	instruments := make(map[string]metric.Int64ObservableCounter, len(counterInstruments))
	observables := make([]metric.Observable, 0, len(counterInstruments)+3)

	for _, def := range counterInstruments {
		ins, err := meter.Int64ObservableCounter(def.name, metric.WithUnit(def.unit), metric.WithDescription(def.help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.name, err)
		}
		instruments[def.name] = ins
		observables = append(observables, ins)
	}

	for _, s := range counterSeries {
		var attrs []attribute.KeyValue
		if s.key != "" {
			attrs = append(attrs, attribute.String(s.key, s.value))
		}
		exporter.counters = append(exporter.counters, observedCounter{
			id:         s.id,
			instrument: instruments[s.instrument],
			attrs:      metric.WithAttributes(attrs...),
		})
	}

	buckets, err := meter.Int64ObservableGauge(VerifyLatencyName+".buckets",
		metric.WithDescription("Cumulative verification latency bucket counts, keyed by le in seconds."))
	if err != nil {
		return nil, fmt.Errorf("create latency bucket gauge: %w", err)
	}
	count, err := meter.Int64ObservableGauge(VerifyLatencyName+".count",
		metric.WithDescription("Verification latency sample count."))
	if err != nil {
		return nil, fmt.Errorf("create latency count gauge: %w", err)
	}
	exporter.buckets = buckets
	exporter.count = count
	exporter.bucketAttrs = bucketAttributes()
	observables = append(observables, buckets, count)

	auditDropped, err := meter.Int64ObservableCounter(AuditDroppedName,
		metric.WithUnit("{event}"),
		metric.WithDescription(internaldefs.AuditDroppedHelp),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(exporter.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

func (e *Exporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]), c.attrs)
	}

	cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[connector.MetricVerifyLatency]))
	for i, attrs := range e.bucketAttrs {
		observer.ObserveInt64(e.buckets, int64(cumulative[i]), attrs)
	}
	observer.ObserveInt64(e.count, int64(cumulative[len(cumulative)-1]))

	observer.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

func bucketAttributes() []metric.ObserveOption {
	out := make([]metric.ObserveOption, 0, len(internaldefs.HistogramUpperBounds)+1)
	for _, bound := range internaldefs.HistogramUpperBounds {
		out = append(out, metric.WithAttributes(attribute.String("le", strconv.FormatFloat(bound, 'g', -1, 64))))
	}
	return append(out, metric.WithAttributes(attribute.String("le", "+Inf")))
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
