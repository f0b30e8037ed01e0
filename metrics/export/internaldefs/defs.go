package internaldefs

import (
	"github.com/wboard/connector"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   connector.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   connector.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: connector.MetricVerifySuccess, Name: "wboard_verify_success_total", Help: "Requests that passed signature verification."},
	{ID: connector.MetricVerifyRateLimited, Name: "wboard_verify_rate_limited_total", Help: "Requests refused by the per-IP rate limit."},
	{ID: connector.MetricVerifyMissingHeaders, Name: "wboard_verify_missing_headers_total", Help: "Requests without timestamp or signature headers."},
	{ID: connector.MetricVerifyInvalidTimestamp, Name: "wboard_verify_invalid_timestamp_total", Help: "Requests with an unparsable or stale timestamp."},
	{ID: connector.MetricVerifyInvalidSignature, Name: "wboard_verify_invalid_signature_total", Help: "Requests whose signature did not match."},
	{ID: connector.MetricVerifyNoSecret, Name: "wboard_verify_no_secret_total", Help: "Requests received while no secret was configured."},
	{ID: connector.MetricBackendUnavailable, Name: "wboard_backend_unavailable_total", Help: "State store failures surfaced to callers."},
	{ID: connector.MetricMarkerWriteFailed, Name: "wboard_marker_write_failed_total", Help: "Failed last-request marker writes."},
	{ID: connector.MetricAutologinIssued, Name: "wboard_autologin_issued_total", Help: "Auto-login tokens issued."},
	{ID: connector.MetricAutologinRejected, Name: "wboard_autologin_rejected_total", Help: "Auto-login requests refused for the target user."},
	{ID: connector.MetricAutologinRedeemed, Name: "wboard_autologin_redeemed_total", Help: "Auto-login tokens redeemed."},
	{ID: connector.MetricAutologinRedeemFailed, Name: "wboard_autologin_redeem_failed_total", Help: "Unknown, expired or reused auto-login tokens."},
	{ID: connector.MetricSecretRotated, Name: "wboard_secret_rotated_total", Help: "Shared secret rotations."},
	{ID: connector.MetricVerifyBadBody, Name: "wboard_verify_bad_body_total", Help: "Requests with an oversized or unreadable body."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: connector.MetricVerifyLatency, Name: "wboard_verify_latency_seconds", Help: "Request verification latency."},
}

// AuditDroppedName is the counter for events lost to audit backpressure.
const AuditDroppedName = "wboard_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// engine bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// NormalizeBuckets pads or truncates raw to the engine bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
