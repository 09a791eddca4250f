package internaldefs

import (
	"github.com/MrEthical07/tokenslot"
)

// CounterDef maps one engine counter onto an exported series. Consecutive defs sharing
// Name form one metric family distinguished by LabelKey/LabelValue.
type CounterDef struct {
	ID         tokenslot.MetricID
	Name       string
	Help       string
	LabelKey   string
	LabelValue string
}

type HistogramDef struct {
	ID   tokenslot.MetricID
	Name string
	Help string
}

const (
	authenticateHelp = "Authenticate calls by outcome."
	loginHelp        = "Login attempts by outcome."
	refreshHelp      = "Refresh attempts by outcome."
)

var CounterDefs = []CounterDef{
	{ID: tokenslot.MetricSessionIssued, Name: "tokenslot_sessions_issued_total", Help: "Initial sessions issued (login or explicit issue)."},
	{ID: tokenslot.MetricSessionRotated, Name: "tokenslot_sessions_rotated_total", Help: "Sessions rotated."},
	{ID: tokenslot.MetricRotationFailure, Name: "tokenslot_rotation_failures_total", Help: "Issue or rotate operations that failed."},
	{ID: tokenslot.MetricLoginSuccess, Name: "tokenslot_login_total", Help: loginHelp, LabelKey: "result", LabelValue: "success"},
	{ID: tokenslot.MetricLoginFailure, Name: "tokenslot_login_total", Help: loginHelp, LabelKey: "result", LabelValue: "failure"},
	{ID: tokenslot.MetricRefreshSuccess, Name: "tokenslot_refresh_total", Help: refreshHelp, LabelKey: "result", LabelValue: "success"},
	{ID: tokenslot.MetricRefreshFailure, Name: "tokenslot_refresh_total", Help: refreshHelp, LabelKey: "result", LabelValue: "failure"},
	{ID: tokenslot.MetricAuthAccepted, Name: "tokenslot_authenticate_total", Help: authenticateHelp, LabelKey: "result", LabelValue: "accepted"},
	{ID: tokenslot.MetricAuthMissingToken, Name: "tokenslot_authenticate_total", Help: authenticateHelp, LabelKey: "result", LabelValue: "missing_token"},
	{ID: tokenslot.MetricAuthInvalidToken, Name: "tokenslot_authenticate_total", Help: authenticateHelp, LabelKey: "result", LabelValue: "invalid_token"},
	{ID: tokenslot.MetricAuthWrongClass, Name: "tokenslot_authenticate_total", Help: authenticateHelp, LabelKey: "result", LabelValue: "wrong_class"},
	{ID: tokenslot.MetricAuthStaleSession, Name: "tokenslot_authenticate_total", Help: authenticateHelp, LabelKey: "result", LabelValue: "stale_session"},
	{ID: tokenslot.MetricRegistryFailure, Name: "tokenslot_registry_failures_total", Help: "Registry round trips that failed or timed out."},
}

var HistogramDefs = []HistogramDef{
	{ID: tokenslot.MetricAuthenticateLatency, Name: "tokenslot_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

const AuditDroppedName = "tokenslot_audit_dropped_total"

const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
