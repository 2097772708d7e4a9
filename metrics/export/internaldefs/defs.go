package internaldefs

import (
	mvauth "github.com/mvplatform/mvauth"
)

// CounterDef binds a core counter ID to its exported name and help text.
type CounterDef struct {
	ID   mvauth.MetricID
	Name string
	Help string
}

// HistogramDef binds a core histogram ID to its exported name and help text.
type HistogramDef struct {
	ID   mvauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in stable order.
var CounterDefs = []CounterDef{
	{ID: mvauth.MetricLoginSuccess, Name: "mvauth_login_success_total", Help: "Successful login attempts."},
	{ID: mvauth.MetricLoginFailure, Name: "mvauth_login_failure_total", Help: "Failed login attempts."},
	{ID: mvauth.MetricChallengeRequested, Name: "mvauth_challenge_requested_total", Help: "Issued verification challenges."},
	{ID: mvauth.MetricChallengeRevoked, Name: "mvauth_challenge_revoked_total", Help: "Challenges revoked by reissue."},
	{ID: mvauth.MetricOTPMismatch, Name: "mvauth_otp_mismatch_total", Help: "Wrong-code verification failures."},
	{ID: mvauth.MetricOTPExpired, Name: "mvauth_otp_expired_total", Help: "Expired-code verification failures."},
	{ID: mvauth.MetricAttemptsExceeded, Name: "mvauth_attempts_exceeded_total", Help: "Login attempt ceiling hits."},
	{ID: mvauth.MetricUserSuspended, Name: "mvauth_user_suspended_total", Help: "Automatic account suspensions."},
	{ID: mvauth.MetricSessionCreated, Name: "mvauth_session_created_total", Help: "Created sessions."},
	{ID: mvauth.MetricSessionInvalidated, Name: "mvauth_session_invalidated_total", Help: "Sessions removed by replacement or logout."},
	{ID: mvauth.MetricRefreshSuccess, Name: "mvauth_refresh_success_total", Help: "Successful refresh operations."},
	{ID: mvauth.MetricRefreshFailure, Name: "mvauth_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: mvauth.MetricLogout, Name: "mvauth_logout_total", Help: "Logout operations."},
}

// HistogramDefs lists every exported histogram in stable order.
var HistogramDefs = []HistogramDef{
	{ID: mvauth.MetricLoginLatency, Name: "mvauth_login_latency_seconds", Help: "Login latency histogram, stall included."},
}

// HistogramBounds are the bucket upper bounds in seconds.
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

// HistogramBoundSuffix mirrors HistogramBounds as metric-name-safe strings.
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

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into a running total.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
