package internaldefs

import (
	jwtAuth "github.com/MrEthical07/jwtAuth"
)

type CounterDef struct {
	ID   jwtAuth.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   jwtAuth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a fixed order.
var CounterDefs = []CounterDef{
	{ID: jwtAuth.MetricRegisterSuccess, Name: "jwtauth_register_success_total", Help: "Accounts registered."},
	{ID: jwtAuth.MetricRegisterDuplicate, Name: "jwtauth_register_duplicate_total", Help: "Registrations rejected because the email is taken."},
	{ID: jwtAuth.MetricLoginSuccess, Name: "jwtauth_login_success_total", Help: "Successful credential checks."},
	{ID: jwtAuth.MetricLoginFailure, Name: "jwtauth_login_failure_total", Help: "Failed credential checks."},
	{ID: jwtAuth.MetricSessionIssued, Name: "jwtauth_session_issued_total", Help: "Session tokens issued."},
	{ID: jwtAuth.MetricSessionRevoked, Name: "jwtauth_session_revoked_total", Help: "Single session tokens revoked."},
	{ID: jwtAuth.MetricSessionRevokedAll, Name: "jwtauth_session_revoked_all_total", Help: "Revoke-all operations."},
	{ID: jwtAuth.MetricSessionConflictRetry, Name: "jwtauth_session_conflict_retry_total", Help: "Session writes retried after a version conflict."},
	{ID: jwtAuth.MetricPayloadResolveFailure, Name: "jwtauth_payload_resolve_failure_total", Help: "Session payloads or bearers that resolved to no account."},
	{ID: jwtAuth.MetricConfirmationSent, Name: "jwtauth_confirmation_sent_total", Help: "Confirmation instructions sent."},
	{ID: jwtAuth.MetricConfirmationRejected, Name: "jwtauth_confirmation_rejected_total", Help: "Confirmation sends or confirms rejected by validation."},
	{ID: jwtAuth.MetricConfirmationSuccess, Name: "jwtauth_confirmation_success_total", Help: "Accounts or email changes confirmed."},
	{ID: jwtAuth.MetricConfirmationExpired, Name: "jwtauth_confirmation_expired_total", Help: "Confirmations rejected for an expired token."},
	{ID: jwtAuth.MetricEmailChangeIntercepted, Name: "jwtauth_email_change_intercepted_total", Help: "Email changes diverted into a pending address."},
	{ID: jwtAuth.MetricAccountUpdated, Name: "jwtauth_account_updated_total", Help: "Non-credential account updates persisted."},
	{ID: jwtAuth.MetricCredentialChangeSuccess, Name: "jwtauth_credential_change_success_total", Help: "Password changes persisted."},
	{ID: jwtAuth.MetricCredentialChangeRejected, Name: "jwtauth_credential_change_rejected_total", Help: "Password changes rejected by validation."},
	{ID: jwtAuth.MetricRecoverySent, Name: "jwtauth_recovery_sent_total", Help: "Recovery instructions sent."},
	{ID: jwtAuth.MetricRecoveryRejected, Name: "jwtauth_recovery_rejected_total", Help: "Recovery requests rejected."},
	{ID: jwtAuth.MetricRecoveryResetSuccess, Name: "jwtauth_recovery_reset_success_total", Help: "Passwords reset through a recovery token."},
	{ID: jwtAuth.MetricRecoveryResetFailure, Name: "jwtauth_recovery_reset_failure_total", Help: "Recovery resets rejected."},
	{ID: jwtAuth.MetricPersistenceFailure, Name: "jwtauth_persistence_failure_total", Help: "Repository writes that failed."},
	{ID: jwtAuth.MetricNotificationFailure, Name: "jwtauth_notification_failure_total", Help: "Notifications that failed after the state change was persisted."},
}

var HistogramDefs = []HistogramDef{
	{ID: jwtAuth.MetricResolveLatency, Name: "jwtauth_resolve_latency_seconds", Help: "Time spent resolving a session payload or bearer to an account."},
}

// AuditDroppedName and AuditDroppedHelp describe the dispatcher drop counter,
// which is read from the engine rather than the snapshot.
const (
	AuditDroppedName = "jwtauth_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramUpperBounds are the finite bucket bounds in seconds; the eighth
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundLabels are the "le" values of the eight buckets, matching the
// Prometheus text format.
var HistogramBoundLabels = []string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// NormalizeBuckets copies raw into a fixed eight-bucket array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
