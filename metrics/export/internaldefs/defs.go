package internaldefs

import (
	goAccount "github.com/MrEthical07/goAccount"
)

// BucketCount is the number of latency buckets, including +Inf.
const BucketCount = 8

// CounterDef maps an engine counter to its exported name.
type CounterDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

// HistogramDef maps an engine histogram to its exported name.
type HistogramDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goAccount.MetricRegisterSuccess, Name: "goaccount_register_success_total", Help: "Accounts registered."},
	{ID: goAccount.MetricRegisterDuplicate, Name: "goaccount_register_duplicate_total", Help: "Registrations rejected because the email is taken."},
	{ID: goAccount.MetricRegisterFailure, Name: "goaccount_register_failure_total", Help: "Registrations rejected or failed for any other reason."},
	{ID: goAccount.MetricEmailVerificationSuccess, Name: "goaccount_email_verification_success_total", Help: "Email addresses verified."},
	{ID: goAccount.MetricEmailVerificationFailure, Name: "goaccount_email_verification_failure_total", Help: "Verification attempts with an unknown or used token."},
	{ID: goAccount.MetricPasswordStepSuccess, Name: "goaccount_password_step_success_total", Help: "Password checks that issued a passcode."},
	{ID: goAccount.MetricPasswordStepFailure, Name: "goaccount_password_step_failure_total", Help: "Password checks that were rejected."},
	{ID: goAccount.MetricOTPStepSuccess, Name: "goaccount_otp_step_success_total", Help: "Passcodes accepted."},
	{ID: goAccount.MetricOTPStepFailure, Name: "goaccount_otp_step_failure_total", Help: "Passcodes rejected."},
	{ID: goAccount.MetricLoginSequenceRejected, Name: "goaccount_login_sequence_rejected_total", Help: "Passcode submissions without a pending login."},
	{ID: goAccount.MetricSessionCreated, Name: "goaccount_session_created_total", Help: "Sessions created."},
	{ID: goAccount.MetricLogout, Name: "goaccount_logout_total", Help: "Sessions destroyed by logout."},
	{ID: goAccount.MetricCSRFRejected, Name: "goaccount_csrf_rejected_total", Help: "Requests rejected by CSRF validation."},
	{ID: goAccount.MetricProfileUpdate, Name: "goaccount_profile_update_total", Help: "Profile updates applied."},
	{ID: goAccount.MetricMailFailure, Name: "goaccount_mail_failure_total", Help: "Verification or passcode emails that could not be sent."},
}

var HistogramDefs = []HistogramDef{
	{ID: goAccount.MetricOperationLatency, Name: "goaccount_operation_latency_seconds", Help: "Latency of register and login steps."},
}

// HistogramBounds are the upper bounds in seconds, as Prometheus "le" labels.
var HistogramBounds = [BucketCount]string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds made safe for instrument names.
var HistogramBoundSuffix = [BucketCount]string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
