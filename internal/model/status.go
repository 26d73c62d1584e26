package model

// Certificate status constants. The lifecycle is monotonic
// (pending_verification -> verifying -> verified -> issuing -> issued)
// except for the explicit failed->retry path, which resets to an earlier
// state instead of advancing. expired and revoked are terminal and are set
// by external renewal/revocation processes.
const (
	StatusPendingVerification = "pending_verification"
	StatusVerifying           = "verifying"
	StatusVerified            = "verified"
	StatusIssuing             = "issuing"
	StatusIssued              = "issued"
	StatusFailed              = "failed"
	StatusExpired             = "expired"
	StatusRevoked             = "revoked"
)

// RetryTargets lists the states a failed certificate may be reset to.
var RetryTargets = []string{StatusVerified, StatusPendingVerification}

// IsRetryTarget reports whether status is a valid failed-retry re-entry point.
func IsRetryTarget(status string) bool {
	for _, s := range RetryTargets {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further lifecycle transitions apply.
func IsTerminal(status string) bool {
	return status == StatusExpired || status == StatusRevoked
}
