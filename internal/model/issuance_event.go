package model

import "time"

// IssuanceEvent is one line of the append-only per-certificate progress log,
// polled by the dashboard while an issuance attempt runs.
type IssuanceEvent struct {
	ID            string    `json:"id" db:"id"`
	CertificateID string    `json:"certificate_id" db:"certificate_id"`
	Stage         string    `json:"stage" db:"stage"`
	Detail        string    `json:"detail" db:"detail"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Issuance stage names, one per orchestrator step.
const (
	StageStart         = "start"
	StageAccount       = "acme_account"
	StageEABKey        = "eab_key"
	StageOrder         = "acme_order"
	StageChallenge     = "dns_challenge"
	StageDNSVerify     = "dns_verify"
	StageDNSSelfHeal   = "dns_self_heal"
	StagePropagation   = "propagation_wait"
	StageChallengeDone = "challenge_complete"
	StageFinalize      = "finalize"
	StageStore         = "store"
	StageDone          = "issued"
	StageFailed        = "failed"
)
