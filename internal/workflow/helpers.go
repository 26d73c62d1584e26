package workflow

import (
	"go.temporal.io/sdk/workflow"

	"github.com/torvik/resellerpanel/internal/activity"
	"github.com/torvik/resellerpanel/internal/model"
)

// setCertificateFailed marks a certificate failed with the error message.
// It returns any error but callers typically ignore it since the primary
// error is more important.
func setCertificateFailed(ctx workflow.Context, certID string, err error) error {
	_ = logEvent(ctx, certID, model.StageFailed, err.Error())
	return workflow.ExecuteActivity(ctx, "SetCertificateFailed", activity.SetFailedParams{
		ID:     certID,
		Reason: err.Error(),
	}).Get(ctx, nil)
}

// logEvent appends one audit-trail entry. Best effort: a lost event never
// aborts an issuance attempt.
func logEvent(ctx workflow.Context, certID, stage, detail string) error {
	return workflow.ExecuteActivity(ctx, "AppendIssuanceEvent", activity.AppendEventParams{
		CertificateID: certID,
		Stage:         stage,
		Detail:        detail,
	}).Get(ctx, nil)
}
