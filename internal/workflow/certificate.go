package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/torvik/resellerpanel/internal/activity"
	"github.com/torvik/resellerpanel/internal/eab"
	"github.com/torvik/resellerpanel/internal/model"
	"github.com/torvik/resellerpanel/internal/platform"
)

// IssueCertificateWorkflow runs one issuance attempt for an already verified
// certificate using the ACME dns-01 challenge flow. The caller has moved the
// certificate to issuing before starting the workflow; any failure lands it
// in failed with the reason recorded.
func IssueCertificateWorkflow(ctx workflow.Context, certID string) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 3 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    1 * time.Second,
			MaximumInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	// Snapshot the issuance configuration once; no later step re-reads
	// settings mid-flow.
	var cfg model.SSLConfig
	err := workflow.ExecuteActivity(ctx, "GetSSLConfig").Get(ctx, &cfg)
	if err != nil {
		return err
	}

	var cert model.Certificate
	err = workflow.ExecuteActivity(ctx, "GetCertificate", certID).Get(ctx, &cert)
	if err != nil {
		return err
	}

	_ = logEvent(ctx, certID, model.StageStart, "issuance attempt started for "+cert.Domain)

	directoryURL := cfg.DirectoryURL(cert.Provider)

	// Step 1: Resolve EAB credentials for Google Trust Services before any
	// ACME account exists. Missing credentials abort here, not at the CA.
	var eabKeyID, eabHMACKey string
	if cert.Provider == model.ProviderGoogleTrust {
		switch {
		case cfg.GoogleServiceAccountJSON != "":
			var key eab.Key
			err = workflow.ExecuteActivity(ctx, "GetEABKey", activity.GetEABKeyParams{
				ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			}).Get(ctx, &key)
			if err != nil {
				_ = setCertificateFailed(ctx, certID, err)
				return err
			}
			eabKeyID, eabHMACKey = key.KeyID, key.HMACKey
			_ = logEvent(ctx, certID, model.StageEABKey, "minted fresh EAB key "+key.KeyID)
		case cfg.GoogleEABKeyID != "" && cfg.GoogleEABHMACKey != "":
			eabKeyID, eabHMACKey = cfg.GoogleEABKeyID, cfg.GoogleEABHMACKey
			_ = logEvent(ctx, certID, model.StageEABKey, "using configured EAB key "+eabKeyID)
		default:
			err = fmt.Errorf("google trust selected but no EAB credentials configured")
			_ = setCertificateFailed(ctx, certID, err)
			return err
		}
	}

	// Step 2: Register a fresh ACME account and submit the order.
	var order activity.ACMEOrderResult
	err = workflow.ExecuteActivity(ctx, "CreateOrder", activity.ACMEOrderParams{
		Domain:       cert.Domain,
		Email:        cfg.ACMEEmail,
		DirectoryURL: directoryURL,
		EABKeyID:     eabKeyID,
		EABHMACKey:   eabHMACKey,
	}).Get(ctx, &order)
	if err != nil {
		_ = setCertificateFailed(ctx, certID, err)
		return err
	}
	_ = logEvent(ctx, certID, model.StageOrder, "ACME order created")

	cnameTarget := ""
	if cert.CNAMERecord != nil {
		cnameTarget = *cert.CNAMERecord
	}

	// Step 3: Satisfy each authorization via dns-01. Typically one authz per
	// single-domain order; we handle them all.
	for _, authzURL := range order.AuthzURLs {
		var challenge activity.ACMEChallengeResult
		err = workflow.ExecuteActivity(ctx, "GetDNS01Challenge", activity.ACMEChallengeParams{
			AuthzURL:     authzURL,
			DirectoryURL: directoryURL,
			AccountKey:   order.AccountKey,
		}).Get(ctx, &challenge)
		if err != nil {
			_ = setCertificateFailed(ctx, certID, err)
			return err
		}
		_ = logEvent(ctx, certID, model.StageChallenge, "dns-01 challenge obtained")

		// Step 4: Check whether the true key authorization is already
		// visible on public resolvers.
		var visible bool
		err = workflow.ExecuteActivity(ctx, "VerifyChallengeDNS", activity.VerifyDNSParams{
			Domain:        cert.Domain,
			ExpectedValue: challenge.TXTValue,
			CNAMETarget:   cnameTarget,
		}).Get(ctx, &visible)
		if err != nil {
			_ = setCertificateFailed(ctx, certID, err)
			return err
		}
		_ = logEvent(ctx, certID, model.StageDNSVerify, fmt.Sprintf("challenge record visible: %t", visible))

		// The published TXT (the placeholder from verification, or a previous
		// attempt's value) may not match this order's key authorization.
		// Managed subdomains self-heal: rewrite the intermediate TXT record.
		// Custom domains cannot be rewritten here; the customer controls their
		// zone, so the attempt proceeds and the CA's validation decides.
		switch {
		case visible:
			// Nothing to heal.
		case cert.DomainType == model.DomainTypeSubdomain && cnameTarget != "":
			if cert.DNSRecordID != nil && *cert.DNSRecordID != "" {
				// Best effort: a stale record that cannot be deleted is
				// superseded by the new one anyway.
				_ = workflow.ExecuteActivity(ctx, "DeleteDNSRecord", activity.DeleteRecordParams{
					APIToken:  cfg.CloudflareAPIToken,
					RecordRef: *cert.DNSRecordID,
				}).Get(ctx, nil)
			}

			var created activity.CreateRecordResult
			err = workflow.ExecuteActivity(ctx, "CreateTXTRecord", activity.CreateTXTParams{
				APIToken: cfg.CloudflareAPIToken,
				Name:     cnameTarget,
				Value:    challenge.TXTValue,
			}).Get(ctx, &created)
			if err != nil {
				_ = setCertificateFailed(ctx, certID, err)
				return err
			}

			err = workflow.ExecuteActivity(ctx, "UpdateDNSRecordRef", activity.UpdateDNSRecordParams{
				ID:          certID,
				TXTRecord:   challenge.TXTValue,
				DNSRecordID: created.RecordRef,
			}).Get(ctx, nil)
			if err != nil {
				_ = setCertificateFailed(ctx, certID, err)
				return err
			}
			_ = logEvent(ctx, certID, model.StageDNSSelfHeal, "rewrote validation TXT record at "+cnameTarget)

			if wait := cfg.PropagationWait(); wait > 0 {
				_ = logEvent(ctx, certID, model.StagePropagation, "waiting "+wait.String()+" for DNS propagation")
				if err = workflow.Sleep(ctx, wait); err != nil {
					return err
				}
			}
		default:
			_ = logEvent(ctx, certID, model.StageDNSVerify,
				"record for "+cert.Domain+" not visible and not rewritable here; proceeding to CA validation")
		}

		// Step 5: Hand the challenge to the CA and wait for validation.
		err = workflow.ExecuteActivity(ctx, "AcceptChallenge", activity.ACMEAcceptParams{
			ChallengeURL:   challenge.ChallengeURL,
			AuthzURL:       authzURL,
			DirectoryURL:   directoryURL,
			AccountKey:     order.AccountKey,
			TimeoutSeconds: 120,
		}).Get(ctx, nil)
		if err != nil {
			_ = setCertificateFailed(ctx, certID, err)
			return err
		}
		_ = logEvent(ctx, certID, model.StageChallengeDone, "CA validated the challenge")
	}

	// Step 6: Finalize the order and download the chain.
	var finalized activity.ACMEFinalizeResult
	err = workflow.ExecuteActivity(ctx, "FinalizeOrder", activity.ACMEFinalizeParams{
		OrderURL:     order.OrderURL,
		Domain:       cert.Domain,
		DirectoryURL: directoryURL,
		AccountKey:   order.AccountKey,
	}).Get(ctx, &finalized)
	if err != nil {
		_ = setCertificateFailed(ctx, certID, err)
		return err
	}
	_ = logEvent(ctx, certID, model.StageFinalize, "order finalized, certificate downloaded")

	// Step 7: Persist the material and flip to issued in one update.
	err = workflow.ExecuteActivity(ctx, "StoreIssuedCertificate", activity.StoreCertParams{
		ID:       certID,
		CertPEM:  finalized.CertPEM,
		KeyPEM:   finalized.KeyPEM,
		CAPEM:    finalized.CAPEM,
		IssuedAt: finalized.IssuedAt,
	}).Get(ctx, nil)
	if err != nil {
		_ = setCertificateFailed(ctx, certID, err)
		return err
	}
	_ = logEvent(ctx, certID, model.StageDone, "certificate issued")

	return nil
}

// StartVerificationWorkflow provisions the DNS validation chain for a
// certificate. For managed subdomains it writes a placeholder TXT record at
// the intermediate domain and the delegation CNAME in the service domain's
// zone. Custom domains get no provider writes; the customer publishes the
// records shown to them.
func StartVerificationWorkflow(ctx workflow.Context, certID string) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 1 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    1 * time.Second,
			MaximumInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var cfg model.SSLConfig
	err := workflow.ExecuteActivity(ctx, "GetSSLConfig").Get(ctx, &cfg)
	if err != nil {
		return err
	}

	var cert model.Certificate
	err = workflow.ExecuteActivity(ctx, "GetCertificate", certID).Get(ctx, &cert)
	if err != nil {
		return err
	}

	err = workflow.ExecuteActivity(ctx, "SetCertificateStatus", activity.SetStatusParams{
		ID:     certID,
		Status: model.StatusVerifying,
	}).Get(ctx, nil)
	if err != nil {
		return err
	}

	if cert.DomainType != model.DomainTypeSubdomain {
		return nil
	}
	if cert.CNAMERecord == nil || cert.TXTRecord == nil {
		err = fmt.Errorf("subdomain certificate %s has no validation records prepared", certID)
		_ = setCertificateFailed(ctx, certID, err)
		return err
	}

	var created activity.CreateRecordResult
	err = workflow.ExecuteActivity(ctx, "CreateTXTRecord", activity.CreateTXTParams{
		APIToken: cfg.CloudflareAPIToken,
		Name:     *cert.CNAMERecord,
		Value:    *cert.TXTRecord,
	}).Get(ctx, &created)
	if err != nil {
		_ = setCertificateFailed(ctx, certID, err)
		return err
	}

	err = workflow.ExecuteActivity(ctx, "UpdateDNSRecordRef", activity.UpdateDNSRecordParams{
		ID:          certID,
		TXTRecord:   *cert.TXTRecord,
		DNSRecordID: created.RecordRef,
	}).Get(ctx, nil)
	if err != nil {
		_ = setCertificateFailed(ctx, certID, err)
		return err
	}

	err = workflow.ExecuteActivity(ctx, "CreateCNAMERecord", activity.CreateCNAMEParams{
		APIToken: cfg.CloudflareAPIToken,
		Name:     platform.ChallengeHost(cert.Domain),
		Target:   *cert.CNAMERecord,
	}).Get(ctx, nil)
	if err != nil {
		_ = setCertificateFailed(ctx, certID, err)
		return err
	}

	_ = logEvent(ctx, certID, model.StageDNSVerify, "validation chain provisioned")
	return nil
}

// UploadCustomCertWorkflow validates customer-uploaded certificate material
// and stamps its real validity window. The material itself was persisted by
// the upload call; this workflow either confirms it as issued or fails the
// certificate with the validation error.
func UploadCustomCertWorkflow(ctx workflow.Context, certID string) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    1 * time.Second,
			MaximumInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var cert model.Certificate
	err := workflow.ExecuteActivity(ctx, "GetCertificate", certID).Get(ctx, &cert)
	if err != nil {
		return err
	}
	if cert.CertPEM == nil || cert.KeyPEM == nil {
		err = fmt.Errorf("certificate %s has no uploaded material", certID)
		_ = setCertificateFailed(ctx, certID, err)
		return err
	}

	var info activity.CustomCertInfo
	err = workflow.ExecuteActivity(ctx, "ValidateCustomCert", *cert.CertPEM, *cert.KeyPEM).Get(ctx, &info)
	if err != nil {
		_ = setCertificateFailed(ctx, certID, err)
		return err
	}

	caPEM := ""
	if cert.CAPEM != nil {
		caPEM = *cert.CAPEM
	}
	err = workflow.ExecuteActivity(ctx, "StoreIssuedCertificate", activity.StoreCertParams{
		ID:        certID,
		CertPEM:   *cert.CertPEM,
		KeyPEM:    *cert.KeyPEM,
		CAPEM:     caPEM,
		IssuedAt:  info.IssuedAt,
		ExpiresAt: info.ExpiresAt,
	}).Get(ctx, nil)
	if err != nil {
		_ = setCertificateFailed(ctx, certID, err)
		return err
	}
	_ = logEvent(ctx, certID, model.StageDone, "custom certificate accepted")

	return nil
}

// CertExpiryMonitorWorkflow is a cron workflow that expires certificates
// past their validity window and re-issues managed subdomain certificates
// expiring within 30 days.
func CertExpiryMonitorWorkflow(ctx workflow.Context) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    1 * time.Second,
			MaximumInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)

	var expired int64
	err := workflow.ExecuteActivity(ctx, "MarkExpiredCerts").Get(ctx, &expired)
	if err != nil {
		return err
	}
	if expired > 0 {
		logger.Info("marked certificates expired", "count", expired)
	}

	var renewIDs []string
	err = workflow.ExecuteActivity(ctx, "GetExpiringCerts", 30).Get(ctx, &renewIDs)
	if err != nil {
		return err
	}
	logger.Info("found expiring certificates", "count", len(renewIDs))

	for _, certID := range renewIDs {
		err := workflow.ExecuteActivity(ctx, "SetCertificateStatus", activity.SetStatusParams{
			ID:     certID,
			Status: model.StatusIssuing,
		}).Get(ctx, nil)
		if err != nil {
			logger.Error("failed to move certificate to issuing for renewal", "certID", certID, "error", err)
			continue
		}

		childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: "renew-cert-" + certID,
		})
		err = workflow.ExecuteChildWorkflow(childCtx, IssueCertificateWorkflow, certID).Get(ctx, nil)
		if err != nil {
			logger.Error("failed to renew certificate", "certID", certID, "error", err)
			// Continue renewing other certs even if one fails.
		}
	}

	return nil
}
