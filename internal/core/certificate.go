package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/torvik/resellerpanel/internal/metrics"
	"github.com/torvik/resellerpanel/internal/model"
	"github.com/torvik/resellerpanel/internal/platform"
)

// DNSVerifier reports whether a dns-01 validation record is visible on
// public resolvers. *dnscheck.Resolver satisfies this interface.
type DNSVerifier interface {
	VerifyTXT(ctx context.Context, domain, expectedValue, cnameTarget string) bool
}

type CertificateService struct {
	db       DB
	tc       temporalclient.Client
	settings *SettingsService
	verifier DNSVerifier
}

func NewCertificateService(db DB, tc temporalclient.Client, verifier DNSVerifier) *CertificateService {
	return &CertificateService{
		db:       db,
		tc:       tc,
		settings: NewSettingsService(db),
		verifier: verifier,
	}
}

const certColumns = `id, hosting_account_id, domain, domain_type, provider, status,
	txt_record, cname_record, dns_record_id, cert_pem, key_pem, ca_pem,
	verified_at, issued_at, expires_at, last_error, created_at, updated_at`

func scanCertificate(row interface{ Scan(dest ...any) error }) (model.Certificate, error) {
	var c model.Certificate
	err := row.Scan(
		&c.ID, &c.HostingAccountID, &c.Domain, &c.DomainType, &c.Provider, &c.Status,
		&c.TXTRecord, &c.CNAMERecord, &c.DNSRecordID, &c.CertPEM, &c.KeyPEM, &c.CAPEM,
		&c.VerifiedAt, &c.IssuedAt, &c.ExpiresAt, &c.LastError, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// Create classifies the domain against the configured service domains,
// prepares the validation records, and inserts the certificate in
// pending_verification. No DNS or CA calls happen here.
func (s *CertificateService) Create(ctx context.Context, cert *model.Certificate) error {
	cfg, err := s.settings.SSLConfig(ctx)
	if err != nil {
		return err
	}

	cert.Domain = strings.ToLower(strings.TrimSpace(cert.Domain))
	if cert.ID == "" {
		cert.ID = platform.NewID()
	}
	if cert.Provider == "" {
		cert.Provider = model.ProviderLetsEncrypt
	}
	if cert.Provider != model.ProviderLetsEncrypt && cert.Provider != model.ProviderGoogleTrust {
		return fmt.Errorf("unknown certificate provider %q", cert.Provider)
	}
	cert.Status = model.StatusPendingVerification

	// The placeholder token occupies the TXT record until an issuance
	// attempt replaces it with the order's true key authorization.
	placeholder := platform.NewToken("verify")
	cert.TXTRecord = &placeholder

	if platform.IsManagedSubdomain(cert.Domain, cfg.ServiceDomains) {
		if cfg.IntermediateDomain == "" {
			return fmt.Errorf("no intermediate domain configured for managed subdomains")
		}
		cert.DomainType = model.DomainTypeSubdomain
		parent := platform.ParentDomainFor(cert.Domain, cfg.ServiceDomains)
		prefix := platform.SubdomainPrefix(cert.Domain, parent)
		target := platform.DelegatedChallengeHost(prefix, cfg.IntermediateDomain)
		cert.CNAMERecord = &target
	} else {
		cert.DomainType = model.DomainTypeCustom
		cert.CNAMERecord = nil
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO certificates (id, hosting_account_id, domain, domain_type, provider, status, txt_record, cname_record, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())`,
		cert.ID, cert.HostingAccountID, cert.Domain, cert.DomainType, cert.Provider,
		cert.Status, cert.TXTRecord, cert.CNAMERecord,
	)
	if err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

// Upload stores customer-provided certificate material and starts the
// validation workflow, which either confirms it as issued or fails it with
// the validation error.
func (s *CertificateService) Upload(ctx context.Context, cert *model.Certificate) error {
	cert.Domain = strings.ToLower(strings.TrimSpace(cert.Domain))
	if cert.ID == "" {
		cert.ID = platform.NewID()
	}
	cert.Provider = model.ProviderCustom
	cert.DomainType = model.DomainTypeCustom
	cert.Status = model.StatusIssuing

	_, err := s.db.Exec(ctx,
		`INSERT INTO certificates (id, hosting_account_id, domain, domain_type, provider, status, cert_pem, key_pem, ca_pem, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())`,
		cert.ID, cert.HostingAccountID, cert.Domain, cert.DomainType, cert.Provider,
		cert.Status, cert.CertPEM, cert.KeyPEM, cert.CAPEM,
	)
	if err != nil {
		return fmt.Errorf("insert uploaded certificate: %w", err)
	}

	return startWorkflow(ctx, s.tc, "UploadCustomCertWorkflow", workflowID("upload-cert", cert.ID), cert.ID)
}

// StartVerification provisions the DNS validation chain via workflow. For
// custom domains the workflow only moves the certificate to verifying; the
// customer publishes the records themselves.
func (s *CertificateService) StartVerification(ctx context.Context, id string) error {
	status, err := s.status(ctx, id)
	if err != nil {
		return err
	}
	if status != model.StatusPendingVerification && status != model.StatusVerifying {
		return fmt.Errorf("certificate %s is %s: %w", id, status, ErrInvalidState)
	}
	return startWorkflow(ctx, s.tc, "StartVerificationWorkflow", workflowID("verify-cert", id), id)
}

// VerifyDomain checks whether the certificate's validation record is live
// on public DNS and, if so, moves the certificate to verified.
func (s *CertificateService) VerifyDomain(ctx context.Context, id string) (bool, error) {
	cert, err := s.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if cert.Status != model.StatusVerifying && cert.Status != model.StatusPendingVerification {
		return false, fmt.Errorf("certificate %s is %s: %w", id, cert.Status, ErrInvalidState)
	}
	if cert.TXTRecord == nil {
		return false, fmt.Errorf("certificate %s has no validation record prepared", id)
	}

	cnameTarget := ""
	if cert.DomainType == model.DomainTypeSubdomain && cert.CNAMERecord != nil {
		cnameTarget = *cert.CNAMERecord
	}

	if !s.verifier.VerifyTXT(ctx, cert.Domain, *cert.TXTRecord, cnameTarget) {
		return false, nil
	}

	_, err = s.db.Exec(ctx,
		`UPDATE certificates SET status = $1, verified_at = now(), updated_at = now()
		 WHERE id = $2 AND status IN ($3, $4)`,
		model.StatusVerified, id, model.StatusVerifying, model.StatusPendingVerification,
	)
	if err != nil {
		return false, fmt.Errorf("set certificate %s verified: %w", id, err)
	}
	return true, nil
}

// Issue runs one issuance attempt and blocks until it finishes. The
// conditional update is the concurrency lock: only a verified certificate
// can enter issuing, so concurrent calls get at most one attempt.
func (s *CertificateService) Issue(ctx context.Context, id string) error {
	var provider string
	err := s.db.QueryRow(ctx, `SELECT provider FROM certificates WHERE id = $1`, id).Scan(&provider)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("certificate %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get certificate %s: %w", id, err)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE certificates SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`,
		model.StatusIssuing, id, model.StatusVerified,
	)
	if err != nil {
		return fmt.Errorf("lock certificate %s for issuance: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		status, serr := s.status(ctx, id)
		if serr != nil {
			return serr
		}
		return fmt.Errorf("certificate %s is %s, not %s: %w", id, status, model.StatusVerified, ErrInvalidState)
	}

	err = runWorkflow(ctx, s.tc, "IssueCertificateWorkflow", workflowID("issue-cert", id), id)

	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.IssuanceAttempts.WithLabelValues(provider, result).Inc()

	return err
}

// Retry moves a failed certificate back into the flow. The target selects
// the re-entry point: verified to retry issuance directly, or
// pending_verification to redo domain verification first. Empty target
// defaults to verified.
func (s *CertificateService) Retry(ctx context.Context, id, target string) error {
	if target == "" {
		target = model.StatusVerified
	}
	if !model.IsRetryTarget(target) {
		return fmt.Errorf("invalid retry target %q: %w", target, ErrInvalidState)
	}

	status, err := s.status(ctx, id)
	if err != nil {
		return err
	}
	if status != model.StatusFailed {
		return fmt.Errorf("certificate %s is %s, not %s: %w", id, status, model.StatusFailed, ErrInvalidState)
	}

	_, err = s.db.Exec(ctx,
		`UPDATE certificates SET status = $1, last_error = NULL, updated_at = now() WHERE id = $2`,
		target, id,
	)
	if err != nil {
		return fmt.Errorf("retry certificate %s: %w", id, err)
	}
	return nil
}

func (s *CertificateService) GetByID(ctx context.Context, id string) (*model.Certificate, error) {
	c, err := scanCertificate(s.db.QueryRow(ctx,
		`SELECT `+certColumns+` FROM certificates WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("certificate %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get certificate %s: %w", id, err)
	}
	return &c, nil
}

func (s *CertificateService) ListByAccount(ctx context.Context, accountID string, limit int, cursor string) ([]model.Certificate, bool, error) {
	query := `SELECT ` + certColumns + ` FROM certificates WHERE hosting_account_id = $1`
	args := []any{accountID}
	argIdx := 2

	if cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list certificates for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var certs []model.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan certificate: %w", err)
		}
		certs = append(certs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate certificates: %w", err)
	}

	hasMore := len(certs) > limit
	if hasMore {
		certs = certs[:limit]
	}
	return certs, hasMore, nil
}

// Events lists the issuance audit trail for a certificate.
func (s *CertificateService) Events(ctx context.Context, certID string, limit int, cursor string) ([]model.IssuanceEvent, bool, error) {
	query := `SELECT id, certificate_id, stage, detail, created_at FROM issuance_events WHERE certificate_id = $1`
	args := []any{certID}
	argIdx := 2

	if cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list issuance events for %s: %w", certID, err)
	}
	defer rows.Close()

	var events []model.IssuanceEvent
	for rows.Next() {
		var e model.IssuanceEvent
		if err := rows.Scan(&e.ID, &e.CertificateID, &e.Stage, &e.Detail, &e.CreatedAt); err != nil {
			return nil, false, fmt.Errorf("scan issuance event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate issuance events: %w", err)
	}

	hasMore := len(events) > limit
	if hasMore {
		events = events[:limit]
	}
	return events, hasMore, nil
}

func (s *CertificateService) status(ctx context.Context, id string) (string, error) {
	var status string
	err := s.db.QueryRow(ctx, `SELECT status FROM certificates WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("certificate %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get certificate status %s: %w", id, err)
	}
	return status, nil
}
