package activity

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/torvik/resellerpanel/internal/model"
	"github.com/torvik/resellerpanel/internal/platform"
)

// CertificateActivity contains activities for certificate persistence.
type CertificateActivity struct {
	coreDB *pgxpool.Pool
}

// NewCertificateActivity creates a new CertificateActivity struct.
func NewCertificateActivity(coreDB *pgxpool.Pool) *CertificateActivity {
	return &CertificateActivity{coreDB: coreDB}
}

const certColumns = `id, hosting_account_id, domain, domain_type, provider, status,
	txt_record, cname_record, dns_record_id, cert_pem, key_pem, ca_pem,
	verified_at, issued_at, expires_at, last_error, created_at, updated_at`

// GetCertificate loads one certificate row by ID.
func (a *CertificateActivity) GetCertificate(ctx context.Context, certID string) (*model.Certificate, error) {
	row := a.coreDB.QueryRow(ctx,
		`SELECT `+certColumns+` FROM certificates WHERE id = $1`, certID)

	var c model.Certificate
	err := row.Scan(
		&c.ID, &c.HostingAccountID, &c.Domain, &c.DomainType, &c.Provider, &c.Status,
		&c.TXTRecord, &c.CNAMERecord, &c.DNSRecordID, &c.CertPEM, &c.KeyPEM, &c.CAPEM,
		&c.VerifiedAt, &c.IssuedAt, &c.ExpiresAt, &c.LastError, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get certificate %s: %w", certID, err)
	}
	return &c, nil
}

// GetSSLConfig snapshots the issuance configuration from the settings store.
func (a *CertificateActivity) GetSSLConfig(ctx context.Context) (*model.SSLConfig, error) {
	rows, err := a.coreDB.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	values := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	return model.SSLConfigFromSettings(values), nil
}

// SetStatusParams holds parameters for a status transition.
type SetStatusParams struct {
	ID     string
	Status string
}

// SetCertificateStatus moves a certificate to a new lifecycle status.
func (a *CertificateActivity) SetCertificateStatus(ctx context.Context, params SetStatusParams) error {
	tag, err := a.coreDB.Exec(ctx,
		`UPDATE certificates SET status = $1, updated_at = now() WHERE id = $2`,
		params.Status, params.ID,
	)
	if err != nil {
		return fmt.Errorf("set certificate status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set certificate status: certificate %s not found", params.ID)
	}
	return nil
}

// SetFailedParams records a failure with its reason.
type SetFailedParams struct {
	ID     string
	Reason string
}

// SetCertificateFailed moves a certificate to failed and records the reason.
func (a *CertificateActivity) SetCertificateFailed(ctx context.Context, params SetFailedParams) error {
	_, err := a.coreDB.Exec(ctx,
		`UPDATE certificates SET status = $1, last_error = $2, updated_at = now() WHERE id = $3`,
		model.StatusFailed, params.Reason, params.ID,
	)
	if err != nil {
		return fmt.Errorf("set certificate failed: %w", err)
	}
	return nil
}

// StoreCertParams holds the issued PEM material. A zero ExpiresAt means the
// standard 90-day validity window from IssuedAt.
type StoreCertParams struct {
	ID        string
	CertPEM   string
	KeyPEM    string
	CAPEM     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// StoreIssuedCertificate atomically persists the issued material, stamps the
// validity window, clears the failure reason, and flips status to issued.
func (a *CertificateActivity) StoreIssuedCertificate(ctx context.Context, params StoreCertParams) error {
	expiresAt := params.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = params.IssuedAt.Add(model.CertValidity)
	}
	_, err := a.coreDB.Exec(ctx,
		`UPDATE certificates
		 SET cert_pem = $1, key_pem = $2, ca_pem = $3,
		     issued_at = $4, expires_at = $5,
		     status = $6, last_error = NULL, updated_at = now()
		 WHERE id = $7`,
		params.CertPEM, params.KeyPEM, params.CAPEM,
		params.IssuedAt, expiresAt, model.StatusIssued, params.ID,
	)
	if err != nil {
		return fmt.Errorf("store issued certificate: %w", err)
	}
	return nil
}

// UpdateDNSRecordParams carries a re-provisioned validation record.
type UpdateDNSRecordParams struct {
	ID          string
	TXTRecord   string
	DNSRecordID string
}

// UpdateDNSRecordRef persists the TXT value and provider record reference
// written during a DNS self-heal, so the next attempt can clean it up.
func (a *CertificateActivity) UpdateDNSRecordRef(ctx context.Context, params UpdateDNSRecordParams) error {
	_, err := a.coreDB.Exec(ctx,
		`UPDATE certificates SET txt_record = $1, dns_record_id = $2, updated_at = now() WHERE id = $3`,
		params.TXTRecord, params.DNSRecordID, params.ID,
	)
	if err != nil {
		return fmt.Errorf("update dns record ref: %w", err)
	}
	return nil
}

// AppendEventParams is one issuance audit-trail entry.
type AppendEventParams struct {
	CertificateID string
	Stage         string
	Detail        string
}

// AppendIssuanceEvent records one step of the issuance audit trail.
func (a *CertificateActivity) AppendIssuanceEvent(ctx context.Context, params AppendEventParams) error {
	_, err := a.coreDB.Exec(ctx,
		`INSERT INTO issuance_events (id, certificate_id, stage, detail, created_at)
		 VALUES ($1, $2, $3, $4, now())`,
		platform.NewID(), params.CertificateID, params.Stage, params.Detail,
	)
	if err != nil {
		return fmt.Errorf("append issuance event: %w", err)
	}
	return nil
}

// GetExpiringCerts lists issued certificates expiring within the window.
// Only managed subdomains qualify: their validation chain is under our
// control, so renewal can run unattended. Custom domains renew through an
// operator-triggered retry.
func (a *CertificateActivity) GetExpiringCerts(ctx context.Context, withinDays int) ([]string, error) {
	rows, err := a.coreDB.Query(ctx,
		`SELECT id FROM certificates
		 WHERE status = $1 AND domain_type = $2 AND expires_at IS NOT NULL
		   AND expires_at < now() + make_interval(days => $3)`,
		model.StatusIssued, model.DomainTypeSubdomain, withinDays,
	)
	if err != nil {
		return nil, fmt.Errorf("get expiring certs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expiring cert: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkExpiredCerts flips issued certificates past their expiry to expired
// and returns how many rows changed.
func (a *CertificateActivity) MarkExpiredCerts(ctx context.Context) (int64, error) {
	tag, err := a.coreDB.Exec(ctx,
		`UPDATE certificates SET status = $1, updated_at = now()
		 WHERE status = $2 AND expires_at IS NOT NULL AND expires_at < now()`,
		model.StatusExpired, model.StatusIssued,
	)
	if err != nil {
		return 0, fmt.Errorf("mark expired certs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CustomCertInfo holds the validity window read from an uploaded cert.
type CustomCertInfo struct {
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ValidateCustomCert parses an X.509 certificate, verifies the private key
// matches, and returns the validity window. Used for customer-uploaded
// certificates.
func (a *CertificateActivity) ValidateCustomCert(ctx context.Context, certPEM, keyPEM string) (*CustomCertInfo, error) {
	if _, err := tls.X509KeyPair([]byte(certPEM), []byte(keyPEM)); err != nil {
		return nil, fmt.Errorf("certificate and key do not match: %w", err)
	}

	block, _ := pem.Decode([]byte(certPEM))
	if block == nil {
		return nil, fmt.Errorf("failed to decode certificate PEM")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	if time.Now().After(cert.NotAfter) {
		return nil, fmt.Errorf("certificate has expired at %s", cert.NotAfter)
	}

	keyBlock, _ := pem.Decode([]byte(keyPEM))
	if keyBlock == nil {
		return nil, fmt.Errorf("failed to decode private key PEM")
	}
	if _, err := parsePrivateKey(keyBlock.Bytes); err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &CustomCertInfo{IssuedAt: cert.NotBefore, ExpiresAt: cert.NotAfter}, nil
}

// parsePrivateKey tries to parse a private key in PKCS8, PKCS1, or EC formats.
func parsePrivateKey(der []byte) (any, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		switch key.(type) {
		case *rsa.PrivateKey, *ecdsa.PrivateKey, ed25519.PrivateKey:
			return key, nil
		default:
			return nil, fmt.Errorf("unsupported private key type in PKCS8")
		}
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("failed to parse private key")
}
