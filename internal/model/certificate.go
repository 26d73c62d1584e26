package model

import "time"

type Certificate struct {
	ID               string     `json:"id" db:"id"`
	HostingAccountID string     `json:"hosting_account_id" db:"hosting_account_id"`
	Domain           string     `json:"domain" db:"domain"`
	DomainType       string     `json:"domain_type" db:"domain_type"`
	Provider         string     `json:"provider" db:"provider"`
	Status           string     `json:"status" db:"status"`
	TXTRecord        *string    `json:"txt_record,omitempty" db:"txt_record"`
	CNAMERecord      *string    `json:"cname_record,omitempty" db:"cname_record"`
	DNSRecordID      *string    `json:"dns_record_id,omitempty" db:"dns_record_id"`
	CertPEM          *string    `json:"cert_pem,omitempty" db:"cert_pem"`
	KeyPEM           *string    `json:"key_pem,omitempty" db:"key_pem"`
	CAPEM            *string    `json:"ca_pem,omitempty" db:"ca_pem"`
	VerifiedAt       *time.Time `json:"verified_at,omitempty" db:"verified_at"`
	IssuedAt         *time.Time `json:"issued_at,omitempty" db:"issued_at"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	LastError        *string    `json:"last_error,omitempty" db:"last_error"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

const (
	DomainTypeSubdomain = "subdomain"
	DomainTypeCustom    = "custom"
)

const (
	ProviderLetsEncrypt = "lets_encrypt"
	ProviderGoogleTrust = "google_trust"
	// ProviderCustom marks customer-uploaded material that skips the ACME
	// flow entirely.
	ProviderCustom = "custom"
)

// CertValidity is the CA-defined validity window used to compute ExpiresAt
// from IssuedAt.
const CertValidity = 90 * 24 * time.Hour
