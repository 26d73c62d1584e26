package request

type CreateCertificate struct {
	Domain   string `json:"domain" validate:"required,domain"`
	Provider string `json:"provider" validate:"omitempty,oneof=lets_encrypt google_trust"`
}

type UploadCertificate struct {
	Domain  string `json:"domain" validate:"required,domain"`
	CertPEM string `json:"cert_pem" validate:"required"`
	KeyPEM  string `json:"key_pem" validate:"required"`
	CAPEM   string `json:"ca_pem"`
}

type RetryCertificate struct {
	Target string `json:"target" validate:"omitempty,oneof=verified pending_verification"`
}
