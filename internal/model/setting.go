package model

import "time"

// Setting is one key/value pair in the panel-wide settings store.
type Setting struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Settings keys consumed by the SSL issuance core.
const (
	SettingACMEEmail                = "ACME_EMAIL"
	SettingUseStaging               = "USE_STAGING"
	SettingIntermediateDomain       = "INTERMEDIATE_DOMAIN"
	SettingServiceDomains           = "SERVICE_DOMAINS"
	SettingCloudflareAPIToken       = "CLOUDFLARE_API_TOKEN"
	SettingGoogleEABKeyID           = "GOOGLE_EAB_KEY_ID"
	SettingGoogleEABHMACKey         = "GOOGLE_EAB_HMAC_KEY"
	SettingGoogleServiceAccountJSON = "GOOGLE_SERVICE_ACCOUNT_JSON"
	SettingPropagationWaitSeconds   = "DNS_PROPAGATION_WAIT_SECONDS"
)
