package model

import (
	"strconv"
	"strings"
	"time"
)

// SSLConfig is the issuance configuration snapshot taken from the settings
// store at the start of each attempt, so no step re-queries settings
// mid-flow.
type SSLConfig struct {
	ACMEEmail                string   `json:"acme_email"`
	UseStaging               bool     `json:"use_staging"`
	IntermediateDomain       string   `json:"intermediate_domain"`
	ServiceDomains           []string `json:"service_domains"`
	CloudflareAPIToken       string   `json:"cloudflare_api_token"`
	GoogleEABKeyID           string   `json:"google_eab_key_id"`
	GoogleEABHMACKey         string   `json:"google_eab_hmac_key"`
	GoogleServiceAccountJSON string   `json:"google_service_account_json"`
	PropagationWaitSeconds   int      `json:"propagation_wait_seconds"`
}

// SSLConfigFromSettings maps raw settings values into a typed snapshot.
// Missing keys default to zero values; the propagation wait falls back to
// 30 seconds.
func SSLConfigFromSettings(values map[string]string) *SSLConfig {
	cfg := &SSLConfig{
		ACMEEmail:                values[SettingACMEEmail],
		UseStaging:               values[SettingUseStaging] == "true",
		IntermediateDomain:       values[SettingIntermediateDomain],
		CloudflareAPIToken:       values[SettingCloudflareAPIToken],
		GoogleEABKeyID:           values[SettingGoogleEABKeyID],
		GoogleEABHMACKey:         values[SettingGoogleEABHMACKey],
		GoogleServiceAccountJSON: values[SettingGoogleServiceAccountJSON],
		PropagationWaitSeconds:   30,
	}
	for _, d := range strings.Split(values[SettingServiceDomains], ",") {
		if d = strings.TrimSpace(d); d != "" {
			cfg.ServiceDomains = append(cfg.ServiceDomains, d)
		}
	}
	if raw := values[SettingPropagationWaitSeconds]; raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 {
			cfg.PropagationWaitSeconds = secs
		}
	}
	return cfg
}

// PropagationWait is the delay observed after a DNS self-heal before the
// challenge is handed back to the CA.
func (c SSLConfig) PropagationWait() time.Duration {
	return time.Duration(c.PropagationWaitSeconds) * time.Second
}

// DirectoryURL returns the ACME directory for the given provider, honoring
// the staging flag for Let's Encrypt. Google Trust Services has no public
// staging directory toggle here; staging selects their test environment.
func (c SSLConfig) DirectoryURL(provider string) string {
	switch provider {
	case ProviderGoogleTrust:
		if c.UseStaging {
			return "https://dv.acme-v02.test-api.pki.goog/directory"
		}
		return "https://dv.acme-v02.api.pki.goog/directory"
	default:
		if c.UseStaging {
			return "https://acme-staging-v02.api.letsencrypt.org/directory"
		}
		return "https://acme-v02.api.letsencrypt.org/directory"
	}
}
