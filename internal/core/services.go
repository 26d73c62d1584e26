package core

import (
	temporalclient "go.temporal.io/sdk/client"
)

type Services struct {
	Certificate    *CertificateService
	HostingAccount *HostingAccountService
	Settings       *SettingsService
	APIKey         *APIKeyService
	Dashboard      *DashboardService
}

func NewServices(db DB, tc temporalclient.Client, verifier DNSVerifier) *Services {
	return &Services{
		Certificate:    NewCertificateService(db, tc, verifier),
		HostingAccount: NewHostingAccountService(db),
		Settings:       NewSettingsService(db),
		APIKey:         NewAPIKeyService(db),
		Dashboard:      NewDashboardService(db),
	}
}
