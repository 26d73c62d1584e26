package workflow

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"github.com/torvik/resellerpanel/internal/activity"
	"github.com/torvik/resellerpanel/internal/eab"
	"github.com/torvik/resellerpanel/internal/model"
)

// quietConfig disables the propagation wait so self-heal tests don't depend
// on timer skipping.
func quietConfig() *model.SSLConfig {
	return &model.SSLConfig{
		ACMEEmail:          "ssl@panel.net",
		IntermediateDomain: "ssl.panel.net",
		ServiceDomains:     []string{"example.app"},
		CloudflareAPIToken: "cf-token",
	}
}

func subdomainCert(certID string) *model.Certificate {
	return &model.Certificate{
		ID:          certID,
		Domain:      "shop.example.app",
		DomainType:  model.DomainTypeSubdomain,
		Provider:    model.ProviderLetsEncrypt,
		Status:      model.StatusIssuing,
		TXTRecord:   strPtr("placeholder-token"),
		CNAMERecord: strPtr("_acme-challenge.shop.ssl.panel.net"),
		DNSRecordID: strPtr("zone-1:rec-1"),
	}
}

// ---------- IssueCertificateWorkflow ----------

type IssueCertificateWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *IssueCertificateWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
	s.env.OnActivity("AppendIssuanceEvent", mock.Anything, mock.Anything).Return(nil).Maybe()
}

func (s *IssueCertificateWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func (s *IssueCertificateWorkflowTestSuite) TestSuccess_RecordAlreadyLive() {
	certID := "cert-1"

	s.env.OnActivity("GetSSLConfig", mock.Anything).Return(quietConfig(), nil)
	s.env.OnActivity("GetCertificate", mock.Anything, certID).Return(subdomainCert(certID), nil)
	s.env.OnActivity("CreateOrder", mock.Anything, mock.Anything).Return(&activity.ACMEOrderResult{
		OrderURL:  "https://ca/order/1",
		AuthzURLs: []string{"https://ca/authz/1"},
	}, nil)
	s.env.OnActivity("GetDNS01Challenge", mock.Anything, mock.Anything).Return(&activity.ACMEChallengeResult{
		ChallengeURL: "https://ca/chal/1",
		Token:        "tok",
		TXTValue:     "true-key-auth",
	}, nil)
	s.env.OnActivity("VerifyChallengeDNS", mock.Anything, activity.VerifyDNSParams{
		Domain:        "shop.example.app",
		ExpectedValue: "true-key-auth",
		CNAMETarget:   "_acme-challenge.shop.ssl.panel.net",
	}).Return(true, nil)
	s.env.OnActivity("AcceptChallenge", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("FinalizeOrder", mock.Anything, mock.Anything).Return(&activity.ACMEFinalizeResult{
		CertPEM: "CERT", KeyPEM: "KEY", CAPEM: "CA",
	}, nil)
	s.env.OnActivity("StoreIssuedCertificate", mock.Anything, mock.Anything).Return(nil)

	s.env.ExecuteWorkflow(IssueCertificateWorkflow, certID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *IssueCertificateWorkflowTestSuite) TestSelfHeal_RewritesRecordBeforeAccept() {
	certID := "cert-2"

	s.env.OnActivity("GetSSLConfig", mock.Anything).Return(quietConfig(), nil)
	s.env.OnActivity("GetCertificate", mock.Anything, certID).Return(subdomainCert(certID), nil)
	s.env.OnActivity("CreateOrder", mock.Anything, mock.Anything).Return(&activity.ACMEOrderResult{
		OrderURL:  "https://ca/order/2",
		AuthzURLs: []string{"https://ca/authz/2"},
	}, nil)
	s.env.OnActivity("GetDNS01Challenge", mock.Anything, mock.Anything).Return(&activity.ACMEChallengeResult{
		ChallengeURL: "https://ca/chal/2",
		TXTValue:     "true-key-auth",
	}, nil)
	// Placeholder value still published, so the true key auth is not visible.
	s.env.OnActivity("VerifyChallengeDNS", mock.Anything, mock.Anything).Return(false, nil)
	s.env.OnActivity("DeleteDNSRecord", mock.Anything, activity.DeleteRecordParams{
		APIToken:  "cf-token",
		RecordRef: "zone-1:rec-1",
	}).Return(nil)
	s.env.OnActivity("CreateTXTRecord", mock.Anything, activity.CreateTXTParams{
		APIToken: "cf-token",
		Name:     "_acme-challenge.shop.ssl.panel.net",
		Value:    "true-key-auth",
	}).Return(&activity.CreateRecordResult{RecordRef: "zone-1:rec-2"}, nil)
	s.env.OnActivity("UpdateDNSRecordRef", mock.Anything, activity.UpdateDNSRecordParams{
		ID:          certID,
		TXTRecord:   "true-key-auth",
		DNSRecordID: "zone-1:rec-2",
	}).Return(nil)
	s.env.OnActivity("AcceptChallenge", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("FinalizeOrder", mock.Anything, mock.Anything).Return(&activity.ACMEFinalizeResult{
		CertPEM: "CERT", KeyPEM: "KEY", CAPEM: "CA",
	}, nil)
	s.env.OnActivity("StoreIssuedCertificate", mock.Anything, mock.Anything).Return(nil)

	s.env.ExecuteWorkflow(IssueCertificateWorkflow, certID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

// The stale-record delete is best effort; a provider error there must not
// stop the replacement record or the attempt.
func (s *IssueCertificateWorkflowTestSuite) TestSelfHeal_DeleteFailure_StillRewritesAndAccepts() {
	certID := "cert-7"

	s.env.OnActivity("GetSSLConfig", mock.Anything).Return(quietConfig(), nil)
	s.env.OnActivity("GetCertificate", mock.Anything, certID).Return(subdomainCert(certID), nil)
	s.env.OnActivity("CreateOrder", mock.Anything, mock.Anything).Return(&activity.ACMEOrderResult{
		OrderURL:  "https://ca/order/7",
		AuthzURLs: []string{"https://ca/authz/7"},
	}, nil)
	s.env.OnActivity("GetDNS01Challenge", mock.Anything, mock.Anything).Return(&activity.ACMEChallengeResult{
		ChallengeURL: "https://ca/chal/7",
		TXTValue:     "true-key-auth",
	}, nil)
	s.env.OnActivity("VerifyChallengeDNS", mock.Anything, mock.Anything).Return(false, nil)
	s.env.OnActivity("DeleteDNSRecord", mock.Anything, activity.DeleteRecordParams{
		APIToken:  "cf-token",
		RecordRef: "zone-1:rec-1",
	}).Return(fmt.Errorf("record not found"))
	s.env.OnActivity("CreateTXTRecord", mock.Anything, activity.CreateTXTParams{
		APIToken: "cf-token",
		Name:     "_acme-challenge.shop.ssl.panel.net",
		Value:    "true-key-auth",
	}).Return(&activity.CreateRecordResult{RecordRef: "zone-1:rec-9"}, nil)
	s.env.OnActivity("UpdateDNSRecordRef", mock.Anything, activity.UpdateDNSRecordParams{
		ID:          certID,
		TXTRecord:   "true-key-auth",
		DNSRecordID: "zone-1:rec-9",
	}).Return(nil)
	s.env.OnActivity("AcceptChallenge", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("FinalizeOrder", mock.Anything, mock.Anything).Return(&activity.ACMEFinalizeResult{
		CertPEM: "CERT", KeyPEM: "KEY", CAPEM: "CA",
	}, nil)
	s.env.OnActivity("StoreIssuedCertificate", mock.Anything, mock.Anything).Return(nil)

	s.env.ExecuteWorkflow(IssueCertificateWorkflow, certID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
	s.env.AssertNotCalled(s.T(), "SetCertificateFailed", mock.Anything, mock.Anything)
}

// A custom domain's published TXT is rarely this order's key authorization,
// so the pre-check reports not visible. The workflow must not fail there:
// the zone is the customer's, nothing can be rewritten, and the CA's own
// validation is what decides the attempt.
func (s *IssueCertificateWorkflowTestSuite) TestCustomDomainNotVisible_ProceedsToCA() {
	certID := "cert-3"
	cert := &model.Certificate{
		ID:         certID,
		Domain:     "www.customer.com",
		DomainType: model.DomainTypeCustom,
		Provider:   model.ProviderLetsEncrypt,
		Status:     model.StatusIssuing,
		TXTRecord:  strPtr("placeholder-token"),
	}

	s.env.OnActivity("GetSSLConfig", mock.Anything).Return(quietConfig(), nil)
	s.env.OnActivity("GetCertificate", mock.Anything, certID).Return(cert, nil)
	s.env.OnActivity("CreateOrder", mock.Anything, mock.Anything).Return(&activity.ACMEOrderResult{
		OrderURL:  "https://ca/order/3",
		AuthzURLs: []string{"https://ca/authz/3"},
	}, nil)
	s.env.OnActivity("GetDNS01Challenge", mock.Anything, mock.Anything).Return(&activity.ACMEChallengeResult{
		ChallengeURL: "https://ca/chal/3",
		TXTValue:     "true-key-auth",
	}, nil)
	s.env.OnActivity("VerifyChallengeDNS", mock.Anything, mock.Anything).Return(false, nil)
	s.env.OnActivity("AcceptChallenge", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("FinalizeOrder", mock.Anything, mock.Anything).Return(&activity.ACMEFinalizeResult{
		CertPEM: "CERT", KeyPEM: "KEY", CAPEM: "CA",
	}, nil)
	s.env.OnActivity("StoreIssuedCertificate", mock.Anything, mock.Anything).Return(nil)

	s.env.ExecuteWorkflow(IssueCertificateWorkflow, certID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
	s.env.AssertNotCalled(s.T(), "CreateTXTRecord", mock.Anything, mock.Anything)
	s.env.AssertNotCalled(s.T(), "SetCertificateFailed", mock.Anything, mock.Anything)
}

func (s *IssueCertificateWorkflowTestSuite) TestGoogleTrust_MintsFreshEABKey() {
	certID := "cert-4"
	cert := subdomainCert(certID)
	cert.Provider = model.ProviderGoogleTrust

	cfg := quietConfig()
	cfg.GoogleServiceAccountJSON = `{"type":"service_account"}`

	s.env.OnActivity("GetSSLConfig", mock.Anything).Return(cfg, nil)
	s.env.OnActivity("GetCertificate", mock.Anything, certID).Return(cert, nil)
	s.env.OnActivity("GetEABKey", mock.Anything, activity.GetEABKeyParams{
		ServiceAccountJSON: `{"type":"service_account"}`,
	}).Return(&eab.Key{KeyID: "key-1", HMACKey: "aG1hYw"}, nil)
	s.env.OnActivity("CreateOrder", mock.Anything, mock.MatchedBy(func(params activity.ACMEOrderParams) bool {
		return params.EABKeyID == "key-1" && params.EABHMACKey == "aG1hYw" &&
			params.DirectoryURL == "https://dv.acme-v02.api.pki.goog/directory"
	})).Return(&activity.ACMEOrderResult{
		OrderURL:  "https://ca/order/4",
		AuthzURLs: []string{"https://ca/authz/4"},
	}, nil)
	s.env.OnActivity("GetDNS01Challenge", mock.Anything, mock.Anything).Return(&activity.ACMEChallengeResult{
		ChallengeURL: "https://ca/chal/4",
		TXTValue:     "true-key-auth",
	}, nil)
	s.env.OnActivity("VerifyChallengeDNS", mock.Anything, mock.Anything).Return(true, nil)
	s.env.OnActivity("AcceptChallenge", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("FinalizeOrder", mock.Anything, mock.Anything).Return(&activity.ACMEFinalizeResult{
		CertPEM: "CERT", KeyPEM: "KEY", CAPEM: "CA",
	}, nil)
	s.env.OnActivity("StoreIssuedCertificate", mock.Anything, mock.Anything).Return(nil)

	s.env.ExecuteWorkflow(IssueCertificateWorkflow, certID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *IssueCertificateWorkflowTestSuite) TestGoogleTrust_NoEABConfig_FailsBeforeOrder() {
	certID := "cert-5"
	cert := subdomainCert(certID)
	cert.Provider = model.ProviderGoogleTrust

	// No service account and no static key pair configured.
	s.env.OnActivity("GetSSLConfig", mock.Anything).Return(quietConfig(), nil)
	s.env.OnActivity("GetCertificate", mock.Anything, certID).Return(cert, nil)
	s.env.OnActivity("SetCertificateFailed", mock.Anything, matchFailed(certID)).Return(nil)

	s.env.ExecuteWorkflow(IssueCertificateWorkflow, certID)
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
	s.env.AssertNotCalled(s.T(), "CreateOrder", mock.Anything, mock.Anything)
}

func (s *IssueCertificateWorkflowTestSuite) TestAcceptFails_SetsStatusFailed() {
	certID := "cert-6"

	s.env.OnActivity("GetSSLConfig", mock.Anything).Return(quietConfig(), nil)
	s.env.OnActivity("GetCertificate", mock.Anything, certID).Return(subdomainCert(certID), nil)
	s.env.OnActivity("CreateOrder", mock.Anything, mock.Anything).Return(&activity.ACMEOrderResult{
		OrderURL:  "https://ca/order/6",
		AuthzURLs: []string{"https://ca/authz/6"},
	}, nil)
	s.env.OnActivity("GetDNS01Challenge", mock.Anything, mock.Anything).Return(&activity.ACMEChallengeResult{
		ChallengeURL: "https://ca/chal/6",
		TXTValue:     "true-key-auth",
	}, nil)
	s.env.OnActivity("VerifyChallengeDNS", mock.Anything, mock.Anything).Return(true, nil)
	s.env.OnActivity("AcceptChallenge", mock.Anything, mock.Anything).Return(fmt.Errorf("authorization ended invalid"))
	s.env.OnActivity("SetCertificateFailed", mock.Anything, matchFailed(certID)).Return(nil)

	s.env.ExecuteWorkflow(IssueCertificateWorkflow, certID)
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

// ---------- StartVerificationWorkflow ----------

type StartVerificationWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *StartVerificationWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
	s.env.OnActivity("AppendIssuanceEvent", mock.Anything, mock.Anything).Return(nil).Maybe()
}

func (s *StartVerificationWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func (s *StartVerificationWorkflowTestSuite) TestSubdomain_ProvisionsChain() {
	certID := "cert-10"
	cert := subdomainCert(certID)
	cert.Status = model.StatusPendingVerification
	cert.DNSRecordID = nil

	s.env.OnActivity("GetSSLConfig", mock.Anything).Return(quietConfig(), nil)
	s.env.OnActivity("GetCertificate", mock.Anything, certID).Return(cert, nil)
	s.env.OnActivity("SetCertificateStatus", mock.Anything, activity.SetStatusParams{
		ID: certID, Status: model.StatusVerifying,
	}).Return(nil)
	s.env.OnActivity("CreateTXTRecord", mock.Anything, activity.CreateTXTParams{
		APIToken: "cf-token",
		Name:     "_acme-challenge.shop.ssl.panel.net",
		Value:    "placeholder-token",
	}).Return(&activity.CreateRecordResult{RecordRef: "zone-1:rec-7"}, nil)
	s.env.OnActivity("UpdateDNSRecordRef", mock.Anything, activity.UpdateDNSRecordParams{
		ID:          certID,
		TXTRecord:   "placeholder-token",
		DNSRecordID: "zone-1:rec-7",
	}).Return(nil)
	s.env.OnActivity("CreateCNAMERecord", mock.Anything, activity.CreateCNAMEParams{
		APIToken: "cf-token",
		Name:     "_acme-challenge.shop.example.app",
		Target:   "_acme-challenge.shop.ssl.panel.net",
	}).Return(&activity.CreateRecordResult{RecordRef: "zone-2:rec-8"}, nil)

	s.env.ExecuteWorkflow(StartVerificationWorkflow, certID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *StartVerificationWorkflowTestSuite) TestCustomDomain_NoProviderWrites() {
	certID := "cert-11"
	cert := &model.Certificate{
		ID:         certID,
		Domain:     "www.customer.com",
		DomainType: model.DomainTypeCustom,
		Provider:   model.ProviderLetsEncrypt,
		Status:     model.StatusPendingVerification,
		TXTRecord:  strPtr("placeholder-token"),
	}

	s.env.OnActivity("GetSSLConfig", mock.Anything).Return(quietConfig(), nil)
	s.env.OnActivity("GetCertificate", mock.Anything, certID).Return(cert, nil)
	s.env.OnActivity("SetCertificateStatus", mock.Anything, activity.SetStatusParams{
		ID: certID, Status: model.StatusVerifying,
	}).Return(nil)

	s.env.ExecuteWorkflow(StartVerificationWorkflow, certID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
	s.env.AssertNotCalled(s.T(), "CreateTXTRecord", mock.Anything, mock.Anything)
	s.env.AssertNotCalled(s.T(), "CreateCNAMERecord", mock.Anything, mock.Anything)
}

func (s *StartVerificationWorkflowTestSuite) TestTXTCreateFails_SetsStatusFailed() {
	certID := "cert-12"
	cert := subdomainCert(certID)
	cert.Status = model.StatusPendingVerification

	s.env.OnActivity("GetSSLConfig", mock.Anything).Return(quietConfig(), nil)
	s.env.OnActivity("GetCertificate", mock.Anything, certID).Return(cert, nil)
	s.env.OnActivity("SetCertificateStatus", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("CreateTXTRecord", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("zone not found"))
	s.env.OnActivity("SetCertificateFailed", mock.Anything, matchFailed(certID)).Return(nil)

	s.env.ExecuteWorkflow(StartVerificationWorkflow, certID)
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

// ---------- UploadCustomCertWorkflow ----------

type UploadCustomCertWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *UploadCustomCertWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
	s.env.OnActivity("AppendIssuanceEvent", mock.Anything, mock.Anything).Return(nil).Maybe()
}

func (s *UploadCustomCertWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func (s *UploadCustomCertWorkflowTestSuite) TestSuccess() {
	certID := "cert-30"
	cert := &model.Certificate{
		ID:         certID,
		Domain:     "www.customer.com",
		DomainType: model.DomainTypeCustom,
		Provider:   model.ProviderCustom,
		Status:     model.StatusIssuing,
		CertPEM:    strPtr("CERT_PEM_DATA"),
		KeyPEM:     strPtr("KEY_PEM_DATA"),
		CAPEM:      strPtr("CA_PEM_DATA"),
	}

	s.env.OnActivity("GetCertificate", mock.Anything, certID).Return(cert, nil)
	s.env.OnActivity("ValidateCustomCert", mock.Anything, "CERT_PEM_DATA", "KEY_PEM_DATA").
		Return(&activity.CustomCertInfo{}, nil)
	s.env.OnActivity("StoreIssuedCertificate", mock.Anything, mock.MatchedBy(func(params activity.StoreCertParams) bool {
		return params.ID == certID && params.CertPEM == "CERT_PEM_DATA" && params.CAPEM == "CA_PEM_DATA"
	})).Return(nil)

	s.env.ExecuteWorkflow(UploadCustomCertWorkflow, certID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *UploadCustomCertWorkflowTestSuite) TestValidationFails_SetsStatusFailed() {
	certID := "cert-31"
	cert := &model.Certificate{
		ID:       certID,
		Domain:   "www.customer.com",
		Provider: model.ProviderCustom,
		Status:   model.StatusIssuing,
		CertPEM:  strPtr("BAD_CERT"),
		KeyPEM:   strPtr("BAD_KEY"),
	}

	s.env.OnActivity("GetCertificate", mock.Anything, certID).Return(cert, nil)
	s.env.OnActivity("ValidateCustomCert", mock.Anything, "BAD_CERT", "BAD_KEY").
		Return(nil, fmt.Errorf("certificate and key do not match"))
	s.env.OnActivity("SetCertificateFailed", mock.Anything, matchFailed(certID)).Return(nil)

	s.env.ExecuteWorkflow(UploadCustomCertWorkflow, certID)
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

// ---------- CertExpiryMonitorWorkflow ----------

type CertExpiryMonitorWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *CertExpiryMonitorWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
	s.env.RegisterWorkflow(IssueCertificateWorkflow)
}

func (s *CertExpiryMonitorWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func (s *CertExpiryMonitorWorkflowTestSuite) TestNothingExpiring() {
	s.env.OnActivity("MarkExpiredCerts", mock.Anything).Return(int64(2), nil)
	s.env.OnActivity("GetExpiringCerts", mock.Anything, 30).Return([]string{}, nil)

	s.env.ExecuteWorkflow(CertExpiryMonitorWorkflow)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *CertExpiryMonitorWorkflowTestSuite) TestRenewsExpiringCert() {
	certID := "cert-20"

	s.env.OnActivity("MarkExpiredCerts", mock.Anything).Return(int64(0), nil)
	s.env.OnActivity("GetExpiringCerts", mock.Anything, 30).Return([]string{certID}, nil)
	s.env.OnActivity("SetCertificateStatus", mock.Anything, activity.SetStatusParams{
		ID: certID, Status: model.StatusIssuing,
	}).Return(nil)
	s.env.OnWorkflow(IssueCertificateWorkflow, mock.Anything, certID).Return(nil)

	s.env.ExecuteWorkflow(CertExpiryMonitorWorkflow)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *CertExpiryMonitorWorkflowTestSuite) TestRenewFailure_ContinuesWorkflow() {
	certID := "cert-21"

	s.env.OnActivity("MarkExpiredCerts", mock.Anything).Return(int64(0), nil)
	s.env.OnActivity("GetExpiringCerts", mock.Anything, 30).Return([]string{certID}, nil)
	s.env.OnActivity("SetCertificateStatus", mock.Anything, mock.Anything).Return(nil)
	s.env.OnWorkflow(IssueCertificateWorkflow, mock.Anything, certID).Return(fmt.Errorf("CA unreachable"))

	s.env.ExecuteWorkflow(CertExpiryMonitorWorkflow)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

// ---------- Run all suites ----------

func TestIssueCertificateWorkflow(t *testing.T) {
	suite.Run(t, new(IssueCertificateWorkflowTestSuite))
}

func TestStartVerificationWorkflow(t *testing.T) {
	suite.Run(t, new(StartVerificationWorkflowTestSuite))
}

func TestUploadCustomCertWorkflow(t *testing.T) {
	suite.Run(t, new(UploadCustomCertWorkflowTestSuite))
}

func TestCertExpiryMonitorWorkflow(t *testing.T) {
	suite.Run(t, new(CertExpiryMonitorWorkflowTestSuite))
}
