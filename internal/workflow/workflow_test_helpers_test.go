package workflow

import (
	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/testsuite"

	"github.com/torvik/resellerpanel/internal/activity"
)

// registerActivities registers activity structs with the test workflow
// environment so that parameter and return types can be deserialized
// correctly by the Temporal test framework. In unit tests all activities are
// mocked via OnActivity, but the framework still needs the type information
// for serialization of parameters and return values.
func registerActivities(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterActivity(&activity.CertificateActivity{})
	env.RegisterActivity(&activity.ACMEActivity{})
	env.RegisterActivity(&activity.DNSProviderActivity{})
	env.RegisterActivity(&activity.DNSVerifyActivity{})
	env.RegisterActivity(&activity.EABActivity{})
}

// matchFailed matches a SetCertificateFailed call for the given certificate
// with any non-empty reason. The exact message includes Temporal activity
// error wrapping that is not predictable in tests.
func matchFailed(certID string) interface{} {
	return mock.MatchedBy(func(params activity.SetFailedParams) bool {
		return params.ID == certID && params.Reason != ""
	})
}

func strPtr(s string) *string { return &s }
