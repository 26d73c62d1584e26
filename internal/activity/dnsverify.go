package activity

import (
	"context"

	"github.com/torvik/resellerpanel/internal/dnscheck"
)

// DNSVerifyActivity checks validation-record visibility on public resolvers.
type DNSVerifyActivity struct {
	resolver *dnscheck.Resolver
}

// NewDNSVerifyActivity creates a new DNSVerifyActivity.
func NewDNSVerifyActivity(resolver *dnscheck.Resolver) *DNSVerifyActivity {
	if resolver == nil {
		resolver = dnscheck.NewResolver()
	}
	return &DNSVerifyActivity{resolver: resolver}
}

// VerifyDNSParams describes one visibility check.
type VerifyDNSParams struct {
	Domain        string
	ExpectedValue string
	// CNAMETarget selects delegated mode when non-empty.
	CNAMETarget string
}

// VerifyChallengeDNS reports whether the challenge record is live. It never
// returns an error: an unresolvable name is "not verified yet", and the
// caller decides whether to heal, wait, or give up.
func (a *DNSVerifyActivity) VerifyChallengeDNS(ctx context.Context, params VerifyDNSParams) (bool, error) {
	return a.resolver.VerifyTXT(ctx, params.Domain, params.ExpectedValue, params.CNAMETarget), nil
}
