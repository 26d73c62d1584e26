package platform

import "strings"

// IsManagedSubdomain reports whether domain equals, or is a subdomain of,
// one of the service-managed parent domains. Comparison is case-insensitive.
func IsManagedSubdomain(domain string, parents []string) bool {
	return ParentDomainFor(domain, parents) != ""
}

// ParentDomainFor returns the first managed parent domain that domain equals
// or falls under, or "" if none matches.
func ParentDomainFor(domain string, parents []string) string {
	d := strings.ToLower(strings.TrimSuffix(domain, "."))
	for _, p := range parents {
		parent := strings.ToLower(strings.TrimSpace(p))
		if parent == "" {
			continue
		}
		if d == parent || strings.HasSuffix(d, "."+parent) {
			return parent
		}
	}
	return ""
}

// SubdomainPrefix returns the label portion of domain before ".<parent>".
// If domain does not actually end with ".<parent>" the original domain is
// returned unchanged.
func SubdomainPrefix(domain, parent string) string {
	d := strings.ToLower(strings.TrimSuffix(domain, "."))
	p := strings.ToLower(strings.TrimSpace(parent))
	if p == "" || !strings.HasSuffix(d, "."+p) {
		return domain
	}
	return strings.TrimSuffix(d, "."+p)
}

// DelegatedChallengeHost builds the TXT record host on the intermediate
// domain used for CNAME-delegated dns-01 validation of a managed subdomain.
// Example: prefix "shop", intermediate "acme-proxy.example.net" ->
// "_acme-challenge.shop.acme-proxy.example.net".
func DelegatedChallengeHost(prefix, intermediateDomain string) string {
	return "_acme-challenge." + prefix + "." + intermediateDomain
}

// ChallengeHost returns the standard dns-01 challenge host for a domain.
func ChallengeHost(domain string) string {
	return "_acme-challenge." + domain
}
