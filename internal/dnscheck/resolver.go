// Package dnscheck answers "is this validation record visible yet?" using
// authoritative lookups against explicitly configured public resolvers, so
// answers are never served from the host's stub resolver cache.
package dnscheck

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog"

	"github.com/torvik/resellerpanel/internal/platform"
)

// DefaultServers are the public resolvers queried when none are configured.
var DefaultServers = []string{"1.1.1.1:53", "8.8.8.8:53"}

type Resolver struct {
	servers []string
	timeout time.Duration
	log     zerolog.Logger

	// Injectable for tests; default to the miekg/dns implementations.
	lookupTXT   func(ctx context.Context, name string) ([]string, error)
	lookupCNAME func(ctx context.Context, name string) (string, error)
}

func NewResolver(servers ...string) *Resolver {
	if len(servers) == 0 {
		servers = DefaultServers
	}
	r := &Resolver{
		servers: servers,
		timeout: 5 * time.Second,
		log:     zerolog.Nop(),
	}
	r.lookupTXT = r.queryTXT
	r.lookupCNAME = r.queryCNAME
	return r
}

// WithLogger returns the same resolver logging verification progress to log.
func (r *Resolver) WithLogger(log zerolog.Logger) *Resolver {
	r.log = log
	return r
}

// VerifyTXT reports whether the dns-01 TXT record for domain is live with
// the expected value.
//
// Direct mode (cnameTarget == ""): the TXT set at _acme-challenge.<domain>
// must contain expectedValue.
//
// Delegated mode (cnameTarget != ""): the CNAME at _acme-challenge.<domain>
// must resolve, and the TXT set at its target must contain expectedValue.
// A correct TXT value sitting at cnameTarget while the CNAME has not
// propagated is reported as not verified: downstream validation resolves the
// full chain, so the chain itself must be live.
//
// Resolver errors mean "not yet verified", never a failure; propagation
// delay is an expected condition.
func (r *Resolver) VerifyTXT(ctx context.Context, domain, expectedValue, cnameTarget string) bool {
	challengeHost := platform.ChallengeHost(domain)

	if cnameTarget == "" {
		return r.txtMatches(ctx, challengeHost, expectedValue)
	}

	target, err := r.lookupCNAME(ctx, challengeHost)
	if err != nil || target == "" {
		// The intermediate record may already be correct, but that alone is
		// not sufficient. Worth telling apart from "nothing published yet"
		// when reading worker logs.
		if r.txtMatches(ctx, cnameTarget, expectedValue) {
			r.log.Info().Str("domain", domain).Str("target", cnameTarget).
				Msg("validation TXT is live at the delegation target but the CNAME has not propagated")
		}
		return false
	}

	return r.txtMatches(ctx, strings.TrimSuffix(target, "."), expectedValue)
}

// VerifyCNAME reports whether the CNAME at _acme-challenge.<domain> points
// at expectedTarget.
func (r *Resolver) VerifyCNAME(ctx context.Context, domain, expectedTarget string) bool {
	target, err := r.lookupCNAME(ctx, platform.ChallengeHost(domain))
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSuffix(target, "."), strings.TrimSuffix(expectedTarget, "."))
}

func (r *Resolver) txtMatches(ctx context.Context, name, expected string) bool {
	values, err := r.lookupTXT(ctx, name)
	if err != nil {
		return false
	}
	for _, v := range values {
		if v == expected {
			return true
		}
	}
	return false
}

// --- miekg/dns plumbing ---

func (r *Resolver) queryTXT(ctx context.Context, name string) ([]string, error) {
	msg, err := r.exchange(ctx, name, dns.TypeTXT)
	if err != nil {
		return nil, err
	}
	var values []string
	for _, rr := range msg.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			values = append(values, strings.Join(txt.Txt, ""))
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no TXT records for %s", name)
	}
	return values, nil
}

func (r *Resolver) queryCNAME(ctx context.Context, name string) (string, error) {
	msg, err := r.exchange(ctx, name, dns.TypeCNAME)
	if err != nil {
		return "", err
	}
	for _, rr := range msg.Answer {
		if cname, ok := rr.(*dns.CNAME); ok {
			return cname.Target, nil
		}
	}
	return "", fmt.Errorf("no CNAME record for %s", name)
}

// exchange queries each configured resolver in order and returns the first
// answer that carries records.
func (r *Resolver) exchange(ctx context.Context, name string, qtype uint16) (*dns.Msg, error) {
	client := &dns.Client{Timeout: r.timeout}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		resp, _, err := client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("query %s: rcode %s", name, dns.RcodeToString[resp.Rcode])
			continue
		}
		if len(resp.Answer) == 0 {
			lastErr = fmt.Errorf("query %s: empty answer", name)
			continue
		}
		return resp, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("query %s: no resolvers configured", name)
	}
	return nil, lastErr
}
