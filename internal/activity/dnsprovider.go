package activity

import (
	"context"
	"fmt"

	"github.com/torvik/resellerpanel/internal/cloudflare"
)

// DNSProviderActivity manages validation records at the DNS provider. The
// API token travels in the params so a settings change takes effect on the
// next attempt without restarting workers.
type DNSProviderActivity struct {
	// newClient is injectable for tests; defaults to cloudflare.NewClient.
	newClient func(apiToken string) *cloudflare.Client
}

// NewDNSProviderActivity creates a new DNSProviderActivity.
func NewDNSProviderActivity() *DNSProviderActivity {
	return &DNSProviderActivity{newClient: cloudflare.NewClient}
}

// CreateRecordResult carries the provider reference of a created record.
type CreateRecordResult struct {
	RecordRef string
}

// CreateTXTParams describes a TXT record to publish.
type CreateTXTParams struct {
	APIToken string
	Name     string
	Value    string
}

// CreateTXTRecord publishes a dns-01 validation TXT record.
func (a *DNSProviderActivity) CreateTXTRecord(ctx context.Context, params CreateTXTParams) (*CreateRecordResult, error) {
	ref, err := a.newClient(params.APIToken).CreateRecord(ctx, cloudflare.CreateRecordParams{
		Type:    "TXT",
		Name:    params.Name,
		Content: params.Value,
	})
	if err != nil {
		return nil, fmt.Errorf("create TXT %s: %w", params.Name, err)
	}
	return &CreateRecordResult{RecordRef: ref.String()}, nil
}

// CreateCNAMEParams describes a delegation CNAME to publish.
type CreateCNAMEParams struct {
	APIToken string
	Name     string
	Target   string
}

// CreateCNAMERecord publishes the delegation CNAME pointing a customer's
// challenge host at the intermediate domain.
func (a *DNSProviderActivity) CreateCNAMERecord(ctx context.Context, params CreateCNAMEParams) (*CreateRecordResult, error) {
	ref, err := a.newClient(params.APIToken).CreateRecord(ctx, cloudflare.CreateRecordParams{
		Type:    "CNAME",
		Name:    params.Name,
		Content: params.Target,
	})
	if err != nil {
		return nil, fmt.Errorf("create CNAME %s: %w", params.Name, err)
	}
	return &CreateRecordResult{RecordRef: ref.String()}, nil
}

// DeleteRecordParams identifies a record by its composite reference.
type DeleteRecordParams struct {
	APIToken  string
	RecordRef string
}

// DeleteDNSRecord removes a previously created record. Callers treat
// failures here as best-effort cleanup: a stale TXT record is replaced, not
// a reason to abort issuance.
func (a *DNSProviderActivity) DeleteDNSRecord(ctx context.Context, params DeleteRecordParams) error {
	return a.newClient(params.APIToken).DeleteRecord(ctx, params.RecordRef)
}
