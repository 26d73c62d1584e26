package activity

import (
	"context"
	"fmt"

	"github.com/torvik/resellerpanel/internal/eab"
)

// EABActivity mints External Account Binding credentials for Google Trust
// Services registrations.
type EABActivity struct {
	// newProvider is injectable for tests; defaults to eab.NewProvider.
	newProvider func(credentialJSON string) *eab.Provider
}

// NewEABActivity creates a new EABActivity.
func NewEABActivity() *EABActivity {
	return &EABActivity{newProvider: eab.NewProvider}
}

// GetEABKeyParams carries the service-account credential JSON.
type GetEABKeyParams struct {
	ServiceAccountJSON string
}

// GetEABKey mints a fresh EAB key pair from the configured service account.
func (a *EABActivity) GetEABKey(ctx context.Context, params GetEABKeyParams) (*eab.Key, error) {
	key, err := a.newProvider(params.ServiceAccountJSON).GetEABKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("mint EAB key: %w", err)
	}
	return key, nil
}
