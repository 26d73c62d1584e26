// Package eab obtains External Account Binding credentials from the Google
// Public CA API. Google Trust Services requires an EAB key pair before it
// accepts ACME account registration; each minted key is intended for a
// single registration, so a fresh key is requested per issuance attempt.
package eab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
)

const (
	defaultBaseURL = "https://publicca.googleapis.com/v1"
	tokenScope     = "https://www.googleapis.com/auth/cloud-platform"
)

var (
	// ErrNotConfigured indicates no service-account credential is configured.
	ErrNotConfigured = errors.New("eab: service account not configured")
	// ErrInvalidCredential indicates the service-account JSON is malformed
	// or missing required fields.
	ErrInvalidCredential = errors.New("eab: invalid service account credential")
	// ErrAuthFailed indicates the token exchange produced no usable token.
	ErrAuthFailed = errors.New("eab: authentication failed")
	// ErrPermissionDenied maps HTTP 403 from the Public CA API.
	ErrPermissionDenied = errors.New("eab: permission denied (grant roles/publicca.externalAccountKeyCreator to the service account)")
	// ErrAPINotEnabled maps HTTP 404 from the Public CA API.
	ErrAPINotEnabled = errors.New("eab: Public CA API not enabled for this project")
	// ErrMalformedResponse indicates the key-creation response lacked fields.
	ErrMalformedResponse = errors.New("eab: malformed key-creation response")
)

// APIError is returned for any other non-2xx Public CA response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("eab: API error: status %d: %s", e.StatusCode, e.Body)
}

// Key is a freshly minted EAB credential pair. HMACKey is base64url-encoded
// as returned by the CA.
type Key struct {
	KeyID   string `json:"key_id"`
	HMACKey string `json:"hmac_key"`
}

// serviceAccount is the subset of the credential JSON validated up front.
type serviceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

type Provider struct {
	credentialJSON []byte
	httpClient     *http.Client
	baseURL        string

	// token exchanges the service-account credential for a short-lived
	// bearer token. Injectable for tests.
	token func(ctx context.Context, credentialJSON []byte) (string, error)
}

// NewProvider creates a provider from raw service-account JSON. An empty
// credential is allowed at construction; calls fail with ErrNotConfigured.
func NewProvider(credentialJSON string) *Provider {
	p := &Provider{
		credentialJSON: []byte(credentialJSON),
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		baseURL:        defaultBaseURL,
	}
	p.token = exchangeToken
	return p
}

// NewProviderWithBaseURL is used by tests to point at a stub server.
func NewProviderWithBaseURL(credentialJSON, baseURL string) *Provider {
	p := NewProvider(credentialJSON)
	p.baseURL = strings.TrimSuffix(baseURL, "/")
	return p
}

func (p *Provider) parseCredential() (*serviceAccount, error) {
	if len(bytes.TrimSpace(p.credentialJSON)) == 0 {
		return nil, ErrNotConfigured
	}
	var sa serviceAccount
	if err := json.Unmarshal(p.credentialJSON, &sa); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if sa.ProjectID == "" || sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, fmt.Errorf("%w: missing project_id, client_email or private_key", ErrInvalidCredential)
	}
	return &sa, nil
}

// GetEABKey mints a fresh external-account key for ACME registration.
func (p *Provider) GetEABKey(ctx context.Context) (*Key, error) {
	sa, err := p.parseCredential()
	if err != nil {
		return nil, err
	}

	bearer, err := p.token(ctx, p.credentialJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	url := fmt.Sprintf("%s/projects/%s/locations/global/externalAccountKeys", p.baseURL, sa.ProjectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader("{}"))
	if err != nil {
		return nil, fmt.Errorf("build key request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create external account key: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read key response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, ErrPermissionDenied
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrAPINotEnabled
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var parsed struct {
		KeyID     string `json:"keyId"`
		B64MacKey string `json:"b64MacKey"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if parsed.KeyID == "" || parsed.B64MacKey == "" {
		return nil, fmt.Errorf("%w: keyId or b64MacKey missing", ErrMalformedResponse)
	}

	return &Key{KeyID: parsed.KeyID, HMACKey: parsed.B64MacKey}, nil
}

// AccountStatus is the result of a credential self-test.
type AccountStatus struct {
	OK        bool   `json:"ok"`
	ProjectID string `json:"project_id"`
	Email     string `json:"email"`
}

// TestServiceAccount validates the configured credential and performs a
// token exchange without minting a key. Used by the operator diagnostics
// screen; it has no side effects on the CA.
func (p *Provider) TestServiceAccount(ctx context.Context) (*AccountStatus, error) {
	sa, err := p.parseCredential()
	if err != nil {
		return nil, err
	}
	if _, err := p.token(ctx, p.credentialJSON); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	return &AccountStatus{OK: true, ProjectID: sa.ProjectID, Email: sa.ClientEmail}, nil
}

// exchangeToken trades the service-account key for a short-lived bearer
// token scoped to the Public CA API.
func exchangeToken(ctx context.Context, credentialJSON []byte) (string, error) {
	conf, err := google.JWTConfigFromJSON(credentialJSON, tokenScope)
	if err != nil {
		return "", fmt.Errorf("parse JWT config: %w", err)
	}
	tok, err := conf.TokenSource(ctx).Token()
	if err != nil {
		return "", fmt.Errorf("fetch token: %w", err)
	}
	if tok == nil || tok.AccessToken == "" {
		return "", fmt.Errorf("empty access token")
	}
	return tok.AccessToken, nil
}
