package activity

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"time"

	"golang.org/x/crypto/acme"
)

// ACMEActivity drives the RFC 8555 order flow with dns-01 validation.
// Directory URL and credentials arrive per call: the same worker serves
// Let's Encrypt and Google Trust Services orders.
type ACMEActivity struct{}

// NewACMEActivity creates a new ACMEActivity.
func NewACMEActivity() *ACMEActivity {
	return &ACMEActivity{}
}

// ACMEOrderParams holds parameters for registering and ordering.
type ACMEOrderParams struct {
	Domain       string
	Email        string
	DirectoryURL string
	// EAB credentials, required by Google Trust Services. Empty for CAs
	// that register without external account binding.
	EABKeyID   string
	EABHMACKey string // base64-encoded
}

// ACMEOrderResult contains the order URL and authorizations.
type ACMEOrderResult struct {
	OrderURL   string
	AuthzURLs  []string
	AccountKey []byte // PEM-encoded ECDSA private key
}

// CreateOrder registers a fresh ACME account (binding it to an external
// account when EAB credentials are present) and submits a new order.
func (a *ACMEActivity) CreateOrder(ctx context.Context, params ACMEOrderParams) (*ACMEOrderResult, error) {
	accountKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate account key: %w", err)
	}

	client := &acme.Client{
		Key:          accountKey,
		DirectoryURL: params.DirectoryURL,
	}

	acct := &acme.Account{Contact: []string{"mailto:" + params.Email}}
	if params.EABKeyID != "" {
		hmacKey, err := decodeHMACKey(params.EABHMACKey)
		if err != nil {
			return nil, err
		}
		acct.ExternalAccountBinding = &acme.ExternalAccountBinding{
			KID: params.EABKeyID,
			Key: hmacKey,
		}
	}

	_, err = client.Register(ctx, acct, acme.AcceptTOS)
	if err != nil && err != acme.ErrAccountAlreadyExists {
		return nil, fmt.Errorf("register ACME account: %w", err)
	}

	order, err := client.AuthorizeOrder(ctx, acme.DomainIDs(params.Domain))
	if err != nil {
		return nil, fmt.Errorf("authorize order: %w", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(accountKey)
	if err != nil {
		return nil, fmt.Errorf("marshal account key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	return &ACMEOrderResult{
		OrderURL:   order.URI,
		AuthzURLs:  order.AuthzURLs,
		AccountKey: keyPEM,
	}, nil
}

// ACMEChallengeParams holds parameters for getting the dns-01 challenge.
type ACMEChallengeParams struct {
	AuthzURL     string
	DirectoryURL string
	AccountKey   []byte // PEM-encoded
}

// ACMEChallengeResult holds the challenge URL and the TXT record value.
type ACMEChallengeResult struct {
	ChallengeURL string
	Token        string
	TXTValue     string
}

// GetDNS01Challenge retrieves the dns-01 challenge for an authorization and
// computes the TXT value to publish at _acme-challenge.
func (a *ACMEActivity) GetDNS01Challenge(ctx context.Context, params ACMEChallengeParams) (*ACMEChallengeResult, error) {
	accountKey, err := parseECKey(params.AccountKey)
	if err != nil {
		return nil, err
	}

	client := &acme.Client{Key: accountKey, DirectoryURL: params.DirectoryURL}

	authz, err := client.GetAuthorization(ctx, params.AuthzURL)
	if err != nil {
		return nil, fmt.Errorf("get authorization: %w", err)
	}

	var challenge *acme.Challenge
	for _, c := range authz.Challenges {
		if c.Type == "dns-01" {
			challenge = c
			break
		}
	}
	if challenge == nil {
		return nil, fmt.Errorf("no dns-01 challenge found")
	}

	txtValue, err := client.DNS01ChallengeRecord(challenge.Token)
	if err != nil {
		return nil, fmt.Errorf("compute dns-01 record: %w", err)
	}

	return &ACMEChallengeResult{
		ChallengeURL: challenge.URI,
		Token:        challenge.Token,
		TXTValue:     txtValue,
	}, nil
}

// ACMEAcceptParams holds params for accepting the challenge.
type ACMEAcceptParams struct {
	ChallengeURL   string
	AuthzURL       string
	DirectoryURL   string
	AccountKey     []byte
	TimeoutSeconds int
}

// AcceptChallenge tells the CA we are ready and waits for the authorization
// to become valid. Exceeding the timeout is a hard failure: the CA either
// validated the record in time or the attempt is over.
func (a *ACMEActivity) AcceptChallenge(ctx context.Context, params ACMEAcceptParams) error {
	accountKey, err := parseECKey(params.AccountKey)
	if err != nil {
		return err
	}

	client := &acme.Client{Key: accountKey, DirectoryURL: params.DirectoryURL}

	if _, err := client.Accept(ctx, &acme.Challenge{URI: params.ChallengeURL}); err != nil {
		return fmt.Errorf("accept challenge: %w", err)
	}

	timeout := time.Duration(params.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	authz, err := client.WaitAuthorization(waitCtx, params.AuthzURL)
	if err != nil {
		return fmt.Errorf("wait authorization: %w", err)
	}
	if authz.Status != acme.StatusValid {
		return fmt.Errorf("authorization ended %s", authz.Status)
	}
	return nil
}

// ACMEFinalizeParams holds params for finalizing the order.
type ACMEFinalizeParams struct {
	OrderURL     string
	Domain       string
	DirectoryURL string
	AccountKey   []byte
}

// ACMEFinalizeResult holds the issued certificate PEM data.
type ACMEFinalizeResult struct {
	CertPEM  string
	KeyPEM   string
	CAPEM    string
	IssuedAt time.Time
}

// FinalizeOrder waits for the order to be ready, creates a CSR, and
// downloads the issued chain. The first PEM block is the leaf; the rest is
// the CA chain.
func (a *ACMEActivity) FinalizeOrder(ctx context.Context, params ACMEFinalizeParams) (*ACMEFinalizeResult, error) {
	accountKey, err := parseECKey(params.AccountKey)
	if err != nil {
		return nil, err
	}

	client := &acme.Client{Key: accountKey, DirectoryURL: params.DirectoryURL}

	order, err := client.WaitOrder(ctx, params.OrderURL)
	if err != nil {
		return nil, fmt.Errorf("wait order: %w", err)
	}

	certKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate cert key: %w", err)
	}

	csr, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		DNSNames: []string{params.Domain},
	}, certKey)
	if err != nil {
		return nil, fmt.Errorf("create CSR: %w", err)
	}

	certDER, _, err := client.CreateOrderCert(ctx, order.FinalizeURL, csr, true)
	if err != nil {
		return nil, fmt.Errorf("create order cert: %w", err)
	}

	var certPEM, caPEM []byte
	for i, der := range certDER {
		block := &pem.Block{Type: "CERTIFICATE", Bytes: der}
		if i == 0 {
			certPEM = pem.EncodeToMemory(block)
		} else {
			caPEM = append(caPEM, pem.EncodeToMemory(block)...)
		}
	}

	keyDER, err := x509.MarshalECPrivateKey(certKey)
	if err != nil {
		return nil, fmt.Errorf("marshal cert key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	cert, err := x509.ParseCertificate(certDER[0])
	if err != nil {
		return nil, fmt.Errorf("parse issued cert: %w", err)
	}

	return &ACMEFinalizeResult{
		CertPEM:  string(certPEM),
		KeyPEM:   string(keyPEM),
		CAPEM:    string(caPEM),
		IssuedAt: cert.NotBefore,
	}, nil
}

// decodeHMACKey decodes the EAB MAC key. Google returns it base64url
// encoded; older keys may use standard encoding.
func decodeHMACKey(encoded string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding, base64.URLEncoding, base64.StdEncoding,
	} {
		if key, err := enc.DecodeString(encoded); err == nil {
			return key, nil
		}
	}
	return nil, fmt.Errorf("decode EAB HMAC key: not valid base64")
}

func parseECKey(keyPEM []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, fmt.Errorf("failed to decode account key PEM")
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse EC key: %w", err)
	}
	return key, nil
}
