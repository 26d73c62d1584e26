package activity

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torvik/resellerpanel/internal/model"
)

func TestBuildSSLConfig(t *testing.T) {
	cfg := model.SSLConfigFromSettings(map[string]string{
		model.SettingACMEEmail:              "ssl@panel.net",
		model.SettingUseStaging:             "true",
		model.SettingIntermediateDomain:     "ssl.panel.net",
		model.SettingServiceDomains:         "example.app, example.site,",
		model.SettingCloudflareAPIToken:     "cf-token",
		model.SettingPropagationWaitSeconds: "45",
	})

	assert.Equal(t, "ssl@panel.net", cfg.ACMEEmail)
	assert.True(t, cfg.UseStaging)
	assert.Equal(t, []string{"example.app", "example.site"}, cfg.ServiceDomains)
	assert.Equal(t, 45, cfg.PropagationWaitSeconds)
}

func TestBuildSSLConfigDefaults(t *testing.T) {
	cfg := model.SSLConfigFromSettings(map[string]string{})

	assert.False(t, cfg.UseStaging)
	assert.Empty(t, cfg.ServiceDomains)
	assert.Equal(t, 30, cfg.PropagationWaitSeconds)
	assert.Equal(t, 30*time.Second, cfg.PropagationWait())
}

func TestBuildSSLConfigRejectsBadWait(t *testing.T) {
	for _, raw := range []string{"abc", "-5"} {
		cfg := model.SSLConfigFromSettings(map[string]string{
			model.SettingPropagationWaitSeconds: raw,
		})
		assert.Equal(t, 30, cfg.PropagationWaitSeconds, "raw %q", raw)
	}
}

func TestDecodeHMACKey(t *testing.T) {
	secret := []byte("super-secret-hmac")

	for _, encoded := range []string{
		base64.RawURLEncoding.EncodeToString(secret),
		base64.URLEncoding.EncodeToString(secret),
		base64.StdEncoding.EncodeToString(secret),
	} {
		key, err := decodeHMACKey(encoded)
		require.NoError(t, err, "encoded %q", encoded)
		assert.Equal(t, secret, key)
	}

	_, err := decodeHMACKey("!!not base64!!")
	assert.Error(t, err)
}

func TestParseECKeyRoundTrip(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})

	parsed, err := parseECKey(keyPEM)
	require.NoError(t, err)
	assert.True(t, key.Equal(parsed))

	_, err = parseECKey([]byte("not pem"))
	assert.Error(t, err)
}

// selfSignedPair returns a PEM cert/key pair valid for the given window.
func selfSignedPair(t *testing.T, notBefore, notAfter time.Time) (string, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "shop.example.app"},
		DNSNames:     []string{"shop.example.app"},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
	}
	certDER, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return string(certPEM), string(keyPEM)
}

func TestValidateCustomCert(t *testing.T) {
	a := NewCertificateActivity(nil)
	ctx := context.Background()

	notBefore := time.Now().Add(-time.Hour).Truncate(time.Second)
	notAfter := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	certPEM, keyPEM := selfSignedPair(t, notBefore, notAfter)

	info, err := a.ValidateCustomCert(ctx, certPEM, keyPEM)
	require.NoError(t, err)
	assert.WithinDuration(t, notBefore, info.IssuedAt, time.Second)
	assert.WithinDuration(t, notAfter, info.ExpiresAt, time.Second)
}

func TestValidateCustomCert_Expired(t *testing.T) {
	a := NewCertificateActivity(nil)
	certPEM, keyPEM := selfSignedPair(t, time.Now().Add(-48*time.Hour), time.Now().Add(-time.Hour))

	_, err := a.ValidateCustomCert(context.Background(), certPEM, keyPEM)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateCustomCert_Mismatch(t *testing.T) {
	a := NewCertificateActivity(nil)
	certPEM, _ := selfSignedPair(t, time.Now(), time.Now().Add(time.Hour))
	_, otherKeyPEM := selfSignedPair(t, time.Now(), time.Now().Add(time.Hour))

	_, err := a.ValidateCustomCert(context.Background(), certPEM, otherKeyPEM)
	assert.Error(t, err)
}
