package cloudflare

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApexDomain(t *testing.T) {
	assert.Equal(t, "example.com", ApexDomain("_acme-challenge.shop.example.com"))
	assert.Equal(t, "example.com", ApexDomain("example.com"))
	assert.Equal(t, "panel.net", ApexDomain("_acme-challenge.shop.ssl.panel.net."))
	assert.Equal(t, "localhost", ApexDomain("localhost"))
}

func TestParseRecordRef(t *testing.T) {
	ref, err := ParseRecordRef("zone-1:rec-2")
	require.NoError(t, err)
	assert.Equal(t, "zone-1", ref.ZoneID)
	assert.Equal(t, "rec-2", ref.RecordID)
	assert.Equal(t, "zone-1:rec-2", ref.String())

	for _, bad := range []string{"", "zone-only", ":rec", "zone:"} {
		_, err := ParseRecordRef(bad)
		assert.ErrorIs(t, err, ErrInvalidRecordRef, "ref %q", bad)
	}
}

func envelope(result any) []byte {
	raw, _ := json.Marshal(result)
	out, _ := json.Marshal(map[string]any{
		"success": true,
		"errors":  []any{},
		"result":  json.RawMessage(raw),
	})
	return out
}

func TestCreateRecord(t *testing.T) {
	var createdPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		switch {
		case r.URL.Path == "/zones" && r.Method == http.MethodGet:
			assert.Equal(t, "example.com", r.URL.Query().Get("name"))
			w.Write(envelope([]map[string]string{{"id": "zone-1", "name": "example.com", "status": "active"}}))
		case r.URL.Path == "/zones/zone-1/dns_records" && r.Method == http.MethodPost:
			json.NewDecoder(r.Body).Decode(&createdPayload)
			w.Write(envelope(map[string]string{"id": "rec-9", "type": "TXT"}))
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL)
		}
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-token", srv.URL)
	ref, err := c.CreateRecord(context.Background(), CreateRecordParams{
		Type:    "TXT",
		Name:    "_acme-challenge.shop.example.com",
		Content: "token-value",
	})
	require.NoError(t, err)
	assert.Equal(t, "zone-1:rec-9", ref.String())
	assert.Equal(t, "TXT", createdPayload["type"])
	assert.Equal(t, float64(1), createdPayload["ttl"])
	assert.Equal(t, false, createdPayload["proxied"])
}

func TestCreateRecord_ZoneNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(envelope([]any{}))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-token", srv.URL)
	_, err := c.CreateRecord(context.Background(), CreateRecordParams{
		Type: "TXT", Name: "_acme-challenge.unknown.example.org", Content: "v",
	})
	assert.ErrorIs(t, err, ErrZoneNotFound)
}

func TestCreateRecord_AuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("bad-token", srv.URL)
	_, err := c.CreateRecord(context.Background(), CreateRecordParams{
		Type: "TXT", Name: "_acme-challenge.shop.example.com", Content: "v",
	})
	assert.ErrorIs(t, err, ErrAuth)
}

func TestCreateRecord_NoToken(t *testing.T) {
	c := NewClient("")
	_, err := c.CreateRecord(context.Background(), CreateRecordParams{
		Type: "TXT", Name: "x.example.com", Content: "v",
	})
	assert.ErrorIs(t, err, ErrAuth)
}

func TestDeleteRecord(t *testing.T) {
	deleted := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/zones/zone-1/dns_records/rec-9", r.URL.Path)
		deleted = true
		w.Write(envelope(map[string]string{"id": "rec-9"}))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-token", srv.URL)
	require.NoError(t, c.DeleteRecord(context.Background(), "zone-1:rec-9"))
	assert.True(t, deleted)
}

func TestDeleteRecord_InvalidRef(t *testing.T) {
	c := NewClient("test-token")
	err := c.DeleteRecord(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidRecordRef)
}

func TestGetRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/zones":
			w.Write(envelope([]map[string]string{{"id": "zone-1", "name": "example.com"}}))
		case r.URL.Path == "/zones/zone-1/dns_records":
			assert.Equal(t, "TXT", r.URL.Query().Get("type"))
			w.Write(envelope([]map[string]string{{"id": "rec-3", "type": "TXT", "name": "_acme-challenge.example.com"}}))
		}
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-token", srv.URL)
	ref, err := c.GetRecord(context.Background(), "_acme-challenge.example.com", "TXT")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "zone-1:rec-3", ref.String())
}

func TestGetRecord_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/zones":
			w.Write(envelope([]map[string]string{{"id": "zone-1", "name": "example.com"}}))
		default:
			w.Write(envelope([]any{}))
		}
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-token", srv.URL)
	ref, err := c.GetRecord(context.Background(), "_acme-challenge.example.com", "TXT")
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestTestConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(envelope([]map[string]string{
			{"id": "zone-1", "name": "example.com"},
			{"id": "zone-2", "name": "example.net"},
		}))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-token", srv.URL)
	status, err := c.TestConnection(context.Background())
	require.NoError(t, err)
	assert.True(t, status.OK)
	assert.Equal(t, []string{"example.com", "example.net"}, status.Zones)
}

func TestAPIErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out, _ := json.Marshal(map[string]any{
			"success": false,
			"errors":  []map[string]any{{"code": 81057, "message": "record already exists"}},
			"result":  nil,
		})
		w.Write(out)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-token", srv.URL)
	_, err := c.TestConnection(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Body, "record already exists")
}
