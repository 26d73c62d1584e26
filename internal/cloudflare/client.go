// Package cloudflare is a minimal typed client for the Cloudflare DNS API,
// covering the record operations needed for dns-01 validation. Responses are
// decoded into explicit schemas at the boundary.
package cloudflare

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
)

const defaultBaseURL = "https://api.cloudflare.com/client/v4"

var (
	// ErrZoneNotFound indicates no Cloudflare zone matches the record's
	// apex domain.
	ErrZoneNotFound = errors.New("cloudflare: zone not found")
	// ErrAuth indicates missing or rejected API credentials.
	ErrAuth = errors.New("cloudflare: authentication failed")
	// ErrInvalidRecordRef indicates a malformed composite record reference.
	ErrInvalidRecordRef = errors.New("cloudflare: invalid record reference")
)

// APIError is returned for any other non-2xx provider response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cloudflare: API error: status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
}

// NewClient creates a client using the given API token. Every call carries
// an explicit timeout independent of ACME polling timeouts.
func NewClient(apiToken string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		apiToken:   apiToken,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub server.
func NewClientWithBaseURL(apiToken, baseURL string) *Client {
	c := NewClient(apiToken)
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

// --- response schemas ---

type apiEnvelope struct {
	Success bool            `json:"success"`
	Errors  []apiMessage    `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

type apiMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type zone struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type dnsRecord struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// RecordRef is the composite reference to a created record, sufficient to
// delete it later without a second zone lookup.
type RecordRef struct {
	ZoneID   string
	RecordID string
}

// String encodes the ref as "zoneID:recordID" for persistence.
func (r RecordRef) String() string {
	return r.ZoneID + ":" + r.RecordID
}

// ParseRecordRef decodes a persisted composite reference.
func ParseRecordRef(s string) (RecordRef, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RecordRef{}, fmt.Errorf("%w: %q", ErrInvalidRecordRef, s)
	}
	return RecordRef{ZoneID: parts[0], RecordID: parts[1]}, nil
}

// ApexDomain returns the last two labels of name, used to resolve the zone.
func ApexDomain(name string) string {
	labels := strings.Split(strings.TrimSuffix(name, "."), ".")
	if len(labels) < 2 {
		return name
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

// --- operations ---

// CreateRecordParams describes a record to create. TTL 1 means "automatic"
// on Cloudflare.
type CreateRecordParams struct {
	Type    string // TXT or CNAME
	Name    string
	Content string
	Proxied bool
}

// CreateRecord resolves the zone for the record's apex domain and creates
// the record with an automatic TTL. The returned ref identifies both zone
// and record.
func (c *Client) CreateRecord(ctx context.Context, params CreateRecordParams) (RecordRef, error) {
	zoneID, err := c.zoneIDByName(ctx, ApexDomain(params.Name))
	if err != nil {
		return RecordRef{}, err
	}

	payload := map[string]any{
		"type":    params.Type,
		"name":    params.Name,
		"content": params.Content,
		"ttl":     1,
		"proxied": params.Proxied,
	}

	var rec dnsRecord
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/zones/%s/dns_records", zoneID), payload, &rec); err != nil {
		return RecordRef{}, fmt.Errorf("create %s record %s: %w", params.Type, params.Name, err)
	}

	return RecordRef{ZoneID: zoneID, RecordID: rec.ID}, nil
}

// DeleteRecord removes a record by its composite reference.
func (c *Client) DeleteRecord(ctx context.Context, ref string) error {
	parsed, err := ParseRecordRef(ref)
	if err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/zones/%s/dns_records/%s", parsed.ZoneID, parsed.RecordID), nil, nil); err != nil {
		return fmt.Errorf("delete record %s: %w", ref, err)
	}
	return nil
}

// GetRecord looks up a record by name and type, returning its ref or nil if
// no such record exists. Used for diagnostics and idempotence checks.
func (c *Client) GetRecord(ctx context.Context, name, recordType string) (*RecordRef, error) {
	zoneID, err := c.zoneIDByName(ctx, ApexDomain(name))
	if err != nil {
		return nil, err
	}

	var recs []dnsRecord
	path := fmt.Sprintf("/zones/%s/dns_records?type=%s&name=%s", zoneID, recordType, name)
	if err := c.do(ctx, http.MethodGet, path, nil, &recs); err != nil {
		return nil, fmt.Errorf("get record %s: %w", name, err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &RecordRef{ZoneID: zoneID, RecordID: recs[0].ID}, nil
}

// ConnectionStatus is the result of a credential/connectivity self-test.
type ConnectionStatus struct {
	OK    bool     `json:"ok"`
	Zones []string `json:"zones"`
}

// TestConnection verifies the API token by listing zones. Used by the
// operator diagnostics screen, not by the issuance flow.
func (c *Client) TestConnection(ctx context.Context) (*ConnectionStatus, error) {
	var zones []zone
	if err := c.do(ctx, http.MethodGet, "/zones", nil, &zones); err != nil {
		return nil, err
	}
	status := &ConnectionStatus{OK: true}
	for _, z := range zones {
		status.Zones = append(status.Zones, z.Name)
	}
	return status, nil
}

func (c *Client) zoneIDByName(ctx context.Context, apex string) (string, error) {
	var zones []zone
	if err := c.do(ctx, http.MethodGet, "/zones?name="+apex, nil, &zones); err != nil {
		return "", fmt.Errorf("lookup zone %s: %w", apex, err)
	}
	if len(zones) == 0 {
		return "", fmt.Errorf("%w: %s", ErrZoneNotFound, apex)
	}
	return zones[0].ID, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	if c.apiToken == "" {
		return fmt.Errorf("%w: no API token configured", ErrAuth)
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cloudflare request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !envelope.Success {
		msg := "unknown error"
		if len(envelope.Errors) > 0 {
			msg = envelope.Errors[0].Message
		}
		return &APIError{StatusCode: resp.StatusCode, Body: msg}
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}
