// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package vaultapi is the client for the remote document vault. It
// carries the document fetch, the PIN verification oracle, the
// access-log feed, and the intruder-alert endpoint.
//
// Transport failures are surfaced as ErrVaultUnavailable so callers
// can distinguish "no verdict" from a real mismatch or rejection.
package vaultapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/docvault-tui/internal/model"
	"github.com/jeranaias/docvault-tui/internal/oracle"
)

// Configuration constants for the vault API.
const (
	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for
	// transient errors.
	DefaultMaxRetries = 3

	// MaxResponseSize caps response bodies. Document payloads carry
	// base64 images, so the cap is generous.
	MaxResponseSize = 32 * 1024 * 1024

	// DefaultVerifyRate is the steady-state PIN verification rate.
	DefaultVerifyRate = rate.Limit(1)

	// DefaultVerifyBurst allows a short run of verification attempts
	// without throttling. It must exceed the mismatch lockout
	// threshold so throttling never masks a lockout.
	DefaultVerifyBurst = 5
)

// Error variables for common vault errors.
var (
	// ErrNotConfigured indicates the base URL is not set.
	ErrNotConfigured = errors.New("vault base URL not configured")

	// ErrVaultUnavailable indicates the vault could not be reached or
	// returned a server-side failure. No verdict was produced.
	ErrVaultUnavailable = errors.New("vault unavailable")

	// ErrRateLimited indicates local verification throttling kicked in.
	ErrRateLimited = errors.New("pin verification rate limited")
)

// VaultError represents a rejection from the vault API.
type VaultError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *VaultError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("vault error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("vault error (HTTP %d)", e.Status)
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type verifyPINRequest struct {
	UserID string `json:"user_id"`
	PIN    string `json:"pin"`
}

type verifyPINResponse struct {
	Valid bool `json:"valid"`
}

type intruderAlertRequest struct {
	UserID      string  `json:"user_id"`
	PhotoBase64 string  `json:"photo_base64,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
	Timestamp   string  `json:"timestamp"`
}

type accessLogRequest struct {
	UserID          string   `json:"user_id"`
	OfficerName     string   `json:"officer_name"`
	BadgeNumber     string   `json:"badge_number"`
	Timestamp       string   `json:"timestamp"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	DocumentsViewed []string `json:"documents_viewed"`
}

type apiErrorResponse struct {
	Detail string `json:"detail"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the remote document vault.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	verifyLim  *rate.Limiter
}

// NewClient creates a vault client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
			Timeout: DefaultTimeout,
		},
		maxRetries: DefaultMaxRetries,
		verifyLim:  rate.NewLimiter(DefaultVerifyRate, DefaultVerifyBurst),
	}
}

// WithAPIKey sets the bearer token for vault requests.
func (c *Client) WithAPIKey(key string) *Client {
	c.apiKey = key
	return c
}

// WithTimeout sets the request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithMaxRetries sets the maximum number of retry attempts.
func (c *Client) WithMaxRetries(maxRetries int) *Client {
	c.maxRetries = maxRetries
	return c
}

// WithVerifyRate tunes the local PIN verification throttle.
func (c *Client) WithVerifyRate(r rate.Limit, burst int) *Client {
	c.verifyLim = rate.NewLimiter(r, burst)
	return c
}

// IsConfigured reports whether the client has a base URL.
func (c *Client) IsConfigured() bool {
	return c.baseURL != ""
}

// =============================================================================
// ENDPOINTS
// =============================================================================

// VerifyPIN asks the vault whether pin matches the owner's enrolled
// PIN. Transport failures and 5xx responses come back as
// ErrVaultUnavailable: the oracle gave no verdict.
func (c *Client) VerifyPIN(ctx context.Context, ownerID, pin string) (bool, error) {
	if !c.IsConfigured() {
		return false, ErrNotConfigured
	}
	if !c.verifyLim.Allow() {
		return false, ErrRateLimited
	}

	var out verifyPINResponse
	err := c.postJSON(ctx, "/api/users/verify-pin", verifyPINRequest{
		UserID: ownerID,
		PIN:    pin,
	}, &out)
	if err != nil {
		return false, err
	}
	return out.Valid, nil
}

// FetchDocuments returns the owner's documents.
func (c *Client) FetchDocuments(ctx context.Context, ownerID string) ([]model.Document, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	var docs []model.Document
	if err := c.getJSON(ctx, "/api/documents/"+url.PathEscape(ownerID), &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// AppendAccessLog pushes one access-log entry to the vault.
func (c *Client) AppendAccessLog(ctx context.Context, entry model.AccessLogEntry) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	req := accessLogRequest{
		UserID:          entry.OwnerID,
		OfficerName:     entry.OfficerName,
		BadgeNumber:     entry.BadgeNumber,
		Timestamp:       entry.Timestamp.UTC().Format(time.RFC3339),
		DocumentsViewed: entry.DocumentsViewed,
	}
	if entry.Location != nil {
		lat, lon := entry.Location.Latitude, entry.Location.Longitude
		req.Latitude = &lat
		req.Longitude = &lon
	}
	return c.postJSON(ctx, "/api/access-log", req, nil)
}

// FetchAccessLog returns the owner's access history from the vault.
func (c *Client) FetchAccessLog(ctx context.Context, ownerID string) ([]model.AccessLogEntry, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	var entries []model.AccessLogEntry
	if err := c.getJSON(ctx, "/api/access-log/"+url.PathEscape(ownerID), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SendIntruderAlert notifies the vault of a failed-attempt capture.
func (c *Client) SendIntruderAlert(ctx context.Context, alert model.IntruderAlert) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	req := intruderAlertRequest{
		UserID:    alert.OwnerID,
		Timestamp: alert.Timestamp.UTC().Format(time.RFC3339),
	}
	if len(alert.Photo) > 0 {
		req.PhotoBase64 = base64.StdEncoding.EncodeToString(alert.Photo)
	}
	if alert.Location != nil {
		req.Latitude = alert.Location.Latitude
		req.Longitude = alert.Location.Longitude
	}
	return c.postJSON(ctx, "/api/failed-attempt/alert", req, nil)
}

// Health checks vault reachability.
func (c *Client) Health(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	return c.getJSON(ctx, "/api/health", nil)
}

// =============================================================================
// TRANSPORT
// =============================================================================

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return c.do(req, payload, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return c.do(req, nil, out)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "docvault/0.2.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// do runs the request with retry on transient failure. 4xx responses
// are terminal rejections; network errors and 5xx map to
// ErrVaultUnavailable after retries are exhausted.
func (c *Client) do(req *http.Request, payload []byte, out any) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		reqCopy := req.Clone(req.Context())
		if payload != nil {
			reqCopy.Body = io.NopCloser(bytes.NewReader(payload))
		}
		c.setHeaders(reqCopy)

		resp, err := c.httpClient.Do(reqCopy)
		if err != nil {
			lastErr = err
		} else if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp.Body.Close()
		} else {
			defer resp.Body.Close()
			return decodeResponse(resp, out)
		}

		if attempt == c.maxRetries-1 {
			break
		}
		select {
		case <-req.Context().Done():
			return fmt.Errorf("%w: %v", ErrVaultUnavailable, req.Context().Err())
		case <-time.After(time.Duration(1<<attempt) * 500 * time.Millisecond):
		}
	}
	return fmt.Errorf("%w: %v", ErrVaultUnavailable, lastErr)
}

func decodeResponse(resp *http.Response, out any) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrVaultUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiErrorResponse
		_ = json.Unmarshal(body, &apiErr)
		return &VaultError{Status: resp.StatusCode, Message: apiErr.Detail}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// =============================================================================
// ORACLE ADAPTER
// =============================================================================

// RemoteOracle adapts the vault's verify-pin endpoint to the Oracle
// interface, translating transport failures into the oracle's
// no-verdict error.
type RemoteOracle struct {
	client  *Client
	ownerID string
}

// NewRemoteOracle returns an Oracle backed by the vault.
func NewRemoteOracle(client *Client, ownerID string) *RemoteOracle {
	return &RemoteOracle{client: client, ownerID: ownerID}
}

// VerifyPIN implements oracle.Oracle.
func (r *RemoteOracle) VerifyPIN(ctx context.Context, pin string) (bool, error) {
	ok, err := r.client.VerifyPIN(ctx, r.ownerID, pin)
	if err != nil {
		// Transport failure, vault rejection, or local throttle: in all
		// cases the oracle produced no verdict.
		return false, oracle.ErrUnavailable
	}
	return ok, nil
}

var _ oracle.Oracle = (*RemoteOracle)(nil)
