package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cardpile/cardpile/internal/domain"
	"github.com/cardpile/cardpile/internal/ports"
)

const (
	scanEndpoint   = "/api/scan"
	submitEndpoint = "/api/bulk/submit"
	cancelEndpoint = "/api/bulk/cancel"
	checkEndpoint  = "/api/bulk/check"
	verifyEndpoint = "/api/auth/google/verify"
	linkEndpoint   = "/api/auth/google/link"
)

// HTTPClient abstracts HTTP request execution for testing and custom
// transports. The standard *http.Client satisfies this interface.
type HTTPClient interface {
	// Do sends an HTTP request and returns an HTTP response.
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.StagingService over HTTP.
type Client struct {
	client  HTTPClient
	baseURL string
	logger  ports.Logger
}

// NewClient creates a staging client for the given base URL.
func NewClient(client HTTPClient, baseURL string, logger ports.Logger) *Client {
	return &Client{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// CheckCapability verifies the account's bulk capability.
func (c *Client) CheckCapability(ctx context.Context, id domain.Identity) (ports.Capability, error) {
	resp, err := c.get(ctx, verifyEndpoint, id)
	if err != nil {
		return ports.Capability{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 2 {
		return ports.Capability{Granted: true}, nil
	}

	body, _ := io.ReadAll(resp.Body)
	cerr := classifyFailure(resp.StatusCode, body)
	if errors.Is(cerr, domain.ErrCapabilityMissing) {
		// Policy denial, not a failure: the account was never linked.
		return ports.Capability{Granted: false, DeniedReason: errorDetail(body)}, nil
	}
	return ports.Capability{}, cerr
}

// Stage uploads one image into the bulk session and returns the server's
// authoritative staged count.
func (c *Client) Stage(ctx context.Context, id domain.Identity, image []byte) (int, error) {
	filename := fmt.Sprintf("bulk_%d_%s.jpg", time.Now().Unix(), uuid.NewString()[:4])
	resp, err := c.postImage(ctx, id, image, filename, true)
	if err != nil {
		return 0, err
	}

	var out struct {
		Status string `json:"status"`
		Count  int    `json:"count"`
	}
	if err := decodeBody(resp, &out); err != nil {
		return 0, err
	}
	c.logger.Debug("image staged",
		ports.String("filename", filename),
		ports.Int("staged_count", out.Count),
	)
	return out.Count, nil
}

// ScanNow processes one image on the immediate (non-bulk) path.
func (c *Client) ScanNow(ctx context.Context, id domain.Identity, image []byte) (domain.ScanResult, error) {
	filename := fmt.Sprintf("scan_%d.jpg", time.Now().Unix())
	resp, err := c.postImage(ctx, id, image, filename, false)
	if err != nil {
		return domain.ScanResult{}, err
	}

	var out domain.ScanResult
	if err := decodeBody(resp, &out); err != nil {
		return domain.ScanResult{}, err
	}
	return out, nil
}

// Commit finalizes the server-side staged batch.
func (c *Client) Commit(ctx context.Context, id domain.Identity) (int, error) {
	resp, err := c.post(ctx, submitEndpoint, id)
	if err != nil {
		return 0, err
	}

	var out struct {
		Status string `json:"status"`
		Count  int    `json:"count"`
	}
	if err := decodeBody(resp, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Cancel discards all server-staged items.
func (c *Client) Cancel(ctx context.Context, id domain.Identity) error {
	resp, err := c.post(ctx, cancelEndpoint, id)
	if err != nil {
		return err
	}

	var out struct {
		Status string `json:"status"`
	}
	return decodeBody(resp, &out)
}

// StagedCount returns the server's current staged count. A missing session
// reads as zero, matching the backend's own fallback.
func (c *Client) StagedCount(ctx context.Context, id domain.Identity) (int, error) {
	resp, err := c.get(ctx, checkEndpoint, id)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return 0, nil
	}

	var out struct {
		Count int `json:"count"`
	}
	if err := decodeBody(resp, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// RelinkURL returns the URL that starts the external re-link flow.
func (c *Client) RelinkURL(ctx context.Context, id domain.Identity) (string, error) {
	resp, err := c.get(ctx, linkEndpoint, id)
	if err != nil {
		return "", err
	}

	var out struct {
		AuthURL string `json:"auth_url"`
	}
	if err := decodeBody(resp, &out); err != nil {
		return "", err
	}
	return out.AuthURL, nil
}

func (c *Client) get(ctx context.Context, endpoint string, id domain.Identity) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpointURL(endpoint, id, false), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+id.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, endpoint string, id domain.Identity) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL(endpoint, id, false), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+id.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	return resp, nil
}

// postImage uploads an image as a multipart form, optionally flagged for
// bulk staging.
func (c *Client) postImage(ctx context.Context, id domain.Identity, image []byte, filename string, bulkStage bool) (*http.Response, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL(scanEndpoint, id, bulkStage), &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+id.Token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", scanEndpoint, err)
	}
	return resp, nil
}

// endpointURL builds the request URL. The token travels as a query parameter
// (the backend's contract) in addition to the Authorization header.
func (c *Client) endpointURL(endpoint string, id domain.Identity, bulkStage bool) string {
	q := url.Values{}
	q.Set("token", id.Token)
	if bulkStage {
		q.Set("bulk_stage", "true")
	}
	return c.baseURL + endpoint + "?" + q.Encode()
}

// decodeBody classifies a non-2xx status, otherwise decodes the JSON body.
// A success status with an unparsable body is a malformed response: a hard
// failure for that single operation, not retried.
func decodeBody(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return classifyFailure(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return nil
}

// classifyFailure maps an error response to a domain error.
//
// 401 always means the credential is dead. The backend reports Google
// revocations as 403 with a "revoked" / "Re-link" detail; a 400/403 about a
// never-linked account is capability denial, not revocation.
func classifyFailure(status int, body []byte) error {
	detail := errorDetail(body)
	lower := strings.ToLower(detail)

	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", domain.ErrAuthorizationRevoked, detail)
	case http.StatusForbidden:
		if strings.Contains(lower, "revoked") || strings.Contains(lower, "re-link") {
			return fmt.Errorf("%w: %s", domain.ErrAuthorizationRevoked, detail)
		}
		return fmt.Errorf("%w: %s", domain.ErrCapabilityMissing, detail)
	case http.StatusBadRequest:
		if strings.Contains(lower, "not connected") {
			return fmt.Errorf("%w: %s", domain.ErrCapabilityMissing, detail)
		}
	}
	return fmt.Errorf("server returned %d: %s", status, detail)
}

// errorDetail extracts the backend's {"detail": ...} message, falling back
// to the raw body.
func errorDetail(body []byte) string {
	var out struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &out); err == nil && out.Detail != "" {
		return out.Detail
	}
	return strings.TrimSpace(string(body))
}
