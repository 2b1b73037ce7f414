// Package client implements the auditor's HTTP client for the KT service's
// third-party auditing endpoints. The server side (routing, handlers) is
// the service's own concern; this package only speaks to it. See
// cmd/katie-server/handler.go for the JSON response envelope this client
// expects on the wire.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ktlog/auditor/tree/transparency/structs"
)

// apiResponse mirrors cmd/katie-server/handler.go's ApiResponse envelope.
// On success the body is the raw binary-encoded message instead of JSON;
// this envelope is only used to carry errors and the set_auditor_head
// acknowledgement, which have no payload of their own.
type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// outOfRangeSubstring is the message the service uses to signal that an
// audit request started past the end of the tree. The client recognizes
// it by substring rather than by a typed error code, since the service
// reports it as a generic InvalidArgument.
const outOfRangeSubstring = "auditing can not start past end of tree"

// ErrStartPastEndOfTree is returned by Audit when the service reports that
// start is at or beyond its current tree size. Unlike other errors this
// one is expected during normal operation (the auditor has caught up) and
// is not itself fatal.
var ErrStartPastEndOfTree = errors.New("client: audit start is past end of tree")

// AuditorClient calls the third-party auditing endpoints of a KT service
// over HTTP, encoding and decoding messages with the same hand-rolled
// binary codec the core uses internally.
type AuditorClient struct {
	baseURL string
	hc      *http.Client
}

// New returns an AuditorClient for the service at baseURL (no trailing
// slash). A nil httpClient defaults to http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *AuditorClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AuditorClient{baseURL: strings.TrimSuffix(baseURL, "/"), hc: httpClient}
}

func (c *AuditorClient) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	return c.hc.Do(req)
}

// readError parses a non-2xx response's JSON error envelope, mapping the
// out-of-range condition onto ErrStartPastEndOfTree.
func readError(resp *http.Response) error {
	defer resp.Body.Close()

	var ar apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return fmt.Errorf("client: request failed with status %d", resp.StatusCode)
	}
	if strings.Contains(ar.Message, outOfRangeSubstring) {
		return ErrStartPastEndOfTree
	}
	return fmt.Errorf("client: %s", ar.Message)
}

// Audit fetches up to limit updates starting at start. The returned
// AuditResponse's More flag indicates whether the service has additional
// updates beyond this page.
func (c *AuditorClient) Audit(ctx context.Context, start, limit uint64) (*structs.AuditResponse, error) {
	reqBytes, err := structs.Marshal(&structs.AuditRequest{Start: start, Limit: limit})
	if err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, "/v1/audit", reqBytes)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return structs.NewAuditResponse(bytes.NewBuffer(body))
}

// SetAuditorHead publishes a freshly signed tree head to the service.
// Callers must have already durably committed head to storage before
// calling this, so a crash after commit but before publish is always
// safe to retry.
func (c *AuditorClient) SetAuditorHead(ctx context.Context, head *structs.AuditorTreeHead) error {
	headBytes, err := structs.Marshal(head)
	if err != nil {
		return err
	}

	resp, err := c.post(ctx, "/v1/auditor-head", headBytes)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readError(resp)
	}

	var ar apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return err
	}
	if !ar.Success {
		return fmt.Errorf("client: %s", ar.Message)
	}
	return nil
}
