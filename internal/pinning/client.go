// internal/pinning/client.go
//
// Client for the content-pinning gateway. Pinning the same bytes twice
// yields the same content identifier, so uploads are harmlessly
// duplicable; everything here is single-attempt and fails fast, leaving
// retry decisions to the user.

package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/lafiyatech/medimint/internal/fault"
)

// Client talks to a Pinata-compatible pinning API and its public gateway.
type Client struct {
	apiURL     string
	gatewayURL string
	token      string
	http       *http.Client
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// New creates a pinning client. The token is sent as a bearer credential
// on every pin request.
func New(apiURL, gatewayURL, token string, opts ...Option) *Client {
	c := &Client{
		apiURL:     strings.TrimRight(apiURL, "/"),
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		token:      token,
		http:       http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// PinFile uploads raw bytes as a multipart form and returns the content
// identifier.
func (c *Client) PinFile(ctx context.Context, r io.Reader, name string) (string, error) {
	const op = "pinning.pin_file"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fault.Wrap(fault.Validation, op, err, "build multipart form")
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fault.Wrap(fault.Validation, op, err, "read asset")
	}
	if err := mw.Close(); err != nil {
		return "", fault.Wrap(fault.Validation, op, err, "finalize multipart form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/pinning/pinFileToIPFS", &buf)
	if err != nil {
		return "", fault.Wrap(fault.Validation, op, err, "build request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.pin(op, req)
}

// PinJSON uploads an arbitrary document as pinned JSON and returns the
// content identifier.
func (c *Client) PinJSON(ctx context.Context, v any, name string) (string, error) {
	const op = "pinning.pin_json"

	payload, err := json.Marshal(map[string]any{
		"pinataContent":  v,
		"pinataMetadata": map[string]string{"name": name},
	})
	if err != nil {
		return "", fault.Wrap(fault.Validation, op, err, "encode document")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/pinning/pinJSONToIPFS", bytes.NewReader(payload))
	if err != nil {
		return "", fault.Wrap(fault.Validation, op, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.pin(op, req)
}

func (c *Client) pin(op string, req *http.Request) (string, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fault.Wrap(fault.Network, op, err, "upload failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fault.New(fault.RemoteRejection, op, "gateway responded %s", resp.Status)
	}
	var parsed pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fault.Wrap(fault.RemoteRejection, op, err, "malformed gateway response")
	}
	if parsed.IpfsHash == "" {
		return "", fault.New(fault.RemoteRejection, op, "gateway returned no content identifier")
	}
	return parsed.IpfsHash, nil
}

// ContentURL returns the public gateway URL for a content identifier.
func (c *Client) ContentURL(cid string) string {
	return fmt.Sprintf("%s/ipfs/%s", c.gatewayURL, cid)
}

/// FetchJSON resolves a content reference (bare CID, ipfs:// URI, or full
// gateway URL) and decodes the JSON document behind it.
func (c *Client) FetchJSON(ctx context.Context, ref string, out any) error {
	const op = "pinning.fetch_json"

	url := c.resolve(ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fault.Wrap(fault.Validation, op, err, "build request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fault.Wrap(fault.Network, op, err, "fetch failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fault.New(fault.RemoteRejection, op, "gateway responded %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fault.Wrap(fault.RemoteRejection, op, err, "malformed document")
	}
	return nil
}

func (c *Client) resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ref
	case strings.HasPrefix(ref, "ipfs://"):
		return c.ContentURL(strings.TrimPrefix(ref, "ipfs://"))
	default:
		return c.ContentURL(ref)
	}
}
