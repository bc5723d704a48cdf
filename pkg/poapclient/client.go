/**
 * @description
 * This package provides a client for the POAP REST API claim-status
 * endpoint. The reconciler uses it to learn whether a delivered mint link
 * has been redeemed; claiming itself happens entirely off-system.
 *
 * @dependencies
 * - context, encoding/json, fmt, net/http, strings, time: Standard Go libraries.
 */
package poapclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a client for the POAP API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new POAP API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// claimStatusResponse is the subset of the qr-claim lookup the reconciler
// reads.
type claimStatusResponse struct {
	Claimed     bool   `json:"claimed"`
	Beneficiary string `json:"beneficiary"`
}

// QRHashFromClaimURL extracts the qr hash from a mint link
// (https://poap.xyz/claim/<hash> or .../mint/<hash>).
func QRHashFromClaimURL(claimURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(claimURL), "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return trimmed
	}
	return trimmed[idx+1:]
}

// ClaimStatus looks up whether the mint link behind a claim URL has been
// redeemed and by which address.
func (c *Client) ClaimStatus(ctx context.Context, claimURL string) (bool, string, error) {
	qrHash := QRHashFromClaimURL(claimURL)
	if qrHash == "" {
		return false, "", fmt.Errorf("claim url %q has no qr hash", claimURL)
	}

	url := fmt.Sprintf("%s/actions/claim-qr?qr_hash=%s", c.BaseURL, qrHash)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, "", err
	}
	req.Header.Set("X-API-Key", c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("failed to fetch claim status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return false, "", fmt.Errorf("poap api returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var status claimStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false, "", fmt.Errorf("failed to decode claim status response: %w", err)
	}

	return status.Claimed, status.Beneficiary, nil
}
