// File path: internal/solr/client.go

// Package solr looks up published program pages in the public Solr
// index, so synced program folders can carry their digital-archives
// identifier.
package solr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nyparchive/cortex-sync/internal/common"
)

// Client queries a Solr select endpoint.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// New builds a client for the given select URL. An empty URL yields a
// nil client, and lookups on a nil client report no match.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{baseURL: baseURL, httpc: &http.Client{Timeout: timeout}}
}

type selectResponse struct {
	Response struct {
		NumFound int `json:"numFound"`
		Docs     []struct {
			ID string `json:"id"`
		} `json:"docs"`
	} `json:"response"`
}

// ProgramID returns the digital-archives identifier for a program, or
// an empty string when the index holds no single match.
func (c *Client) ProgramID(ctx context.Context, programID string) (string, error) {
	if c == nil || programID == "" {
		return "", nil
	}
	query := url.Values{}
	query.Set("q", `npp\:ProgramID\:`+programID)
	query.Set("fl", "id")
	query.Set("wt", "json")

	endpoint := c.baseURL + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("solr: build request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("solr: query program %s: %w", programID, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("solr: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("solr: query program %s: status %d", programID, resp.StatusCode)
	}
	var parsed selectResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("solr: decode response: %w", err)
	}
	if parsed.Response.NumFound != 1 || len(parsed.Response.Docs) == 0 {
		common.Logger().Debug("solr: no unique match", "program", programID, "found", parsed.Response.NumFound)
		return "", nil
	}
	return parsed.Response.Docs[0].ID, nil
}
