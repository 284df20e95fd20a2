// File path: internal/cortex/client.go
package cortex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nyparchive/cortex-sync/internal/common"
)

const (
	authPath   = "/API/Authentication/v1.0/Login"
	searchPath = "/API/search/v3.0/search"
)

// ErrRemoteFailure marks an application-level failure embedded in an
// otherwise successful HTTP response. Not retryable.
var ErrRemoteFailure = errors.New("cortex: remote reported failure")

// ErrNoToken is returned when a call is attempted before Authenticate.
var ErrNoToken = errors.New("cortex: no session token")

// StatusError is a transport-level HTTP failure. Retryable.
type StatusError struct {
	Status int
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cortex: HTTP %d from %s", e.Status, e.URL)
}

// Retryable reports whether the executor should retry the failure:
// transport and HTTP-status errors are, remote application failures
// are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRemoteFailure) || errors.Is(err, ErrNoToken) {
		return false
	}
	return true
}

// Config carries the connection settings for one Cortex environment.
type Config struct {
	BaseURL       string
	DataTablePath string
	Login         string
	Password      string
	Timeout       time.Duration
}

// Client talks to the Cortex DataTable and search APIs. It holds the
// session token obtained by Authenticate; all methods are safe for the
// single-threaded run model.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger

	baseURL   string
	dataTable string
	login     string
	password  string
	token     string
}

// New constructs a client from configuration.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	dataTable := cfg.DataTablePath
	if dataTable == "" {
		dataTable = "/API/DataTable/v2.2/"
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     common.Logger(),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		dataTable:  dataTable,
		login:      cfg.Login,
		password:   cfg.Password,
	}
}

// Token returns the current session token.
func (c *Client) Token() string {
	if c == nil {
		return ""
	}
	return c.token
}

type authResponse struct {
	APIResponse struct {
		Code  string `json:"Code"`
		Token string `json:"Token"`
	} `json:"APIResponse"`
}

// Authenticate obtains a session token. Total authentication failure is
// the one fatal condition in the pipeline: without a token no mutation
// may be attempted.
func (c *Client) Authenticate(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s%s?Login=%s&Password=%s&format=json",
		c.baseURL, authPath, url.QueryEscape(c.login), url.QueryEscape(c.password))
	body, err := c.do(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	var parsed authResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("authenticate: decode response: %w", err)
	}
	if parsed.APIResponse.Code != "SUCCESS" || parsed.APIResponse.Token == "" {
		return fmt.Errorf("authenticate: %w: code %q", ErrRemoteFailure, parsed.APIResponse.Code)
	}
	c.token = parsed.APIResponse.Token
	c.logger.Info("cortex: authentication successful")
	return nil
}

// Apply issues one DataTable mutation.
func (c *Client) Apply(ctx context.Context, req *Request) error {
	if c.token == "" {
		return ErrNoToken
	}
	if req.FormBody {
		endpoint := fmt.Sprintf("%s%s%s?token=%s", c.baseURL, c.dataTable, req.ActionPath(), url.QueryEscape(c.token))
		body, err := c.doForm(ctx, endpoint, req.Form())
		if err != nil {
			return err
		}
		return checkApplicationFailure(body)
	}
	path := req.QueryPath()
	join := "&"
	if !strings.Contains(path, "?") {
		join = "?"
	}
	endpoint := fmt.Sprintf("%s%s%s%stoken=%s", c.baseURL, c.dataTable, path, join, url.QueryEscape(c.token))
	body, err := c.do(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return err
	}
	return checkApplicationFailure(body)
}

// ReadResult is one record projection from a DataTable Read.
type ReadResult struct {
	Count  int
	Fields map[string]any
}

// Get returns a field's string form, "" when absent or null.
func (r *ReadResult) Get(field string) string {
	if r == nil || r.Fields == nil {
		return ""
	}
	value, ok := r.Fields[field]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

type readResponse struct {
	ResponseSummary struct {
		TotalItemCount int `json:"TotalItemCount"`
	} `json:"ResponseSummary"`
	Response []map[string]any `json:"Response"`
}

// Read fetches one record by natural key, projecting its fields. A zero
// count is not an error; the result reports it.
func (c *Client) Read(ctx context.Context, entity, keyField, keyValue string) (*ReadResult, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}
	endpoint := fmt.Sprintf("%s%s%s:%s?%s=%s&format=json&token=%s",
		c.baseURL, c.dataTable, entity, ActionRead,
		keyField, url.QueryEscape(keyValue), url.QueryEscape(c.token))
	body, err := c.do(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var parsed readResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("read %s %s: decode response: %w", entity, keyValue, err)
	}
	result := &ReadResult{Count: parsed.ResponseSummary.TotalItemCount}
	if len(parsed.Response) > 0 {
		result.Fields = parsed.Response[0]
	}
	return result, nil
}

// SearchResult carries the match count and projected items of a search.
type SearchResult struct {
	TotalCount int
	Items      []map[string]any
}

// Field returns a projected field from the first item.
func (r *SearchResult) Field(name string) string {
	if r == nil || len(r.Items) == 0 {
		return ""
	}
	if value, ok := r.Items[0][name]; ok && value != nil {
		if s, ok := value.(string); ok {
			return s
		}
		return fmt.Sprint(value)
	}
	return ""
}

type searchResponse struct {
	APIResponse struct {
		GlobalInfo struct {
			TotalCount int `json:"TotalCount"`
		} `json:"GlobalInfo"`
		Items []map[string]any `json:"Items"`
	} `json:"APIResponse"`
}

// Search runs a full-text query, projecting the requested fields.
func (c *Client) Search(ctx context.Context, query string, fields ...string) (*SearchResult, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}
	values := url.Values{}
	values.Set("query", query)
	if len(fields) > 0 {
		values.Set("fields", strings.Join(fields, ","))
	}
	values.Set("format", "json")
	values.Set("token", c.token)
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, searchPath, values.Encode())
	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("search: decode response: %w", err)
	}
	return &SearchResult{
		TotalCount: parsed.APIResponse.GlobalInfo.TotalCount,
		Items:      parsed.APIResponse.Items,
	}, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("cortex: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cortex: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cortex: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Status: resp.StatusCode, URL: redactToken(endpoint)}
	}
	return data, nil
}

func (c *Client) doForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("cortex: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cortex: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cortex: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Status: resp.StatusCode, URL: redactToken(endpoint)}
	}
	return data, nil
}

// checkApplicationFailure surfaces the failure code some responses
// embed under HTTP 200. Responses without the envelope pass through.
func checkApplicationFailure(body []byte) error {
	var parsed struct {
		APIResponse struct {
			Code string `json:"Code"`
		} `json:"APIResponse"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil
	}
	code := parsed.APIResponse.Code
	if code != "" && code != "SUCCESS" {
		return fmt.Errorf("%w: code %q", ErrRemoteFailure, code)
	}
	return nil
}

func redactToken(endpoint string) string {
	if idx := strings.Index(endpoint, "token="); idx >= 0 {
		return endpoint[:idx] + "token=..."
	}
	return endpoint
}
