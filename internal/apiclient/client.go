// Package apiclient talks to the records API on behalf of the console. It
// implements the page source, per-record updater and bulk updater the
// reconciliation engine needs.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/baharkarakas/loyalty-admin/internal/api/httpx"
	"github.com/baharkarakas/loyalty-admin/internal/models"
	"github.com/baharkarakas/loyalty-admin/internal/reconcile"
)

// Client is bound to one ledger.
type Client struct {
	baseURL string
	ledger  models.Ledger
	token   string
	http    *http.Client
	log     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }
func WithLogger(l *slog.Logger) Option      { return func(c *Client) { c.log = l } }
func WithToken(tok string) Option           { return func(c *Client) { c.token = tok } }

func New(baseURL string, ledger models.Ledger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		ledger:  ledger,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Tokens is the login response.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login exchanges credentials for a token pair and keeps the access token
// for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (Tokens, error) {
	var out Tokens
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, "login", http.MethodPost, "/api/v1/auth/login", body, &out); err != nil {
		return Tokens{}, err
	}
	c.token = out.AccessToken
	return out, nil
}

func (c *Client) FetchPage(ctx context.Context, q reconcile.PageQuery) (reconcile.Page, error) {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("page_size", strconv.Itoa(q.PageSize))
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	var out models.RecordPage
	if err := c.do(ctx, "fetch page", http.MethodGet, c.ledgerPath()+"?"+v.Encode(), nil, &out); err != nil {
		return reconcile.Page{}, err
	}
	return reconcile.Page{Records: out.Results, Count: out.Count}, nil
}

func (c *Client) UpdateOne(ctx context.Context, id, value int64) error {
	path := fmt.Sprintf("%s/%d", c.ledgerPath(), id)
	return c.do(ctx, "update record", http.MethodPut, path, models.SetValueRequest{Value: value}, nil)
}

func (c *Client) BulkUpdate(ctx context.Context, req models.BulkUpdateRequest) (models.BulkUpdateResult, error) {
	var out models.BulkUpdateResult
	if err := c.do(ctx, "bulk update", http.MethodPost, c.ledgerPath()+"/bulk-update", req, &out); err != nil {
		return models.BulkUpdateResult{}, err
	}
	return out, nil
}

func (c *Client) ledgerPath() string { return "/api/v1/" + string(c.ledger) }

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &reconcile.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	c.log.Debug("api call", "op", op, "method", method, "path", path, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &reconcile.NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

// decodeError maps the server's error envelope onto the engine's error
// taxonomy.
func decodeError(op string, resp *http.Response) error {
	var apiErr httpx.APIError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &apiErr); err != nil || apiErr.Error == "" {
		apiErr.Error = strings.TrimSpace(string(raw))
		if apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &reconcile.AuthorizationError{Msg: apiErr.Error}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &reconcile.ValidationError{Field: apiErr.Code, Msg: apiErr.Error}
	}
	return &reconcile.NetworkError{Op: op, Status: resp.StatusCode, Err: errors.New(apiErr.Error)}
}
