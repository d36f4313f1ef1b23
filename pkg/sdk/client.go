package sdk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wealthos-dev/wealthos-store/pkg/record"
	"github.com/wealthos-dev/wealthos-store/pkg/schema"
)

// Client talks to a remote store daemon over HTTP. It implements WealthStore.
type Client struct {
	baseURL    string
	httpClient *http.Client
	adminToken string
	actor      string
}

// Option configures a Client.
type Option func(*Client)

// WithAdminToken enables the privileged surface.
func WithAdminToken(token string) Option {
	return func(c *Client) { c.adminToken = token }
}

// WithActor sets the identity recorded in the audit trail for mutations.
func WithActor(actor string) Option {
	return func(c *Client) { c.actor = actor }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New builds a client against baseURL, e.g. "http://localhost:7080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Collections() ([]string, error) {
	var names []string
	err := c.do(http.MethodGet, "/api/collections", nil, &names)
	return names, err
}

func (c *Client) List(name string, filter map[string]string) ([]record.Record, error) {
	path := "/api/collections/" + url.PathEscape(name)
	if len(filter) > 0 {
		q := url.Values{}
		for k, v := range filter {
			q.Set(k, v)
		}
		path += "?" + q.Encode()
	}
	var records []record.Record
	err := c.do(http.MethodGet, path, nil, &records)
	return records, err
}

func (c *Client) Get(name, id string) (record.Record, error) {
	var rec record.Record
	err := c.do(http.MethodGet, collectionPath(name, id), nil, &rec)
	return rec, err
}

func (c *Client) Create(name string, fields record.Record) (record.Record, error) {
	var rec record.Record
	err := c.do(http.MethodPost, "/api/collections/"+url.PathEscape(name), fields, &rec)
	return rec, err
}

func (c *Client) Update(name, id string, patch record.Record) (record.Record, error) {
	var rec record.Record
	err := c.do(http.MethodPatch, collectionPath(name, id), patch, &rec)
	return rec, err
}

func (c *Client) Delete(name, id string) error {
	return c.do(http.MethodDelete, collectionPath(name, id), nil, nil)
}

func (c *Client) AuditForRecord(id string) ([]schema.AuditEvent, error) {
	var events []schema.AuditEvent
	err := c.do(http.MethodGet, "/api/audit/"+url.PathEscape(id), nil, &events)
	return events, err
}

func (c *Client) SeedReset() error {
	return c.do(http.MethodPost, "/admin/seed-reset", nil, nil)
}

func collectionPath(name, id string) string {
	return "/api/collections/" + url.PathEscape(name) + "/" + url.PathEscape(id)
}

// do sends one request, retrying transport failures up to three times with
// backoff. HTTP error statuses are final and map back onto the store's
// sentinel errors so callers can keep using errors.Is.
func (c *Client) do(method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 200 * time.Millisecond)
		}

		req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.adminToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.adminToken)
		}
		if c.actor != "" {
			req.Header.Set("X-Actor-Id", c.actor)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		return drain(resp, out)
	}
	return fmt.Errorf("request failed after 3 attempts: %w", lastErr)
}

func drain(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		msg := apiErr.Error
		if msg == "" {
			msg = resp.Status
		}
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", record.ErrNotFound, msg)
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %s", record.ErrValidation, msg)
		default:
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, msg)
		}
	}

	if out == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
