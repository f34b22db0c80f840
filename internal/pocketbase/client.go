package pocketbase

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

	"github.com/google/uuid"
	"github.com/mmcdole/galleria/internal/domain"
)

const (
	defaultTimeout        = 60 * time.Second
	defaultAuthCollection = domain.CollectionUsers
)

// Client implements domain.Backend against the PocketBase REST API.
// Requests are never retried; failures go straight back to the caller.
type Client struct {
	baseURL        string
	authCollection string
	httpClient     *http.Client
	auth           *AuthStore
	openURL        func(string) error
	logger         *slog.Logger
}

var _ domain.Backend = (*Client)(nil)

// NewClient creates a new PocketBase API client. The auth session is seeded
// from sessions and written back to it on every change.
func NewClient(baseURL string, sessions domain.SessionStore, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		authCollection: defaultAuthCollection,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		auth:    NewAuthStore(sessions, logger),
		openURL: func(string) error { return errors.New("no browser opener configured") },
		logger:  logger,
	}
}

// SetAuthCollection changes the auth collection used for sign-in
func (c *Client) SetAuthCollection(name string) {
	if name != "" {
		c.authCollection = name
	}
}

// SetURLOpener sets how OAuth2 authorization URLs reach the user
func (c *Client) SetURLOpener(open func(string) error) {
	if open != nil {
		c.openURL = open
	}
}

// BaseURL returns the server URL without trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Auth exposes the session store
func (c *Client) Auth() *AuthStore {
	return c.auth
}

// doRequest performs an HTTP request against the API and returns the body of
// a 2xx response. Non-2xx responses become *APIError.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.auth.Token(); token != "" {
		req.Header.Set("Authorization", token)
	}

	c.logger.Debug("pocketbase request", "method", method, "url", reqURL, "request_id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("pocketbase request failed", "error", err, "request_id", requestID)
		return nil, fmt.Errorf("%w: %v", domain.ErrServerOffline, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{}
		if len(respBody) == 0 || json.Unmarshal(respBody, apiErr) != nil {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		apiErr.Status = resp.StatusCode
		c.logger.Error("pocketbase request error",
			"status", resp.StatusCode,
			"message", apiErr.Message,
			"method", method,
			"path", path,
			"request_id", requestID,
		)
		return nil, apiErr
	}

	return respBody, nil
}

func recordsPath(collection string) string {
	return "/api/collections/" + url.PathEscape(collection) + "/records"
}

func recordPath(collection, id string) string {
	return recordsPath(collection) + "/" + url.PathEscape(id)
}

type queryOptions domain.ListOptions

func (o queryOptions) values() url.Values {
	q := url.Values{}
	if o.Sort != "" {
		q.Set("sort", o.Sort)
	}
	if o.Filter != "" {
		q.Set("filter", o.Filter)
	}
	if o.Expand != "" {
		q.Set("expand", o.Expand)
	}
	return q
}

// List returns one page of records of a collection
func (c *Client) List(ctx context.Context, collection string, page, perPage int, opts domain.ListOptions) (*domain.ListResult, error) {
	query := queryOptions(opts).values()
	query.Set("page", strconv.Itoa(page))
	query.Set("perPage", strconv.Itoa(perPage))

	body, err := c.doRequest(ctx, http.MethodGet, recordsPath(collection), query, nil)
	if err != nil {
		return nil, err
	}

	var result domain.ListResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

// GetOne returns a single record
func (c *Client) GetOne(ctx context.Context, collection, id string, opts domain.ListOptions) (json.RawMessage, error) {
	body, err := c.doRequest(ctx, http.MethodGet, recordPath(collection, id), queryOptions(opts).values(), nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// Create inserts a record
func (c *Client) Create(ctx context.Context, collection string, body any) (json.RawMessage, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, recordsPath(collection), nil, body)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(resp), nil
}

// Update patches a record
func (c *Client) Update(ctx context.Context, collection, id string, body any) (json.RawMessage, error) {
	resp, err := c.doRequest(ctx, http.MethodPatch, recordPath(collection, id), nil, body)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(resp), nil
}

// Delete removes a record
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, recordPath(collection, id), nil, nil)
	return err
}

// FileURL returns the public URL of a file field value
func (c *Client) FileURL(collection, recordID, filename string) string {
	if filename == "" {
		return ""
	}
	return fmt.Sprintf("%s/api/files/%s/%s/%s",
		c.baseURL,
		url.PathEscape(collection),
		url.PathEscape(recordID),
		url.PathEscape(filename),
	)
}
