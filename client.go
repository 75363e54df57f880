package yayasan

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
	HeaderContentType   = "Content-Type"

	DefaultDevProxyPath   = "/api"
	DefaultRequestTimeout = 30 * time.Second
)

// RequestInterceptor runs before every outgoing request
type RequestInterceptor func(req *http.Request) error

// ResponseInterceptor runs after every response, success or failure.
// Returning an error aborts processing of the response.
type ResponseInterceptor func(resp *http.Response) error

// ClientOption customizes an APIClient
type ClientOption func(*APIClient)

// WithHTTPClient sets the underlying http.Client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *APIClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithClientLogger sets the logger used by the client
func WithClientLogger(logger Logger) ClientOption {
	return func(c *APIClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRequestInterceptor appends a request interceptor after the defaults
func WithRequestInterceptor(i RequestInterceptor) ClientOption {
	return func(c *APIClient) {
		if i != nil {
			c.requestInterceptors = append(c.requestInterceptors, i)
		}
	}
}

// WithResponseInterceptor appends a response interceptor after the defaults
func WithResponseInterceptor(i ResponseInterceptor) ClientOption {
	return func(c *APIClient) {
		if i != nil {
			c.responseInterceptors = append(c.responseInterceptors, i)
		}
	}
}

// APIClient is the single point of outbound communication with the backend
type APIClient struct {
	baseURL              *url.URL
	http                 *http.Client
	store                TokenStore
	logger               Logger
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewAPIClient creates a client whose base URL is resolved once from cfg
func NewAPIClient(cfg Config, store TokenStore, opts ...ClientOption) (*APIClient, error) {
	if store == nil {
		return nil, goerrors.New("token store is required", goerrors.CategoryBadInput)
	}

	raw := ResolveBaseURL(cfg.GetHost(), cfg.GetDevProxyPath(), cfg.GetAPIBaseURL())
	if raw == "" {
		return nil, goerrors.New("API base URL is required", goerrors.CategoryBadInput)
	}

	base, err := url.Parse(raw)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid API base URL").
			WithMetadata(map[string]any{"base_url": raw})
	}

	timeout := cfg.GetRequestTimeout()
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	c := &APIClient{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		store:   store,
		logger:  defLogger{},
	}

	c.requestInterceptors = []RequestInterceptor{
		BearerTokenInterceptor(store),
		RequestIDInterceptor(),
	}

	for _, opt := range opts {
		opt(c)
	}

	// session expiry goes first so later interceptors see a cleared store
	c.responseInterceptors = append(
		[]ResponseInterceptor{SessionExpiryInterceptor(store, c.logger)},
		c.responseInterceptors...,
	)

	return c, nil
}

// BaseURL returns the resolved base URL
func (c *APIClient) BaseURL() string {
	return c.baseURL.String()
}

// Store returns the TokenStore backing this client
func (c *APIClient) Store() TokenStore {
	return c.store
}

// ResolveBaseURL picks the dev proxy path when host is a loopback host,
// otherwise the remote origin.
func ResolveBaseURL(host, devProxyPath, remoteOrigin string) string {
	remoteOrigin = strings.TrimRight(strings.TrimSpace(remoteOrigin), "/")
	if host == "" || !IsLoopbackHost(host) {
		return remoteOrigin
	}

	if devProxyPath == "" {
		devProxyPath = DefaultDevProxyPath
	}
	if !strings.HasPrefix(devProxyPath, "/") {
		devProxyPath = "/" + devProxyPath
	}
	return "http://" + host + strings.TrimRight(devProxyPath, "/")
}

// IsLoopbackHost reports whether host (with or without port) points at
// the local machine
func IsLoopbackHost(host string) bool {
	h := host
	if hh, _, err := net.SplitHostPort(host); err == nil {
		h = hh
	}
	h = strings.Trim(h, "[]")
	if strings.EqualFold(h, "localhost") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}

// BearerTokenInterceptor attaches the stored token as a bearer credential.
// Without a token the request goes out unauthenticated.
func BearerTokenInterceptor(store TokenStore) RequestInterceptor {
	return func(req *http.Request) error {
		if token, ok := store.Read(KeyToken); ok && token != "" {
			req.Header.Set(HeaderAuthorization, "Bearer "+token)
		}
		return nil
	}
}

// RequestIDInterceptor tags requests with a correlation id
func RequestIDInterceptor() RequestInterceptor {
	return func(req *http.Request) error {
		if req.Header.Get(HeaderRequestID) == "" {
			req.Header.Set(HeaderRequestID, uuid.NewString())
		}
		return nil
	}
}

// SessionExpiryInterceptor clears the stored session on 401 and turns the
// response into ErrSessionExpired, no matter which endpoint produced it.
func SessionExpiryInterceptor(store TokenStore, logger Logger) ResponseInterceptor {
	return func(resp *http.Response) error {
		if resp.StatusCode != http.StatusUnauthorized {
			return nil
		}

		if err := clearAll(store, SessionKeys...); err != nil {
			logger.Error("failed to clear session after 401: %s", err)
		}

		meta := map[string]any{}
		if resp.Request != nil {
			meta["method"] = resp.Request.Method
			meta["path"] = resp.Request.URL.Path
		}
		return withMetadata(ErrSessionExpired, meta)
	}
}

// Get issues a GET request and decodes the response into out
func (c *APIClient) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST request with a JSON body
func (c *APIClient) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Put issues a PUT request with a JSON body
func (c *APIClient) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

// Delete issues a DELETE request
func (c *APIClient) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out)
}

// Do performs a JSON request against path, relative to the base URL
func (c *APIClient) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to encode request body")
		}
		c.logger.Debug("%s %s payload: %s", method, path, print.MaybeSecureJSON(body))
		reader = bytes.NewReader(b)
	}
	return c.send(ctx, method, path, query, reader, "application/json", out)
}

func (c *APIClient) send(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	endpoint := c.endpoint(path, query)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to build request").
			WithMetadata(map[string]any{"method": method, "path": path})
	}
	req.Header.Set(HeaderContentType, contentType)
	req.Header.Set("Accept", "application/json")

	for _, intercept := range c.requestInterceptors {
		if err := intercept(req); err != nil {
			return err
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("%s %s failed: %s", method, endpoint, err)
		return goerrors.Wrap(err, goerrors.CategoryOperation, "request failed").
			WithMetadata(map[string]any{"method": method, "path": path})
	}
	defer resp.Body.Close()

	c.logger.Debug("%s %s -> %d", method, endpoint, resp.StatusCode)

	for _, intercept := range c.responseInterceptors {
		if err := intercept(resp); err != nil {
			return err
		}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to read response body").
			WithMetadata(map[string]any{"method": method, "path": path})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp.StatusCode, method, path, payload)
	}

	return decodeEnvelope(payload, out)
}

func (c *APIClient) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawPath = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// decodeEnvelope reads the data member of the backend envelope into out,
// falling back to the whole body for endpoints that skip the envelope.
func decodeEnvelope(payload []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err == nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		payload = env.Data
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode response").
			WithTextCode(TextCodeMalformedResponse)
	}
	return nil
}

func apiError(status int, method, path string, payload []byte) error {
	message := http.StatusText(status)
	var body struct {
		Message string         `json:"message"`
		Error   string         `json:"error"`
		Errors  map[string]any `json:"errors"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		switch {
		case body.Message != "":
			message = body.Message
		case body.Error != "":
			message = body.Error
		}
	}

	meta := map[string]any{
		"method": method,
		"path":   path,
		"status": status,
	}
	if len(body.Errors) > 0 {
		meta["errors"] = body.Errors
	}

	return goerrors.New(message, categoryForStatus(status)).
		WithCode(status).
		WithMetadata(meta)
}

func categoryForStatus(status int) goerrors.Category {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return goerrors.CategoryValidation
	case http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case http.StatusForbidden:
		return goerrors.CategoryAuthz
	case http.StatusNotFound:
		return goerrors.CategoryNotFound
	case http.StatusConflict:
		return goerrors.CategoryConflict
	default:
		return goerrors.CategoryInternal
	}
}
