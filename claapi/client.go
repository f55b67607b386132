// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package claapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/danielhkuo/cla-access/models"
)

const tracerName = "github.com/danielhkuo/cla-access/claapi"

// APIError is returned when the CLA backend responds with a non-2xx status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cla api %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client is a typed client for the CLA backend API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	tracer     trace.Tracer
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the HTTP timeout on a copy of the current HTTP client,
// leaving a client passed to WithHTTPClient untouched.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithRateLimit caps outgoing requests at r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, burst) }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client for the CLA backend rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "cla-access",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Inf, 1),
		tracer:  otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) do(ctx context.Context, op, method, path, token string, body, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "claapi."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limit: %w", op, err)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// errorMessage pulls a human readable message out of an error body. The CLA
// backend answers with {"message": ...}, {"errors": {...}} or plain text.
func errorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(raw) == 0 {
		return "unknown error"
	}
	var envelope struct {
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors"`
	}
	if json.Unmarshal(raw, &envelope) == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		for field, msg := range envelope.Errors {
			return field + ": " + msg
		}
	}
	return strings.TrimSpace(string(raw))
}

func seg(s string) string {
	return url.PathEscape(s)
}

// GetUser calls GET /v2/user/{id}.
func (c *Client) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var out models.User
	err := c.do(ctx, "GetUser", http.MethodGet, "/v2/user/"+seg(userID), "", nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUserWithAuthToken calls GET /v1/user/{id} as the bearer of token.
func (c *Client) GetUserWithAuthToken(ctx context.Context, userID, token string) (*models.User, error) {
	var out models.User
	err := c.do(ctx, "GetUserWithAuthToken", http.MethodGet, "/v1/user/"+seg(userID), token, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProject calls GET /v2/project/{id}.
func (c *Client) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	var out models.Project
	err := c.do(ctx, "GetProject", http.MethodGet, "/v2/project/"+seg(projectID), "", nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCompany calls GET /v2/company/{id}.
func (c *Client) GetCompany(ctx context.Context, companyID string) (*models.Company, error) {
	var out models.Company
	err := c.do(ctx, "GetCompany", http.MethodGet, "/v2/company/"+seg(companyID), "", nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCompanyProjectSignatures calls GET /v1/signatures/company/{cid}/project/{pid}.
func (c *Client) GetCompanyProjectSignatures(ctx context.Context, companyID, projectID string) (*models.SignatureList, error) {
	var out models.SignatureList
	path := "/v1/signatures/company/" + seg(companyID) + "/project/" + seg(projectID)
	err := c.do(ctx, "GetCompanyProjectSignatures", http.MethodGet, path, "", nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PostUserMessageToCompanyManager calls POST /v2/user/{uid}/request-company-whitelist/{cid}.
func (c *Client) PostUserMessageToCompanyManager(ctx context.Context, userID, companyID string, payload models.MessagePayload) (models.APIResponse, error) {
	var out models.APIResponse
	path := "/v2/user/" + seg(userID) + "/request-company-whitelist/" + seg(companyID)
	err := c.do(ctx, "PostUserMessageToCompanyManager", http.MethodPost, path, "", payload, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PostCCLAWhitelistRequest calls POST /v3/company/{cid}/ccla-whitelist-requests/{pid}.
func (c *Client) PostCCLAWhitelistRequest(ctx context.Context, companyID, projectID string, payload models.WhitelistPayload) (models.APIResponse, error) {
	var out models.APIResponse
	path := "/v3/company/" + seg(companyID) + "/ccla-whitelist-requests/" + seg(projectID)
	err := c.do(ctx, "PostCCLAWhitelistRequest", http.MethodPost, path, "", payload, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}
