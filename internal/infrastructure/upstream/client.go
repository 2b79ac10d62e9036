package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wms-platform/scanwatch-service/internal/domain"
	"github.com/wms-platform/scanwatch-service/pkg/logging"
	"github.com/wms-platform/scanwatch-service/pkg/metrics"
	"github.com/wms-platform/scanwatch-service/pkg/resilience"
)

// Config holds upstream client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "http://localhost:8000",
		Timeout: 30 * time.Second,
	}
}

// Client is the HTTP client for the external scan-record API. All calls run
// through a circuit breaker; per-call outcomes are classified into the
// domain error types and never retried here.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a new upstream client
func NewClient(config *Config, breaker *resilience.CircuitBreaker, logger *logging.Logger, m *metrics.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		breaker: breaker,
		logger:  logger,
		metrics: m,
	}
}

// loginResponse is the upstream token grant.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// pageEnvelope is the upstream's paginated response shape. Either Data or
// Items carries the records; older deployments return a bare array instead.
type pageEnvelope struct {
	Data       json.RawMessage `json:"data"`
	Items      json.RawMessage `json:"items"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	Total      int             `json:"total"`
	TotalPages int             `json:"total_pages"`
}

// errorBody is the upstream's structured error shape.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// Login exchanges credentials for an upstream bearer token via the
// form-encoded token endpoint.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	start := time.Now()

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/auth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	result, err := c.execute(func() (interface{}, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, domain.NewUnreachableError(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &domain.TransientError{Message: "failed to read login response", Err: err}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, statusError(resp.StatusCode, body)
		}

		var grant loginResponse
		if err := json.Unmarshal(body, &grant); err != nil || grant.AccessToken == "" {
			return nil, &domain.TransientError{Message: "unparseable login response", Err: err}
		}

		return grant.AccessToken, nil
	})

	c.observe("login", err, time.Since(start))
	if err != nil {
		return "", err
	}

	return result.(string), nil
}

// FetchPage retrieves one page of a warehouse's stale-record result set. The
// sort key and order are fixed; page boundaries never reorder records.
func (c *Client) FetchPage(ctx context.Context, token string, query domain.PageQuery) (*domain.PageResult, error) {
	start := time.Now()

	params := url.Values{}
	if query.Warehouse != "" {
		params.Set("warehouse", query.Warehouse)
	}
	params.Set("page", strconv.Itoa(query.Page))
	params.Set("page_size", strconv.Itoa(query.PageSize))
	params.Set("sort", domain.SortKey)
	params.Set("order", domain.SortOrder)
	params.Set("show_cancelled", strconv.FormatBool(query.ShowCancelled))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/scan-records/weekly?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	result, err := c.execute(func() (interface{}, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, domain.NewUnreachableError(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &domain.TransientError{Message: "failed to read response body", Err: err}
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return nil, domain.ErrSessionExpired
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, statusError(resp.StatusCode, body)
		}

		return parsePage(body, query)
	})

	duration := time.Since(start)
	c.observe("fetch_page", err, duration)
	c.logger.UpstreamFetch(ctx, query.Warehouse, query.Page, duration, outcomeLabel(err))

	if err != nil {
		return nil, err
	}

	return result.(*domain.PageResult), nil
}

// execute runs fn through the circuit breaker, translating a rejected call
// into an unreachable-flavored transient error.
func (c *Client) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := c.breaker.Execute(fn)
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, &domain.TransientError{
				Message:     "scan-record API circuit is open, requests are being rejected",
				Unreachable: true,
				Err:         err,
			}
		}
		return nil, err
	}
	return result, nil
}

// parsePage decodes a success body. Record list precedence: bare array, then
// `data`, then `items`. Missing pagination fields are derived from the total
// count; a zero total still spans one page.
func parsePage(body []byte, query domain.PageQuery) (*domain.PageResult, error) {
	var records []domain.ScanRecord

	if err := json.Unmarshal(body, &records); err == nil {
		return &domain.PageResult{
			Records:    records,
			Page:       query.Page,
			PageSize:   query.PageSize,
			Total:      len(records),
			TotalPages: domain.DeriveTotalPages(len(records), query.PageSize),
		}, nil
	}

	var envelope pageEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &domain.TransientError{Message: "unparseable response body", Err: err}
	}

	raw := envelope.Data
	if raw == nil {
		raw = envelope.Items
	}
	if raw == nil {
		return nil, &domain.TransientError{Message: "response carries no record list"}
	}

	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, &domain.TransientError{Message: "unparseable record list", Err: err}
	}

	page := envelope.Page
	if page == 0 {
		page = query.Page
	}
	pageSize := envelope.PageSize
	if pageSize == 0 {
		pageSize = query.PageSize
	}
	totalPages := envelope.TotalPages
	if totalPages == 0 {
		totalPages = domain.DeriveTotalPages(envelope.Total, pageSize)
	}

	return &domain.PageResult{
		Records:    records,
		Page:       page,
		PageSize:   pageSize,
		Total:      envelope.Total,
		TotalPages: totalPages,
	}, nil
}

// statusError builds a TransientError from a non-2xx response, preferring the
// structured detail field when the body carries one.
func statusError(status int, body []byte) *domain.TransientError {
	message := fmt.Sprintf("upstream returned status %d", status)

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Detail != nil {
		var detail string
		if err := json.Unmarshal(parsed.Detail, &detail); err == nil && detail != "" {
			message = detail
		} else {
			message = string(parsed.Detail)
		}
	}

	return &domain.TransientError{
		StatusCode: status,
		Message:    message,
	}
}

func (c *Client) observe(operation string, err error, duration time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(operation, outcomeLabel(err), duration)
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case err == domain.ErrSessionExpired:
		return "session_expired"
	default:
		if te, ok := domain.AsTransient(err); ok {
			if te.Unreachable {
				return "unreachable"
			}
			if te.StatusCode != 0 {
				return "upstream_error"
			}
			return "parse_error"
		}
		return "error"
	}
}
