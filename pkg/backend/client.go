package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/study-review-server/internal/domain"
)

// Client talks to the processing API over HTTP. Requests are throttled
// by a shared limiter so bursts of dashboard traffic cannot exceed the
// upstream's rate contract.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a processing API client from configuration.
func NewClient(config domain.BackendConfig) *Client {
	rps := config.RateLimit
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// ListProcessings fetches one page of processing transactions.
func (c *Client) ListProcessings(ctx context.Context, params domain.ListProcessingsParams) (*domain.ListProcessingsResponse, error) {
	query := url.Values{}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(params.PerPage))
	}
	if params.SearchQuery != "" {
		query.Set("search_query", params.SearchQuery)
	}
	if params.PatientName != "" {
		query.Set("patient_name", params.PatientName)
	}
	if params.StudyCreatedAtGTE != "" {
		query.Set("study_created_at__gte", params.StudyCreatedAtGTE)
	}
	if params.StudyCreatedAtLTE != "" {
		query.Set("study_created_at__lte", params.StudyCreatedAtLTE)
	}
	if params.Status != "" {
		query.Set("status", string(params.Status))
	}

	var out domain.ListProcessingsResponse
	// Pathology-key filtering switches to POST with the key array as the
	// body; the list endpoint does not accept the keys as a query param.
	if len(params.PathologyKeys) > 0 {
		if err := c.do(ctx, http.MethodPost, "/processings", query, params.PathologyKeys, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}
	if err := c.do(ctx, http.MethodGet, "/processings", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProcessing overwrites status and pathology keys of one study.
func (c *Client) UpdateProcessing(ctx context.Context, uid string, req domain.UpdateProcessingRequest) (*domain.Processing, error) {
	var out domain.Processing
	if err := c.do(ctx, http.MethodPut, "/processings/"+url.PathEscape(uid), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPathologies fetches the pathology records of one study.
func (c *Client) GetPathologies(ctx context.Context, uid string) ([]domain.ProcessingPathology, error) {
	var out []domain.ProcessingPathology
	if err := c.do(ctx, http.MethodGet, "/processings/"+url.PathEscape(uid)+"/pathologies", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePathologies submits a full batch of decision statuses.
func (c *Client) UpdatePathologies(ctx context.Context, uid string, req domain.UpdatePathologiesRequest) ([]domain.ProcessingPathology, error) {
	var out []domain.ProcessingPathology
	if err := c.do(ctx, http.MethodPut, "/processings/"+url.PathEscape(uid)+"/pathologies", nil, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePathology updates a single pathology status via the per-item
// endpoint.
func (c *Client) UpdatePathology(ctx context.Context, uid, key string, req domain.UpdatePathologyRequest) (*domain.ProcessingPathology, error) {
	var out domain.ProcessingPathology
	path := "/processings/" + url.PathEscape(uid) + "/pathologies/" + url.PathEscape(key)
	if err := c.do(ctx, http.MethodPut, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateReport requests report generation for a set of studies.
func (c *Client) GenerateReport(ctx context.Context, req *domain.GenerateReportRequest) error {
	return c.do(ctx, http.MethodPost, "/processings/report", nil, req, nil)
}

// do runs one rate-limited request and decodes a JSON response into out
// when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewReviewError(domain.ErrExternalAPI,
			fmt.Sprintf("%s %s failed", method, path), err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.NewReviewError(domain.ErrNotFound,
			fmt.Sprintf("%s %s returned 404", method, path), "")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.NewReviewError(domain.ErrExternalAPI,
			fmt.Sprintf("%s %s returned status %d", method, path, resp.StatusCode),
			string(detail))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewReviewError(domain.ErrExternalAPI,
			fmt.Sprintf("decoding %s %s response", method, path), err.Error())
	}
	return nil
}
