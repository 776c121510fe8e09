package shieldapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shieldsec/shield-cli/internal/domain/assessment"
	"github.com/shieldsec/shield-cli/internal/domain/organization"
	"github.com/shieldsec/shield-cli/internal/domain/session"
	consts "github.com/shieldsec/shield-cli/internal/shared/constants"
	sharedErrors "github.com/shieldsec/shield-cli/internal/shared/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultUserAgent = "shield-cli/1.0"

	msgNoAssessmentResult = "backend returned no assessment result"
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  int // requests per second, 0 = unlimited
	UserAgent  string
	Session    *session.Session // used when the request context carries none
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the SHIELD backend REST API.
// It implements organization.Repository, assessment.Gateway and
// assessment.FindingsGateway.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	limiter   *rate.Limiter
	session   *session.Session
	userAgent string
	logger    *zap.Logger
}

var (
	_ organization.Repository    = (*Client)(nil)
	_ assessment.Gateway         = (*Client)(nil)
	_ assessment.FindingsGateway = (*Client)(nil)
)

// APIError is returned for any non-2xx backend response, and for a 2xx
// assessment response that carries an error instead of a result.
type APIError struct {
	StatusCode int
	Detail     string // backend supplied reason, may be empty
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("shield api: status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("shield api: status %d", e.StatusCode)
}

// Reason returns the backend supplied detail, suitable for showing to a user.
func (e *APIError) Reason() string {
	return e.Detail
}

// NewClient creates a new backend client
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = consts.DefaultAPIBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = consts.DefaultHTTPTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit)
	}

	return &Client{
		baseURL:   base,
		http:      httpClient,
		limiter:   limiter,
		session:   cfg.Session,
		userAgent: cfg.UserAgent,
		logger:    cfg.Logger,
	}, nil
}

// FindAll lists organizations (GET /api/organizations)
func (c *Client) FindAll(ctx context.Context) ([]*organization.Organization, error) {
	var dtos []organizationDTO
	if err := c.do(ctx, http.MethodGet, "/api/organizations", nil, &dtos); err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}

	orgs := make([]*organization.Organization, 0, len(dtos))
	for _, dto := range dtos {
		if dto.TechStack.malformed {
			c.logger.Warn("unreadable stored tech stack",
				zap.Int64("organization_id", dto.ID),
				zap.String("organization", dto.Name),
			)
		}
		orgs = append(orgs, dto.toDomain())
	}
	return orgs, nil
}

// FindByID fetches one organization (GET /api/organizations/{id})
func (c *Client) FindByID(ctx context.Context, id int64) (*organization.Organization, error) {
	if id <= 0 {
		return nil, sharedErrors.ErrInvalidOrganizationID
	}
	var dto organizationDTO
	if err := c.do(ctx, http.MethodGet, "/api/organizations/"+strconv.FormatInt(id, 10), nil, &dto); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %d", sharedErrors.ErrOrganizationNotFound, id)
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return dto.toDomain(), nil
}

// Submit runs an assessment (POST /api/ai-agent-assessment). A 2xx body with
// an error field or without an assessment id is reported as an *APIError.
func (c *Client) Submit(ctx context.Context, req *assessment.Request) (*assessment.Result, error) {
	var dto submitResponseDTO
	status, err := c.send(ctx, http.MethodPost, "/api/ai-agent-assessment", requestToDTO(req), &dto)
	if err != nil {
		return nil, err
	}
	if e := strings.TrimSpace(dto.Error); e != "" {
		return nil, &APIError{StatusCode: status, Detail: e}
	}
	if strings.TrimSpace(dto.AssessmentID) == "" {
		detail := dto.errorBody.detail()
		if detail == "" {
			detail = msgNoAssessmentResult
		}
		return nil, &APIError{StatusCode: status, Detail: detail}
	}
	return dto.toDomain(req.Type()), nil
}

// ListTestCases fetches test cases (GET /api/ai-agent-test-cases/{id})
func (c *Client) ListTestCases(ctx context.Context, organizationID int64) ([]assessment.TestCase, error) {
	var dtos []testCaseDTO
	if err := c.do(ctx, http.MethodGet, "/api/ai-agent-test-cases/"+strconv.FormatInt(organizationID, 10), nil, &dtos); err != nil {
		return nil, fmt.Errorf("failed to list test cases: %w", err)
	}
	cases := make([]assessment.TestCase, 0, len(dtos))
	for _, dto := range dtos {
		cases = append(cases, dto.toDomain())
	}
	return cases, nil
}

// ListVulnerabilities fetches vulnerabilities (GET /api/ai-agent-vulnerabilities/{id})
func (c *Client) ListVulnerabilities(ctx context.Context, organizationID int64) ([]assessment.Vulnerability, error) {
	var dtos []vulnerabilityDTO
	if err := c.do(ctx, http.MethodGet, "/api/ai-agent-vulnerabilities/"+strconv.FormatInt(organizationID, 10), nil, &dtos); err != nil {
		return nil, fmt.Errorf("failed to list vulnerabilities: %w", err)
	}
	vulns := make([]assessment.Vulnerability, 0, len(dtos))
	for _, dto := range dtos {
		vulns = append(vulns, dto.toDomain())
	}
	return vulns, nil
}

// GetTestCase fetches one test case (GET /api/test-cases/{id})
func (c *Client) GetTestCase(ctx context.Context, id int64) (*assessment.TestCaseDetail, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %d", sharedErrors.ErrInvalidFindingID, id)
	}
	var dto testCaseDetailDTO
	if err := c.do(ctx, http.MethodGet, "/api/test-cases/"+strconv.FormatInt(id, 10), nil, &dto); err != nil {
		return nil, notFound(err, sharedErrors.ErrTestCaseNotFound, id, "failed to get test case")
	}
	return dto.toDomain(), nil
}

// ListTestCaseVulnerabilities fetches what one test case discovered
// (GET /api/vulnerabilities?test_case_id={id})
func (c *Client) ListTestCaseVulnerabilities(ctx context.Context, testCaseID int64) ([]assessment.Vulnerability, error) {
	if testCaseID <= 0 {
		return nil, fmt.Errorf("%w: %d", sharedErrors.ErrInvalidFindingID, testCaseID)
	}
	endpoint := "/api/vulnerabilities?" + url.Values{"test_case_id": {strconv.FormatInt(testCaseID, 10)}}.Encode()
	var dtos []vulnerabilityDTO
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &dtos); err != nil {
		return nil, fmt.Errorf("failed to list test case vulnerabilities: %w", err)
	}
	vulns := make([]assessment.Vulnerability, 0, len(dtos))
	for _, dto := range dtos {
		vulns = append(vulns, dto.toDomain())
	}
	return vulns, nil
}

// RunTestCase executes one test case (POST /api/test-cases/{id}/run)
func (c *Client) RunTestCase(ctx context.Context, id int64) (*assessment.TestRun, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %d", sharedErrors.ErrInvalidFindingID, id)
	}
	var dto testRunDTO
	if err := c.do(ctx, http.MethodPost, "/api/test-cases/"+strconv.FormatInt(id, 10)+"/run", struct{}{}, &dto); err != nil {
		return nil, notFound(err, sharedErrors.ErrTestCaseNotFound, id, "failed to run test case")
	}
	if dto.TestCase == nil {
		return nil, fmt.Errorf("%w: run response has no test_case", sharedErrors.ErrDeserializationFailed)
	}

	run := &assessment.TestRun{
		TestCase:        *dto.TestCase.toDomain(),
		Vulnerabilities: make([]assessment.Vulnerability, 0, len(dto.Vulnerabilities)),
	}
	for _, v := range dto.Vulnerabilities {
		run.Vulnerabilities = append(run.Vulnerabilities, v.toDomain())
	}
	return run, nil
}

// GetVulnerability fetches one vulnerability (GET /api/vulnerabilities/{id})
func (c *Client) GetVulnerability(ctx context.Context, id int64) (*assessment.VulnerabilityDetail, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %d", sharedErrors.ErrInvalidFindingID, id)
	}
	var dto vulnerabilityDetailDTO
	if err := c.do(ctx, http.MethodGet, "/api/vulnerabilities/"+strconv.FormatInt(id, 10), nil, &dto); err != nil {
		return nil, notFound(err, sharedErrors.ErrVulnerabilityNotFound, id, "failed to get vulnerability")
	}
	return dto.toDomain(), nil
}

// notFound maps a 404 onto sentinel and wraps everything else with msg.
func notFound(err, sentinel error, id int64, msg string) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %d", sentinel, id)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	_, err := c.send(ctx, method, endpoint, body, out)
	return err
}

// send performs one request and decodes a 2xx body into out. The returned
// status is 0 when no response was received.
func (c *Client) send(ctx context.Context, method, endpoint string, body, out interface{}) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	u := *c.baseURL
	endpointPath, query, _ := strings.Cut(endpoint, "?")
	u.Path = path.Join(u.Path, endpointPath)
	u.RawQuery = query

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokenFor(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("shield_api_request_failed",
			zap.String("request_id", requestID),
			zap.String("method", method),
			zap.String("path", endpoint),
			zap.Error(err),
		)
		return 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("shield_api_request",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &APIError{
			StatusCode: resp.StatusCode,
			Detail:     readErrorDetail(resp.Body),
			RequestID:  requestID,
		}
	}

	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, consts.ResponseBodyLimitBytes)).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, err)
	}
	return resp.StatusCode, nil
}

func (c *Client) tokenFor(ctx context.Context) string {
	if s := session.FromContext(ctx); s.Authenticated() {
		return s.Token()
	}
	return c.session.Token()
}

// readErrorDetail extracts {"error": ...} or {"message": ...} from an error body.
func readErrorDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, consts.ErrorBodyLimitBytes))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.detail()
}
