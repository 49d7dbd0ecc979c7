package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"venue-checkin/internal/common/config"
	"venue-checkin/internal/common/errors"
	commonhttp "venue-checkin/internal/common/http"
	"venue-checkin/internal/common/logger"
)

// Record is one raw CRM record. Field names are the vendor's; callers
// extract what they need with the String/ID helpers rather than binding to
// a fixed struct, since the remote schema varies without notice.
type Record map[string]interface{}

// String returns the named field as a string, or "" when absent or non-string.
func (r Record) String(field string) string {
	if v, ok := r[field]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// PageInfo mirrors the vendor's paging envelope.
type PageInfo struct {
	Page        int  `json:"page"`
	PerPage     int  `json:"per_page"`
	Count       int  `json:"count"`
	MoreRecords bool `json:"more_records"`
}

type searchResponse struct {
	Data []Record  `json:"data"`
	Info *PageInfo `json:"info,omitempty"`
}

// Filter is one field/operator/value criterion.
type Filter struct {
	Field    string
	Operator string
	Value    string
}

func (f Filter) String() string {
	return fmt.Sprintf("(%s:%s:%s)", f.Field, f.Operator, f.Value)
}

// OrCriteria combines filters with OR: ((a)or(b)or(c)).
func OrCriteria(filters []Filter) string {
	if len(filters) == 0 {
		return ""
	}
	if len(filters) == 1 {
		return filters[0].String()
	}
	parts := make([]string, len(filters))
	for i, f := range filters {
		parts[i] = f.String()
	}
	return "(" + strings.Join(parts, "or") + ")"
}

// AndGroups combines already-built criteria groups with AND, skipping empties.
func AndGroups(groups ...string) string {
	nonEmpty := make([]string, 0, len(groups))
	for _, g := range groups {
		if g != "" {
			nonEmpty = append(nonEmpty, g)
		}
	}
	if len(nonEmpty) == 0 {
		return ""
	}
	if len(nonEmpty) == 1 {
		return nonEmpty[0]
	}
	return "(" + strings.Join(nonEmpty, "and") + ")"
}

// Client talks to the vendor's record-search REST API. The API version is
// pinned at construction; there is no runtime capability probing.
type Client struct {
	baseURL    string
	oauthToken string
	httpClient *commonhttp.Client
	logger     logger.Logger
}

func NewClient(cfg *config.CRMConfig, log logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		oauthToken: cfg.OAuthToken,
		httpClient: commonhttp.NewClient(time.Duration(cfg.Timeout) * time.Second),
		logger:     log.WithFields(map[string]interface{}{"component": "crm"}),
	}
}

// SearchByCriteria queries a module with an OR/AND criteria expression.
func (c *Client) SearchByCriteria(ctx context.Context, module, criteria string, page, perPage int) ([]Record, error) {
	params := url.Values{}
	params.Set("criteria", criteria)
	return c.search(ctx, module, params, page, perPage)
}

// SearchByWord queries a module's free-text word index.
func (c *Client) SearchByWord(ctx context.Context, module, word string, page, perPage int) ([]Record, error) {
	params := url.Values{}
	params.Set("word", word)
	return c.search(ctx, module, params, page, perPage)
}

func (c *Client) search(ctx context.Context, module string, params url.Values, page, perPage int) ([]Record, error) {
	if page > 0 {
		params.Set("page", fmt.Sprintf("%d", page))
	}
	if perPage > 0 {
		params.Set("per_page", fmt.Sprintf("%d", perPage))
	}

	reqURL := fmt.Sprintf("%s/%s/search?%s", c.baseURL, module, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.oauthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	// 204 means the search matched nothing; not an error.
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, errors.NewCRMAuthFailedError(string(body))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search %s failed (status %d): %s", module, resp.StatusCode, string(body))
	}

	if len(body) == 0 {
		return nil, nil
	}

	if err := validateEnvelope(body); err != nil {
		// The vendor occasionally drifts its envelope; log and attempt the
		// normal decode before giving up.
		c.logger.Warn("response envelope mismatch", map[string]interface{}{
			"module": module,
			"error":  err.Error(),
		})
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.NewCRMResponseMalformedError(err)
	}

	return result.Data, nil
}
