// Package client is a Go SDK for the survey-engine API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/formlead/survey-engine/internal/engine"
	"github.com/formlead/survey-engine/internal/models"
)

// Client talks to a survey-engine deployment
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new survey-engine client
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// envelope mirrors the server's response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Questionnaires

// CreateQuestionnaire creates a questionnaire with its full section tree
func (c *Client) CreateQuestionnaire(ctx context.Context, q *models.Questionnaire) (*models.Questionnaire, error) {
	var out models.Questionnaire
	if err := c.call(ctx, "POST", "/api/v1/questionnaires", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetQuestionnaire retrieves a questionnaire by ID, tree included
func (c *Client) GetQuestionnaire(ctx context.Context, id string) (*models.Questionnaire, error) {
	var out models.Questionnaire
	if err := c.call(ctx, "GET", "/api/v1/questionnaires/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListQuestionnaires retrieves questionnaires
func (c *Client) ListQuestionnaires(ctx context.Context, limit, offset int) ([]*models.Questionnaire, error) {
	var out struct {
		Questionnaires []*models.Questionnaire `json:"questionnaires"`
		Total          int                     `json:"total"`
	}
	path := fmt.Sprintf("/api/v1/questionnaires?limit=%d&offset=%d", limit, offset)
	if err := c.call(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return out.Questionnaires, nil
}

// UpdateQuestionnaire updates questionnaire metadata (and the tree, when
// sections are present)
func (c *Client) UpdateQuestionnaire(ctx context.Context, id string, q *models.Questionnaire) (*models.Questionnaire, error) {
	var out models.Questionnaire
	if err := c.call(ctx, "PUT", "/api/v1/questionnaires/"+id, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeactivateQuestionnaire soft-deletes a questionnaire
func (c *Client) DeactivateQuestionnaire(ctx context.Context, id string) error {
	return c.call(ctx, "DELETE", "/api/v1/questionnaires/"+id, nil, nil)
}

// Responses

// SubmitResponse submits a response on the admin surface
func (c *Client) SubmitResponse(ctx context.Context, req models.SubmitRequest) (*models.Response, error) {
	var out models.Response
	if err := c.call(ctx, "POST", "/api/v1/responses", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetResponse retrieves a response by ID
func (c *Client) GetResponse(ctx context.Context, id string) (*models.Response, error) {
	var out models.Response
	if err := c.call(ctx, "GET", "/api/v1/responses/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListResponses retrieves a page of responses
func (c *Client) ListResponses(ctx context.Context, filters models.ResponseFilters) (*models.ResponsePage, error) {
	params := url.Values{}
	if filters.QuestionnaireID != "" {
		params.Set("questionnaire_id", filters.QuestionnaireID)
	}
	if filters.Limit > 0 {
		params.Set("limit", strconv.Itoa(filters.Limit))
	}
	if filters.Offset > 0 {
		params.Set("offset", strconv.Itoa(filters.Offset))
	}

	path := "/api/v1/responses"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var out models.ResponsePage
	if err := c.call(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConvertLead converts a response into a CRM lead
func (c *Client) ConvertLead(ctx context.Context, responseID string, req models.ConvertLeadRequest) (*models.ConvertLeadResult, error) {
	var out models.ConvertLeadResult
	if err := c.call(ctx, "POST", "/api/v1/responses/"+responseID+"/convert", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Links

// Link is a questionnaire link with its share URL
type Link struct {
	models.Link
	URL string `json:"url"`
}

// CreateLink issues a public access link
func (c *Client) CreateLink(ctx context.Context, req models.CreateLinkRequest) (*Link, error) {
	var out Link
	if err := c.call(ctx, "POST", "/api/v1/links", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateLink changes a link's active flag or expiry
func (c *Client) UpdateLink(ctx context.Context, slug string, req models.UpdateLinkRequest) (*Link, error) {
	var out Link
	if err := c.call(ctx, "PUT", "/api/v1/links/"+slug, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListLinks retrieves all links for a questionnaire
func (c *Client) ListLinks(ctx context.Context, questionnaireID string) ([]*Link, error) {
	var out struct {
		Links []*Link `json:"links"`
		Total int     `json:"total"`
	}
	if err := c.call(ctx, "GET", "/api/v1/questionnaires/"+questionnaireID+"/links", nil, &out); err != nil {
		return nil, err
	}
	return out.Links, nil
}

// Public surface

// ResolveLink opens a questionnaire through its public slug
func (c *Client) ResolveLink(ctx context.Context, slug string) (*models.Questionnaire, error) {
	var out models.Questionnaire
	if err := c.call(ctx, "GET", "/public/q/"+slug, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EvaluateLogic evaluates visibility and the running score for a step
func (c *Client) EvaluateLogic(ctx context.Context, slug, currentSectionID string, answers map[string]any) (*engine.VisibilityResult, error) {
	req := map[string]any{
		"current_section_id": currentSectionID,
		"answers":            answers,
	}
	var out engine.VisibilityResult
	if err := c.call(ctx, "POST", "/public/q/"+slug+"/logic", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitViaLink submits a response through a public slug
func (c *Client) SubmitViaLink(ctx context.Context, slug string, req models.SubmitRequest) (*models.Response, error) {
	var out models.Response
	if err := c.call(ctx, "POST", "/public/q/"+slug+"/responses", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, "GET", "/health", nil)
	return err
}

// call performs a request and unwraps the response envelope into out
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(resp, &env); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !env.Success {
		if env.Error != nil {
			return fmt.Errorf("API error: %s - %s", env.Error.Code, env.Error.Message)
		}
		return fmt.Errorf("API error: request failed")
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to unmarshal response data: %w", err)
		}
	}

	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
