// Package client is a REST client for the coordination daemon.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Darlinghurst56/taskmaster/domain"
	"github.com/Darlinghurst56/taskmaster/workflow"
)

// Client talks to the coordination API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a client for the given base URL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type suggestionResponse struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message,omitempty"`
	Suggestion *domain.Suggestion `json:"suggestion"`
}

type suggestionsResponse struct {
	Success     bool                `json:"success"`
	Count       int                 `json:"count"`
	Total       int                 `json:"total"`
	Suggestions []domain.Suggestion `json:"suggestions"`
}

// Pending lists suggestions awaiting a decision.
func (c *Client) Pending() ([]domain.Suggestion, error) {
	var resp suggestionsResponse
	if err := c.get("/api/coordination/suggestions/pending", &resp); err != nil {
		return nil, err
	}
	return resp.Suggestions, nil
}

// Suggestions lists suggestions with optional status filter and limit.
func (c *Client) Suggestions(status string, limit int) ([]domain.Suggestion, error) {
	path := "/api/coordination/suggestions?"
	if status != "" {
		path += "status=" + status + "&"
	}
	if limit > 0 {
		path += fmt.Sprintf("limit=%d", limit)
	}

	var resp suggestionsResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return resp.Suggestions, nil
}

// CreateSuggestion creates a new task-assignment suggestion.
func (c *Client) CreateSuggestion(req workflow.CreateRequest) (*domain.Suggestion, error) {
	var resp suggestionResponse
	if err := c.post("/api/coordination/suggestions", req, &resp); err != nil {
		return nil, err
	}
	return resp.Suggestion, nil
}

// Approve approves a pending suggestion.
func (c *Client) Approve(id, comment, approvedBy string) (*domain.Suggestion, error) {
	payload := map[string]string{"comment": comment, "approvedBy": approvedBy}
	var resp suggestionResponse
	if err := c.post("/api/coordination/suggestions/"+id+"/approve", payload, &resp); err != nil {
		return nil, err
	}
	return resp.Suggestion, nil
}

// Reject rejects a pending suggestion with a reason.
func (c *Client) Reject(id, reason, rejectedBy string) (*domain.Suggestion, error) {
	payload := map[string]string{"reason": reason, "rejectedBy": rejectedBy}
	var resp suggestionResponse
	if err := c.post("/api/coordination/suggestions/"+id+"/reject", payload, &resp); err != nil {
		return nil, err
	}
	return resp.Suggestion, nil
}

// Stats fetches aggregate suggestion counters.
func (c *Client) Stats() (*domain.Stats, error) {
	var resp struct {
		Success bool          `json:"success"`
		Stats   *domain.Stats `json:"stats"`
	}
	if err := c.get("/api/coordination/stats", &resp); err != nil {
		return nil, err
	}
	return resp.Stats, nil
}

// Agents lists registered agents.
func (c *Client) Agents() ([]domain.Agent, error) {
	var resp struct {
		Success bool           `json:"success"`
		Agents  []domain.Agent `json:"agents"`
	}
	if err := c.get("/api/coordination/agents", &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// Servers lists tracked server processes.
func (c *Client) Servers() ([]domain.TrackedServer, error) {
	var resp struct {
		Success bool                   `json:"success"`
		Servers []domain.TrackedServer `json:"servers"`
	}
	if err := c.get("/api/servers", &resp); err != nil {
		return nil, err
	}
	return resp.Servers, nil
}

// Health fetches the daemon's health summary.
func (c *Client) Health() (map[string]interface{}, error) {
	var resp map[string]interface{}
	if err := c.get("/health", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (c *Client) get(path string, result interface{}) error {
	resp, err := c.HTTPClient.Get(c.BaseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decode(resp, result)
}

func (c *Client) post(path string, payload, result interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	resp, err := c.HTTPClient.Post(c.BaseURL+path, "application/json", body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decode(resp, result)
}

func decode(resp *http.Response, result interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
	}

	if result != nil {
		return json.Unmarshal(body, result)
	}
	return nil
}
