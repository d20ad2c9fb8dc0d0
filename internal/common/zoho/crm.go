package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	commonhttp "chainspace-intake/internal/common/http"
)

const DefaultBaseURL = "https://www.zohoapis.com/crm/v3"

// CRMClient talks to the Zoho CRM Leads module.
type CRMClient struct {
	oauthToken string
	baseURL    string
	httpClient *commonhttp.Client
}

// Lead is the subset of Zoho lead fields admissions keeps in sync.
type Lead struct {
	ID          string `json:"id,omitempty"`
	Email       string `json:"Email"`
	FirstName   string `json:"First_Name,omitempty"`
	LastName    string `json:"Last_Name"`
	Phone       string `json:"Phone,omitempty"`
	City        string `json:"City,omitempty"`
	Source      string `json:"Lead_Source,omitempty"`
	Description string `json:"Description,omitempty"`
}

type upsertResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"data"`
}

func NewCRMClient(client *commonhttp.Client, baseURL, oauthToken string) *CRMClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &CRMClient{oauthToken: oauthToken, baseURL: baseURL, httpClient: client}
}

// CreateLead inserts one lead and returns its Zoho id.
func (c *CRMClient) CreateLead(ctx context.Context, lead *Lead) (string, error) {
	jsonData, err := json.Marshal(map[string]interface{}{"data": []Lead{*lead}})
	if err != nil {
		return "", fmt.Errorf("failed to marshal lead: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Leads", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.oauthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to create lead (status %d): %s", resp.StatusCode, string(body))
	}

	var created upsertResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(created.Data) == 0 {
		return "", fmt.Errorf("no data in response")
	}
	if created.Data[0].Status != "success" {
		return "", fmt.Errorf("lead creation failed: %s", created.Data[0].Message)
	}
	return created.Data[0].Details.ID, nil
}

// FindLeadByEmail returns the first lead with email, or nil. Zoho answers a
// search without matches with 204 and an empty body.
func (c *CRMClient) FindLeadByEmail(ctx context.Context, email string) (*Lead, error) {
	endpoint := fmt.Sprintf("%s/Leads/search?email=%s", c.baseURL, url.QueryEscape(email))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.oauthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil, nil
	case http.StatusOK:
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to search leads (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Data []Lead `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, nil
	}
	return &result.Data[0], nil
}
