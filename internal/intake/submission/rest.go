package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	commonhttp "chainspace-intake/internal/common/http"
	"chainspace-intake/internal/models"
)

// RESTRepository inserts rows through a hosted PostgREST-style table API:
// POST {base}/rest/v1/{table} with the project API key.
type RESTRepository struct {
	client  *commonhttp.Client
	baseURL string
	apiKey  string
	table   string
}

func NewRESTRepository(client *commonhttp.Client, baseURL, apiKey, table string) *RESTRepository {
	if client == nil {
		client = commonhttp.NewClient(30 * time.Second)
	}
	if table == "" {
		table = "applications"
	}
	return &RESTRepository{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		table:   table,
	}
}

func (r *RESTRepository) Name() string { return "rest" }

// restError is the error object returned by the table API.
type restError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (r *RESTRepository) Insert(ctx context.Context, row *models.ApplicationRow) error {
	body, err := json.Marshal([]*models.ApplicationRow{row})
	if err != nil {
		return fmt.Errorf("%w: encode row: %v", ErrStorageInsertFailed, err)
	}

	url := fmt.Sprintf("%s/rest/v1/%s", r.baseURL, r.table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInsertFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")
	if r.apiKey != "" {
		req.Header.Set("apikey", r.apiKey)
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInsertFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var apiErr restError
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("%w: status %d: %s (%s)", ErrStorageInsertFailed, resp.StatusCode, apiErr.Message, apiErr.Code)
	}
	return fmt.Errorf("%w: status %d: %s", ErrStorageInsertFailed, resp.StatusCode, strings.TrimSpace(string(raw)))
}
