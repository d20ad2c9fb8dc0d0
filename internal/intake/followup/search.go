package followup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"chainspace-intake/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

// SearchIndexer makes submitted rows searchable by the admissions team. The
// document id is the application id, so a repeated index call overwrites.
type SearchIndexer struct {
	client  *elasticsearch.Client
	index   string
	enabled bool
}

func NewSearchIndexer(client *elasticsearch.Client, index string, enabled bool) *SearchIndexer {
	if index == "" {
		index = "applications"
	}
	return &SearchIndexer{client: client, index: index, enabled: enabled}
}

func (s *SearchIndexer) Action() string { return ActionSearchIndex }

type indexResponse struct {
	ID     string `json:"_id"`
	Result string `json:"result"`
}

func (s *SearchIndexer) Run(ctx context.Context, row *models.ApplicationRow) (string, error) {
	if !s.enabled || s.client == nil {
		return "", ErrDisabled
	}

	body, err := json.Marshal(row)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	res, err := s.client.Index(s.index, bytes.NewReader(body),
		s.client.Index.WithDocumentID(row.ApplicationID),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return "", fmt.Errorf("index request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return "", fmt.Errorf("index %s: %s", s.index, res.String())
	}

	var parsed indexResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode index response: %w", err)
	}
	return parsed.ID, nil
}
