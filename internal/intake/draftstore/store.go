package draftstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"chainspace-intake/internal/common/logger"
	"chainspace-intake/internal/common/metrics"
	"chainspace-intake/internal/intake/form"
	"chainspace-intake/internal/models"
)

const (
	DraftKey   = "chainspace-application-draft"
	ReceiptKey = "chainspace-application-submitted"
)

var (
	ErrStoreUnavailable = errors.New("DRAFT_STORE_FAILED")
	ErrMalformedReceipt = errors.New("RECEIPT_PARSE_FAILED")
)

// Store is the draft persistence port: one draft slot and one receipt slot,
// optionally namespaced so many applicants can share a backend.
type Store struct {
	backend   Backend
	namespace string
	logger    logger.Logger
}

type Option func(*Store)

// WithNamespace prefixes both slot keys with "<ns>:".
func WithNamespace(ns string) Option {
	return func(s *Store) { s.namespace = ns }
}

func WithLogger(log logger.Logger) Option {
	return func(s *Store) { s.logger = log }
}

func New(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, logger: logger.NewNoOpLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Namespaced returns a store over the same backend scoped to ns.
func (s *Store) Namespaced(ns string) *Store {
	return &Store{backend: s.backend, namespace: ns, logger: s.logger.WithFields(map[string]interface{}{"namespace": ns})}
}

func (s *Store) key(slot string) string {
	if s.namespace == "" {
		return slot
	}
	return s.namespace + ":" + slot
}

// Load returns the persisted draft, or nil when the slot is empty. A stored
// value that is not valid JSON yields an error wrapping form.ErrMalformedDraft.
func (s *Store) Load(ctx context.Context) (*form.Draft, error) {
	data, ok, err := s.backend.Get(ctx, s.key(DraftKey))
	metrics.RecordDraftOperation("load", err)
	if err != nil {
		return nil, fmt.Errorf("%w: load draft: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		return nil, nil
	}

	draft, skipped, err := form.Decode(data)
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		s.logger.Warn("draft keys skipped on rehydration", map[string]interface{}{
			"skipped": skipped,
		})
	}
	return draft, nil
}

// Save overwrites the draft slot with the complete current draft.
func (s *Store) Save(ctx context.Context, d *form.Draft) error {
	data, err := form.Encode(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	err = s.backend.Set(ctx, s.key(DraftKey), data)
	metrics.RecordDraftOperation("save", err)
	if err != nil {
		return fmt.Errorf("%w: save draft: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	err := s.backend.Delete(ctx, s.key(DraftKey))
	metrics.RecordDraftOperation("clear", err)
	if err != nil {
		return fmt.Errorf("%w: clear draft: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// WriteReceipt overwrites the receipt slot.
func (s *Store) WriteReceipt(ctx context.Context, r *models.Receipt) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}
	err = s.backend.Set(ctx, s.key(ReceiptKey), data)
	metrics.RecordDraftOperation("receipt", err)
	if err != nil {
		return fmt.Errorf("%w: write receipt: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Receipt returns the last receipt, or nil when none was written.
func (s *Store) Receipt(ctx context.Context) (*models.Receipt, error) {
	data, ok, err := s.backend.Get(ctx, s.key(ReceiptKey))
	if err != nil {
		return nil, fmt.Errorf("%w: read receipt: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		return nil, nil
	}
	var r models.Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReceipt, err)
	}
	return &r, nil
}
