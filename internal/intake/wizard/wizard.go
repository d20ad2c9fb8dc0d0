package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chainspace-intake/internal/common/logger"
	"chainspace-intake/internal/common/metrics"
	"chainspace-intake/internal/intake/form"
	"chainspace-intake/internal/intake/notify"
	"chainspace-intake/internal/intake/submission"
	"chainspace-intake/internal/models"
)

var (
	ErrNotFinalSection      = errors.New("SECTION_NOT_FINAL")
	ErrSubmissionInProgress = errors.New("SUBMISSION_IN_PROGRESS")
	ErrSubmissionFailed     = errors.New("SUBMISSION_FAILED")
	ErrClosed               = errors.New("SESSION_CLOSED")
)

// Persistence is the draft port the wizard mirrors every change into.
type Persistence interface {
	Load(ctx context.Context) (*form.Draft, error)
	Save(ctx context.Context, d *form.Draft) error
	Clear(ctx context.Context) error
	WriteReceipt(ctx context.Context, r *models.Receipt) error
}

// Submitter inserts a validated draft into the storage collaborator.
type Submitter interface {
	Submit(ctx context.Context, d *form.Draft) (*submission.Result, error)
}

// State is a snapshot of the wizard for rendering.
type State struct {
	Section       int                   `json:"section"`
	Title         string                `json:"title"`
	Progress      float64               `json:"progress"`
	VisibleFields []form.Field          `json:"visibleFields"`
	Draft         *form.Draft           `json:"draft"`
	Submitting    bool                  `json:"submitting"`
	Open          bool                  `json:"open"`
	Errors        map[form.Field]string `json:"errors,omitempty"`
}

// Outcome is returned by a successful submission.
type Outcome struct {
	ApplicationID string       `json:"applicationId"`
	SubmittedAt   time.Time    `json:"submittedAt"`
	Toast         notify.Toast `json:"toast"`
}

// Wizard is the nine-section navigation state machine for one applicant.
// Position is never persisted; field values are saved on every change.
type Wizard struct {
	mu sync.Mutex
	// persistMu orders store writes. It is acquired while mu is held so
	// saves and the post-submit clear land in state-change order.
	persistMu  sync.Mutex
	section    int
	draft      *form.Draft
	open       bool
	submitting bool
	errors     form.ValidationErrors

	store        Persistence
	submitter    Submitter
	validator    *form.Validator
	notifier     notify.Notifier
	logger       logger.Logger
	responseDays int
}

type Option func(*Wizard)

func WithNotifier(n notify.Notifier) Option {
	return func(w *Wizard) { w.notifier = n }
}

func WithLogger(log logger.Logger) Option {
	return func(w *Wizard) { w.logger = log }
}

func WithValidator(v *form.Validator) Option {
	return func(w *Wizard) { w.validator = v }
}

func WithResponseDays(days int) Option {
	return func(w *Wizard) { w.responseDays = days }
}

func New(store Persistence, submitter Submitter, opts ...Option) *Wizard {
	w := &Wizard{
		section:      form.FirstSection,
		draft:        form.NewDraft(),
		store:        store,
		submitter:    submitter,
		validator:    form.NewValidator(time.Now),
		notifier:     notify.NotifierFunc(func(notify.Toast) {}),
		logger:       logger.NewNoOpLogger(),
		responseDays: notify.DefaultResponseDays,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Open shows the form at section 1, rehydrating the persisted draft when one
// exists. An unreadable draft is logged and replaced by empty defaults.
func (w *Wizard) Open(ctx context.Context) State {
	draft, err := w.store.Load(ctx)
	switch {
	case errors.Is(err, form.ErrMalformedDraft):
		w.logger.Warn("Discarding malformed draft", map[string]interface{}{
			"error": err.Error(),
		})
		draft = nil
	case err != nil:
		w.logger.Error("Draft load failed, starting empty", map[string]interface{}{
			"error": err.Error(),
		})
		draft = nil
	}
	if draft == nil {
		draft = form.NewDraft()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft = draft
	w.section = form.FirstSection
	w.open = true
	w.errors = nil
	return w.stateLocked()
}

// Close hides the form. The persisted draft is kept.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.open = false
}

// Set changes one field and persists the whole draft.
func (w *Wizard) Set(ctx context.Context, f form.Field, value interface{}) error {
	return w.Apply(ctx, map[form.Field]interface{}{f: value})
}

// Apply changes several fields at once. Either every value is applied or,
// on a type error, none is.
func (w *Wizard) Apply(ctx context.Context, values map[form.Field]interface{}) error {
	w.mu.Lock()
	if !w.open {
		w.mu.Unlock()
		return ErrClosed
	}
	if w.submitting {
		w.mu.Unlock()
		return ErrSubmissionInProgress
	}
	next := w.draft.Clone()
	for f, v := range values {
		if err := next.Set(f, v); err != nil {
			w.mu.Unlock()
			return err
		}
	}
	w.draft = next
	w.persistMu.Lock()
	w.mu.Unlock()

	defer w.persistMu.Unlock()
	w.persist(ctx, next)
	return nil
}

func (w *Wizard) persist(ctx context.Context, d *form.Draft) {
	if err := w.store.Save(ctx, d); err != nil {
		w.logger.Warn("Draft save failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Advance validates the current section's fields and moves forward on
// success. Validation failures are returned as form.ValidationErrors. At the
// last section Advance is a no-op.
func (w *Wizard) Advance(ctx context.Context) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return State{}, ErrClosed
	}

	from := w.section
	if from >= form.LastSection {
		return w.stateLocked(), nil
	}

	if errs := w.validator.ValidateSection(w.draft, from); len(errs) > 0 {
		w.errors = errs
		metrics.RecordTransition(from, "next", "invalid")
		return w.stateLocked(), errs
	}

	w.errors = nil
	w.section = from + 1
	metrics.RecordTransition(from, "next", "ok")
	return w.stateLocked(), nil
}

// Retreat moves back one section without validating.
func (w *Wizard) Retreat(ctx context.Context) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return State{}, ErrClosed
	}

	if w.section > form.FirstSection {
		metrics.RecordTransition(w.section, "previous", "ok")
		w.section--
	}
	w.errors = nil
	return w.stateLocked(), nil
}

// Submit validates the whole draft and hands it to the submitter. Only one
// submission may be in flight. On success the draft is cleared, a receipt is
// written and the form closes; on failure the draft is left untouched.
func (w *Wizard) Submit(ctx context.Context) (*Outcome, error) {
	w.mu.Lock()
	if !w.open {
		w.mu.Unlock()
		return nil, ErrClosed
	}
	if w.submitting {
		w.mu.Unlock()
		return nil, ErrSubmissionInProgress
	}
	if w.section != form.LastSection {
		section := w.section
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: at section %d", ErrNotFinalSection, section)
	}
	if errs := w.validator.ValidateAll(w.draft); len(errs) > 0 {
		w.errors = errs
		w.mu.Unlock()
		return nil, errs
	}
	w.errors = nil
	w.submitting = true
	snapshot := w.draft.Clone()
	w.mu.Unlock()

	result, err := w.submitter.Submit(ctx, snapshot)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false

	if err != nil {
		w.logger.Error("Application submission failed", map[string]interface{}{
			"error": err.Error(),
		})
		w.notifier.Notify(notify.Failure())
		return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	// waits out any save still in flight from an earlier Apply
	w.persistMu.Lock()
	defer w.persistMu.Unlock()

	if err := w.store.Clear(ctx); err != nil {
		w.logger.Warn("Draft clear failed after submission", map[string]interface{}{
			"applicationId": result.ApplicationID,
			"error":         err.Error(),
		})
	}
	if err := w.store.WriteReceipt(ctx, models.NewReceipt(snapshot, result.ApplicationID, result.SubmittedAt)); err != nil {
		w.logger.Warn("Receipt write failed", map[string]interface{}{
			"applicationId": result.ApplicationID,
			"error":         err.Error(),
		})
	}

	toast := notify.Success(result.ApplicationID, w.responseDays)
	w.notifier.Notify(toast)
	w.open = false
	w.draft = form.NewDraft()
	w.section = form.FirstSection

	w.logger.Info("Application submitted", map[string]interface{}{
		"applicationId": result.ApplicationID,
	})

	return &Outcome{
		ApplicationID: result.ApplicationID,
		SubmittedAt:   result.SubmittedAt,
		Toast:         toast,
	}, nil
}

func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

func (w *Wizard) stateLocked() State {
	s := State{
		Section:       w.section,
		Title:         form.SectionTitle(w.section),
		Progress:      form.Progress(w.section),
		VisibleFields: form.VisibleFields(w.section, w.draft),
		Draft:         w.draft.Clone(),
		Submitting:    w.submitting,
		Open:          w.open,
	}
	if len(w.errors) > 0 {
		s.Errors = w.errors.ByField()
	}
	return s
}
