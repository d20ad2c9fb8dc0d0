package submission

import (
	"context"
	"sync"
	"time"

	"chainspace-intake/internal/common/logger"
	"chainspace-intake/internal/common/metrics"
	"chainspace-intake/internal/common/observability"
	"chainspace-intake/internal/intake/form"
	"chainspace-intake/internal/models"
)

// FollowupDispatcher runs best-effort actions for an accepted row.
type FollowupDispatcher interface {
	Dispatch(ctx context.Context, row *models.ApplicationRow) []models.FollowupOutcome
}

// Result describes an accepted submission.
type Result struct {
	ApplicationID string
	SubmittedAt   time.Time
	Row           *models.ApplicationRow
}

// Service performs one insert attempt per call. It does not retry and does
// not deduplicate: each call generates a new application id.
type Service struct {
	repo            Repository
	followups       FollowupDispatcher
	obs             *observability.Observability
	logger          logger.Logger
	now             func() time.Time
	newID           func(time.Time) string
	submitTimeout   time.Duration
	followupTimeout time.Duration
	wg              sync.WaitGroup
}

type Option func(*Service)

func WithFollowups(d FollowupDispatcher) Option {
	return func(s *Service) { s.followups = d }
}

func WithObservability(o *observability.Observability) Option {
	return func(s *Service) { s.obs = o }
}

func WithLogger(log logger.Logger) Option {
	return func(s *Service) { s.logger = log }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(gen func(time.Time) string) Option {
	return func(s *Service) { s.newID = gen }
}

// WithTimeouts bounds the insert and the follow-up fan-out. Zero leaves the
// respective call unbounded.
func WithTimeouts(submit, followup time.Duration) Option {
	return func(s *Service) {
		s.submitTimeout = submit
		s.followupTimeout = followup
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: logger.NewNoOpLogger(),
		now:    time.Now,
		newID:  NewApplicationID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit maps the draft to a row and inserts it. The draft must already be
// validated. Follow-ups start after a successful insert and never change the
// result.
func (s *Service) Submit(ctx context.Context, d *form.Draft) (*Result, error) {
	submittedAt := s.now().UTC()
	id := s.newID(submittedAt)
	row := NewRecord(d, id, submittedAt)

	log := s.logger.WithFields(map[string]interface{}{
		"applicationId": id,
		"backend":       s.repo.Name(),
	})

	insertCtx := ctx
	if s.submitTimeout > 0 {
		var cancel context.CancelFunc
		insertCtx, cancel = context.WithTimeout(ctx, s.submitTimeout)
		defer cancel()
	}

	start := time.Now()
	err := s.repo.Insert(insertCtx, row)
	elapsed := time.Since(start)

	metrics.SubmissionDuration.WithLabelValues(s.repo.Name()).Observe(elapsed.Seconds())
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.Submissions.WithLabelValues(status).Inc()
	s.obs.RecordSubmission(ctx, s.repo.Name(), status, elapsed)

	if err != nil {
		log.Error("Application insert failed", map[string]interface{}{
			"error":    err.Error(),
			"duration": elapsed.String(),
		})
		return nil, err
	}

	log.Info("Application inserted", map[string]interface{}{
		"duration": elapsed.String(),
	})

	s.dispatchFollowups(row)

	return &Result{ApplicationID: id, SubmittedAt: submittedAt, Row: row}, nil
}

func (s *Service) dispatchFollowups(row *models.ApplicationRow) {
	if s.followups == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx := context.Background()
		if s.followupTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.followupTimeout)
			defer cancel()
		}
		s.followups.Dispatch(ctx, row)
	}()
}

// Wait blocks until in-flight follow-ups finish.
func (s *Service) Wait() {
	s.wg.Wait()
}
