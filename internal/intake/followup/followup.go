package followup

import (
	"context"
	"errors"
	"time"

	apperrors "chainspace-intake/internal/common/errors"
	"chainspace-intake/internal/common/logger"
	"chainspace-intake/internal/common/metrics"
	"chainspace-intake/internal/models"

	"golang.org/x/sync/errgroup"
)

const (
	ActionConfirmationEmail = "confirmation_email"
	ActionStaffAlert        = "staff_alert"
	ActionSearchIndex       = "search_index"
	ActionReviewProcess     = "review_process"
	ActionCRMLead           = "crm_lead"
)

// ErrDisabled is returned by a hook that is configured off.
var ErrDisabled = errors.New("FOLLOWUP_DISABLED")

// Hook is one best-effort action run after a row was accepted. Run returns
// an external reference (message id, document id, process instance key).
type Hook interface {
	Action() string
	Run(ctx context.Context, row *models.ApplicationRow) (string, error)
}

// Dispatcher runs every hook concurrently. A failing hook is logged and
// recorded; it never affects the other hooks or the submission.
type Dispatcher struct {
	hooks  []Hook
	logger logger.Logger
	now    func() time.Time
	limit  int
}

func NewDispatcher(log logger.Logger, hooks ...Hook) *Dispatcher {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Dispatcher{
		hooks:  hooks,
		logger: log.WithFields(map[string]interface{}{"component": "followup"}),
		now:    time.Now,
		limit:  4,
	}
}

// Hooks lists the configured actions.
func (d *Dispatcher) Hooks() []string {
	names := make([]string, len(d.hooks))
	for i, h := range d.hooks {
		names[i] = h.Action()
	}
	return names
}

func (d *Dispatcher) Dispatch(ctx context.Context, row *models.ApplicationRow) []models.FollowupOutcome {
	outcomes := make([]models.FollowupOutcome, len(d.hooks))

	var g errgroup.Group
	g.SetLimit(d.limit)
	for i, hook := range d.hooks {
		g.Go(func() error {
			outcomes[i] = d.run(ctx, hook, row)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (d *Dispatcher) run(ctx context.Context, hook Hook, row *models.ApplicationRow) (outcome models.FollowupOutcome) {
	outcome = models.FollowupOutcome{
		Action:        hook.Action(),
		ApplicationID: row.ApplicationID,
	}
	defer func() {
		if r := recover(); r != nil {
			outcome.Status = models.FollowupStatusFailed
			outcome.Error = "panic during follow-up"
			d.logger.Error("follow-up panicked", map[string]interface{}{
				"action":        outcome.Action,
				"applicationId": row.ApplicationID,
				"panic":         r,
			})
		}
		outcome.CompletedAt = d.now().UTC()
		metrics.Followups.WithLabelValues(outcome.Action, outcome.Status).Inc()
	}()

	ref, err := hook.Run(ctx, row)
	switch {
	case errors.Is(err, ErrDisabled):
		outcome.Status = models.FollowupStatusDisabled
	case err != nil:
		stdErr := apperrors.NewFollowupFailedError(outcome.Action, err)
		outcome.Status = models.FollowupStatusFailed
		outcome.Error = stdErr.Details
		d.logger.Warn("follow-up failed", map[string]interface{}{
			"action":        outcome.Action,
			"applicationId": row.ApplicationID,
			"code":          stdErr.Code,
			"error":         err.Error(),
		})
	default:
		outcome.Status = models.FollowupStatusSent
		outcome.Reference = ref
		d.logger.Debug("follow-up completed", map[string]interface{}{
			"action":        outcome.Action,
			"applicationId": row.ApplicationID,
			"reference":     ref,
		})
	}
	return outcome
}
