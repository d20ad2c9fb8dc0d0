package wizard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"chainspace-intake/internal/common/logger"
	"chainspace-intake/internal/intake/draftstore"
	"chainspace-intake/internal/intake/form"
	"chainspace-intake/internal/intake/notify"
	"chainspace-intake/internal/intake/submission"
	"chainspace-intake/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var fixedNow = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

type mockRepository struct {
	InsertFn func(ctx context.Context, row *models.ApplicationRow) error
}

func (m *mockRepository) Name() string { return "mock" }

func (m *mockRepository) Insert(ctx context.Context, row *models.ApplicationRow) error {
	if m.InsertFn != nil {
		return m.InsertFn(ctx, row)
	}
	return nil
}

type harness struct {
	backend *draftstore.MemoryBackend
	store   *draftstore.Store
	toasts  *notify.Recorder
	repo    *mockRepository
	wizard  *Wizard
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		backend: draftstore.NewMemoryBackend(),
		toasts:  &notify.Recorder{},
		repo:    &mockRepository{},
	}
	h.store = draftstore.New(h.backend)
	h.wizard = h.newWizard(t)
	return h
}

func (h *harness) newWizard(t *testing.T) *Wizard {
	svc := submission.NewService(h.repo, submission.WithClock(func() time.Time { return fixedNow }))
	return New(h.store, svc,
		WithNotifier(h.toasts),
		WithLogger(logger.NewTestLogger(t)),
		WithValidator(form.NewValidator(func() time.Time { return fixedNow })),
		WithResponseDays(7),
	)
}

func (h *harness) has(key string) bool {
	_, ok, _ := h.backend.Get(context.Background(), key)
	return ok
}

var sectionAnswers = map[int]map[form.Field]interface{}{
	1: {
		form.FieldFullName:    "Ada Okon",
		form.FieldEmail:       "ada@example.com",
		form.FieldPhone:       "08012345678",
		form.FieldDateOfBirth: "2000-01-15",
	},
	2: {
		form.FieldCurrentLocation:   "Uyo",
		form.FieldDistanceFromUyo:   "within-uyo",
		form.FieldCanAttendInPerson: "yes",
	},
	3: {
		form.FieldHasLaptop:             "yes",
		form.FieldInternetAccess:        "reliable-home",
		form.FieldProgrammingExperience: "beginner",
		form.FieldBlockchainFamiliarity: "basics",
	},
	4: {
		form.FieldCanCommitTime:          "yes",
		form.FieldWorkStudyStatus:        "student",
		form.FieldWeekdayAvailability:    "always",
		form.FieldLogisticsUnderstanding: true,
	},
	5: {
		form.FieldWhyWeb3:       strings.Repeat("w", 200),
		form.FieldWhatToBuild:   strings.Repeat("b", 150),
		form.FieldLearningStyle: []string{"hands-on"},
	},
	6: {
		form.FieldEnglishProficiency: "fluent",
	},
	7: {
		form.FieldHowDidYouHear: "twitter",
	},
	8: {
		form.FieldBiggestChallenge:       "Time management",
		form.FieldFallBehindStrategy:     "study-groups",
		form.FieldCodeOfConductAgreement: true,
		form.FieldCommitmentStatement:    true,
		form.FieldInformationAccuracy:    true,
	},
}

// fillTo answers and advances through every section before target.
func fillTo(t *testing.T, ctx context.Context, w *Wizard, target int) {
	t.Helper()
	for s := form.FirstSection; s < target; s++ {
		require.NoError(t, w.Apply(ctx, sectionAnswers[s]))
		state, err := w.Advance(ctx)
		require.NoError(t, err, "section %d", s)
		require.Equal(t, s+1, state.Section)
	}
}

func TestOpen_StartsAtFirstSection(t *testing.T) {
	h := newHarness(t)
	state := h.wizard.Open(context.Background())

	assert.True(t, state.Open)
	assert.Equal(t, 1, state.Section)
	assert.Equal(t, "Personal Information", state.Title)
	assert.InDelta(t, 100.0/9, state.Progress, 0.0001)
	assert.Equal(t, form.NewDraft(), state.Draft)
}

func TestAdvance_UnderageBlocked(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.wizard.Open(ctx)

	require.NoError(t, h.wizard.Apply(ctx, sectionAnswers[1]))
	require.NoError(t, h.wizard.Set(ctx, form.FieldDateOfBirth, "2010-06-01"))

	state, err := h.wizard.Advance(ctx)
	var verrs form.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has(form.FieldDateOfBirth))
	assert.Equal(t, "Must be 18 years or older", state.Errors[form.FieldDateOfBirth])
	assert.Equal(t, 1, state.Section)
	assert.ErrorIs(t, err, form.ErrFieldValidationFailed)
}

func TestAdvance_InvalidPhoneBlocked(t *testing.T) {
	ctx := context.Background()
	for _, phone := range []string{"0801234567", "+23480123456789", "+2348O12345678", "234801234567"} {
		t.Run(phone, func(t *testing.T) {
			h := newHarness(t)
			h.wizard.Open(ctx)
			require.NoError(t, h.wizard.Apply(ctx, sectionAnswers[1]))
			require.NoError(t, h.wizard.Set(ctx, form.FieldPhone, phone))

			state, err := h.wizard.Advance(ctx)
			require.Error(t, err)
			assert.Contains(t, state.Errors, form.FieldPhone)
			assert.Equal(t, 1, state.Section)
		})
	}
}

func TestAdvance_LearningStyle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.wizard.Open(ctx)
	fillTo(t, ctx, h.wizard, 5)

	answers := sectionAnswers[5]
	require.NoError(t, h.wizard.Apply(ctx, answers))
	require.NoError(t, h.wizard.Set(ctx, form.FieldLearningStyle, []string{}))

	state, err := h.wizard.Advance(ctx)
	require.Error(t, err)
	assert.Contains(t, state.Errors, form.FieldLearningStyle)
	assert.Equal(t, 5, state.Section)

	require.NoError(t, h.wizard.Set(ctx, form.FieldLearningStyle, []string{"visual"}))
	state, err = h.wizard.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, state.Section)
	assert.Empty(t, state.Errors)
}

func TestRetreat_NoValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.wizard.Open(ctx)
	fillTo(t, ctx, h.wizard, 3)

	// clearing an earlier answer does not block going back
	require.NoError(t, h.wizard.Set(ctx, form.FieldFullName, ""))
	state, err := h.wizard.Retreat(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, state.Section)

	state, _ = h.wizard.Retreat(ctx)
	assert.Equal(t, 1, state.Section)
	state, _ = h.wizard.Retreat(ctx)
	assert.Equal(t, 1, state.Section, "retreat stops at the first section")
}

func TestAdvance_StopsAtLastSection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.wizard.Open(ctx)
	fillTo(t, ctx, h.wizard, 9)

	state, err := h.wizard.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, state.Section)
	assert.Equal(t, 100.0, state.Progress)
}

func TestSubmit_RequiresLastSection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.wizard.Open(ctx)
	fillTo(t, ctx, h.wizard, 8)

	_, err := h.wizard.Submit(ctx)
	assert.ErrorIs(t, err, ErrNotFinalSection)
	assert.Empty(t, h.toasts.Toasts)
}

func TestSubmit_AgreementsMustBeAccepted(t *testing.T) {
	agreements := []form.Field{
		form.FieldCodeOfConductAgreement,
		form.FieldCommitmentStatement,
		form.FieldInformationAccuracy,
	}
	for _, agreement := range agreements {
		t.Run(string(agreement), func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t)
			inserted := false
			h.repo.InsertFn = func(context.Context, *models.ApplicationRow) error {
				inserted = true
				return nil
			}
			h.wizard.Open(ctx)
			fillTo(t, ctx, h.wizard, 9)

			require.NoError(t, h.wizard.Set(ctx, agreement, false))
			_, err := h.wizard.Submit(ctx)

			var verrs form.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.True(t, verrs.Has(agreement))
			assert.False(t, inserted, "storage must not be called")
			assert.True(t, h.has(draftstore.DraftKey))
			assert.True(t, h.wizard.State().Open)
		})
	}
}

func TestSubmit_Success(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	h := newHarness(t)
	var inserted *models.ApplicationRow
	h.repo.InsertFn = func(_ context.Context, row *models.ApplicationRow) error {
		inserted = row
		return nil
	}

	h.wizard.Open(ctx)
	fillTo(t, ctx, h.wizard, 9)
	require.True(t, h.has(draftstore.DraftKey))

	outcome, err := h.wizard.Submit(ctx)
	require.NoError(t, err)

	assert.True(t, submission.IsApplicationID(outcome.ApplicationID), outcome.ApplicationID)
	assert.Equal(t, fixedNow, outcome.SubmittedAt)

	toast, ok := h.toasts.Last()
	require.True(t, ok)
	assert.Equal(t, "Application Submitted Successfully!", toast.Title)
	assert.Contains(t, toast.Description, outcome.ApplicationID)
	assert.Contains(t, toast.Description, "7 business days")
	assert.Equal(t, notify.VariantDefault, toast.Variant)

	assert.False(t, h.has(draftstore.DraftKey), "draft is deleted")
	receipt, err := h.store.Receipt(ctx)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, outcome.ApplicationID, receipt.ApplicationID)
	assert.Equal(t, models.StatusSubmitted, receipt.Status)
	assert.Equal(t, "Ada Okon", receipt.FullName)

	require.NotNil(t, inserted)
	assert.Nil(t, inserted.PersonalProjects, "untouched optional fields are null")
	assert.Equal(t, "yes", inserted.CanPayLogistics)

	assert.False(t, h.wizard.State().Open, "form closes")
	_, err = h.wizard.Submit(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSubmit_StorageFailureKeepsDraft(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.repo.InsertFn = func(context.Context, *models.ApplicationRow) error {
		return errors.New("STORAGE_INSERT_FAILED: status 503")
	}

	h.wizard.Open(ctx)
	fillTo(t, ctx, h.wizard, 9)
	before := h.wizard.State().Draft

	_, err := h.wizard.Submit(ctx)
	assert.ErrorIs(t, err, ErrSubmissionFailed)

	toast, ok := h.toasts.Last()
	require.True(t, ok)
	assert.Equal(t, notify.Failure(), toast)
	assert.NotContains(t, toast.Description, "503")

	assert.True(t, h.has(draftstore.DraftKey), "draft survives")
	assert.False(t, h.has(draftstore.ReceiptKey), "no receipt")

	state := h.wizard.State()
	assert.True(t, state.Open)
	assert.False(t, state.Submitting)
	assert.Equal(t, 9, state.Section)
	assert.Equal(t, before, state.Draft)

	// retry without re-entering anything
	h.repo.InsertFn = nil
	outcome, err := h.wizard.Submit(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, outcome.ApplicationID)
}

func TestSubmit_GuardsAgainstDoubleSubmission(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	h := newHarness(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	h.repo.InsertFn = func(context.Context, *models.ApplicationRow) error {
		mu.Lock()
		calls++
		mu.Unlock()
		close(entered)
		<-release
		return nil
	}

	h.wizard.Open(ctx)
	fillTo(t, ctx, h.wizard, 9)

	done := make(chan error, 1)
	go func() {
		_, err := h.wizard.Submit(ctx)
		done <- err
	}()

	<-entered
	assert.True(t, h.wizard.State().Submitting)
	_, err := h.wizard.Submit(ctx)
	assert.ErrorIs(t, err, ErrSubmissionInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, calls)
	assert.False(t, h.wizard.State().Submitting)
}

func TestRehydration_RoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.wizard.Open(ctx)
	fillTo(t, ctx, h.wizard, 6)
	require.NoError(t, h.wizard.Set(ctx, form.FieldGender, "female"))
	require.NoError(t, h.wizard.Set(ctx, form.FieldLearningStyle, []interface{}{"hands-on", "visual"}))
	entered := h.wizard.State().Draft
	h.wizard.Close()

	reopened := h.newWizard(t)
	state := reopened.Open(ctx)
	assert.Equal(t, entered, state.Draft)
	assert.Equal(t, 1, state.Section, "position is not persisted")

	// reopening the same wizard also resets position
	state = h.wizard.Open(ctx)
	assert.Equal(t, 1, state.Section)
	assert.Equal(t, entered, state.Draft)
}

func TestOpen_MalformedDraftFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.backend.Set(ctx, draftstore.DraftKey, []byte(`{"fullName": "Ada"`)))

	state := h.wizard.Open(ctx)
	assert.True(t, state.Open)
	assert.Equal(t, form.NewDraft(), state.Draft)
}

func TestClosedWizardRejectsChanges(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	assert.ErrorIs(t, h.wizard.Set(ctx, form.FieldFullName, "Ada"), ErrClosed)

	h.wizard.Open(ctx)
	h.wizard.Close()
	_, err := h.wizard.Advance(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = h.wizard.Retreat(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestApply_TypeErrorLeavesDraftUnchanged(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.wizard.Open(ctx)

	err := h.wizard.Apply(ctx, map[form.Field]interface{}{
		form.FieldFullName:               "Ada",
		form.FieldLogisticsUnderstanding: "yes",
	})
	assert.ErrorIs(t, err, form.ErrWrongValueType)
	assert.Equal(t, "", h.wizard.State().Draft.FullName)
	assert.False(t, h.has(draftstore.DraftKey))
}

func TestVisibleFields_InPersonToggle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.wizard.Open(ctx)
	fillTo(t, ctx, h.wizard, 2)

	require.NoError(t, h.wizard.Apply(ctx, sectionAnswers[2]))
	state := h.wizard.State()
	assert.NotContains(t, state.VisibleFields, form.FieldInPersonExplanation)
	assert.NotContains(t, state.VisibleFields, form.FieldAccommodationPlan)

	require.NoError(t, h.wizard.Set(ctx, form.FieldCanAttendInPerson, "no"))
	state = h.wizard.State()
	assert.Contains(t, state.VisibleFields, form.FieldInPersonExplanation)
	assert.Contains(t, state.VisibleFields, form.FieldAccommodationPlan)

	require.NoError(t, h.wizard.Set(ctx, form.FieldInPersonExplanation, "Night shifts"))
	require.NoError(t, h.wizard.Set(ctx, form.FieldCanAttendInPerson, "yes"))
	state = h.wizard.State()
	assert.NotContains(t, state.VisibleFields, form.FieldInPersonExplanation)
	assert.Equal(t, "Night shifts", state.Draft.InPersonExplanation, "hidden values stay in the draft")

	_, err := h.wizard.Advance(ctx)
	assert.NoError(t, err)
}

func TestSaveFailureDoesNotBlockEditing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	broken := &brokenPersistence{Persistence: h.store}
	w := New(broken, submission.NewService(h.repo))
	w.Open(ctx)

	require.NoError(t, w.Set(ctx, form.FieldFullName, "Ada"))
	assert.Equal(t, "Ada", w.State().Draft.FullName)
	assert.Equal(t, 1, broken.saves)
}

type brokenPersistence struct {
	Persistence
	saves int
}

func (b *brokenPersistence) Save(context.Context, *form.Draft) error {
	b.saves++
	return draftstore.ErrStoreUnavailable
}

// gatedBackend blocks the next draft write until release is closed.
type gatedBackend struct {
	*draftstore.MemoryBackend
	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func newGatedBackend() *gatedBackend {
	return &gatedBackend{MemoryBackend: draftstore.NewMemoryBackend()}
}

func (g *gatedBackend) arm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = true
	g.entered = make(chan struct{})
	g.release = make(chan struct{})
}

func (g *gatedBackend) Set(ctx context.Context, key string, value []byte) error {
	g.mu.Lock()
	hold := g.armed && key == draftstore.DraftKey
	g.armed = g.armed && !hold
	entered, release := g.entered, g.release
	g.mu.Unlock()

	if hold {
		close(entered)
		<-release
	}
	return g.MemoryBackend.Set(ctx, key, value)
}

func newGatedHarness(t *testing.T) (*harness, *gatedBackend) {
	t.Helper()
	gated := newGatedBackend()
	h := &harness{
		backend: gated.MemoryBackend,
		toasts:  &notify.Recorder{},
		repo:    &mockRepository{},
	}
	h.store = draftstore.New(gated)
	h.wizard = h.newWizard(t)
	return h, gated
}

func TestApply_ConcurrentSavesKeepLatestDraft(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	h, gated := newGatedHarness(t)
	h.wizard.Open(ctx)

	gated.arm()
	first := make(chan error, 1)
	go func() { first <- h.wizard.Set(ctx, form.FieldFullName, "Ada Okon") }()
	<-gated.entered

	second := make(chan error, 1)
	go func() { second <- h.wizard.Set(ctx, form.FieldEmail, "ada@example.com") }()
	// give the second edit a chance to overtake the stalled save
	time.Sleep(20 * time.Millisecond)
	close(gated.release)

	require.NoError(t, <-first)
	require.NoError(t, <-second)

	inMemory := h.wizard.State().Draft
	assert.Equal(t, "Ada Okon", inMemory.FullName)
	assert.Equal(t, "ada@example.com", inMemory.Email)

	rehydrated := h.newWizard(t).Open(ctx).Draft
	assert.Equal(t, inMemory, rehydrated, "stored slot holds the latest draft")
}

func TestSubmit_ClearsAfterPendingSave(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	h, gated := newGatedHarness(t)
	h.wizard.Open(ctx)
	fillTo(t, ctx, h.wizard, 9)

	inserted := make(chan struct{})
	h.repo.InsertFn = func(context.Context, *models.ApplicationRow) error {
		close(inserted)
		return nil
	}

	gated.arm()
	edit := make(chan error, 1)
	go func() { edit <- h.wizard.Set(ctx, form.FieldGender, "female") }()
	<-gated.entered

	submitted := make(chan error, 1)
	go func() {
		_, err := h.wizard.Submit(ctx)
		submitted <- err
	}()
	<-inserted
	close(gated.release)

	require.NoError(t, <-edit)
	require.NoError(t, <-submitted)

	assert.False(t, h.has(draftstore.DraftKey), "draft slot stays empty after a successful submission")
	assert.True(t, h.has(draftstore.ReceiptKey))
	assert.Equal(t, form.NewDraft(), h.newWizard(t).Open(ctx).Draft)
}

func TestApply_RejectedWhileSubmitting(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	h := newHarness(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	h.repo.InsertFn = func(context.Context, *models.ApplicationRow) error {
		close(entered)
		<-release
		return nil
	}

	h.wizard.Open(ctx)
	fillTo(t, ctx, h.wizard, 9)

	done := make(chan error, 1)
	go func() {
		_, err := h.wizard.Submit(ctx)
		done <- err
	}()
	<-entered

	err := h.wizard.Set(ctx, form.FieldReferrerName, "Ini")
	assert.ErrorIs(t, err, ErrSubmissionInProgress)

	close(release)
	require.NoError(t, <-done)
}
